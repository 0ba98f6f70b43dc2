package transform

import (
	"math"
)

// Func derives one feature column. See Dest for the buffer layout.
type Func func(src Reader, dst Dest, rows Range) error

// Copy is the identity transform of a raw column.
func Copy(column string) Func {
	return func(src Reader, dst Dest, rows Range) error {
		return Read(src, column, dst, rows)
	}
}

func mapped(column string, fn func(float32) float32) Func {
	return func(src Reader, dst Dest, rows Range) error {
		if err := Read(src, column, dst, rows); err != nil {
			return err
		}
		dst.Map(fn)
		return nil
	}
}

func log10(x float32) float32 { return float32(math.Log10(float64(x))) }

// Log10 computes log10(x + eps); eps is only added when nonzero.
func Log10(column string, eps float32) Func {
	return mapped(column, func(x float32) float32 {
		if eps != 0 {
			x += eps
		}
		return log10(x)
	})
}

// AbsLog10 computes log10(|x| + eps); eps is only added when nonzero.
func AbsLog10(column string, eps float32) Func {
	return mapped(column, func(x float32) float32 {
		x = abs(x)
		if eps != 0 {
			x += eps
		}
		return log10(x)
	})
}

func Abs(column string) Func { return mapped(column, abs) }

// Min caps the column at upper.
func Min(column string, upper float32) Func {
	return mapped(column, func(x float32) float32 { return min(x, upper) })
}

// ClampLog10 computes log10(max(x, lower)).
func ClampLog10(column string, lower float32) Func {
	return mapped(column, func(x float32) float32 { return log10(max(x, lower)) })
}

// MinLog10 computes log10(min(x, upper)).
func MinLog10(column string, upper float32) Func {
	return mapped(column, func(x float32) float32 { return log10(min(x, upper)) })
}

// ScaledClampLog10 computes log10(max(x / div, lower)).
func ScaledClampLog10(column string, div, lower float32) Func {
	return mapped(column, func(x float32) float32 { return log10(max(x/div, lower)) })
}

// Delta subtracts the per-event reference from every slot.
func Delta(column string, refs ...string) Func {
	return withRef(column, refs, func(x, ref float32) float32 { return x - ref })
}

// DeltaPhi is the angular difference x - ref wrapped into (-pi, pi].
func DeltaPhi(column string, refs ...string) Func {
	return withRef(column, refs, func(x, ref float32) float32 { return wrapPhi(float64(x) - float64(ref)) })
}

// Broadcast zeroes the sequence column and adds the per-event reference.
// Slots holding NaN (absent objects) stay NaN since 0 * NaN = NaN.
func Broadcast(column string, refs ...string) Func {
	return withRef(column, refs, func(x, ref float32) float32 { return x*0 + ref })
}

// BroadcastLog10 is Broadcast with log10(ref).
func BroadcastLog10(column string, refs ...string) Func {
	return withRef(column, refs, func(x, ref float32) float32 { return x*0 + log10(ref) })
}

// Replicate writes a per-event scalar into every slot, regardless of
// whether the slot holds an object.
func Replicate(refs ...string) Func {
	return replicated(refs, func(v float32) float32 { return v })
}

// ReplicateLog10 is Replicate with log10 of the scalar.
func ReplicateLog10(refs ...string) Func {
	return replicated(refs, log10)
}

func replicated(refs []string, fn func(float32) float32) Func {
	return func(src Reader, dst Dest, rows Range) error {
		ref, err := readRef(src, dst, rows, refs...)
		if err != nil {
			return err
		}
		for r := 0; r < dst.Rows; r++ {
			v := fn(ref[r])
			for s := 0; s < dst.Slots; s++ {
				dst.Set(r, s, v)
			}
		}
		return nil
	}
}

func withRef(column string, refs []string, fn func(x, ref float32) float32) Func {
	return func(src Reader, dst Dest, rows Range) error {
		ref, err := readRef(src, dst, rows, refs...)
		if err != nil {
			return err
		}
		if err := Read(src, column, dst, rows); err != nil {
			return err
		}
		for r := 0; r < dst.Rows; r++ {
			for s := 0; s < dst.Slots; s++ {
				dst.Set(r, s, fn(dst.Get(r, s), ref[r]))
			}
		}
		return nil
	}
}

// WrapPhi maps an angle into (-pi, pi] using ((v + pi) mod 2pi) - pi with a
// floored modulo. The bounds are those of float32 pi, so a result that
// rounds onto -pi while narrowing is reported as +pi.
func WrapPhi(v float32) float32 { return wrapPhi(float64(v)) }

const pi32 = float32(math.Pi)

func wrapPhi(v float64) float32 {
	w := v + math.Pi
	w -= 2 * math.Pi * math.Floor(w/(2*math.Pi))
	w -= math.Pi
	r := float32(w)
	if r <= -pi32 {
		r = pi32
	}
	return r
}

func abs(x float32) float32 { return float32(math.Abs(float64(x))) }
