package preprocessing

import (
	"fmt"
	"math"
)

// Layout describes a row-major [Rows, Slots, Width] feature buffer.
type Layout struct {
	Data  []float32
	Rows  int
	Slots int
	Width int
}

// Column returns the strided view of variable col.
func (l Layout) Column(col int) Column {
	return Column{Data: l.Data, Rows: l.Rows, Slots: l.Slots, Width: l.Width, Col: col}
}

// Column is one variable of a Layout, viewed as a [Rows, Slots] matrix.
type Column struct {
	Data  []float32
	Rows  int
	Slots int
	Width int
	Col   int
}

func (c Column) index(r, s int) int { return (r*c.Slots+s)*c.Width + c.Col }

func (c Column) At(r, s int) float32 { return c.Data[c.index(r, s)] }

// slot collects the non-NaN values of slot s.
func (c Column) slot(s int) []float64 {
	out := make([]float64, 0, c.Rows)
	for r := 0; r < c.Rows; r++ {
		if v := c.At(r, s); !math.IsNaN(float64(v)) {
			out = append(out, float64(v))
		}
	}
	return out
}

// pooled collects the non-NaN values of every slot.
func (c Column) pooled() []float64 {
	out := make([]float64, 0, c.Rows*c.Slots)
	for r := 0; r < c.Rows; r++ {
		for s := 0; s < c.Slots; s++ {
			if v := c.At(r, s); !math.IsNaN(float64(v)) {
				out = append(out, float64(v))
			}
		}
	}
	return out
}

// Apply normalizes the column in place as (x - offset) / scale. offset and
// scale hold either one value or one value per slot.
func Apply(c Column, offset, scale []float32) error {
	if err := checkLen(len(offset), c.Slots); err != nil {
		return fmt.Errorf("offset: %w", err)
	}
	if err := checkLen(len(scale), c.Slots); err != nil {
		return fmt.Errorf("scale: %w", err)
	}
	for s := 0; s < c.Slots; s++ {
		o, k := pick(offset, s), pick(scale, s)
		for r := 0; r < c.Rows; r++ {
			i := c.index(r, s)
			c.Data[i] = (c.Data[i] - o) / k
		}
	}
	return nil
}

// FillNaN replaces every NaN, and every infinity left by a log of a zero
// input, by the 0 sentinel and reports how many values were replaced.
func FillNaN(buf []float32) int {
	n := 0
	for i, v := range buf {
		if v != v || v > math.MaxFloat32 || v < -math.MaxFloat32 {
			buf[i] = 0
			n++
		}
	}
	return n
}

func pick(v []float32, s int) float32 {
	if len(v) == 1 {
		return v[0]
	}
	return v[s]
}

func checkLen(n, slots int) error {
	if n == 1 || n == slots {
		return nil
	}
	return fmt.Errorf("length %d, want 1 or %d", n, slots)
}
