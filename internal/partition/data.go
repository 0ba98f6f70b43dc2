// Package partition shuffles, splits and reweights labeled feature data.
package partition

import "fmt"

// DefaultSeed is the seed used when a caller passes 0.
const DefaultSeed int64 = 1234567890

// Data is a labeled feature set: X is row-major [Rows, Slots, Vars], Y the
// labels and W the per-row weights.
type Data struct {
	X     []float32
	Slots int
	Vars  int
	Y     []float32
	W     []float32
}

// Stride is the number of features per row.
func (d *Data) Stride() int { return d.Slots * d.Vars }

func (d *Data) Rows() int { return len(d.Y) }

func (d *Data) validate() error {
	n := len(d.Y)
	if len(d.W) != n {
		return fmt.Errorf("partition: %d labels but %d weights", n, len(d.W))
	}
	if len(d.X) != n*d.Stride() {
		return fmt.Errorf("partition: %d features, want %d rows x %d", len(d.X), n, d.Stride())
	}
	return nil
}

func (d *Data) slice(lo, hi int) Data {
	s := d.Stride()
	return Data{X: d.X[lo*s : hi*s], Slots: d.Slots, Vars: d.Vars, Y: d.Y[lo:hi], W: d.W[lo:hi]}
}

// swapper swaps whole rows of d.
func (d *Data) swapper() func(i, j int) {
	s := d.Stride()
	tmp := make([]float32, s)
	return func(i, j int) {
		a, b := d.X[i*s:(i+1)*s], d.X[j*s:(j+1)*s]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
		d.Y[i], d.Y[j] = d.Y[j], d.Y[i]
		d.W[i], d.W[j] = d.W[j], d.W[i]
	}
}
