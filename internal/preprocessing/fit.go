package preprocessing

import "fmt"

// Fitter derives offset and scale for one variable from its training
// values. Results have one entry per slot, except Flat which returns a
// single value.
type Fitter interface {
	Fit(x Column) (offset, scale []float32, err error)
}

// FitterFunc adapts a plain function to Fitter.
type FitterFunc func(x Column) ([]float32, []float32, error)

func (f FitterFunc) Fit(x Column) ([]float32, []float32, error) { return f(x) }

// MeanStd offsets by the mean and scales by the standard deviation, either
// per slot or pooled over all slots.
type MeanStd struct{ PerSlot bool }

func (m MeanStd) Fit(x Column) ([]float32, []float32, error) {
	off, sc := perSlot(x, m.PerSlot, func(v []float64) (float64, float64) {
		return nanMean(v), nanStd(v)
	})
	return off, sc, nil
}

// Robust offsets by the median and scales by the spread between the Low
// and High percentiles, per slot.
type Robust struct{ Low, High float64 }

func (r Robust) Fit(x Column) ([]float32, []float32, error) {
	low, high := r.Low, r.High
	if low == 0 && high == 0 {
		low, high = 25, 75
	}
	if high <= low {
		return nil, nil, fmt.Errorf("preprocessing: robust percentiles need high > low, got high=%v low=%v", high, low)
	}
	off, sc := perSlot(x, true, func(v []float64) (float64, float64) {
		return nanPercentile(v, 50), nanPercentile(v, high) - nanPercentile(v, low)
	})
	return off, sc, nil
}

// MinMax maps [min, max] onto [0, 1], per slot or pooled.
type MinMax struct{ PerSlot bool }

func (m MinMax) Fit(x Column) ([]float32, []float32, error) {
	off, sc := perSlot(x, m.PerSlot, func(v []float64) (float64, float64) {
		lo, hi := nanMin(v), nanMax(v)
		return lo, hi - lo
	})
	return off, sc, nil
}

// MaxOnly divides by the per-slot maximum.
type MaxOnly struct{}

func (MaxOnly) Fit(x Column) ([]float32, []float32, error) {
	off, sc := perSlot(x, true, func(v []float64) (float64, float64) {
		return 0, nanMax(v)
	})
	return off, sc, nil
}

// Constant uses literal values for every slot.
type Constant struct{ Offset, Scale float32 }

func (c Constant) Fit(x Column) ([]float32, []float32, error) {
	off, sc := make([]float32, x.Slots), make([]float32, x.Slots)
	for i := range off {
		off[i], sc[i] = c.Offset, c.Scale
	}
	return off, sc, nil
}

// Flat reduces the whole column to one scalar mean and standard deviation.
type Flat struct{}

func (Flat) Fit(x Column) ([]float32, []float32, error) {
	v := x.pooled()
	return []float32{float32(nanMean(v))}, []float32{float32(nanStd(v))}, nil
}

// Identity returns offset 0 and scale 1 per slot; used for variables
// declared without a fitter.
func Identity(slots int) ([]float32, []float32) {
	off, sc := make([]float32, slots), make([]float32, slots)
	for i := range sc {
		sc[i] = 1
	}
	return off, sc
}

func perSlot(x Column, each bool, fn func([]float64) (float64, float64)) ([]float32, []float32) {
	off, sc := make([]float32, x.Slots), make([]float32, x.Slots)
	if !each {
		o, s := fn(x.pooled())
		for i := range off {
			off[i], sc[i] = float32(o), float32(s)
		}
		return off, sc
	}
	for s := 0; s < x.Slots; s++ {
		o, k := fn(x.slot(s))
		off[s], sc[s] = float32(o), float32(k)
	}
	return off, sc
}
