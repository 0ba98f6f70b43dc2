package preprocessing

import (
	"math"
	"sort"
)

// Reductions below ignore NaN. A reduction over no finite-or-infinite
// values yields NaN.

func nanMean(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// nanStd is the population standard deviation (ddof = 0).
func nanStd(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	m := nanMean(v)
	var ss float64
	for _, x := range v {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(v)))
}

func nanMin(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	m := v[0]
	for _, x := range v[1:] {
		m = math.Min(m, x)
	}
	return m
}

func nanMax(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	m := v[0]
	for _, x := range v[1:] {
		m = math.Max(m, x)
	}
	return m
}

// nanPercentile uses linear interpolation between closest ranks. v is
// sorted in place.
func nanPercentile(v []float64, p float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	pos := p / 100 * float64(len(v)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return v[lo] + (v[hi]-v[lo])*frac
}

// Percentile exposes the interpolation used by the robust fitter.
func Percentile(v []float64, p float64) float64 {
	return nanPercentile(finite(v), p)
}

func finite(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
