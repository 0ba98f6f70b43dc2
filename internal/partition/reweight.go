package partition

import (
	"math"
	"sort"

	"tauflow/internal/preprocessing"
)

const (
	reweightEdges = 50
	ptLow         = 20000.0
	ptHigh        = 1e7
)

// PtReweight flattens the background pt spectrum onto the signal one. Bins
// are the 0..100 percentiles of bkgPt in 50 edges, with the outer edges
// pinned to 20 GeV and 10 TeV. Background rows get the signal/background
// density ratio of their bin; signal rows get 1.
func PtReweight(sigPt, bkgPt []float32) (sigW, bkgW []float32) {
	sigW = make([]float32, len(sigPt))
	for i := range sigW {
		sigW[i] = 1
	}
	bkgW = make([]float32, len(bkgPt))
	if len(bkgPt) == 0 {
		return sigW, bkgW
	}

	edges := ptEdges(bkgPt)
	sigFrac := histogram(sigPt, edges)
	bkgFrac := histogram(bkgPt, edges)
	coeff := make([]float64, len(edges)-1)
	for i := range coeff {
		if bkgFrac[i] > 0 {
			coeff[i] = sigFrac[i] / bkgFrac[i]
		}
		if math.IsNaN(coeff[i]) || math.IsInf(coeff[i], 0) {
			coeff[i] = 0
		}
	}
	for i, v := range bkgPt {
		bkgW[i] = float32(coeff[bin(edges, float64(v))])
	}
	return sigW, bkgW
}

func ptEdges(bkgPt []float32) []float64 {
	v := make([]float64, len(bkgPt))
	for i, x := range bkgPt {
		v[i] = float64(x)
	}
	edges := make([]float64, reweightEdges)
	for i := range edges {
		edges[i] = preprocessing.Percentile(v, 100*float64(i)/float64(reweightEdges-1))
	}
	edges[0], edges[len(edges)-1] = ptLow, ptHigh
	for i := 1; i < len(edges); i++ {
		edges[i] = math.Max(edges[i], edges[i-1])
	}
	return edges
}

// histogram returns the fraction of in-range values per bin. The density
// ratio of two such histograms over the same edges equals the fraction
// ratio, so bin widths are not needed.
func histogram(values []float32, edges []float64) []float64 {
	counts := make([]float64, len(edges)-1)
	lo, hi := edges[0], edges[len(edges)-1]
	total := 0.0
	for _, x := range values {
		v := float64(x)
		if v < lo || v > hi || math.IsNaN(v) {
			continue
		}
		counts[bin(edges, v)]++
		total++
	}
	if total > 0 {
		for i := range counts {
			counts[i] /= total
		}
	}
	return counts
}

// bin is the index of the last edge <= v, clamped to a valid bin.
func bin(edges []float64, v float64) int {
	i := sort.Search(len(edges), func(i int) bool { return edges[i] > v }) - 1
	return min(max(i, 0), len(edges)-2)
}
