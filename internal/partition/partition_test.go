package partition

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func seq(n, slots, vars int, label float32) *Data {
	d := &Data{X: make([]float32, n*slots*vars), Slots: slots, Vars: vars, Y: make([]float32, n), W: make([]float32, n)}
	for i := 0; i < n; i++ {
		for k := 0; k < slots*vars; k++ {
			d.X[i*slots*vars+k] = float32(i)
		}
		d.Y[i] = label
		d.W[i] = float32(i)
	}
	return d
}

func TestParallelShuffle_SamePermutation(t *testing.T) {
	a := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	b := []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
	ParallelShuffle(0, len(a),
		func(i, j int) { a[i], a[j] = a[j], a[i] },
		func(i, j int) { b[i], b[j] = b[j], b[i] },
	)
	for i := range a {
		require.Equal(t, string(rune('0'+a[i])), b[i])
	}
}

func TestTrainTestSplit_SizesAndAlignment(t *testing.T) {
	tracks := seq(1000, 10, 3, 1)
	scalar := seq(1000, 1, 5, 1)

	train, test, err := TrainTestSplit(0, 0.2, tracks, scalar)
	require.NoError(t, err)
	require.Len(t, train, 2)
	require.Equal(t, 800, train[0].Rows())
	require.Equal(t, 200, test[0].Rows())
	require.Equal(t, 800, train[1].Rows())
	require.Len(t, train[0].X, 800*30)

	shuffled := false
	for i := 0; i < 800; i++ {
		id := train[0].W[i]
		require.Equal(t, id, train[0].X[i*30])
		require.Equal(t, id, train[0].X[i*30+29])
		require.Equal(t, id, train[1].W[i])
		require.Equal(t, id, train[1].X[i*5])
		if id != float32(i) {
			shuffled = true
		}
	}
	require.True(t, shuffled)
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	a, b := seq(50, 1, 1, 0), seq(50, 1, 1, 0)
	_, _, err := TrainTestSplit(7, 0.5, a)
	require.NoError(t, err)
	_, _, err = TrainTestSplit(7, 0.5, b)
	require.NoError(t, err)
	require.Equal(t, a.W, b.W)
}

func TestTrainTestSplit_Errors(t *testing.T) {
	_, _, err := TrainTestSplit(0, 0.2, seq(10, 1, 1, 0), seq(9, 1, 1, 0))
	require.Error(t, err)
	_, _, err = TrainTestSplit(0, 1.5, seq(10, 1, 1, 0))
	require.Error(t, err)
	bad := seq(10, 1, 1, 0)
	bad.W = bad.W[:5]
	_, _, err = TrainTestSplit(0, 0.2, bad)
	require.Error(t, err)
}

func TestPtReweight_FiniteNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	sig := make([]float32, 5000)
	bkg := make([]float32, 8000)
	for i := range sig {
		sig[i] = float32(20000 + rng.ExpFloat64()*80000)
	}
	for i := range bkg {
		bkg[i] = float32(15000 + rng.ExpFloat64()*40000)
	}
	bkg[0] = 2e7

	sw, bw := PtReweight(sig, bkg)
	require.Len(t, sw, len(sig))
	require.Len(t, bw, len(bkg))
	for _, w := range sw {
		require.Equal(t, float32(1), w)
	}
	positive := 0
	for _, w := range bw {
		require.False(t, math.IsNaN(float64(w)) || math.IsInf(float64(w), 0))
		require.GreaterOrEqual(t, w, float32(0))
		if w > 0 {
			positive++
		}
	}
	require.Positive(t, positive)
}

func TestPtReweight_IdenticalSpectraGiveUnitWeights(t *testing.T) {
	pt := make([]float32, 4900)
	for i := range pt {
		pt[i] = float32(20000 + 10*i)
	}
	_, bw := PtReweight(pt, pt)
	for i, w := range bw {
		require.InDelta(t, 1, w, 1e-5, "row %d", i)
	}
}

func TestBin_Clamps(t *testing.T) {
	edges := []float64{1, 2, 3}
	require.Equal(t, 0, bin(edges, 0))
	require.Equal(t, 0, bin(edges, 1.5))
	require.Equal(t, 1, bin(edges, 2))
	require.Equal(t, 1, bin(edges, 3))
	require.Equal(t, 1, bin(edges, 99))
}
