package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var nan = float32(math.NaN())

// column builds a single-variable [rows, slots] layout from row-major values.
func column(rows, slots int, v ...float32) Column {
	return Layout{Data: v, Rows: rows, Slots: slots, Width: 1}.Column(0)
}

func TestMeanStd_PerSlotAndPooled(t *testing.T) {
	c := column(2, 2,
		1, 10,
		3, 30,
	)
	off, sc, err := MeanStd{PerSlot: true}.Fit(c)
	require.NoError(t, err)
	require.Equal(t, []float32{2, 20}, off)
	require.Equal(t, []float32{1, 10}, sc)

	off, sc, err = MeanStd{}.Fit(c)
	require.NoError(t, err)
	require.Len(t, off, 2)
	require.InDelta(t, 11, off[0], 1e-6)
	require.Equal(t, off[0], off[1])
	require.Equal(t, sc[0], sc[1])
}

func TestMinMax_IgnoresNaN(t *testing.T) {
	c := column(3, 1, nan, 2, 6)
	off, sc, err := MinMax{}.Fit(c)
	require.NoError(t, err)
	require.Equal(t, []float32{2}, off)
	require.Equal(t, []float32{4}, sc)
}

func TestRobust_RejectsInvertedPercentiles(t *testing.T) {
	_, _, err := Robust{Low: 75, High: 25}.Fit(column(2, 1, 1, 2))
	require.Error(t, err)
	_, _, err = Robust{Low: 50, High: 50}.Fit(column(2, 1, 1, 2))
	require.Error(t, err)
}

func TestRobust_MedianAndIQR(t *testing.T) {
	c := column(5, 1, 1, 2, 3, 4, 5)
	off, sc, err := Robust{}.Fit(c)
	require.NoError(t, err)
	require.Equal(t, []float32{3}, off)
	require.Equal(t, []float32{2}, sc)
}

func TestMaxOnlyConstantFlat(t *testing.T) {
	c := column(2, 2,
		1, 4,
		-2, 8,
	)
	off, sc, err := MaxOnly{}.Fit(c)
	require.NoError(t, err)
	require.Equal(t, []float32{0, 0}, off)
	require.Equal(t, []float32{1, 8}, sc)

	off, sc, err = Constant{Offset: 5, Scale: 2}.Fit(c)
	require.NoError(t, err)
	require.Equal(t, []float32{5, 5}, off)
	require.Equal(t, []float32{2, 2}, sc)

	off, sc, err = Flat{}.Fit(c)
	require.NoError(t, err)
	require.Len(t, off, 1)
	require.Len(t, sc, 1)
	require.InDelta(t, 2.75, off[0], 1e-6)
}

func TestApply_IdentityIsNoOpAndRepeatIsNot(t *testing.T) {
	data := []float32{1, 2, 3, 4}
	c := column(4, 1, data...)
	off, sc := Identity(1)
	require.NoError(t, Apply(c, off, sc))
	require.Equal(t, []float32{1, 2, 3, 4}, data)

	require.NoError(t, Apply(c, []float32{1}, []float32{2}))
	once := append([]float32{}, data...)
	require.NoError(t, Apply(c, []float32{1}, []float32{2}))
	require.NotEqual(t, once, data)
}

func TestApply_RejectsBadLength(t *testing.T) {
	c := column(1, 3, 1, 2, 3)
	require.Error(t, Apply(c, []float32{0, 0}, []float32{1}))
	require.Error(t, Apply(c, []float32{0}, []float32{1, 1}))
	require.NoError(t, Apply(c, []float32{0, 0, 0}, []float32{1}))
}

func TestFillNaN(t *testing.T) {
	buf := []float32{nan, 1, nan}
	require.Equal(t, 2, FillNaN(buf))
	require.Equal(t, []float32{0, 1, 0}, buf)
}

func TestFillNaN_Infinities(t *testing.T) {
	buf := []float32{float32(math.Inf(-1)), math.MaxFloat32, float32(math.Inf(1))}
	require.Equal(t, 2, FillNaN(buf))
	require.Equal(t, []float32{0, math.MaxFloat32, 0}, buf)
}

func TestFitGroup_TestPartitionDoesNotLeak(t *testing.T) {
	vars := []Variable{{Name: "TauJets/pt", Fit: MeanStd{}}}
	fit := func(test []float32) *GroupRules {
		train := Layout{Data: []float32{1, 3}, Rows: 2, Slots: 1, Width: 1}
		other := Layout{Data: test, Rows: len(test), Slots: 1, Width: 1}
		g, err := FitGroup("scalar", vars, train, other)
		require.NoError(t, err)
		return g
	}
	a := fit([]float32{100, 200, 300})
	b := fit([]float32{-5})
	require.Equal(t, a.Offset, b.Offset)
	require.Equal(t, a.Scale, b.Scale)
	require.Equal(t, []float32{2}, a.Offset[0])
}

func TestFitGroup_AppliesToAllPartitionsAndFills(t *testing.T) {
	vars := []Variable{
		{Name: "Tracks/pt", Fit: MaxOnly{}},
		{Name: "Tracks/eta"},
	}
	train := Layout{Data: []float32{
		2, 1, nan, nan,
		4, 3, 8, 5,
	}, Rows: 2, Slots: 2, Width: 2}
	test := Layout{Data: []float32{
		8, 7, nan, nan,
	}, Rows: 1, Slots: 2, Width: 2}

	g, err := FitGroup("tracks", vars, train, test)
	require.NoError(t, err)
	require.Equal(t, []string{"Tracks/pt", "Tracks/eta"}, g.Variables)
	require.Equal(t, []float32{4, 8}, g.Scale[0])
	require.Equal(t, []float32{0.5, 1, 0, 0, 1, 3, 1, 5}, train.Data)
	require.Equal(t, []float32{2, 7, 0, 0}, test.Data)
}

func TestFitGroup_WidthMismatch(t *testing.T) {
	_, err := FitGroup("g", []Variable{{Name: "a"}}, Layout{Rows: 1, Slots: 1, Width: 2, Data: make([]float32, 2)})
	require.Error(t, err)
}
