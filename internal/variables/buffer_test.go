package variables

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"tauflow/internal/transform"
	"tauflow/store/shard"
)

type table map[string]struct {
	width int
	data  []float32
}

func (t table) Has(name string) bool {
	_, ok := t[name]
	return ok
}

func (t table) ReadColumn(name string, start, stop, seqLen int, dst []float32) error {
	c, ok := t[name]
	if !ok {
		return &shard.MissingColumnError{Name: name}
	}
	out := max(seqLen, 1)
	for r := start; r < stop; r++ {
		for s := 0; s < out; s++ {
			v := float32(0)
			if s < c.width {
				v = c.data[r*c.width+s]
			}
			dst[(r-start)*out+s] = v
		}
	}
	return nil
}

func TestGroupFill_Interleaves(t *testing.T) {
	src := table{
		"Trk/pt":       {2, []float32{10, 100, 1000, 1}},
		"Trk/eta":      {3, []float32{1, 2, 3, 4, 5, 6}},
		"TauJets/ptJS": {1, []float32{100, 10}},
	}
	g := Group{Name: "trk", Len: 3, Vars: []Spec{
		Derived("Trk/pt_log", transform.Log10("Trk/pt", 0), nil),
		Direct("Trk/eta", nil),
		Derived("Trk/jet", transform.ReplicateLog10("TauJets/ptJS"), nil),
	}}
	b := g.NewBuffer(4)
	require.NoError(t, g.Fill(src, b, transform.Range{Start: 0, Stop: 2}))

	got := b.Data[:2*3*3]
	inf := float32(math.Inf(-1))
	want := []float32{
		1, 1, 2, 2, 2, 2, inf, 3, 2,
		3, 4, 1, 0, 5, 1, inf, 6, 1,
	}
	require.Equal(t, want, got)
}

func TestGroupFill_PresenceMasksPaddedSlots(t *testing.T) {
	src := table{
		"Trk/pt":       {1, []float32{10, 100}},
		"TauJets/ptJS": {1, []float32{1000, 10}},
	}
	g := Group{Name: "trk", Len: 2, Presence: []string{"Trk/Pt", "Trk/pt"}, Vars: []Spec{
		Derived("Trk/pt_log", transform.Log10("Trk/pt", 0), nil),
		Derived("Trk/jet", transform.BroadcastLog10("Trk/pt", "TauJets/ptJS"), nil),
	}}
	b := g.NewBuffer(2)
	require.NoError(t, g.Fill(src, b, transform.Range{Start: 0, Stop: 2}))

	got := b.Data[:2*2*2]
	require.Equal(t, []float32{1, 3}, got[0:2])
	require.Equal(t, []float32{2, 1}, got[4:6])
	for _, i := range []int{2, 3, 6, 7} {
		require.True(t, math.IsNaN(float64(got[i])), "slot value %d = %v", i, got[i])
	}

	// a later range recomputes the mask
	src["Trk/pt"] = struct {
		width int
		data  []float32
	}{2, []float32{1, 1, 0, 1}}
	require.NoError(t, g.Fill(src, b, transform.Range{Start: 1, Stop: 2}))
	require.True(t, math.IsNaN(float64(b.Data[0])))
	require.Equal(t, float32(0), b.Data[2])
}

func TestGroupFill_MissingPresenceColumn(t *testing.T) {
	g := Group{Name: "trk", Len: 2, Presence: []string{"Trk/pt"}, Vars: []Spec{Direct("Trk/eta", nil)}}
	src := table{"Trk/eta": {2, []float32{1, 2}}}
	var miss *shard.MissingColumnError
	require.ErrorAs(t, g.Fill(src, g.NewBuffer(1), transform.Range{Start: 0, Stop: 1}), &miss)
}

func TestGroupFill_CapacityAndErrors(t *testing.T) {
	g := Group{Name: "s", Vars: []Spec{Direct("a", nil)}}
	b := g.NewBuffer(1)
	src := table{"a": {1, []float32{1, 2}}}
	require.Error(t, g.Fill(src, b, transform.Range{Start: 0, Stop: 2}))

	g = Group{Name: "s", Vars: []Spec{Direct("missing", nil)}}
	err := g.Fill(src, g.NewBuffer(2), transform.Range{Start: 0, Stop: 2})
	var miss *shard.MissingColumnError
	require.ErrorAs(t, err, &miss)
}
