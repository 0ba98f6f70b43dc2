package preprocessing

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleRules() *Rules {
	r := &Rules{}
	r.Add(&GroupRules{
		Name:      "tracks",
		Variables: []string{"TauTracks/pt", "TauTracks/d0"},
		Offset:    [][]float32{{1.5, nan, -0}, {0.1}},
		Scale:     [][]float32{{2, 3, float32(math.Inf(1))}, {1e-7}},
	})
	r.Add(&GroupRules{
		Name:      "scalar_1p",
		Variables: []string{"TauJets/ptJetSeed"},
		Offset:    [][]float32{{10}},
		Scale:     [][]float32{{4}},
	})
	return r
}

func bits(v []float32) []uint32 {
	out := make([]uint32, len(v))
	for i, x := range v {
		out[i] = math.Float32bits(x)
	}
	return out
}

func TestSaveLoad_BitIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")
	want := sampleRules()
	require.NoError(t, Save(context.Background(), path, want))

	got, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got.Groups, 2)
	for gi, g := range want.Groups {
		h := got.Groups[gi]
		require.Equal(t, g.Name, h.Name)
		require.Equal(t, g.Variables, h.Variables)
		for i := range g.Variables {
			require.Equal(t, bits(g.Offset[i]), bits(h.Offset[i]))
			require.Equal(t, bits(g.Scale[i]), bits(h.Scale[i]))
		}
	}
}

func TestSave_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")
	require.NoError(t, Save(context.Background(), path, sampleRules()))
	one := &Rules{}
	one.Add(&GroupRules{Name: "x", Variables: []string{"a"}, Offset: [][]float32{{0}}, Scale: [][]float32{{1}}})
	require.NoError(t, Save(context.Background(), path, one))

	got, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got.Groups, 1)
	require.Equal(t, "x", got.Groups[0].Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
}

func TestExportVarSpec(t *testing.T) {
	var buf bytes.Buffer
	err := ExportVarSpec(&buf, sampleRules(), VarSpecOptions{
		Scalar:     "scalar_1p",
		Sequences:  []string{"tracks"},
		Names:      map[string]string{"scalar_1p": "scalar"},
		OutputName: "rnnid_output",
		Labels:     []string{"sig_prob"},
	})
	require.NoError(t, err)

	var got lwtnnSpec
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Inputs, 1)
	require.Equal(t, "scalar", got.Inputs[0].Name)
	require.Equal(t, "ptJetSeed", got.Inputs[0].Variables[0].Name)
	require.Equal(t, -10.0, got.Inputs[0].Variables[0].Offset)
	require.Equal(t, 0.25, got.Inputs[0].Variables[0].Scale)

	require.Len(t, got.InputSequences, 1)
	seq := got.InputSequences[0]
	require.Equal(t, "tracks", seq.Name)
	require.Equal(t, "pt", seq.Variables[0].Name)
	require.Equal(t, -1.5, seq.Variables[0].Offset)
	require.Equal(t, 0.5, seq.Variables[0].Scale)
	require.Equal(t, []string{"sig_prob"}, got.Outputs[0].Labels)
}

func TestExportVarSpec_UnknownGroup(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, ExportVarSpec(&buf, sampleRules(), VarSpecOptions{Sequences: []string{"clusters"}}))
}

func TestFitGroup_DegenerateRulesExportCleanly(t *testing.T) {
	scalar := Layout{Data: []float32{5, 5, 5}, Rows: 3, Slots: 1, Width: 1}
	g, err := FitGroup("scalar", []Variable{{Name: "TauJets/constant", Fit: MeanStd{}}}, scalar)
	require.NoError(t, err)
	require.Equal(t, []float32{5}, g.Offset[0])
	require.Equal(t, []float32{1}, g.Scale[0])
	require.Equal(t, []float32{0, 0, 0}, scalar.Data)

	// the second slot never holds an object
	tracks := Layout{Data: []float32{1, nan, 3, nan}, Rows: 2, Slots: 2, Width: 1}
	seq, err := FitGroup("tracks", []Variable{{Name: "TauTracks/pt", Fit: MeanStd{PerSlot: true}}}, tracks)
	require.NoError(t, err)
	require.Equal(t, float32(0), seq.Offset[0][1])
	require.Equal(t, float32(1), seq.Scale[0][1])
	for _, v := range tracks.Data {
		require.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
	}

	rules := &Rules{}
	rules.Add(g)
	rules.Add(seq)
	var buf bytes.Buffer
	require.NoError(t, ExportVarSpec(&buf, rules, VarSpecOptions{Scalar: "scalar", Sequences: []string{"tracks"}}))
	var got lwtnnSpec
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, 1.0, got.Inputs[0].Variables[0].Scale)
}
