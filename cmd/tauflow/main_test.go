package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tauflow/internal/preprocessing"
)

func TestVarspecCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")
	rules := &preprocessing.Rules{}
	rules.Add(&preprocessing.GroupRules{
		Name:      "tracks",
		Variables: []string{"TauTracks/pt_log"},
		Offset:    [][]float32{{2}},
		Scale:     [][]float32{{4}},
	})
	require.NoError(t, preprocessing.Save(context.Background(), path, rules))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"varspec", path, "--sequences", "tracks", "--name", "tracks=trk"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	seqs := got["input_sequences"].([]any)
	require.Len(t, seqs, 1)
	require.Equal(t, "trk", seqs[0].(map[string]any)["name"])
}

func TestVarspecCommand_BadName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")
	require.NoError(t, preprocessing.Save(context.Background(), path, &preprocessing.Rules{}))

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"varspec", path, "--name", "tracks"})
	require.Error(t, rootCmd.ExecuteContext(context.Background()))
}
