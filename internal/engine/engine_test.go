package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"tauflow/internal/preprocessing"
	"tauflow/store/shard"
)

func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	w, err := shard.Create(filepath.Join(dir, "bkg3p.tfs"), shard.Options{})
	require.NoError(t, err)
	require.NoError(t, w.WriteColumn("TauJets/pt", []float32{1, 2, 3}, 1))
	require.NoError(t, w.Close())

	rules := &preprocessing.Rules{}
	rules.Add(&preprocessing.GroupRules{Name: "jet", Variables: []string{"TauJets/pt"}, Offset: [][]float32{{0}}, Scale: [][]float32{{1}}})
	require.NoError(t, preprocessing.Save(context.Background(), filepath.Join(dir, "rules.db"), rules))

	files := map[string]string{
		"vars.yaml":  "groups: [{name: jet, variables: [{name: TauJets/pt}]}]\n",
		"model.yaml": "inputs: [{name: jet, vars: 1, weights: [[1]]}]\n",
		"run.yml": `data: {paths: [bkg3p.tfs]}
variables: {override: vars.yaml, groups: [jet]}
preprocessing: rules.db
model: {type: linear, path: model.yaml}
sinks: [table]
sink_configs: {table: {path: deco.tfs}}
`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestEngine_RunsSpecAndCountsRun(t *testing.T) {
	dir := fixture(t)
	reg := prometheus.NewRegistry()
	e, err := Bootstrap(context.Background(), Config{RunSpec: filepath.Join(dir, "run.yml"), Registry: reg})
	require.NoError(t, err)
	require.NotNil(t, e.Runner())
	require.NoError(t, e.Run(context.Background()))

	n, err := testutil.GatherAndCount(reg, "tauflow_runs_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, err = os.Stat(shard.MemberPath(filepath.Join(dir, "deco.tfs"), 0))
	require.NoError(t, err)
}

func TestEngine_EmptyConfigIsNoop(t *testing.T) {
	e, err := Bootstrap(context.Background(), Config{})
	require.NoError(t, err)
	require.NoError(t, e.Run(context.Background()))
}

func TestBootstrap_BadSpec(t *testing.T) {
	_, err := Bootstrap(context.Background(), Config{RunSpec: filepath.Join(t.TempDir(), "missing.yml")})
	require.Error(t, err)
}
