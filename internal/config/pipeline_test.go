package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRunSpec_ResolvesRelativePathsAndSchema(t *testing.T) {
	dir := t.TempDir()
	run := []byte(`schema_version: v1
data:
  paths: [samples/sig1p.tfs, /abs/bkg1p.tfs]
  cuts: [{column: TauJets/pt, op: ">", value: 20000}]
variables:
  override: vars.yaml
preprocessing: rules.db
model: { type: linear, path: model.yaml }
executor: { chunk_size: 1000, workers: 2 }
sinks: [table]
sink_configs:
  table: { path: out.tfs }
`)
	if err := os.WriteFile(filepath.Join(dir, "run.yml"), run, 0o644); err != nil {
		t.Fatalf("write run: %v", err)
	}

	cfg, err := LoadRunSpec(filepath.Join(dir, "run.yml"))
	if err != nil {
		t.Fatalf("LoadRunSpec: %v", err)
	}
	if cfg.SchemaVersion != SupportedSchema {
		t.Fatalf("want schema %s, got %s", SupportedSchema, cfg.SchemaVersion)
	}
	if want := filepath.Join(dir, "samples", "sig1p.tfs"); cfg.Data.Paths[0] != want {
		t.Fatalf("want %q, got %q", want, cfg.Data.Paths[0])
	}
	if cfg.Data.Paths[1] != "/abs/bkg1p.tfs" {
		t.Fatalf("absolute path rewritten: %q", cfg.Data.Paths[1])
	}
	for _, p := range []string{cfg.Preprocessing, cfg.Model.Path, cfg.Variables.Override} {
		if !filepath.IsAbs(p) {
			t.Fatalf("want absolute path, got %q", p)
		}
	}
	if cfg.StoreConfig != "" {
		t.Fatalf("empty store_config resolved to %q", cfg.StoreConfig)
	}
	if cfg.Executor.ChunkSize != 1000 || cfg.Executor.Workers != 2 {
		t.Fatalf("executor section not parsed: %+v", cfg.Executor)
	}
	if len(cfg.Data.Cuts) != 1 || cfg.Data.Cuts[0].Op != ">" {
		t.Fatalf("cuts not parsed: %+v", cfg.Data.Cuts)
	}
	if _, ok := cfg.SinkConfigs["table"]; !ok {
		t.Fatal("table sink config missing")
	}
}

func TestLoadRunSpec_InvalidSchema(t *testing.T) {
	dir := t.TempDir()
	run := []byte(`schema_version: v999
data: { paths: [a.tfs] }
`)
	if err := os.WriteFile(filepath.Join(dir, "run.yml"), run, 0o644); err != nil {
		t.Fatalf("write run: %v", err)
	}
	if _, err := LoadRunSpec(filepath.Join(dir, "run.yml")); err == nil {
		t.Fatal("expected error for invalid schema_version")
	}
}

func TestLoadRunSpec_NoData(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "run.yml"), []byte("schema_version: v1\n"), 0o644); err != nil {
		t.Fatalf("write run: %v", err)
	}
	if _, err := LoadRunSpec(filepath.Join(dir, "run.yml")); err == nil {
		t.Fatal("expected error for missing data.paths")
	}
}

func TestLoadStoreOptions_Defaults(t *testing.T) {
	opts, err := LoadStoreOptions("")
	if err != nil {
		t.Fatalf("LoadStoreOptions: %v", err)
	}
	if opts.MemberBytes != 8<<30 || opts.Compression != "zstd" {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}
