package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tauflow/internal/spec"
)

const SupportedSchema = "v1"

// LoadRunSpec parses a run YAML, validates schema_version, and resolves
// every file reference relative to the run spec's directory.
func LoadRunSpec(path string) (spec.File, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, fmt.Errorf("run schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}
	if len(cfg.Data.Paths) == 0 {
		return cfg, fmt.Errorf("run spec %s: data.paths is empty", path)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return cfg, err
	}
	cfg.Dir = dir
	for i, p := range cfg.Data.Paths {
		cfg.Data.Paths[i] = Resolve(dir, p)
	}
	cfg.Variables.Override = Resolve(dir, cfg.Variables.Override)
	cfg.Preprocessing = Resolve(dir, cfg.Preprocessing)
	cfg.Model.Path = Resolve(dir, cfg.Model.Path)
	cfg.StoreConfig = Resolve(dir, cfg.StoreConfig)
	return cfg, nil
}

// Resolve makes p absolute against dir; empty and absolute paths are
// returned unchanged.
func Resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
