package spec

import (
	"gopkg.in/yaml.v3"

	"tauflow/store/selection"
)

type dataSection struct {
	Paths  []string        `yaml:"paths"`
	Prong  string          `yaml:"prong"`  // "1p" | "3p"; inferred from the first path when empty
	Cuts   []selection.Cut `yaml:"cuts"`   // preselection
	Filter []selection.Cut `yaml:"filter"` // user filter, ANDed with cuts
}

type variablesSection struct {
	Groups   []string `yaml:"groups"`   // defaults to tracks, clusters, scalar_<prong>
	Override string   `yaml:"override"` // YAML provider replacing groups by name
}

type ModelSpec struct {
	Type      string `yaml:"type"`    // "linear", "grpc"
	Path      string `yaml:"path"`    // linear weights
	Address   string `yaml:"address"` // e.g. "localhost:50051"
	TimeoutMS int    `yaml:"timeout_ms"`
}

type executorSection struct {
	ChunkSize int `yaml:"chunk_size"`
	Workers   int `yaml:"workers"`
}

type metricsSection struct {
	Port int `yaml:"port"` // 0 = disabled
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`
	RunID         string `yaml:"run_id"`

	Data          dataSection      `yaml:"data"`
	Variables     variablesSection `yaml:"variables"`
	Preprocessing string           `yaml:"preprocessing"` // rules sidecar
	Model         ModelSpec        `yaml:"model"`
	Executor      executorSection  `yaml:"executor"`

	// Store options for written tables (koanf YAML + env).
	StoreConfig string `yaml:"store_config"`

	Sinks       []string             `yaml:"sinks"`
	SinkConfigs map[string]yaml.Node `yaml:"sink_configs"`
	Metrics     metricsSection       `yaml:"metrics"`

	// Dir is the directory relative paths were resolved against.
	Dir string `yaml:"-"`
}
