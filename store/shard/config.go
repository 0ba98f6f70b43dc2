package shard

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	CompressionZstd = "zstd"
	CompressionNone = "none"
)

const envPrefix = "TAUFLOW_STORE__"

type Options struct {
	MemberBytes int64  `koanf:"member_bytes" yaml:"member_bytes"` // payload budget per member file
	BlockRows   int    `koanf:"block_rows" yaml:"block_rows"`     // rows per stored block
	Compression string `koanf:"compression" yaml:"compression"`   // zstd|none
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// LoadConfig merges YAML (if present) with env-vars
// (prefix `TAUFLOW_STORE__`, delimiter `__`).
func LoadConfig(path string) (Options, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Options{}, err
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != "v1" {
		return Options{}, fmt.Errorf("store schema_version %q not supported (want v1)", sv)
	}

	_ = k.Load(env.Provider(envPrefix, "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)

	var opts Options
	if err := k.Unmarshal("", &opts); err != nil {
		return opts, err
	}
	applyDefaults(&opts)
	return opts, nil
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(o *Options) {
	if o.MemberBytes <= 0 {
		o.MemberBytes = 8 << 30
	}
	if o.BlockRows <= 0 {
		o.BlockRows = 1 << 16
	}
	switch o.Compression {
	case CompressionZstd, CompressionNone:
	default:
		o.Compression = CompressionZstd
	}
}
