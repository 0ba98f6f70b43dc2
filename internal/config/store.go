package config

import (
	"tauflow/store/shard"
)

// LoadStoreOptions delegates to the shard loader while centralizing
// loader entrypoints under internal/config. An empty path yields the
// defaults with environment overrides applied.
func LoadStoreOptions(path string) (shard.Options, error) {
	return shard.LoadConfig(path)
}
