package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"tauflow/internal/config"
	"tauflow/internal/inference"
	"tauflow/internal/preprocessing"
	"tauflow/internal/spec"
	"tauflow/internal/transport"
	"tauflow/internal/variables"
	"tauflow/sink"
	"tauflow/sink/kafka"
	"tauflow/sink/stdout"
	"tauflow/sink/table"
	"tauflow/store/selection"
	"tauflow/store/shard"
)

// Compile builds a runner from a run spec. The caller owns the runner and
// must Close it.
func Compile(ctx context.Context, path string) (*Runner, error) {
	r := NewRunner()
	if err := LoadYAML(ctx, path, r); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func LoadYAML(ctx context.Context, path string, r *Runner) error {
	cfg, err := config.LoadRunSpec(path)
	if err != nil {
		return err
	}
	if cfg.RunID != "" {
		r.SetRunID(cfg.RunID)
	}
	r.metricsPort = cfg.Metrics.Port

	/*──────── data ───────*/
	ds, err := shard.Open(cfg.Data.Paths...)
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	r.OnClose(ds.Close)
	expr := selection.And(selection.Cuts(cfg.Data.Cuts), selection.Cuts(cfg.Data.Filter))
	view, err := selection.Apply(ds, expr)
	if err != nil {
		return fmt.Errorf("data: selection: %w", err)
	}
	r.SetSource(view)

	/*──────── variables + rules ───────*/
	groups, err := ResolveGroups(cfg)
	if err != nil {
		return err
	}
	r.SetGroups(groups)

	rules, err := preprocessing.Load(ctx, cfg.Preprocessing)
	if err != nil {
		return fmt.Errorf("preprocessing: %w", err)
	}
	r.SetRules(rules)

	/*──────── model ───────*/
	model, err := openModel(cfg.Model, r)
	if err != nil {
		return err
	}
	r.SetModel(model)

	if cfg.Executor.ChunkSize != 0 {
		r.SetChunkSize(cfg.Executor.ChunkSize)
	}
	if cfg.Executor.Workers != 0 {
		r.SetWorkers(cfg.Executor.Workers)
	}

	/*──────── sinks ───────*/
	for _, name := range cfg.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}
		if err := configureSink(cfg, name, sDrv); err != nil {
			return fmt.Errorf("sink %s: %w", name, err)
		}
		r.AddSink(sDrv)
	}
	return nil
}

// ResolveGroups builds the registry (defaults plus the optional override
// file) and resolves the groups requested by the run spec.
func ResolveGroups(cfg spec.File) ([]variables.Group, error) {
	reg := variables.Defaults()
	if cfg.Variables.Override != "" {
		p, err := variables.LoadFile(cfg.Variables.Override)
		if err != nil {
			return nil, err
		}
		if err := reg.Override(p); err != nil {
			return nil, err
		}
	}
	names := cfg.Variables.Groups
	if len(names) == 0 {
		prong := cfg.Data.Prong
		if prong == "" {
			if len(cfg.Data.Paths) == 0 {
				return nil, fmt.Errorf("variables: no data path to infer the prong from")
			}
			var err error
			if prong, err = variables.InferProng(filepath.Base(cfg.Data.Paths[0])); err != nil {
				return nil, err
			}
		}
		var err error
		if names, err = variables.DefaultNames(prong); err != nil {
			return nil, err
		}
	}
	return reg.Resolve(names...)
}

func openModel(m spec.ModelSpec, r *Runner) (inference.Model, error) {
	timeout := time.Duration(m.TimeoutMS) * time.Millisecond
	switch m.Type {
	case "linear":
		lin, err := inference.LoadLinear(m.Path)
		if err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}
		return inference.WithTimeout(lin, timeout), nil
	case "grpc":
		cli, err := transport.Dial(m.Address)
		if err != nil {
			return nil, fmt.Errorf("model: dial %s: %w", m.Address, err)
		}
		r.OnClose(cli.Close)
		return inference.WithTimeout(cli, timeout), nil
	}
	return nil, fmt.Errorf("unsupported model type %q", m.Type)
}

func configureSink(cfg spec.File, name string, drv sink.Adapter) error {
	node, hasNode := cfg.SinkConfigs[name]
	switch name {
	case "table":
		var c table.Config
		if hasNode {
			if err := node.Decode(&c); err != nil {
				return err
			}
		}
		c.Path = config.Resolve(cfg.Dir, c.Path)
		if c.Store == (shard.Options{}) {
			opts, err := config.LoadStoreOptions(cfg.StoreConfig)
			if err != nil {
				return err
			}
			c.Store = opts
		}
		return drv.Configure(c)
	case "stdout":
		var c stdout.Config
		if hasNode {
			if err := node.Decode(&c); err != nil {
				return err
			}
		}
		return drv.Configure(c)
	case "kafka":
		var c kafka.Config
		if !hasNode {
			return fmt.Errorf("no config block")
		}
		if err := node.Decode(&c); err != nil {
			return err
		}
		return drv.Configure(c)
	}
	return fmt.Errorf("no config block for sink %q", name)
}
