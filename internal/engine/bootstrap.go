package engine

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"tauflow/internal/inference"
	"tauflow/internal/pipeline"
	"tauflow/internal/telemetry"
	"tauflow/internal/transport"
)

type Config struct {
	RunSpec     string // decoration run spec; empty = no run
	ServePort   int    // inference server port; 0 = no server
	ServeModel  string // linear model served on ServePort
	MetricsPort int    // 0 = metrics not exposed

	// Registry receives the executor metrics; defaults to a fresh one.
	Registry *prometheus.Registry
}

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	e := &Engine{}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := telemetry.NewMetrics(reg)

	// 1. transport server
	if cfg.ServePort > 0 {
		model, err := inference.LoadLinear(cfg.ServeModel)
		if err != nil {
			return nil, fmt.Errorf("serve: %w", err)
		}
		srv, err := transport.StartServer(cfg.ServePort, model)
		if err != nil {
			return nil, fmt.Errorf("transport: %w", err)
		}
		e.transport = srv
	}

	// 2. pipeline runner
	if cfg.RunSpec != "" {
		runner, err := pipeline.Compile(ctx, cfg.RunSpec)
		if err != nil {
			if e.transport != nil {
				e.transport.Stop()
			}
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		runner.SetMetrics(metrics)
		e.runner = runner
	}

	// 3. metrics; the flag wins over the run spec
	port := cfg.MetricsPort
	if port == 0 && e.runner != nil {
		port = e.runner.MetricsPort()
	}
	if port > 0 {
		e.metrics = telemetry.Expose(port, reg)
	}
	return e, nil
}

// Runner exposes the compiled runner, nil without a run spec.
func (e *Engine) Runner() *pipeline.Runner { return e.runner }
