package engine

import (
	"context"
	"errors"
	"net/http"

	"tauflow/internal/logging"
	"tauflow/internal/pipeline"
	"tauflow/internal/transport"
)

type Engine struct {
	transport *transport.Server
	runner    *pipeline.Runner
	metrics   *http.Server
}

// Run executes the decoration run, if any, then serves the model, if any,
// until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	defer e.shutdown()

	if e.runner != nil {
		if err := e.runner.Run(ctx); err != nil {
			return err
		}
	}
	if e.transport == nil {
		return nil
	}

	go func() {
		<-ctx.Done()
		e.transport.Stop()
	}()
	return e.transport.Serve()
}

func (e *Engine) shutdown() {
	log := logging.With("engine")
	if e.runner != nil {
		if err := e.runner.Close(); err != nil {
			log.Warn("close runner", "err", err)
		}
	}
	if e.metrics != nil {
		if err := e.metrics.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("close metrics", "err", err)
		}
	}
}
