package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tauflow/internal/inference"
	"tauflow/internal/logging"
	"tauflow/internal/preprocessing"
	"tauflow/internal/telemetry"
	"tauflow/internal/transform"
	"tauflow/internal/variables"
	"tauflow/sink"
)

// Source is the (already filtered) table a run reads from.
type Source interface {
	transform.Reader
	Rows() int
}

// Runner streams a table through the feature groups, the preprocessing
// rules and a model in fixed-size chunks, and hands the scores to sinks.
type Runner struct {
	runID       string
	source      Source
	groups      []variables.Group
	rules       *preprocessing.Rules
	model       inference.Model
	sinks       []sink.Adapter
	chunkSize   int
	workers     int
	metrics     *telemetry.Metrics
	metricsPort int // requested by the run spec, 0 for none

	closers []func() error
}

func NewRunner() *Runner {
	return &Runner{runID: uuid.NewString(), chunkSize: 500_000, workers: 1}
}

func (r *Runner) SetRunID(id string)                  { r.runID = id }
func (r *Runner) SetSource(s Source)                  { r.source = s }
func (r *Runner) SetGroups(g []variables.Group)       { r.groups = g }
func (r *Runner) SetRules(rules *preprocessing.Rules) { r.rules = rules }
func (r *Runner) SetModel(m inference.Model)          { r.model = m }
func (r *Runner) AddSink(s sink.Adapter)              { r.sinks = append(r.sinks, s) }
func (r *Runner) SetChunkSize(n int)                  { r.chunkSize = n }
func (r *Runner) SetWorkers(n int)                    { r.workers = n }
func (r *Runner) SetMetrics(m *telemetry.Metrics)     { r.metrics = m }
func (r *Runner) OnClose(fn func() error)             { r.closers = append(r.closers, fn) }
func (r *Runner) RunID() string                       { return r.runID }
func (r *Runner) MetricsPort() int                    { return r.metricsPort }

// Run scores every row of the source. Configuration problems are reported
// as *ConfigurationError before any chunk is read. Any later error aborts
// the run and the sinks discard their output.
func (r *Runner) Run(ctx context.Context) (err error) {
	log := logging.ForRun("pipeline", r.runID)
	defer func() { r.metrics.ObserveRun(err) }()

	p, err := r.validate(ctx)
	if err != nil {
		return err
	}
	rows := r.source.Rows()
	layout := sink.Layout{RunID: r.runID, Rows: rows, Outputs: p.sig.Outputs}
	for _, s := range r.sinks {
		if err := s.Begin(layout); err != nil {
			r.abort(err)
			return fmt.Errorf("pipeline: sink begin: %w", err)
		}
	}

	chunk := min(r.chunkSize, max(rows, 1))
	ranges := chunks(rows, chunk)
	workers := min(max(r.workers, 1), max(len(ranges), 1))
	log.Info("run started", "rows", rows, "chunk_size", chunk, "chunks", len(ranges), "workers", workers)

	var mu sync.Mutex // serializes sink pushes
	push := func(s sink.Scores) error {
		mu.Lock()
		defer mu.Unlock()
		for _, k := range r.sinks {
			if err := k.Push(s); err != nil {
				return fmt.Errorf("pipeline: sink push: %w", err)
			}
		}
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			a := newArena(p, chunk)
			for i := w; i < len(ranges); i += workers {
				if err := egCtx.Err(); err != nil {
					return err
				}
				start := time.Now()
				scores, err := r.score(egCtx, p, a, ranges[i])
				if err != nil {
					return err
				}
				if err := push(scores); err != nil {
					return err
				}
				r.metrics.ObserveChunk(scores.Rows, time.Since(start))
				log.Debug("chunk scored", "start", ranges[i].Start, "stop", ranges[i].Stop)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		r.abort(err)
		log.Error("run aborted", "err", err)
		return err
	}

	// sinks commit on Close; the first failure aborts the ones after it
	for i, s := range r.sinks {
		if err := s.Close(); err != nil {
			abortSinks(r.sinks[i+1:], err)
			log.Error("sink close failed", "committed_sinks", i, "err", err)
			return fmt.Errorf("pipeline: sink close: %w", err)
		}
	}
	log.Info("run finished", "rows", rows)
	return nil
}

// score fills, normalizes and scores one chunk in the worker's arena.
func (r *Runner) score(ctx context.Context, p *plan, a *arena, rng transform.Range) (sink.Scores, error) {
	n := rng.Len()
	for gi, g := range p.groups {
		b := a.bufs[gi]
		l := g.Layout(b, n)
		for vi := range g.Vars {
			if err := g.FillVar(r.source, b, rng, vi); err != nil {
				return sink.Scores{}, fmt.Errorf("pipeline: rows [%d, %d): %w", rng.Start, rng.Stop, err)
			}
			if err := preprocessing.Apply(l.Column(vi), p.offset[gi][vi], p.scale[gi][vi]); err != nil {
				return sink.Scores{}, fmt.Errorf("pipeline: %s/%s: %w", g.Name, g.Vars[vi].Name, err)
			}
		}
		p.applyCut(gi, l)
		r.metrics.ObserveNaN(g.Name, preprocessing.FillNaN(l.Data))
		a.tensors[gi] = inference.Tensor{
			Name:  p.sig.Inputs[gi].Name,
			Rows:  n,
			Slots: g.Slots(),
			Vars:  len(g.Vars),
			Data:  l.Data,
		}
	}
	out, err := r.model.Predict(ctx, a.tensors)
	if err != nil {
		return sink.Scores{}, fmt.Errorf("pipeline: predict rows [%d, %d): %w", rng.Start, rng.Stop, err)
	}
	if len(out) != n*p.sig.Outputs {
		return sink.Scores{}, fmt.Errorf("pipeline: model returned %d values for %d rows", len(out), n)
	}
	return sink.Scores{Start: rng.Start, Rows: n, Outputs: p.sig.Outputs, Values: out}, nil
}

func (r *Runner) abort(cause error) { abortSinks(r.sinks, cause) }

func abortSinks(sinks []sink.Adapter, cause error) {
	for _, s := range sinks {
		if a, ok := s.(sink.Aborter); ok {
			a.Abort(cause)
		}
	}
}

// Close releases the source and model handles registered by the compiler.
func (r *Runner) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

func chunks(rows, size int) []transform.Range {
	var out []transform.Range
	for start := 0; start < rows; start += size {
		out = append(out, transform.Range{Start: start, Stop: min(start+size, rows)})
	}
	return out
}

