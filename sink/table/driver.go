// Package table writes scores as a column of a new sharded table.
package table

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tauflow/internal/logging"
	"tauflow/sink"
	"tauflow/store/shard"
)

// Fill marks rows that were never scored.
const Fill float32 = -999

type Config struct {
	Path   string        `yaml:"path"`
	Column string        `yaml:"column"` // defaults to "score"
	Store  shard.Options `yaml:"store"`
}

type driver struct {
	cfg Config

	mu      sync.Mutex
	layout  sink.Layout
	values  []float32
	done    bool
	members []string
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("table-sink: expected Config, got %T", raw)
	}
	if c.Path == "" {
		return fmt.Errorf("table-sink: path is required")
	}
	if c.Column == "" {
		c.Column = "score"
	}
	d.cfg = c
	return nil
}

func (d *driver) Begin(l sink.Layout) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layout = l
	d.values = make([]float32, l.Rows*l.Outputs)
	for i := range d.values {
		d.values[i] = Fill
	}
	return nil
}

func (d *driver) Push(s sink.Scores) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := sink.Check(d.layout, s); err != nil {
		return err
	}
	copy(d.values[s.Start*s.Outputs:], s.Values)
	return nil
}

// Close writes the output table; nothing touches the disk before.
func (d *driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done || d.values == nil {
		d.done = true
		return nil
	}
	d.done = true
	if err := os.MkdirAll(filepath.Dir(d.cfg.Path), 0o755); err != nil {
		return err
	}
	w, err := shard.Create(d.cfg.Path, d.cfg.Store)
	if err != nil {
		return err
	}
	if err := w.WriteColumn(d.cfg.Column, d.values, d.layout.Outputs); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	d.members = w.Members()
	logging.With("sink.table").Info("wrote scores", "path", d.cfg.Path, "rows", d.layout.Rows, "members", len(d.members))
	d.values = nil
	return nil
}

func (d *driver) Abort(cause error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values = nil
	d.done = true
	logging.With("sink.table").Warn("discarding scores", "path", d.cfg.Path, "err", cause)
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("table", func() sink.Adapter { return &driver{} })
}
