// Package stdout prints a summary line per scored chunk.
package stdout

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"tauflow/sink"
)

/* ────────── public YAML config ────────── */
type Config struct {
	DelayMS      int  `yaml:"delay_ms"`      // artificial per-chunk delay
	PrintCounter bool `yaml:"print_counter"` // prepend seq#
	PrintValues  bool `yaml:"print_values"`  // print leading scores
	MaxValues    int  `yaml:"max_values"`    // 0 = 8

	Out io.Writer `yaml:"-"` // defaults to os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	cfg    Config
	layout sink.Layout

	mu     sync.Mutex // guards out
	scored int
}

var seq uint64

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.MaxValues <= 0 {
		c.MaxValues = 8
	}
	d.cfg = c
	return nil
}

func (d *driver) Begin(l sink.Layout) error {
	d.layout = l
	fmt.Fprintf(d.cfg.Out, "run %s: %d rows x %d outputs\n", l.RunID, l.Rows, l.Outputs)
	return nil
}

func (d *driver) Push(s sink.Scores) error {
	if err := sink.Check(d.layout, s); err != nil {
		return err
	}
	if d.cfg.DelayMS > 0 {
		time.Sleep(time.Duration(d.cfg.DelayMS) * time.Millisecond)
	}
	lo, hi, mean := summarize(s.Values)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.scored += s.Rows
	if d.cfg.PrintCounter {
		fmt.Fprintf(d.cfg.Out, "[sink %06d] ", atomic.AddUint64(&seq, 1))
	}
	fmt.Fprintf(d.cfg.Out, "rows [%d, %d) min=%.4f max=%.4f mean=%.4f",
		s.Start, s.Start+s.Rows, lo, hi, mean)
	if d.cfg.PrintValues {
		n := min(len(s.Values), d.cfg.MaxValues)
		fmt.Fprintf(d.cfg.Out, " values=%v", s.Values[:n])
	}
	fmt.Fprintln(d.cfg.Out)
	return nil
}

func (d *driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.cfg.Out, "run %s: scored %d/%d rows\n", d.layout.RunID, d.scored, d.layout.Rows)
	return nil
}

/* ────────── internals ────────── */

func summarize(v []float32) (lo, hi, mean float32) {
	if len(v) == 0 {
		return 0, 0, 0
	}
	lo, hi = v[0], v[0]
	var sum float64
	for _, x := range v {
		lo, hi = min(lo, x), max(hi, x)
		sum += float64(x)
	}
	return lo, hi, float32(sum / float64(len(v)))
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
