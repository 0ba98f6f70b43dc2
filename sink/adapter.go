package sink

import (
	"fmt"
	"sort"
)

// Layout describes the scores a run will produce.
type Layout struct {
	RunID   string
	Rows    int
	Outputs int
}

// Scores are the model outputs of one chunk: Rows x Outputs values for
// the output rows starting at Start.
type Scores struct {
	Start   int
	Rows    int
	Outputs int
	Values  []float32
}

// Adapter is the common behaviour every sink exposes. Push calls are
// serialized by the executor but chunks may arrive out of order when
// several workers run.
type Adapter interface {
	Configure(any) error // driver-specific YAML ⇒ struct
	Begin(Layout) error  // once, before the first chunk
	Push(Scores) error   // one scored chunk
	Close() error        // commit the output; idempotent
}

// Aborter is optional; the executor calls Abort instead of Close when a
// run fails so that no partial output is committed.
type Aborter interface {
	Abort(cause error)
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q (have %v)", name, Names())
}

func Names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Check verifies that s fits l.
func Check(l Layout, s Scores) error {
	if s.Outputs != l.Outputs {
		return fmt.Errorf("sink: chunk has %d outputs, run has %d", s.Outputs, l.Outputs)
	}
	if len(s.Values) != s.Rows*s.Outputs {
		return fmt.Errorf("sink: chunk holds %d values for %d rows", len(s.Values), s.Rows)
	}
	if s.Start < 0 || s.Start+s.Rows > l.Rows {
		return fmt.Errorf("sink: rows [%d, %d) outside [0, %d)", s.Start, s.Start+s.Rows, l.Rows)
	}
	return nil
}
