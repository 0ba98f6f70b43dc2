package pipeline

import (
	"context"
	"fmt"
	"math"

	"tauflow/internal/inference"
	"tauflow/internal/preprocessing"
	"tauflow/internal/variables"
)

// plan is the validated, immutable description of a run shared by all
// workers.
type plan struct {
	groups []variables.Group
	sig    inference.Signature
	offset [][][]float32 // [group][variable]
	scale  [][][]float32
	cut    []int // index of the cut variable per group, -1 for none
}

// validate checks everything that can be checked without reading a row.
func (r *Runner) validate(ctx context.Context) (*plan, error) {
	if r.chunkSize <= 0 {
		return nil, configErr("", "chunk_size must be > 0, got %d", r.chunkSize)
	}
	if r.source == nil {
		return nil, configErr("", "no data source")
	}
	if r.model == nil {
		return nil, configErr("", "no model")
	}
	if len(r.groups) == 0 {
		return nil, configErr("", "no feature groups")
	}
	if r.rules == nil {
		return nil, configErr("", "no preprocessing rules")
	}
	sig, err := r.model.Signature(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: model signature: %w", err)
	}
	if sig.Outputs <= 0 {
		return nil, configErr("", "model declares %d outputs", sig.Outputs)
	}
	if len(sig.Inputs) != len(r.groups) {
		return nil, configErr("", "model takes %d inputs, %d groups configured", len(sig.Inputs), len(r.groups))
	}

	p := &plan{groups: r.groups, sig: sig}
	for i, g := range r.groups {
		in := sig.Inputs[i]
		if in.Slots() != g.Slots() || in.Vars != len(g.Vars) {
			return nil, configErr(g.Name, "shape (%d, %d) does not match model input %d %q (%d, %d)",
				g.Len, len(g.Vars), i, in.Name, in.Len, in.Vars)
		}
		gr, ok := r.rules.Group(g.Name)
		if !ok {
			return nil, configErr(g.Name, "no preprocessing rules")
		}
		offs := make([][]float32, len(g.Vars))
		scs := make([][]float32, len(g.Vars))
		for j, v := range g.Vars {
			o, s, ok := gr.Lookup(v.Name)
			if !ok {
				return nil, configErr(g.Name, "no preprocessing rules for %s", v.Name)
			}
			if !fits(len(o), g.Slots()) || !fits(len(s), g.Slots()) {
				return nil, configErr(g.Name, "rules for %s have lengths %d/%d, want 1 or %d", v.Name, len(o), len(s), g.Slots())
			}
			offs[j], scs[j] = o, s
		}
		cut := -1
		if g.Cut != nil {
			if cut = g.Index(g.Cut.Variable); cut < 0 {
				return nil, configErr(g.Name, "slot cut on unknown variable %s", g.Cut.Variable)
			}
		}
		p.offset = append(p.offset, offs)
		p.scale = append(p.scale, scs)
		p.cut = append(p.cut, cut)
	}
	return p, nil
}

func fits(n, slots int) bool { return n == 1 || n == slots }

func pick(v []float32, s int) float32 {
	if len(v) == 1 {
		return v[0]
	}
	return v[s]
}

// applyCut marks every variable of a slot absent when the cut variable,
// normalized like the buffer, falls below the normalized threshold.
func (p *plan) applyCut(gi int, l preprocessing.Layout) {
	ci := p.cut[gi]
	if ci < 0 {
		return
	}
	lo := p.groups[gi].Cut.Min
	off, sc := p.offset[gi][ci], p.scale[gi][ci]
	col := l.Column(ci)
	nan := float32(math.NaN())
	for s := 0; s < l.Slots; s++ {
		threshold := (lo - pick(off, s)) / pick(sc, s)
		for r := 0; r < l.Rows; r++ {
			if col.At(r, s) < threshold {
				base := (r*l.Slots + s) * l.Width
				for v := 0; v < l.Width; v++ {
					l.Data[base+v] = nan
				}
			}
		}
	}
}
