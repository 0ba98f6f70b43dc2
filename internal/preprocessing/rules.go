package preprocessing

import (
	"fmt"
	"math"

	"tauflow/internal/logging"
)

// GroupRules holds the fitted offset/scale of every variable of a feature
// group. Variables defines the column order fed to the model.
type GroupRules struct {
	Name      string
	Variables []string
	Offset    [][]float32
	Scale     [][]float32
}

func (g *GroupRules) Lookup(variable string) (offset, scale []float32, ok bool) {
	for i, v := range g.Variables {
		if v == variable {
			return g.Offset[i], g.Scale[i], true
		}
	}
	return nil, nil, false
}

// Rules is the set of fitted group rules of one training run.
type Rules struct {
	Groups []*GroupRules
}

func (r *Rules) Group(name string) (*GroupRules, bool) {
	for _, g := range r.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// Add stores g, replacing a group of the same name.
func (r *Rules) Add(g *GroupRules) {
	for i, old := range r.Groups {
		if old.Name == g.Name {
			r.Groups[i] = g
			return
		}
	}
	r.Groups = append(r.Groups, g)
}

// Variable pairs a variable name with its fitter; a nil Fit means identity.
type Variable struct {
	Name string
	Fit  Fitter
}

// FitGroup fits every variable on train and applies the result to train
// and to every other partition, then replaces NaN by 0 everywhere. Only
// train contributes to the fitted values.
func FitGroup(name string, vars []Variable, train Layout, others ...Layout) (*GroupRules, error) {
	if train.Width != len(vars) {
		return nil, fmt.Errorf("preprocessing: group %q has %d variables, buffer width %d", name, len(vars), train.Width)
	}
	g := &GroupRules{Name: name}
	for i, v := range vars {
		var off, sc []float32
		if v.Fit == nil {
			off, sc = Identity(train.Slots)
		} else {
			var err error
			if off, sc, err = v.Fit.Fit(train.Column(i)); err != nil {
				return nil, fmt.Errorf("preprocessing: fit %s: %w", v.Name, err)
			}
		}
		if n := sanitize(off, sc); n > 0 {
			logging.L().Warn("preprocessing: degenerate rule replaced by identity", "group", name, "variable", v.Name, "slots", n)
		}
		for _, part := range append([]Layout{train}, others...) {
			if err := Apply(part.Column(i), off, sc); err != nil {
				return nil, fmt.Errorf("preprocessing: apply %s: %w", v.Name, err)
			}
		}
		g.Variables = append(g.Variables, v.Name)
		g.Offset = append(g.Offset, off)
		g.Scale = append(g.Scale, sc)
		logging.L().Debug("preprocessing: fitted", "group", name, "variable", v.Name, "offset", off, "scale", sc)
	}
	for _, part := range append([]Layout{train}, others...) {
		FillNaN(part.Data[:part.Rows*part.Slots*part.Width])
	}
	return g, nil
}

// sanitize replaces a non-finite offset by 0 and a zero or non-finite
// scale by 1, as fitted on a constant or empty slot, so applied values and
// exported rules stay finite. It reports how many entries changed.
func sanitize(off, sc []float32) int {
	n := 0
	for i, o := range off {
		if !isFinite(o) {
			off[i] = 0
			n++
		}
	}
	for i, s := range sc {
		if s == 0 || !isFinite(s) {
			sc[i] = 1
			n++
		}
	}
	return n
}

func isFinite(v float32) bool { return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0) }
