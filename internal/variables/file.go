package variables

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	pp "tauflow/internal/preprocessing"
	tf "tauflow/internal/transform"
)

type transformSpec struct {
	Kind   string   `yaml:"kind"`
	Column string   `yaml:"column"`
	Refs   []string `yaml:"refs"`
	Eps    float32  `yaml:"eps"`
	Lower  float32  `yaml:"lower"`
	Upper  float32  `yaml:"upper"`
	Div    float32  `yaml:"div"`
}

type fitSpec struct {
	Kind    string  `yaml:"kind"`
	PerSlot bool    `yaml:"per_slot"`
	Low     float64 `yaml:"low"`
	High    float64 `yaml:"high"`
	Offset  float32 `yaml:"offset"`
	Scale   float32 `yaml:"scale"`
}

type varSpec struct {
	Name      string         `yaml:"name"`
	Transform *transformSpec `yaml:"transform"`
	Fit       *fitSpec       `yaml:"fit"`
}

type groupSpec struct {
	Name     string   `yaml:"name"`
	Len      int      `yaml:"len"`
	Presence []string `yaml:"presence"`
	Cut      *struct {
		Variable string  `yaml:"variable"`
		Min      float32 `yaml:"min"`
	} `yaml:"cut"`
	Variables []varSpec `yaml:"variables"`
}

type fileSpec struct {
	Groups []groupSpec `yaml:"groups"`
}

// FileProvider supplies groups declared in a YAML document.
type FileProvider struct {
	groups []Group
}

func (p *FileProvider) Groups() ([]Group, error) { return p.groups, nil }

// LoadFile parses a variable override file:
//
//	groups:
//	  - name: tracks
//	    len: 10
//	    presence: [TauTracks/pt]
//	    variables:
//	      - name: TauTracks/pt_log
//	        transform: {kind: log10, column: TauTracks/pt}
//	        fit: {kind: mean_std}
func LoadFile(path string) (*FileProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*FileProvider, error) {
	var fs fileSpec
	if err := yaml.Unmarshal(raw, &fs); err != nil {
		return nil, fmt.Errorf("variables: %w", err)
	}
	p := &FileProvider{}
	for _, gs := range fs.Groups {
		g := Group{Name: gs.Name, Len: gs.Len, Presence: gs.Presence}
		if gs.Cut != nil {
			g.Cut = &SlotCut{Variable: gs.Cut.Variable, Min: gs.Cut.Min}
		}
		for _, vs := range gs.Variables {
			s, err := vs.build()
			if err != nil {
				return nil, fmt.Errorf("variables: group %s: %w", gs.Name, err)
			}
			g.Vars = append(g.Vars, s)
		}
		if err := validate(g); err != nil {
			return nil, err
		}
		p.groups = append(p.groups, g)
	}
	return p, nil
}

func (v varSpec) build() (Spec, error) {
	if v.Name == "" {
		return Spec{}, fmt.Errorf("variable without name")
	}
	s := Spec{Name: v.Name}
	if v.Transform != nil {
		fn, err := v.Transform.build(v.Name)
		if err != nil {
			return Spec{}, fmt.Errorf("%s: %w", v.Name, err)
		}
		s.Transform = fn
	}
	if v.Fit != nil {
		fit, err := v.Fit.build()
		if err != nil {
			return Spec{}, fmt.Errorf("%s: %w", v.Name, err)
		}
		s.Fit = fit
	}
	return s, nil
}

func (t transformSpec) build(name string) (tf.Func, error) {
	col := t.Column
	if col == "" {
		col = name
	}
	switch t.Kind {
	case "", "copy":
		return tf.Copy(col), nil
	case "log10":
		return tf.Log10(col, t.Eps), nil
	case "abs_log10":
		return tf.AbsLog10(col, t.Eps), nil
	case "abs":
		return tf.Abs(col), nil
	case "min":
		return tf.Min(col, t.Upper), nil
	case "clamp_log10":
		return tf.ClampLog10(col, t.Lower), nil
	case "min_log10":
		return tf.MinLog10(col, t.Upper), nil
	case "scaled_clamp_log10":
		if t.Div == 0 {
			return nil, fmt.Errorf("scaled_clamp_log10 needs div")
		}
		return tf.ScaledClampLog10(col, t.Div, t.Lower), nil
	}

	if len(t.Refs) == 0 {
		return nil, fmt.Errorf("transform %q needs refs", t.Kind)
	}
	switch t.Kind {
	case "delta":
		return tf.Delta(col, t.Refs...), nil
	case "delta_phi":
		return tf.DeltaPhi(col, t.Refs...), nil
	case "broadcast":
		return tf.Broadcast(col, t.Refs...), nil
	case "broadcast_log10":
		return tf.BroadcastLog10(col, t.Refs...), nil
	case "replicate":
		return tf.Replicate(t.Refs...), nil
	case "replicate_log10":
		return tf.ReplicateLog10(t.Refs...), nil
	}
	return nil, fmt.Errorf("unknown transform %q", t.Kind)
}

func (f fitSpec) build() (pp.Fitter, error) {
	switch f.Kind {
	case "", "none":
		return nil, nil
	case "mean_std":
		return pp.MeanStd{PerSlot: f.PerSlot}, nil
	case "robust":
		low, high := f.Low, f.High
		if low == 0 && high == 0 {
			low, high = 25, 75
		}
		if high <= low {
			return nil, fmt.Errorf("robust fit needs high > low")
		}
		return pp.Robust{Low: low, High: high}, nil
	case "min_max":
		return pp.MinMax{PerSlot: f.PerSlot}, nil
	case "max_only":
		return pp.MaxOnly{}, nil
	case "constant":
		if f.Scale == 0 {
			return nil, fmt.Errorf("constant fit needs a nonzero scale")
		}
		return pp.Constant{Offset: f.Offset, Scale: f.Scale}, nil
	case "flat":
		return pp.Flat{}, nil
	}
	return nil, fmt.Errorf("unknown fit %q", f.Kind)
}
