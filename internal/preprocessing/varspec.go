package preprocessing

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// VarSpecOptions selects which rule groups feed the scalar input and the
// input sequences of an lwtnn variable specification.
type VarSpecOptions struct {
	Scalar     string            // rule group of the scalar input, "" for none
	Sequences  []string          // rule groups of the input sequences, in model order
	Names      map[string]string // input names by rule group; defaults to the group name
	OutputName string
	Labels     []string
}

type lwtnnVariable struct {
	Name   string  `json:"name"`
	Offset float64 `json:"offset"`
	Scale  float64 `json:"scale"`
}

type lwtnnInput struct {
	Name      string          `json:"name"`
	Variables []lwtnnVariable `json:"variables"`
}

type lwtnnOutput struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

type lwtnnSpec struct {
	Inputs         []lwtnnInput  `json:"inputs"`
	InputSequences []lwtnnInput  `json:"input_sequences"`
	Outputs        []lwtnnOutput `json:"outputs"`
}

// ExportVarSpec writes the rules in lwtnn convention: the input is
// multiplied by scale after adding offset, so offset is negated and scale
// inverted. Only the first element of every vector is used, since lwtnn
// normalizes every sequence slot the same way.
func ExportVarSpec(w io.Writer, r *Rules, opts VarSpecOptions) error {
	spec := lwtnnSpec{Inputs: []lwtnnInput{}, InputSequences: []lwtnnInput{}}
	if opts.Scalar != "" {
		in, err := lwtnnGroup(r, opts.Scalar, opts.Names)
		if err != nil {
			return err
		}
		spec.Inputs = append(spec.Inputs, in)
	}
	for _, name := range opts.Sequences {
		in, err := lwtnnGroup(r, name, opts.Names)
		if err != nil {
			return err
		}
		spec.InputSequences = append(spec.InputSequences, in)
	}
	if opts.OutputName != "" {
		spec.Outputs = append(spec.Outputs, lwtnnOutput{Name: opts.OutputName, Labels: opts.Labels})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(spec)
}

func lwtnnGroup(r *Rules, group string, names map[string]string) (lwtnnInput, error) {
	g, ok := r.Group(group)
	if !ok {
		return lwtnnInput{}, fmt.Errorf("preprocessing: no rules for group %q", group)
	}
	in := lwtnnInput{Name: group, Variables: []lwtnnVariable{}}
	if n, ok := names[group]; ok {
		in.Name = n
	}
	for i, v := range g.Variables {
		if len(g.Offset[i]) == 0 || len(g.Scale[i]) == 0 {
			return lwtnnInput{}, fmt.Errorf("preprocessing: empty rules for %s", v)
		}
		short := v
		if j := strings.LastIndexByte(v, '/'); j >= 0 {
			short = v[j+1:]
		}
		in.Variables = append(in.Variables, lwtnnVariable{
			Name:   short,
			Offset: -float64(g.Offset[i][0]),
			Scale:  1 / float64(g.Scale[i][0]),
		})
	}
	return in, nil
}
