package inference

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

type linearInput struct {
	Name string `yaml:"name"`
	Len  int    `yaml:"len"`
	Vars int    `yaml:"vars"`
	// Weights[o] holds either Vars values shared by every slot or
	// Slots*Vars values.
	Weights [][]float32 `yaml:"weights"`
}

type linearFile struct {
	Outputs int           `yaml:"outputs"`
	Bias    []float32     `yaml:"bias"`
	Inputs  []linearInput `yaml:"inputs"`
}

// Linear is a generalized linear model over all inputs: a sigmoid for a
// single output and a softmax otherwise.
type Linear struct {
	sig    Signature
	bias   []float32
	inputs []linearInput
}

// LoadLinear reads Linear weights from a YAML file.
func LoadLinear(path string) (*Linear, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLinear(raw)
}

func ParseLinear(raw []byte) (*Linear, error) {
	var f linearFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	if f.Outputs <= 0 {
		f.Outputs = 1
	}
	if len(f.Bias) == 0 {
		f.Bias = make([]float32, f.Outputs)
	}
	if len(f.Bias) != f.Outputs {
		return nil, fmt.Errorf("inference: %d biases for %d outputs", len(f.Bias), f.Outputs)
	}
	m := &Linear{sig: Signature{Outputs: f.Outputs}, bias: f.Bias, inputs: f.Inputs}
	for _, in := range f.Inputs {
		spec := Input{Name: in.Name, Len: in.Len, Vars: in.Vars}
		if in.Vars <= 0 {
			return nil, fmt.Errorf("inference: input %s has no variables", in.Name)
		}
		if len(in.Weights) != f.Outputs {
			return nil, fmt.Errorf("inference: input %s has %d weight rows, want %d", in.Name, len(in.Weights), f.Outputs)
		}
		for _, w := range in.Weights {
			if len(w) != in.Vars && len(w) != spec.Slots()*in.Vars {
				return nil, fmt.Errorf("inference: input %s: %d weights, want %d or %d", in.Name, len(w), in.Vars, spec.Slots()*in.Vars)
			}
		}
		m.sig.Inputs = append(m.sig.Inputs, spec)
	}
	if len(m.sig.Inputs) == 0 {
		return nil, fmt.Errorf("inference: linear model without inputs")
	}
	return m, nil
}

func (m *Linear) Signature(context.Context) (Signature, error) { return m.sig, nil }

func (m *Linear) Predict(ctx context.Context, inputs []Tensor) ([]float32, error) {
	rows, err := Check(m.sig, inputs)
	if err != nil {
		return nil, err
	}
	k := m.sig.Outputs
	out := make([]float32, rows*k)
	logits := make([]float64, k)
	for r := 0; r < rows; r++ {
		for o := 0; o < k; o++ {
			z := float64(m.bias[o])
			for i, t := range inputs {
				w := m.inputs[i].Weights[o]
				stride := t.Slots * t.Vars
				row := t.Data[r*stride : (r+1)*stride]
				for j, x := range row {
					if len(w) == t.Vars {
						z += float64(x) * float64(w[j%t.Vars])
					} else {
						z += float64(x) * float64(w[j])
					}
				}
			}
			logits[o] = z
		}
		activate(logits, out[r*k:(r+1)*k])
	}
	return out, ctx.Err()
}

func activate(z []float64, dst []float32) {
	if len(z) == 1 {
		dst[0] = float32(1 / (1 + math.Exp(-z[0])))
		return
	}
	hi := z[0]
	for _, v := range z[1:] {
		hi = math.Max(hi, v)
	}
	var sum float64
	for i, v := range z {
		e := math.Exp(v - hi)
		z[i] = e
		sum += e
	}
	for i, v := range z {
		dst[i] = float32(v / sum)
	}
}
