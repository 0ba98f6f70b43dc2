// Package inference defines the contract between the executor and a
// classifier, whether it runs in process or behind a transport.
package inference

import (
	"context"
	"fmt"
)

// Input describes one model input: Len 0 is a [N, Vars] scalar input,
// Len > 0 a [N, Len, Vars] sequence input.
type Input struct {
	Name string
	Len  int
	Vars int
}

func (in Input) Slots() int {
	if in.Len <= 0 {
		return 1
	}
	return in.Len
}

// Signature is the declared shape of a model.
type Signature struct {
	Inputs  []Input
	Outputs int
}

// Tensor is a row-major block of Rows x Slots x Vars values.
type Tensor struct {
	Name  string
	Rows  int
	Slots int
	Vars  int
	Data  []float32
}

func (t Tensor) check() error {
	if len(t.Data) != t.Rows*t.Slots*t.Vars {
		return fmt.Errorf("inference: tensor %s holds %d values, want %dx%dx%d", t.Name, len(t.Data), t.Rows, t.Slots, t.Vars)
	}
	return nil
}

// Model scores rows. Predict returns Rows x Outputs values, row-major, for
// tensors given in signature order. The tensors are only valid for the
// duration of the call.
type Model interface {
	Signature(ctx context.Context) (Signature, error)
	Predict(ctx context.Context, inputs []Tensor) ([]float32, error)
}

// Check verifies inputs against sig and returns the shared row count.
func Check(sig Signature, inputs []Tensor) (int, error) {
	if len(inputs) != len(sig.Inputs) {
		return 0, fmt.Errorf("inference: %d inputs, model takes %d", len(inputs), len(sig.Inputs))
	}
	rows := -1
	for i, in := range inputs {
		want := sig.Inputs[i]
		if err := in.check(); err != nil {
			return 0, err
		}
		if in.Slots != want.Slots() || in.Vars != want.Vars {
			return 0, fmt.Errorf("inference: input %d (%s) is %dx%d, model wants %dx%d", i, want.Name, in.Slots, in.Vars, want.Slots(), want.Vars)
		}
		if rows >= 0 && in.Rows != rows {
			return 0, fmt.Errorf("inference: input %d has %d rows, want %d", i, in.Rows, rows)
		}
		rows = in.Rows
	}
	return max(rows, 0), nil
}
