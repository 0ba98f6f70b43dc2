package inference

import (
	"context"
	"fmt"
)

// PredictFunc scores validated inputs.
type PredictFunc func(ctx context.Context, inputs []Tensor) ([]float32, error)

// InProcessClient adapts a model compiled into the binary. It validates
// shapes on every call.
type InProcessClient struct {
	sig Signature
	fn  PredictFunc
}

func NewInProcessClient(sig Signature, fn PredictFunc) *InProcessClient {
	return &InProcessClient{sig: sig, fn: fn}
}

func (c *InProcessClient) Signature(context.Context) (Signature, error) { return c.sig, nil }

func (c *InProcessClient) Predict(ctx context.Context, inputs []Tensor) ([]float32, error) {
	rows, err := Check(c.sig, inputs)
	if err != nil {
		return nil, err
	}
	out, err := c.fn(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(out) != rows*c.sig.Outputs {
		return nil, fmt.Errorf("inference: model returned %d values for %d rows x %d outputs", len(out), rows, c.sig.Outputs)
	}
	return out, nil
}

func (c *InProcessClient) Close() error { return nil }
