package inference

import (
	"context"
	"time"
)

type timeoutModel struct {
	Model
	d time.Duration
}

// WithTimeout bounds every Predict call of m by d. A zero d returns m.
func WithTimeout(m Model, d time.Duration) Model {
	if d <= 0 {
		return m
	}
	return &timeoutModel{Model: m, d: d}
}

func (t *timeoutModel) Predict(ctx context.Context, inputs []Tensor) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.Model.Predict(ctx, inputs)
}
