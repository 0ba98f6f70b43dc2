package inference

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const linearDoc = `
outputs: 1
bias: [0]
inputs:
  - name: tracks
    len: 2
    vars: 1
    weights: [[1]]
  - name: scalar
    vars: 2
    weights: [[1, -1]]
`

func TestLinear_Sigmoid(t *testing.T) {
	m, err := ParseLinear([]byte(linearDoc))
	require.NoError(t, err)
	sig, err := m.Signature(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Input{{Name: "tracks", Len: 2, Vars: 1}, {Name: "scalar", Vars: 2}}, sig.Inputs)

	out, err := m.Predict(context.Background(), []Tensor{
		{Name: "tracks", Rows: 2, Slots: 2, Vars: 1, Data: []float32{0, 0, 1, 1}},
		{Name: "scalar", Rows: 2, Slots: 1, Vars: 2, Data: []float32{1, 1, 0, 0}},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.InDelta(t, 0.5, out[0], 1e-6)
	require.InDelta(t, 0.8807971, out[1], 1e-6)
}

func TestLinear_SoftmaxSumsToOne(t *testing.T) {
	m, err := ParseLinear([]byte(`
outputs: 3
bias: [0, 1, 2]
inputs:
  - name: s
    vars: 1
    weights: [[1], [0], [-1]]
`))
	require.NoError(t, err)
	out, err := m.Predict(context.Background(), []Tensor{{Name: "s", Rows: 1, Slots: 1, Vars: 1, Data: []float32{1}}})
	require.NoError(t, err)
	require.InDelta(t, 1, out[0]+out[1]+out[2], 1e-6)
	require.InDelta(t, out[0], out[1], 1e-6)
	require.InDelta(t, out[1], out[2], 1e-6)
}

func TestParseLinear_Rejects(t *testing.T) {
	for _, doc := range []string{
		"outputs: 1\ninputs: []",
		"outputs: 2\nbias: [1]\ninputs: [{name: a, vars: 1, weights: [[1], [1]]}]",
		"inputs: [{name: a, vars: 2, weights: [[1, 2, 3]]}]",
		"inputs: [{name: a, vars: 1, weights: [[1], [2]]}]",
		"inputs: [{name: a, weights: [[]]}]",
	} {
		_, err := ParseLinear([]byte(doc))
		require.Error(t, err, doc)
	}
}

func TestCheck_Shapes(t *testing.T) {
	sig := Signature{Inputs: []Input{{Name: "a", Len: 3, Vars: 2}}, Outputs: 1}
	_, err := Check(sig, nil)
	require.Error(t, err)
	_, err = Check(sig, []Tensor{{Rows: 1, Slots: 2, Vars: 2, Data: make([]float32, 4)}})
	require.Error(t, err)
	_, err = Check(sig, []Tensor{{Rows: 1, Slots: 3, Vars: 2, Data: make([]float32, 5)}})
	require.Error(t, err)
	rows, err := Check(sig, []Tensor{{Rows: 2, Slots: 3, Vars: 2, Data: make([]float32, 12)}})
	require.NoError(t, err)
	require.Equal(t, 2, rows)
}

func TestInProcessClient_ValidatesOutput(t *testing.T) {
	sig := Signature{Inputs: []Input{{Name: "a", Vars: 1}}, Outputs: 2}
	c := NewInProcessClient(sig, func(_ context.Context, in []Tensor) ([]float32, error) {
		return make([]float32, in[0].Rows), nil
	})
	_, err := c.Predict(context.Background(), []Tensor{{Rows: 3, Slots: 1, Vars: 1, Data: make([]float32, 3)}})
	require.Error(t, err)
}

func TestWithTimeout(t *testing.T) {
	sig := Signature{Inputs: []Input{{Name: "a", Vars: 1}}, Outputs: 1}
	slow := NewInProcessClient(sig, func(ctx context.Context, in []Tensor) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.Same(t, slow, WithTimeout(slow, 0))

	m := WithTimeout(slow, time.Millisecond)
	_, err := m.Predict(context.Background(), []Tensor{{Rows: 1, Slots: 1, Vars: 1, Data: []float32{1}}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
