package transport

import (
	"context"
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"tauflow/internal/inference"
)

func serve(t *testing.T, model inference.Model) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(lis, model)
	go func() { _ = srv.Serve() }()
	t.Cleanup(srv.Stop)

	cli, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cli.Close() })
	return cli
}

func TestClient_RoundTrip(t *testing.T) {
	sig := inference.Signature{
		Inputs:  []inference.Input{{Name: "tracks", Len: 2, Vars: 1}, {Name: "scalar", Vars: 1}},
		Outputs: 1,
	}
	model := inference.NewInProcessClient(sig, func(_ context.Context, in []inference.Tensor) ([]float32, error) {
		out := make([]float32, in[0].Rows)
		for r := range out {
			out[r] = in[0].Data[2*r] + in[0].Data[2*r+1] + in[1].Data[r]
		}
		return out, nil
	})
	cli := serve(t, model)

	got, err := cli.Signature(context.Background())
	require.NoError(t, err)
	require.Equal(t, sig, got)

	scores, err := cli.Predict(context.Background(), []inference.Tensor{
		{Name: "tracks", Rows: 2, Slots: 2, Vars: 1, Data: []float32{0.5, 0.25, 1, 2}},
		{Name: "scalar", Rows: 2, Slots: 1, Vars: 1, Data: []float32{0.125, -3}},
	})
	require.NoError(t, err)
	require.Equal(t, []float32{0.875, 0}, scores)
}

func TestClient_ShapeErrorIsInvalidArgument(t *testing.T) {
	sig := inference.Signature{Inputs: []inference.Input{{Name: "a", Vars: 2}}, Outputs: 1}
	cli := serve(t, inference.NewInProcessClient(sig, func(context.Context, []inference.Tensor) ([]float32, error) {
		return nil, nil
	}))
	_, err := cli.Predict(context.Background(), []inference.Tensor{{Name: "a", Rows: 1, Slots: 1, Vars: 1, Data: []float32{1}}})
	require.Error(t, err)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

// defaultShape mirrors the analysis inputs: tracks, clusters, scalars.
var defaultShape = inference.Signature{
	Inputs: []inference.Input{
		{Name: "tracks", Len: 10, Vars: 9},
		{Name: "clusters", Len: 6, Vars: 7},
		{Name: "scalar", Vars: 9},
	},
	Outputs: 2,
}

// rowModel scores row r with (first feature of r, r).
func rowModel() *inference.InProcessClient {
	return inference.NewInProcessClient(defaultShape, func(_ context.Context, in []inference.Tensor) ([]float32, error) {
		out := make([]float32, 0, 2*in[0].Rows)
		for r := 0; r < in[0].Rows; r++ {
			out = append(out, in[0].Data[r*90], in[2].Data[r*9])
		}
		return out, nil
	})
}

func defaultTensors(rows int) []inference.Tensor {
	ts := make([]inference.Tensor, len(defaultShape.Inputs))
	for i, in := range defaultShape.Inputs {
		stride := in.Slots() * in.Vars
		data := make([]float32, rows*stride)
		for r := 0; r < rows; r++ {
			for k := 0; k < stride; k++ {
				data[r*stride+k] = float32(r) + float32(k)/1000
			}
		}
		ts[i] = inference.Tensor{Name: in.Name, Rows: rows, Slots: in.Slots(), Vars: in.Vars, Data: data}
	}
	return ts
}

func TestClient_LargeChunkExceedsGRPCDefaultLimit(t *testing.T) {
	const rows = 20000 // about 15 MB encoded, well above the 4 MiB grpc default
	cli := serve(t, rowModel())
	scores, err := cli.Predict(context.Background(), defaultTensors(rows))
	require.NoError(t, err)
	require.Len(t, scores, 2*rows)
	for _, r := range []int{0, 1, rows / 2, rows - 1} {
		require.Equal(t, float32(r), scores[2*r])
		require.Equal(t, float32(r), scores[2*r+1])
	}
}

func TestClient_SplitsIntoBatchesInRowOrder(t *testing.T) {
	cli := serve(t, rowModel())
	cli.SetBatchBytes(packedSize(141) * 7) // 7 rows per call
	const rows = 50
	scores, err := cli.Predict(context.Background(), defaultTensors(rows))
	require.NoError(t, err)
	require.Len(t, scores, 2*rows)
	for r := 0; r < rows; r++ {
		require.Equal(t, float32(r), scores[2*r], "row %d", r)
	}
}

func TestPackRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25e-8, float32(math.Inf(1))}
	out, err := unpack(pack(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
	_, err = unpack("AAA")
	require.Error(t, err)
}
