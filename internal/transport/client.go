package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"tauflow/internal/inference"
)

// DefaultBatchBytes is the encoded tensor payload of one Predict call.
// Larger chunks are split into several calls.
const DefaultBatchBytes = 16 << 20

// Client is an inference.Model backed by a remote Server.
type Client struct {
	conn       *grpc.ClientConn
	batchBytes int
}

// Dial connects to target. The connection is plaintext unless opts set
// other credentials.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(MaxMessageBytes),
			grpc.MaxCallSendMsgSize(MaxMessageBytes),
		),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, batchBytes: DefaultBatchBytes}, nil
}

// SetBatchBytes changes the per-call payload budget.
func (c *Client) SetBatchBytes(n int) { c.batchBytes = n }

func (c *Client) Signature(ctx context.Context) (inference.Signature, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, signatureMethod, &structpb.Struct{}, out); err != nil {
		return inference.Signature{}, err
	}
	return decodeSignature(out)
}

// Predict scores the inputs in row batches that fit the payload budget
// and concatenates the scores in row order.
func (c *Client) Predict(ctx context.Context, inputs []inference.Tensor) ([]float32, error) {
	if len(inputs) == 0 {
		return c.predict(ctx, inputs)
	}
	rows, rowFloats := inputs[0].Rows, 0
	for _, t := range inputs {
		rowFloats += t.Slots * t.Vars
	}
	batch := max(1, c.batchBytes/max(1, packedSize(rowFloats)))
	if rows <= batch {
		return c.predict(ctx, inputs)
	}

	var scores []float32
	part := make([]inference.Tensor, len(inputs))
	for start := 0; start < rows; start += batch {
		stop := min(start+batch, rows)
		for i, t := range inputs {
			stride := t.Slots * t.Vars
			part[i] = t
			part[i].Rows = stop - start
			part[i].Data = t.Data[start*stride : stop*stride]
		}
		out, err := c.predict(ctx, part)
		if err != nil {
			return nil, fmt.Errorf("transport: rows [%d, %d): %w", start, stop, err)
		}
		scores = append(scores, out...)
	}
	return scores, nil
}

func (c *Client) predict(ctx context.Context, inputs []inference.Tensor) ([]float32, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, predictMethod, encodeTensors(inputs), out); err != nil {
		return nil, err
	}
	return decodeScores(out)
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
