package transport

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"tauflow/internal/inference"
)

// Wire layout of the structpb messages:
//
//	signature: {inputs: [{name, len, vars}], outputs}
//	predict:   {inputs: [{name, rows, slots, vars, data}]} -> {scores}
//
// data and scores are little-endian float32 arrays, base64 encoded since
// structpb carries no bytes kind.

func encodeSignature(sig inference.Signature) (*structpb.Struct, error) {
	inputs := make([]any, len(sig.Inputs))
	for i, in := range sig.Inputs {
		inputs[i] = map[string]any{"name": in.Name, "len": in.Len, "vars": in.Vars}
	}
	return structpb.NewStruct(map[string]any{"inputs": inputs, "outputs": sig.Outputs})
}

func decodeSignature(s *structpb.Struct) (inference.Signature, error) {
	var sig inference.Signature
	f := s.GetFields()
	sig.Outputs = int(f["outputs"].GetNumberValue())
	for _, v := range f["inputs"].GetListValue().GetValues() {
		in := v.GetStructValue().GetFields()
		if in == nil {
			return sig, fmt.Errorf("transport: malformed signature input")
		}
		sig.Inputs = append(sig.Inputs, inference.Input{
			Name: in["name"].GetStringValue(),
			Len:  int(in["len"].GetNumberValue()),
			Vars: int(in["vars"].GetNumberValue()),
		})
	}
	return sig, nil
}

func encodeTensors(ts []inference.Tensor) *structpb.Struct {
	list := make([]*structpb.Value, len(ts))
	for i, t := range ts {
		list[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"name":  structpb.NewStringValue(t.Name),
			"rows":  structpb.NewNumberValue(float64(t.Rows)),
			"slots": structpb.NewNumberValue(float64(t.Slots)),
			"vars":  structpb.NewNumberValue(float64(t.Vars)),
			"data":  structpb.NewStringValue(pack(t.Data)),
		}})
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"inputs": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}
}

func decodeTensors(s *structpb.Struct) ([]inference.Tensor, error) {
	var out []inference.Tensor
	for _, v := range s.GetFields()["inputs"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		if f == nil {
			return nil, fmt.Errorf("transport: malformed tensor")
		}
		data, err := unpack(f["data"].GetStringValue())
		if err != nil {
			return nil, err
		}
		out = append(out, inference.Tensor{
			Name:  f["name"].GetStringValue(),
			Rows:  int(f["rows"].GetNumberValue()),
			Slots: int(f["slots"].GetNumberValue()),
			Vars:  int(f["vars"].GetNumberValue()),
			Data:  data,
		})
	}
	return out, nil
}

func encodeScores(v []float32) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"scores": structpb.NewStringValue(pack(v)),
	}}
}

func decodeScores(s *structpb.Struct) ([]float32, error) {
	return unpack(s.GetFields()["scores"].GetStringValue())
}

// packedSize is the encoded length of n floats.
func packedSize(n int) int { return base64.StdEncoding.EncodedLen(4 * n) }

func pack(v []float32) string {
	raw := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(x))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func unpack(s string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("transport: malformed float data: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("transport: float data of %d bytes", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, nil
}
