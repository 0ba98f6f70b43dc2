package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"tauflow/internal/inference"
)

const (
	serviceName     = "tauflow.v1.Inference"
	signatureMethod = "/" + serviceName + "/Signature"
	predictMethod   = "/" + serviceName + "/Predict"
)

// inferenceServer is the handler type expected by serviceDesc.
type inferenceServer interface {
	Signature(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Predict(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*inferenceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Signature", Handler: unary(signatureMethod, inferenceServer.Signature)},
		{MethodName: "Predict", Handler: unary(predictMethod, inferenceServer.Predict)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tauflow/v1/inference",
}

func unary(method string, call func(inferenceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(inferenceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(inferenceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// modelService serves an inference.Model.
type modelService struct {
	model inference.Model
}

func (s *modelService) Signature(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sig, err := s.model.Signature(ctx)
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	out, err := encodeSignature(sig)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *modelService) Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	inputs, err := decodeTensors(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	scores, err := s.model.Predict(ctx, inputs)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return encodeScores(scores), nil
}
