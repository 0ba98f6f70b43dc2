package transport

import (
	"fmt"
	"net"

	"google.golang.org/grpc"

	"tauflow/internal/inference"
	"tauflow/internal/logging"
)

type Server struct {
	grpc *grpc.Server
	lis  net.Listener
}

// StartServer listens on port and registers model; call Serve to accept
// requests.
func StartServer(port int, model inference.Model) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return NewServer(lis, model), nil
}

// MaxMessageBytes bounds a single request or response on both sides.
const MaxMessageBytes = 64 << 20

// NewServer serves model on an existing listener.
func NewServer(lis net.Listener, model inference.Model, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{
		grpc.MaxRecvMsgSize(MaxMessageBytes),
		grpc.MaxSendMsgSize(MaxMessageBytes),
	}, opts...)
	s := &Server{
		grpc: grpc.NewServer(opts...),
		lis:  lis,
	}
	s.grpc.RegisterService(&serviceDesc, &modelService{model: model})
	return s
}

func (s *Server) Addr() net.Addr { return s.lis.Addr() }

func (s *Server) Serve() error {
	logging.With("transport").Info("serving inference", "addr", s.lis.Addr().String())
	return s.grpc.Serve(s.lis)
}

func (s *Server) Stop() {
	s.grpc.GracefulStop()
}
