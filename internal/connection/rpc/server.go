package rpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Server hosts a QPUServer on a TCP listener.
type Server struct {
	grpc *grpc.Server
	lis  net.Listener
}

// Listen binds addr and registers srv. Use "127.0.0.1:0" for an ephemeral port.
func Listen(addr string, srv QPUServer, logger *slog.Logger, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	g := grpc.NewServer(opts...)
	RegisterQPUServer(g, srv)

	return &Server{grpc: g, lis: lis}, nil
}

func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}

// Port is the bound TCP port.
func (s *Server) Port() int {
	if tcp, ok := s.lis.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Serve blocks until Stop is called.
func (s *Server) Serve() error {
	return s.grpc.Serve(s.lis)
}

// Stop closes the listener and cancels in-flight calls.
func (s *Server) Stop() {
	s.grpc.Stop()
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		attrs := []any{
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"latency", time.Since(start),
		}
		if err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "RPC_ERROR", slog.Group("rpc", attrs...), slog.String("err", err.Error()))
			return resp, err
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "RPC", slog.Group("rpc", attrs...))
		return resp, nil
	}
}
