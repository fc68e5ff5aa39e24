package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/connection/rpc"
	mw "github.com/DjordjeVuckovic/qstone/pkg/middleware"
	pkgserver "github.com/DjordjeVuckovic/qstone/pkg/server"
)

const GracefulShutdownTimeout = 10 * time.Second

type Config struct {
	Address  string
	HTTPPort int
	// GRPCPort disables the gRPC listener when zero.
	GRPCPort int
}

// Server exposes a Node over HTTP and, optionally, gRPC.
type Server struct {
	Echo *echo.Echo

	cfg    Config
	node   *Node
	logger *slog.Logger
}

func NewServer(cfg Config, node *Node, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		Echo:   e,
		cfg:    cfg,
		node:   node,
		logger: logger,
	}

	s.Echo.Use(mw.Logger(
		mw.WithLogger(logger),
		mw.WithSkipper(func(c echo.Context) bool { return c.Path() == "/health" }),
	))
	s.Echo.Use(middleware.Recover())
	s.Echo.HTTPErrorHandler = apperr.GlobalErrorHandler()
	s.Echo.GET("/health", pkgserver.HealthHandler(node))

	NewRouter(s.Echo, node).Bind()
	return s
}

// Start runs the worker and the listeners until ctx is done, then shuts
// everything down.
func (s *Server) Start(ctx context.Context) error {
	var grpcServer *rpc.Server
	if s.cfg.GRPCPort != 0 {
		var err error
		grpcAddr := net.JoinHostPort(s.cfg.Address, strconv.Itoa(s.cfg.GRPCPort))
		grpcServer, err = rpc.Listen(grpcAddr, s.node, s.logger)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.node.Work(ctx)
		return nil
	})

	httpAddr := net.JoinHostPort(s.cfg.Address, strconv.Itoa(s.cfg.HTTPPort))
	g.Go(func() error {
		s.logger.Info("serving HTTP", "address", httpAddr)
		if err := s.Echo.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcServer != nil {
		g.Go(func() error {
			s.logger.Info("serving gRPC", "address", grpcServer.Addr().String())
			return grpcServer.Serve()
		})
		g.Go(func() error {
			<-ctx.Done()
			grpcServer.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
		defer cancel()
		return s.Echo.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
