package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
)

// Server wraps the standard HTTP server with configuration-driven timeouts
// and graceful shutdown.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	logger     logging.Logger
}

// NewServer creates a server for the given handler.
func NewServer(cfg config.ServerConfig, handler http.Handler, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		cfg:    cfg,
		logger: log.Named("http-server"),
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Start blocks serving requests until Shutdown is called or the listener
// fails.  A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		logging.String("addr", s.httpServer.Addr),
		logging.Duration("read_timeout", s.cfg.ReadTimeout),
		logging.Duration("write_timeout", s.cfg.WriteTimeout),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("http server shutting down", logging.Duration("timeout", timeout))
	return s.httpServer.Shutdown(ctx)
}

//Personal.AI order the ending
