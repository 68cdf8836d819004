// Package server runs the edge router's HTTP listener, optionally accepting
// cleartext HTTP/2 (h2c) from a fronting load balancer.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mir00r/edge-router/pkg/logger"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Config defines listener configuration
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	H2C          bool
}

// Server wraps http.Server with h2c support and logging
type Server struct {
	config     Config
	logger     *logger.Logger
	httpServer *http.Server
}

// New creates a server for handler
func New(config Config, handler http.Handler, logger *logger.Logger) *Server {
	if config.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{
			MaxConcurrentStreams: 1000,
			MaxReadFrameSize:     1048576, // 1MB
			IdleTimeout:          config.IdleTimeout,
		})
	}

	return &Server{
		config: config,
		logger: logger,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Start listens on the configured port and serves until Shutdown
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(listener)
}

// Serve serves on listener until Shutdown. A graceful shutdown is not an error.
func (s *Server) Serve(listener net.Listener) error {
	s.logger.WithFields(map[string]interface{}{
		"addr":        listener.Addr().String(),
		"h2c_enabled": s.config.H2C,
	}).Info("Starting HTTP server")

	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Failed to shutdown HTTP server")
		return err
	}
	return nil
}
