// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ProjectionServiceName is the health check service reporting whether the
// projection run is healthy
const ProjectionServiceName = "projector.v1.Projection"

// Server serves Prometheus metrics and the gRPC health protocol on a single
// cleartext HTTP/2 listener
type Server struct {
	config   Config
	checker  *grpchealth.StaticChecker
	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
	stopped  bool
}

type Config struct {
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
	Host     string
	Port     uint
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Logger = cfg.Logger.With("component", "server")
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		config:  cfg,
		checker: grpchealth.NewStaticChecker(ProjectionServiceName),
	}
}

// SetServing updates the reported health of the projection service
func (s *Server) SetServing(serving bool) {
	status := grpchealth.StatusServing
	if !serving {
		status = grpchealth.StatusNotServing
	}
	s.checker.SetStatus(ProjectionServiceName, status)
}

// Handler returns the HTTP handler serving metrics and health checks
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	compress1KB := connect.WithCompressMinBytes(1024)
	mux.Handle(
		"/metrics",
		promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}),
	)
	mux.Handle(grpchealth.NewHandler(s.checker, compress1KB))
	reflector := grpcreflect.NewStaticReflector(grpchealth.HealthV1ServiceName)
	mux.Handle(grpcreflect.NewHandlerV1(reflector, compress1KB))
	mux.Handle(grpcreflect.NewHandlerV1Alpha(reflector, compress1KB))
	// Use h2c so we can serve HTTP/2 without TLS
	return h2c.NewHandler(mux, &http2.Server{})
}

// Start listens and serves until Stop is called. Start after Stop returns
// immediately.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return listener.Close()
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	server := s.server
	s.mu.Unlock()
	s.config.Logger.Info(
		"serving metrics and health checks on " + listener.Addr().String(),
	)
	if err := server.Serve(listener); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listen address once Start has bound it
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	server := s.server
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
