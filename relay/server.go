// go-suear
// Copyright (c) 2026 The go-suear Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-suear.
//
// go-suear is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-suear is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-suear; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package relay serves a Suear camera over HTTP: a multipart JPEG stream for
// browsers, a WebSocket stream of binary JPEG frames, plain-text device
// properties and Prometheus metrics.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	suear "github.com/suearlabs/go-suear"
	"github.com/suearlabs/go-suear/internal/retry"
)

// DefaultPort is the TCP port the relay listens on by default
const DefaultPort = 45100

// Config configures a relay Server
type Config struct {
	// Device is the camera session shared by every request
	Device *suear.Device
	// Logger receives request and stream logs
	Logger *slog.Logger
	// Registerer is where the relay's collectors are registered
	Registerer prometheus.Registerer
	// Gatherer is served on /metrics
	Gatherer prometheus.Gatherer
	// CheckOrigin vets WebSocket upgrades; nil allows same-origin only
	CheckOrigin func(r *http.Request) bool
	// Namespace prefixes every metric name
	Namespace string
	// Boundary separates parts of the multipart stream
	Boundary string
	// MaxViewers limits concurrent /stream and /ws clients
	MaxViewers int
	// StartAttempts is how many times opening the video stream is tried
	StartAttempts int
	// StartRetryDelay is the pause between attempts
	StartRetryDelay time.Duration
	// WriteTimeout bounds writing one frame to a WebSocket viewer
	WriteTimeout time.Duration
}

// DefaultConfig returns default relay configuration for device
func DefaultConfig(device *suear.Device) Config {
	return Config{
		Device:          device,
		Logger:          slog.Default(),
		Registerer:      prometheus.DefaultRegisterer,
		Gatherer:        prometheus.DefaultGatherer,
		Namespace:       "suear",
		Boundary:        "suear-frame-boundary",
		MaxViewers:      8,
		StartAttempts:   3,
		StartRetryDelay: 500 * time.Millisecond,
		WriteTimeout:    5 * time.Second,
	}
}

// Server relays one camera to HTTP clients
type Server struct {
	config   Config
	device   *suear.Device
	logger   *slog.Logger
	metrics  *metrics
	hub      *hub
	router   chi.Router
	upgrader websocket.Upgrader
}

// New creates a relay server. Registering the metrics fails if the same
// registry is used twice.
func New(config Config) (s *Server, err error) {
	if config.Device == nil {
		return nil, fmt.Errorf("%w: relay needs a device", suear.ErrInvalidParameter)
	}
	if config.MaxViewers < 1 {
		return nil, fmt.Errorf("%w: max viewers must be at least 1", suear.ErrInvalidParameter)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.Boundary == "" {
		config.Boundary = "suear-frame-boundary"
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	// promauto panics on duplicate registration
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("register relay metrics: %v", r)
		}
	}()
	m := newMetrics(config.Registerer, config.Namespace, config.Device)

	rc := retry.DefaultConfig("open video stream")
	rc.MaxRetries = max(config.StartAttempts-1, 0)
	rc.RetryDelay = config.StartRetryDelay
	rc.OnRetry = func(attempt int, err error) {
		config.Logger.Warn("retrying stream start", "attempt", attempt, "error", err)
	}

	s = &Server{
		config:  config,
		device:  config.Device,
		logger:  config.Logger,
		metrics: m,
		hub:     newHub(config.Device, config.Logger, m, config.MaxViewers, rc),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)

	r.Get("/", s.handleIndex)
	r.Get("/stream", s.handleStream)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/battery", s.property(func(ctx context.Context) (string, error) {
		level, err := s.device.BatteryLevel(ctx)
		return fmt.Sprint(level), err
	}))
	r.Get("/charging", s.property(func(ctx context.Context) (string, error) {
		charging, err := s.device.IsCharging(ctx)
		if charging {
			return "1", err
		}
		return "0", err
	}))
	r.Get("/capacity", s.property(func(ctx context.Context) (string, error) {
		capacity, err := s.device.Capacity(ctx)
		return fmt.Sprint(capacity), err
	}))
	r.Get("/model", s.property(s.device.Model))
	r.Get("/vendor", s.property(s.device.Vendor))
	r.Get("/version", s.property(s.device.FirmwareVersion))
	r.Get("/ssid", s.property(s.device.SSID))
	r.Get("/serial", s.property(s.device.SerialNumber))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	return r
}

// Handler returns the relay's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close ends every stream and disconnects the camera session
func (s *Server) Close() error {
	return s.hub.close()
}

// ListenAndServe serves on addr until ctx is done. TLS is used when both
// certFile and keyFile are set.
func (s *Server) ListenAndServe(ctx context.Context, addr, certFile, keyFile string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			s.logger.Info("serving HTTPS", "addr", addr)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			s.logger.Info("serving HTTP", "addr", addr)
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		_ = s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay server: %w", err)
	case <-ctx.Done():
	}

	// Streams never finish on their own; closing the hub ends them first.
	closeErr := s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown relay server: %w", err)
	}
	return closeErr
}

// requestLogger logs one line per request through the configured slog logger
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
