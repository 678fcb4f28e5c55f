// SPDX-License-Identifier: EPL-2.0

// Package server exposes a Controller over HTTP for the host shell.
//
//	POST /start    start recording, returns {"path": ...}
//	POST /stop     stop recording, returns {"path": ...}
//	POST /toggle   returns {"recording": bool}
//	GET  /status   controller status
//	GET  /healthz  liveness
//	GET  /events   websocket stream of recorder events
//	GET  /metrics  Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ik5/duorec/capture"
	"github.com/ik5/duorec/internal/observe"
	"github.com/ik5/duorec/recorder"
)

const shutdownTimeout = 5 * time.Second

// Recorder is the part of recorder.Controller the server drives.
type Recorder interface {
	Start() (string, error)
	Stop() (string, error)
	Toggle() (bool, error)
	Status() recorder.Status
}

// Server routes HTTP requests to a Recorder.
type Server struct {
	rec     Recorder
	hub     *Hub
	log     *slog.Logger
	metrics *observe.Metrics
	promH   http.Handler
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the instruments used by the request middleware.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMetricsHandler replaces the default promhttp handler on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.promH = h
		}
	}
}

// New returns a Server for rec publishing events from hub.
func New(rec Recorder, hub *Hub, opts ...Option) *Server {
	s := &Server{
		rec: rec,
		hub: hub,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.promH == nil {
		s.promH = promhttp.Handler()
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /start", s.handleStart)
	api.HandleFunc("POST /stop", s.handleStop)
	api.HandleFunc("POST /toggle", s.handleToggle)
	api.HandleFunc("GET /status", s.handleStatus)
	api.HandleFunc("GET /healthz", s.handleHealthz)
	api.Handle("GET /metrics", s.promH)

	// The websocket stream bypasses the middleware, its duration is the
	// connection lifetime.
	mux := http.NewServeMux()
	mux.Handle("GET /events", s.hub)
	mux.Handle("/", observe.Middleware(s.metrics, s.log)(api))
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info("control server listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type pathResponse struct {
	Path string `json:"path"`
}

type toggleResponse struct {
	Recording bool `json:"recording"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	path, err := s.rec.Start()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pathResponse{Path: path})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	path, err := s.rec.Stop()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pathResponse{Path: path})
}

func (s *Server) handleToggle(w http.ResponseWriter, _ *http.Request) {
	on, err := s.rec.Toggle()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Recording: on})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rec.Status())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("command failed", slog.Int("status", status), slog.Any("err", err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// StatusFor maps a recorder or capture error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, recorder.ErrAlreadyRecording), errors.Is(err, recorder.ErrNotRecording):
		return http.StatusConflict
	case errors.Is(err, capture.ErrSourceUnavailable), errors.Is(err, recorder.ErrNoSources):
		return http.StatusServiceUnavailable
	case errors.Is(err, capture.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
