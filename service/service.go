// Package service exposes engines over websockets, one engine per
// connection.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nathoo/spotcore/engine"
)

// EngineFactory builds a fresh engine for a new connection.
type EngineFactory func(connID string, log *zap.Logger) (*engine.Engine, error)

// Options control per-connection behavior.
type Options struct {
	// CommitTimeout is how long a continuation may stay pending before the
	// service commits it.
	CommitTimeout time.Duration
	// MicGating drops text after a handled utterance until the client
	// reports a new audio start.
	MicGating bool
}

// Server serves /ws, /metrics and /healthz.
type Server struct {
	factory  EngineFactory
	opts     Options
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *Metrics
	upgrader websocket.Upgrader
}

// New creates a server. Each server has its own metrics registry.
func New(factory EngineFactory, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = 2 * time.Second
	}
	reg := prometheus.NewRegistry()
	return &Server{
		factory:  factory,
		opts:     opts,
		log:      log.With(zap.String("component", "service")),
		registry: reg,
		metrics:  NewMetrics("spotcore", reg),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Run listens on addr until ctx is cancelled. Open connections are closed
// through their request context.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutting down: %w", err)
		}
		s.log.Info("stopped")
		return nil
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		s.metrics.connections.WithLabelValues("rejected").Inc()
		return
	}

	id := uuid.NewString()
	log := s.log.With(zap.String("conn", id))

	eng, err := s.factory(id, log)
	if err != nil {
		log.Error("creating engine failed", zap.Error(err))
		s.metrics.connections.WithLabelValues("rejected").Inc()
		_ = conn.WriteJSON(errorMessage{Type: msgError, Message: err.Error()})
		conn.Close()
		return
	}

	s.metrics.connections.WithLabelValues("accepted").Inc()
	s.metrics.active.Inc()
	defer s.metrics.active.Dec()

	log.Info("connected", zap.String("remote", r.RemoteAddr))
	c := &connection{
		conn:    conn,
		eng:     eng,
		opts:    s.opts,
		log:     log,
		metrics: s.metrics,
	}
	c.serve(r.Context())
	log.Info("disconnected")
}
