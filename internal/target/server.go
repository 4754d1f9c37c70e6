package target

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	DefaultAddr     = ":8080"
	shutdownTimeout = 10 * time.Second
)

// Options configure a Server.
type Options struct {
	Addr        string
	PayloadFile string // YAML or JSON body; DefaultPayload when empty
	Watch       bool   // reload PayloadFile on change
	Delay       time.Duration
	Status      int
	LogRequests bool
}

// Server is the mock responder.
type Server struct {
	opts    Options
	payload *Payload
	metrics *Metrics
	log     *slog.Logger
	handler http.Handler
}

// New builds a Server, loading the payload file if one is configured.
func New(opts Options, log *slog.Logger) (*Server, error) {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Status != 0 && (opts.Status < 100 || opts.Status > 999) {
		return nil, fmt.Errorf("invalid status code %d", opts.Status)
	}
	if opts.Delay < 0 {
		return nil, fmt.Errorf("delay must be non-negative, got %s", opts.Delay)
	}
	if log == nil {
		log = slog.Default()
	}

	var body any = DefaultPayload
	if opts.PayloadFile != "" {
		v, err := ReadPayloadFile(opts.PayloadFile)
		if err != nil {
			return nil, err
		}
		body = v
	}
	payload, err := NewPayload(body)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:    opts,
		payload: payload,
		metrics: NewMetrics(),
		log:     log,
	}

	mock := NewHandler(payload, HandlerOptions{
		Delay:       opts.Delay,
		Status:      opts.Status,
		LogRequests: opts.LogRequests,
	}, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.Handle("/healthz", s.metrics.Middleware(http.HandlerFunc(healthHandler), "healthz"))
	mux.Handle("/", s.metrics.Middleware(mock, "root"))
	s.handler = mux

	return s, nil
}

// Handler returns the root handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the server's Prometheus metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Payload returns the live payload.
func (s *Server) Payload() *Payload {
	return s.payload
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if s.opts.Watch && s.opts.PayloadFile != "" {
		go func() {
			if err := WatchPayload(watchCtx, s.opts.PayloadFile, s.payload, s.log); err != nil {
				s.log.Warn("payload watch disabled", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("mock target listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down mock target")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("mock target stopped")
	return nil
}
