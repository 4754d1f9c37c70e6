package target

import (
	"log/slog"
	"net/http"
	"time"
)

// HandlerOptions shape the mock response.
type HandlerOptions struct {
	Delay       time.Duration // added before the response is written
	Status      int           // response status, 200 when zero
	LogRequests bool
}

type mockHandler struct {
	payload *Payload
	opts    HandlerOptions
	log     *slog.Logger
}

// NewHandler returns the handler serving payload on every path.
func NewHandler(payload *Payload, opts HandlerOptions, log *slog.Logger) http.Handler {
	if opts.Status == 0 {
		opts.Status = http.StatusOK
	}
	if log == nil {
		log = slog.Default()
	}
	return &mockHandler{payload: payload, opts: opts, log: log}
}

func (h *mockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.opts.Delay > 0 {
		timer := time.NewTimer(h.opts.Delay)
		select {
		case <-timer.C:
		case <-r.Context().Done():
			timer.Stop()
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.opts.Status)
	_, _ = w.Write(h.payload.Bytes())

	if h.opts.LogRequests {
		h.log.Info("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", h.opts.Status,
			"test_id", r.Header.Get("X-Mgc-Test-Id"),
		)
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
