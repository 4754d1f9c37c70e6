package target

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tidwall/gjson"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(opts, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestDefaultPayload(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	code, body := get(t, ts.URL+"/anything")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if got := gjson.Get(body, "status").String(); got != "ok" {
		t.Errorf("status field = %q, want ok", got)
	}
	if got := gjson.Get(body, "message").String(); got != "This is a fast mock response!" {
		t.Errorf("message field = %q", got)
	}
}

func TestForcedStatus(t *testing.T) {
	_, ts := newTestServer(t, Options{Status: http.StatusServiceUnavailable})

	if code, _ := get(t, ts.URL); code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
}

func TestDelay(t *testing.T) {
	_, ts := newTestServer(t, Options{Delay: 80 * time.Millisecond})

	start := time.Now()
	get(t, ts.URL)
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("response after %s, want >= 80ms", elapsed)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, Options{Status: http.StatusInternalServerError})

	code, body := get(t, ts.URL+"/healthz")
	if code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", code)
	}
	if gjson.Get(body, "status").String() != "healthy" {
		t.Errorf("healthz body = %s", body)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"status too low", Options{Status: 42}},
		{"negative delay", Options{Delay: -time.Second}},
		{"missing payload file", Options{PayloadFile: filepath.Join(t.TempDir(), "nope.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts, quietLogger()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestMetricsMiddleware(t *testing.T) {
	s, ts := newTestServer(t, Options{})

	for i := 0; i < 3; i++ {
		get(t, ts.URL)
	}
	get(t, ts.URL+"/healthz")

	if got := testutil.ToFloat64(s.Metrics().requests.WithLabelValues("root", "GET", "200")); got != 3 {
		t.Errorf("root requests = %v, want 3", got)
	}
	if got := testutil.ToFloat64(s.Metrics().requests.WithLabelValues("healthz", "GET", "200")); got != 1 {
		t.Errorf("healthz requests = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(s.Metrics().duration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestMetricsRecordForcedStatus(t *testing.T) {
	s, ts := newTestServer(t, Options{Status: http.StatusTeapot})
	get(t, ts.URL)

	if got := testutil.ToFloat64(s.Metrics().requests.WithLabelValues("root", "GET", "418")); got != 1 {
		t.Errorf("418 requests = %v, want 1", got)
	}
}

func TestMetricsCountClientAbortAs499(t *testing.T) {
	s, ts := newTestServer(t, Options{Delay: 2 * time.Second})

	client := &http.Client{Timeout: 50 * time.Millisecond}
	if resp, err := client.Get(ts.URL); err == nil {
		resp.Body.Close()
		t.Fatal("expected the client to give up before the delay")
	}

	aborted := s.Metrics().requests.WithLabelValues("root", "GET", "499")
	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(aborted) != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := testutil.ToFloat64(aborted); got != 1 {
		t.Errorf("499 requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.Metrics().requests.WithLabelValues("root", "GET", "200")); got != 0 {
		t.Errorf("200 requests = %v, want 0", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	get(t, ts.URL)

	code, body := get(t, ts.URL+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("metrics status = %d", code)
	}
	for _, want := range []string{
		`batchfire_target_http_requests_total{code="200",handler="root",method="GET"} 1`,
		"batchfire_target_http_request_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestReadPayloadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "body.yaml")
	writeFile(t, yamlPath, "status: degraded\nitems:\n  - 1\n  - 2\n")
	p := &Payload{}
	if err := p.Load(yamlPath); err != nil {
		t.Fatalf("Load(yaml) error = %v", err)
	}
	if got := gjson.GetBytes(p.Bytes(), "items.#").Int(); got != 2 {
		t.Errorf("items count = %d, want 2", got)
	}

	jsonPath := filepath.Join(dir, "body.json")
	writeFile(t, jsonPath, `{"status":"ok","n":3}`)
	if err := p.Load(jsonPath); err != nil {
		t.Fatalf("Load(json) error = %v", err)
	}
	if got := gjson.GetBytes(p.Bytes(), "n").Int(); got != 3 {
		t.Errorf("n = %d, want 3", got)
	}

	emptyPath := filepath.Join(dir, "empty.yaml")
	writeFile(t, emptyPath, "")
	if err := p.Load(emptyPath); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("Load(empty) error = %v, want ErrEmptyPayload", err)
	}
	if gjson.GetBytes(p.Bytes(), "n").Int() != 3 {
		t.Error("failed load must keep the previous body")
	}
}

func TestWatchPayloadReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.json")
	writeFile(t, path, `{"version":1}`)

	s, ts := newTestServer(t, Options{PayloadFile: path})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchPayload(ctx, path, s.Payload(), quietLogger()) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, `{"version":2}`)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_, body := get(t, ts.URL)
		if gjson.Get(body, "version").Int() == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("payload was not reloaded")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, err := New(Options{}, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	if code, _ := get(t, "http://"+ln.Addr().String()); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
