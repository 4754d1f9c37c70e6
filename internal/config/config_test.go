package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/batchfire/internal/config"
)

func TestParseFlagsDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "http://localhost:8080" {
		t.Errorf("TargetURL = %q, want http://localhost:8080", cfg.TargetURL)
	}
	if cfg.Concurrency != 10 {
		t.Errorf("Concurrency = %d, want 10", cfg.Concurrency)
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("Timeout = %s, want 2s", cfg.Timeout)
	}
	if cfg.KeepAlive {
		t.Error("KeepAlive = true, want false")
	}
	if cfg.Batches != 0 {
		t.Errorf("Batches = %d, want 0", cfg.Batches)
	}
	if cfg.TestIDHeader != "X-Mgc-Test-Id" {
		t.Errorf("TestIDHeader = %q", cfg.TestIDHeader)
	}
	if len(cfg.Headers) != 0 {
		t.Errorf("Headers len = %d, want 0", len(cfg.Headers))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestParseLegacyFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"single dash url", []string{"-url", "http://legacy.local:9000", "-n", "4", "-ms", "300", "-keepalive"}, "http://legacy.local:9000"},
		{"double dash url", []string{"--url=http://legacy.local:9000", "-n", "4", "--ms", "300", "--keepalive"}, "http://legacy.local:9000"},
		{"target wins over url", []string{"--url", "http://old.local", "--target", "http://new.local", "-n", "4", "-ms=300", "-keepalive"}, "http://new.local"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.NewLoader().Load(tt.args)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.TargetURL != tt.want {
				t.Errorf("TargetURL = %q, want %q", cfg.TargetURL, tt.want)
			}
			if cfg.Concurrency != 4 || cfg.Timeout != 300*time.Millisecond || !cfg.KeepAlive {
				t.Errorf("Concurrency = %d, Timeout = %s, KeepAlive = %t", cfg.Concurrency, cfg.Timeout, cfg.KeepAlive)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	cfg, err := config.NewLoader().Load([]string{
		"-u", "https://api.example.com/health",
		"-n", "25",
		"--ms", "750",
		"--keepalive",
		"--batches", "3",
		"--header", "Authorization=Bearer abc",
		"--header", "x-env = staging",
		"--test-id-header", "",
		"--threshold", "req_duration:p99 < 500",
		"--log-requests",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "https://api.example.com/health" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
	if cfg.Concurrency != 25 {
		t.Errorf("Concurrency = %d, want 25", cfg.Concurrency)
	}
	if cfg.Timeout != 750*time.Millisecond {
		t.Errorf("Timeout = %s, want 750ms", cfg.Timeout)
	}
	if !cfg.KeepAlive || !cfg.LogRequests {
		t.Errorf("KeepAlive = %t, LogRequests = %t, want both true", cfg.KeepAlive, cfg.LogRequests)
	}
	if cfg.Batches != 3 {
		t.Errorf("Batches = %d, want 3", cfg.Batches)
	}
	if cfg.Headers["Authorization"] != "Bearer abc" || cfg.Headers["X-Env"] != "staging" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if cfg.TestIDHeader != "" {
		t.Errorf("TestIDHeader = %q, want disabled", cfg.TestIDHeader)
	}
	if len(cfg.Thresholds) != 1 {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"target": "https://api.example.com",
		"headers": {"accept": "application/json"},
		"concurrency": 40,
		"timeout": 1500,
		"keepalive": true,
		"batches": 12,
		"json_output": true,
		"thresholds": ["req_failed:rate < 0.01", "batch_duration:p95 < 800"],
		"tracing": {"endpoint": "otel:4317", "protocol": "HTTP", "sample_rate": 0.5, "insecure": true, "propagate": false}
	}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	if cfg.TargetURL != "https://api.example.com" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
	if cfg.Headers["Accept"] != "application/json" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if cfg.Concurrency != 40 {
		t.Errorf("Concurrency = %d, want 40", cfg.Concurrency)
	}
	if cfg.Timeout != 1500*time.Millisecond {
		t.Errorf("Timeout = %s, want 1.5s (numeric values are milliseconds)", cfg.Timeout)
	}
	if !cfg.KeepAlive || !cfg.JSONOutput {
		t.Errorf("KeepAlive = %t, JSONOutput = %t", cfg.KeepAlive, cfg.JSONOutput)
	}
	if cfg.Batches != 12 {
		t.Errorf("Batches = %d, want 12", cfg.Batches)
	}
	if len(cfg.Thresholds) != 2 {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
	tc := cfg.Tracing
	if tc.Endpoint != "otel:4317" || tc.Protocol != "http" || tc.SampleRate != 0.5 || !tc.Insecure {
		t.Errorf("Tracing = %+v", tc)
	}
	if tc.Propagate == nil || *tc.Propagate {
		t.Errorf("Tracing.Propagate = %v, want explicit false", tc.Propagate)
	}
	if tc.ShouldPropagate() {
		t.Error("ShouldPropagate() = true despite propagate: false")
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(`
target: http://localhost:9090/
concurrency: 5
timeout: 3s
keepalive: true
test_id_header: X-Run-Id
headers:
  x-tenant: acme
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetURL != "http://localhost:9090/" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
	if cfg.Concurrency != 5 || cfg.Timeout != 3*time.Second || !cfg.KeepAlive {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.TestIDHeader != "X-Run-Id" {
		t.Errorf("TestIDHeader = %q", cfg.TestIDHeader)
	}
	if cfg.Headers["X-Tenant"] != "acme" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("concurrency: 5\ntimeout: 3s\nkeepalive: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path, "-n", "7", "--timeout", "250ms", "--keepalive=false"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Concurrency != 7 {
		t.Errorf("Concurrency = %d, want 7", cfg.Concurrency)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Errorf("Timeout = %s, want 250ms", cfg.Timeout)
	}
	if cfg.KeepAlive {
		t.Error("KeepAlive should be overridden to false")
	}
}

func TestLoadHelpRequested(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load(--help) error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadRejectsPositionalArguments(t *testing.T) {
	if _, err := config.NewLoader().Load([]string{"http://x"}); err == nil {
		t.Fatal("expected error for stray positional argument")
	}
}

func TestLoadRejectsMalformedHeader(t *testing.T) {
	if _, err := config.NewLoader().Load([]string{"--header", "no-equals-sign"}); err == nil {
		t.Fatal("expected error for header without '='")
	}
}

func TestConfigValidationErrors(t *testing.T) {
	base := func() config.Config {
		cfg := *config.Default()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty target", func(c *config.Config) { c.TargetURL = "" }, "target is required"},
		{"relative target", func(c *config.Config) { c.TargetURL = "/health" }, "http or https"},
		{"ftp target", func(c *config.Config) { c.TargetURL = "ftp://example.com" }, "http or https"},
		{"no host", func(c *config.Config) { c.TargetURL = "http:///path" }, "host"},
		{"zero concurrency", func(c *config.Config) { c.Concurrency = 0 }, "concurrency must be >= 1"},
		{"negative concurrency", func(c *config.Config) { c.Concurrency = -4 }, "concurrency must be >= 1"},
		{"zero timeout", func(c *config.Config) { c.Timeout = 0 }, "timeout must be > 0"},
		{"negative batches", func(c *config.Config) { c.Batches = -1 }, "batches must be >= 0"},
		{"dashboard and json", func(c *config.Config) { c.Dashboard, c.JSONOutput = true, true }, "mutually exclusive"},
		{"header line break", func(c *config.Config) { c.Headers = map[string]string{"X-A": "1\r\nX-B: 2"} }, "line break"},
		{"bad test id header", func(c *config.Config) { c.TestIDHeader = "X Run" }, "test id header"},
		{"bad tracing protocol", func(c *config.Config) { c.Tracing.Protocol = "zipkin" }, "tracing protocol"},
		{"bad sample rate", func(c *config.Config) { c.Tracing.SampleRate = 2 }, "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() error = nil")
			}
			var verr config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidationErrorListsEveryIssue(t *testing.T) {
	cfg := config.Config{Concurrency: 0, Timeout: 0, Batches: -1}
	err := cfg.Validate()
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := len(verr.Issues()); got != 4 {
		t.Errorf("Issues() = %v, want 4 entries", verr.Issues())
	}
}

func TestTracingConfigEnabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	on := true

	if (config.TracingConfig{}).Enabled() {
		t.Error("zero TracingConfig should be disabled")
	}
	if !(config.TracingConfig{Endpoint: "localhost:4317"}).Enabled() {
		t.Error("endpoint should enable tracing")
	}
	if !(config.TracingConfig{Propagate: &on}).ShouldPropagate() {
		t.Error("explicit propagate should enable propagation")
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	if !(config.TracingConfig{}).Enabled() {
		t.Error("OTEL_EXPORTER_OTLP_ENDPOINT should enable tracing")
	}
}
