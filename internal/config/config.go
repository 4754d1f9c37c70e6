package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	DefaultTarget       = "http://localhost:8080"
	DefaultConcurrency  = 10
	DefaultTimeout      = 2 * time.Second
	DefaultTestIDHeader = "X-Mgc-Test-Id"
)

// Config holds the settings of one run.
type Config struct {
	TargetURL    string
	Concurrency  int
	Timeout      time.Duration
	KeepAlive    bool
	Batches      int
	Headers      map[string]string
	TestIDHeader string
	JSONOutput   bool
	Dashboard    bool
	LogRequests  bool
	Thresholds   []string
	Tracing      TracingConfig
	ConfigFile   string
}

// TracingConfig controls OpenTelemetry export and W3C header propagation.
type TracingConfig struct {
	Endpoint    string
	Protocol    string // "grpc" or "http"
	ServiceName string
	SampleRate  float64
	Insecure    bool
	Propagate   *bool // nil follows Enabled
}

// Enabled reports whether any tracing behaviour was requested, either by an
// endpoint (flag, file or OTEL_EXPORTER_OTLP_ENDPOINT) or by asking for
// header propagation alone.
func (t TracingConfig) Enabled() bool {
	if strings.TrimSpace(t.Endpoint) != "" {
		return true
	}
	if strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")) != "" {
		return true
	}
	return t.Propagate != nil && *t.Propagate
}

// ShouldPropagate reports whether requests carry trace headers.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if c.Concurrency > 500 {
		fmt.Fprintf(os.Stderr, "WARNING: High concurrency configured (%d requests per batch). Ensure you have authorization to test the target system.\n", c.Concurrency)
	}

	if issue := validateTarget(c.TargetURL); issue != "" {
		issues = append(issues, issue)
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if c.Batches < 0 {
		issues = append(issues, "batches must be >= 0")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	for key, value := range c.Headers {
		if strings.TrimSpace(key) == "" {
			issues = append(issues, "header key cannot be empty")
		}
		if strings.ContainsAny(key+value, "\r\n") {
			issues = append(issues, fmt.Sprintf("header %q contains a line break", key))
		}
	}
	if strings.ContainsAny(c.TestIDHeader, "\r\n: ") {
		issues = append(issues, fmt.Sprintf("test id header %q is not a valid header name", c.TestIDHeader))
	}
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTarget(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return "target is required (use --help for usage information)"
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Sprintf("target is not a valid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("target must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "target must include a host"
	}
	return ""
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol must be grpc or http, got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
