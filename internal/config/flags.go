package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "batchfire",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Core request flags
	flags.StringP("target", "u", DefaultTarget, "Target URL to send GET requests to")
	flags.String("url", DefaultTarget, "Target URL")
	_ = flags.MarkDeprecated("url", "use --target instead")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.String("test-id-header", DefaultTestIDHeader, "Header carrying a fresh UUID per request (empty disables)")

	// Batch control flags
	flags.IntP("concurrency", "n", DefaultConcurrency, "Number of concurrent requests per batch")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout covering connect, headers and body")
	flags.Int("ms", 0, "Per-request timeout in milliseconds (overrides --timeout)")
	flags.Bool("keepalive", false, "Reuse connections across requests and batches")
	flags.IntP("batches", "b", 0, "Stop after this many batches (0 means run until interrupted)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard with batch metrics")
	flags.Bool("log-requests", false, "Log every request outcome to stderr")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'req_duration:p95 < 500')")

	// Tracing flags
	flags.String("otel-endpoint", "", "OTLP collector endpoint (host:port); falls back to OTEL_EXPORTER_OTLP_ENDPOINT")
	flags.String("otel-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("otel-service-name", "", "Service name reported on spans")
	flags.Float64("otel-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
	flags.Bool("otel-insecure", false, "Disable TLS towards the OTLP collector")
	flags.Bool("otel-propagate", false, "Inject W3C trace headers into requests")
}

// legacyFlags are the single-dash long flags of the original client.
var legacyFlags = map[string]bool{"url": true, "ms": true, "keepalive": true}

// normalizeLegacyArgs rewrites -url, -ms and -keepalive to their double-dash
// form; pflag would otherwise read them as bundled shorthands.
func normalizeLegacyArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg
		if arg == "--" {
			copy(out[i:], args[i:])
			break
		}
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		name, _, _ := strings.Cut(arg[1:], "=")
		if legacyFlags[name] {
			out[i] = "-" + arg
		}
	}
	return out
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	for _, name := range []string{"url", "target"} {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetString(name)
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("test-id-header") {
		val, err := fs.GetString("test-id-header")
		if err != nil {
			return err
		}
		cfg.TestIDHeader = strings.TrimSpace(val)
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("ms") {
		val, err := fs.GetInt("ms")
		if err != nil {
			return err
		}
		cfg.Timeout = time.Duration(val) * time.Millisecond
	}
	if fs.Changed("keepalive") {
		val, err := fs.GetBool("keepalive")
		if err != nil {
			return err
		}
		cfg.KeepAlive = val
	}
	if fs.Changed("batches") {
		val, err := fs.GetInt("batches")
		if err != nil {
			return err
		}
		cfg.Batches = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-requests") {
		val, err := fs.GetBool("log-requests")
		if err != nil {
			return err
		}
		cfg.LogRequests = val
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("header must be in key=value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
			if key == "" {
				return fmt.Errorf("header key cannot be empty")
			}
			cfg.Headers[key] = strings.TrimSpace(parts[1])
		}
	}

	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	return applyTracingFlags(&cfg.Tracing, fs)
}

func applyTracingFlags(tc *TracingConfig, fs *pflag.FlagSet) error {
	if fs.Changed("otel-endpoint") {
		val, err := fs.GetString("otel-endpoint")
		if err != nil {
			return err
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("otel-protocol") {
		val, err := fs.GetString("otel-protocol")
		if err != nil {
			return err
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("otel-service-name") {
		val, err := fs.GetString("otel-service-name")
		if err != nil {
			return err
		}
		tc.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("otel-sample-rate") {
		val, err := fs.GetFloat64("otel-sample-rate")
		if err != nil {
			return err
		}
		tc.SampleRate = val
	}
	if fs.Changed("otel-insecure") {
		val, err := fs.GetBool("otel-insecure")
		if err != nil {
			return err
		}
		tc.Insecure = val
	}
	if fs.Changed("otel-propagate") {
		val, err := fs.GetBool("otel-propagate")
		if err != nil {
			return err
		}
		tc.Propagate = &val
	}
	return nil
}
