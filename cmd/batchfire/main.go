package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torosent/batchfire/internal/clientmetrics"
	"github.com/torosent/batchfire/internal/config"
	"github.com/torosent/batchfire/internal/dashboard"
	"github.com/torosent/batchfire/internal/httpclient"
	"github.com/torosent/batchfire/internal/metrics"
	"github.com/torosent/batchfire/internal/output"
	"github.com/torosent/batchfire/internal/runner"
	"github.com/torosent/batchfire/internal/threshold"
	"github.com/torosent/batchfire/internal/tracing"
)

const tracingShutdownTimeout = 5 * time.Second

// errThresholdsFailed is returned after the report when any threshold fails.
var errThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return execute(ctx, args, os.Stdout, os.Stderr)
}

// execute runs batches until ctx is cancelled or the configured batch count
// is reached, then prints the summary to stdout.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "[batchfire] tracing shutdown: %v\n", err)
		}
	}()

	builder, err := httpclient.NewRequestBuilder(cfg.TargetURL, cfg.Headers, cfg.TestIDHeader)
	if err != nil {
		return err
	}
	policy := httpclient.NewPolicy(cfg.Timeout, cfg.KeepAlive, cfg.Concurrency)
	if err := policy.Validate(); err != nil {
		return err
	}
	client := httpclient.NewClient(policy, cfg.Concurrency)
	defer client.CloseIdleConnections()

	conns := clientmetrics.New()
	exec, err := runner.NewHTTPExecutor(client, builder, policy,
		runner.WithConnectionMetrics(conns),
		runner.WithTracer(provider.Tracer(), provider.ShouldPropagate()),
	)
	if err != nil {
		return err
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	collector := metrics.NewCollector()
	reporters := []runner.Reporter{collector}

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(collector, conns, dashboard.RunConfig{
			TargetURL:   cfg.TargetURL,
			Concurrency: cfg.Concurrency,
			Timeout:     cfg.Timeout,
			KeepAlive:   cfg.KeepAlive,
			Batches:     cfg.Batches,
			ConfigFile:  cfg.ConfigFile,
		}, stop)
		if err != nil {
			return err
		}
	} else {
		console := output.NewConsole(stdout, stderr, output.ConsoleOptions{
			JSON:        cfg.JSONOutput,
			LogRequests: cfg.LogRequests,
		})
		console.Start(cfg.TargetURL, cfg.Concurrency, cfg.Timeout, cfg.KeepAlive)
		reporters = append(reporters, console)
	}

	driver, err := runner.New(runner.Options{
		Concurrency: cfg.Concurrency,
		MaxBatches:  cfg.Batches,
		Executor:    exec,
		Reporter:    runner.Reporters(reporters...),
		Tracer:      provider.Tracer(),
	})
	if err != nil {
		if dash != nil {
			dash.Stop()
		}
		return err
	}

	if dash != nil {
		dash.Start()
	}
	collector.Start()
	result, runErr := driver.Run(runCtx)

	if dash != nil {
		dash.Stop()
	}
	client.CloseIdleConnections()
	stats := collector.Stats(result.Duration)

	summary := output.Summary{
		Target:      cfg.TargetURL,
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		KeepAlive:   cfg.KeepAlive,
		Stats:       stats,
		Connections: conns.Snapshot(),
	}
	if len(thresholds) > 0 {
		summary.Thresholds = threshold.NewEvaluator(thresholds).Evaluate(stats)
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, summary); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, summary)
	}

	if runErr != nil {
		return runErr
	}
	if !threshold.AllPassed(summary.Thresholds) {
		return errThresholdsFailed
	}
	return nil
}
