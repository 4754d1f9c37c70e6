package runner

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Options configure the Driver.
type Options struct {
	Concurrency int          // requests per batch, must be >= 1
	MaxBatches  int          // stop after this many batches (0 means run until cancelled)
	Executor    Executor     // request executor (required)
	Reporter    Reporter     // receives outcomes and batch results (optional)
	Tracer      trace.Tracer // opens one span per batch (optional)
}

func (o *Options) normalize() {
	if o.MaxBatches < 0 {
		o.MaxBatches = 0
	}
	if o.Reporter == nil {
		o.Reporter = NopReporter{}
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("batchfire")
	}
}
