package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/torosent/batchfire/internal/tracing"
)

// State is the lifecycle state of a Driver.
type State int32

const (
	StateRunning State = iota
	StateStopped
)

func (s State) String() string {
	if s == StateStopped {
		return "stopped"
	}
	return "running"
}

// Result captures the run summary. An interrupted final batch is not counted
// in Batches; its settled requests are in Total and Errors and its aborted
// ones only in Aborted.
type Result struct {
	Batches  int64
	Total    int64
	Errors   int64
	Aborted  int64
	Duration time.Duration
}

// Driver repeats batches back to back until its context is cancelled.
type Driver struct {
	opt     Options
	coord   *Coordinator
	state   atomic.Int32
	current atomic.Int64
	batch   atomic.Int64
}

// New validates opt and returns a driver in the Running state. A
// non-positive concurrency is rejected here so the loop never starts; a
// non-positive timeout is rejected by NewHTTPExecutor.
func New(opt Options) (*Driver, error) {
	opt.normalize()
	coord, err := NewCoordinator(opt.Concurrency, opt.Executor, opt.Reporter)
	if err != nil {
		return nil, err
	}
	return &Driver{opt: opt, coord: coord}, nil
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// BatchNumber returns the number of the batch in flight, or of the last one
// started once the driver has stopped. It never moves after cancellation.
func (d *Driver) BatchNumber() int64 {
	return d.current.Load()
}

// Batches returns how many batches ran to completion. A batch interrupted by
// cancellation is not counted, so after a stop mid-batch Batches is one less
// than BatchNumber.
func (d *Driver) Batches() int64 {
	return d.batch.Load()
}

// Run executes batches sequentially with no pause between them. Request
// failures never stop the loop; only cancellation of ctx, reaching
// MaxBatches, or a batch that cannot be launched does. Cancellation is
// checked before each batch and also aborts requests in flight through
// their contexts; the interrupted batch is still reported.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	defer d.state.Store(int32(StateStopped))

	start := time.Now()
	var res Result
	for number := 1; ; number++ {
		if ctx.Err() != nil {
			break
		}
		if d.opt.MaxBatches > 0 && number > d.opt.MaxBatches {
			break
		}

		d.current.Store(int64(number))
		batchCtx, span := tracing.StartBatchSpan(ctx, d.opt.Tracer, number, d.coord.Concurrency())
		batch, err := d.coord.RunBatch(batchCtx, number)
		if err != nil {
			tracing.EndSpan(span, err.Error())
			res.Duration = time.Since(start)
			return res, fmt.Errorf("batch %d: %w", number, err)
		}
		failures, aborted := batch.Failures(), batch.Aborted()
		reason := ""
		switch {
		case aborted > 0:
			reason = "interrupted"
		case failures == len(batch.Outcomes) && failures > 0:
			reason = "all requests failed"
		}
		tracing.EndSpan(span, reason, tracing.AttrBatchFailures.Int(failures))

		if aborted == 0 {
			d.batch.Store(int64(number))
			res.Batches++
		}
		res.Total += int64(len(batch.Outcomes) - aborted)
		res.Errors += int64(failures)
		res.Aborted += int64(aborted)
		d.opt.Reporter.ReportBatch(batch)
	}
	res.Duration = time.Since(start)
	return res, nil
}
