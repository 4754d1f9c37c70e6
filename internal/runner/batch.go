package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrNoExecutor is returned when a coordinator has nothing to run.
var ErrNoExecutor = errors.New("executor is required")

// ErrInvalidConcurrency is returned for a batch size below one.
var ErrInvalidConcurrency = errors.New("concurrency must be >= 1")

// BatchResult aggregates one batch. Outcomes are ordered by request id,
// not by completion time. A batch cut short by the run stopping carries
// aborted outcomes; see Interrupted.
type BatchResult struct {
	Number   int
	Outcomes []Outcome
	Started  time.Time
	Duration time.Duration
}

// Successes counts successful outcomes.
func (b BatchResult) Successes() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failures counts outcomes failed by the target or transport.
func (b BatchResult) Failures() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// Aborted counts outcomes cut short by the run stopping.
func (b BatchResult) Aborted() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Aborted {
			n++
		}
	}
	return n
}

// Interrupted reports whether the run stopped before every request settled
// on its own.
func (b BatchResult) Interrupted() bool {
	return b.Aborted() > 0
}

// Reasons counts failed outcomes by reason.
func (b BatchResult) Reasons() map[string]int {
	reasons := map[string]int{}
	for _, o := range b.Outcomes {
		if o.Failed() {
			reasons[o.Reason]++
		}
	}
	return reasons
}

// DurationMs returns the batch span in whole milliseconds.
func (b BatchResult) DurationMs() int64 {
	return b.Duration.Milliseconds()
}

// Ended returns the instant the last outcome settled.
func (b BatchResult) Ended() time.Time {
	return b.Started.Add(b.Duration)
}

// Coordinator runs a fixed-size fan-out of requests and joins on all of them.
type Coordinator struct {
	concurrency int
	executor    Executor
	reporter    Reporter
}

// NewCoordinator returns a coordinator launching concurrency requests per batch.
func NewCoordinator(concurrency int, executor Executor, reporter Reporter) (*Coordinator, error) {
	if concurrency < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidConcurrency, concurrency)
	}
	if executor == nil {
		return nil, ErrNoExecutor
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Coordinator{concurrency: concurrency, executor: executor, reporter: reporter}, nil
}

// Concurrency returns the batch size.
func (c *Coordinator) Concurrency() int {
	return c.concurrency
}

// RunBatch launches ids 1..concurrency in order and waits for every one of
// them to settle. A failing request never short-circuits its siblings: each
// task stores its outcome in its own slot and reports no error to the group.
func (c *Coordinator) RunBatch(ctx context.Context, number int) (BatchResult, error) {
	if c == nil || c.executor == nil {
		return BatchResult{Number: number}, ErrNoExecutor
	}
	if ctx == nil {
		ctx = context.Background()
	}

	outcomes := make([]Outcome, c.concurrency)
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	started := time.Now()
	for i := range outcomes {
		id := i + 1
		g.Go(func() error {
			out := c.execute(ctx, id)
			outcomes[i] = out
			c.reporter.ReportRequest(number, out)
			return nil
		})
	}
	_ = g.Wait()

	return BatchResult{
		Number:   number,
		Outcomes: outcomes,
		Started:  started,
		Duration: time.Since(started),
	}, nil
}

// execute shields the batch from executors that panic or mislabel ids, and
// marks failures caused by the run stopping as aborted.
func (c *Coordinator) execute(ctx context.Context, id int) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = failed(id, fmt.Sprintf("panic: %v", r), fmt.Errorf("panic: %v", r), time.Since(start))
		}
		out.ID = id
		if out.Status == 0 {
			out.Status = StatusFailed
			if out.Reason == "" {
				out.Reason = "no outcome"
			}
		}
		out = markAborted(ctx, out)
	}()
	return c.executor.Execute(ctx, id)
}
