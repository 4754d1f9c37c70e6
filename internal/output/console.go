package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/batchfire/internal/metrics"
	"github.com/torosent/batchfire/internal/runner"
)

const (
	defaultFailureLogRate  = 5
	defaultFailureLogBurst = 20
)

// ConsoleOptions configure a Console reporter.
type ConsoleOptions struct {
	// JSON switches batch lines to newline-delimited JSON records.
	JSON bool
	// LogRequests writes a line for every request, not only failures.
	LogRequests bool
	// FailureLogRate bounds failure lines per second; 0 uses the default.
	FailureLogRate rate.Limit
	// FailureLogBurst is the limiter burst; 0 uses the default.
	FailureLogBurst int
}

// Console prints one line per batch to out and request lines to errOut.
// Failure lines are rate limited so that a dead target does not flood the
// terminal; the number of suppressed lines is reported with the next batch.
type Console struct {
	mu         sync.Mutex
	out        io.Writer
	errOut     io.Writer
	opts       ConsoleOptions
	limiter    *rate.Limiter
	suppressed int
}

// NewConsole returns a console reporter.
func NewConsole(out, errOut io.Writer, opts ConsoleOptions) *Console {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	limit := opts.FailureLogRate
	if limit == 0 {
		limit = defaultFailureLogRate
	}
	burst := opts.FailureLogBurst
	if burst <= 0 {
		burst = defaultFailureLogBurst
	}
	return &Console{
		out:     out,
		errOut:  errOut,
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Start prints the run banner.
func (c *Console) Start(target string, concurrency int, timeout time.Duration, keepAlive bool) {
	if c.opts.JSON {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Starting batches of %d parallel requests to %s (timeout %s, keepalive %t)\n", concurrency, target, timeout, keepAlive)
	fmt.Fprintln(c.out, "Press Ctrl+C to stop.")
}

// ReportRequest logs a request line when enabled.
func (c *Console) ReportRequest(batch int, out runner.Outcome) {
	if !out.Failed() && !c.opts.LogRequests {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if out.Failed() && !c.opts.LogRequests && !c.limiter.Allow() {
		c.suppressed++
		return
	}
	switch {
	case out.OK():
		fmt.Fprintf(c.errOut, "[batchfire] batch %d request %d: HTTP %d in %dms\n", batch, out.ID, out.HTTPStatus, out.DurationMs())
		return
	case out.Aborted:
		fmt.Fprintf(c.errOut, "[batchfire] batch %d request %d: aborted after %dms\n", batch, out.ID, out.DurationMs())
		return
	}
	fmt.Fprintf(c.errOut, "[batchfire] batch %d request %d: ERROR %s after %dms\n", batch, out.ID, out.Reason, out.DurationMs())
}

type batchRecord struct {
	Type       string         `json:"type"`
	Batch      int            `json:"batch"`
	Started    time.Time      `json:"started"`
	Requests   int            `json:"requests"`
	Successes  int            `json:"successes"`
	Failures   int            `json:"failures"`
	Aborted    int            `json:"aborted,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Reasons    map[string]int `json:"reasons,omitempty"`
	// Interrupted marks a batch cut short by the run stopping.
	Interrupted bool `json:"interrupted,omitempty"`
	// Suppressed counts failure lines dropped by the limiter since the
	// previous batch.
	Suppressed int `json:"suppressed,omitempty"`
}

// ReportBatch prints the batch line, along with the number of failure lines
// suppressed since the previous batch.
func (c *Console) ReportBatch(res runner.BatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	suppressed := c.suppressed
	c.suppressed = 0

	if c.opts.JSON {
		rec := batchRecord{
			Type:        "batch",
			Batch:       res.Number,
			Started:     res.Started,
			Requests:    len(res.Outcomes),
			Successes:   res.Successes(),
			Failures:    res.Failures(),
			Aborted:     res.Aborted(),
			DurationMs:  res.DurationMs(),
			Interrupted: res.Interrupted(),
			Suppressed:  suppressed,
		}
		if rec.Failures > 0 {
			rec.Reasons = res.Reasons()
		}
		_ = json.NewEncoder(c.out).Encode(rec)
		return
	}

	var line string
	if res.Interrupted() {
		line = fmt.Sprintf("Batch %d: interrupted after %s (%d ok, %d failed, %d aborted)",
			res.Number, res.Duration.Round(time.Microsecond), res.Successes(), res.Failures(), res.Aborted())
	} else {
		line = fmt.Sprintf("Batch %d: %d requests completed in %s (%d ok, %d failed)",
			res.Number, len(res.Outcomes), res.Duration.Round(time.Microsecond), res.Successes(), res.Failures())
	}
	if res.Failures() > 0 {
		line += " " + formatReasons(res.Reasons())
	}
	fmt.Fprintln(c.out, line)

	if suppressed > 0 {
		fmt.Fprintf(c.errOut, "[batchfire] %d failure lines suppressed\n", suppressed)
	}
}

func formatReasons(reasons map[string]int) string {
	rows := metrics.SortCounts(reasons)
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("%s=%d", row.Key, row.Count))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
