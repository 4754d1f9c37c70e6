package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/batchfire/internal/runner"
)

const historyLimit = 120

// BatchSummary is the per-batch row kept for charts and progress lines.
type BatchSummary struct {
	Number     int       `json:"batch"`
	Started    time.Time `json:"started"`
	Requests   int       `json:"requests"`
	Successes  int       `json:"successes"`
	Failures   int       `json:"failures"`
	DurationMs float64   `json:"duration_ms"`
}

// Collector aggregates request outcomes and batch durations for a whole
// run. It implements runner.Reporter and is safe for concurrent use.
type Collector struct {
	mu          sync.Mutex
	reqHist     *hdrhistogram.Histogram
	batchHist   *hdrhistogram.Histogram
	successes   int64
	failures    int64
	timeouts    int64
	aborted     int64
	minLatency  time.Duration
	maxLatency  time.Duration
	sumLatency  time.Duration
	reasons     map[string]int64
	statusCodes map[int]int64
	batches     int64
	sumBatch    time.Duration
	maxBatch    time.Duration
	history     []BatchSummary
	start       time.Time
}

// Stats represents aggregated metrics.
type Stats struct {
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	Timeouts       int64         `json:"timeouts"`
	Aborted        int64         `json:"aborted"`
	Batches        int64         `json:"batches"`
	SuccessRate    float64       `json:"success_rate"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P95Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	MeanBatch      time.Duration `json:"-"`
	MaxBatch       time.Duration `json:"-"`
	P50Batch       time.Duration `json:"-"`
	P95Batch       time.Duration `json:"-"`
	P99Batch       time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	BatchesPerSec  float64       `json:"batches_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64        `json:"min_latency_ms"`
	MaxLatencyMs  float64        `json:"max_latency_ms"`
	MeanLatencyMs float64        `json:"mean_latency_ms"`
	P50LatencyMs  float64        `json:"p50_latency_ms"`
	P90LatencyMs  float64        `json:"p90_latency_ms"`
	P95LatencyMs  float64        `json:"p95_latency_ms"`
	P99LatencyMs  float64        `json:"p99_latency_ms"`
	MeanBatchMs   float64        `json:"mean_batch_ms"`
	MaxBatchMs    float64        `json:"max_batch_ms"`
	P50BatchMs    float64        `json:"p50_batch_ms"`
	P95BatchMs    float64        `json:"p95_batch_ms"`
	P99BatchMs    float64        `json:"p99_batch_ms"`
	DurationMs    float64        `json:"duration_ms"`
	Reasons       map[string]int `json:"reasons,omitempty"`
	StatusCodes   map[string]int `json:"status_codes,omitempty"`
	LastBatch     *BatchSummary  `json:"last_batch,omitempty"`
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &Collector{
		reqHist:     hdrhistogram.New(1, 60_000_000, 3),
		batchHist:   hdrhistogram.New(1, 60_000_000, 3),
		reasons:     make(map[string]int64),
		statusCodes: make(map[int]int64),
		start:       time.Now(),
	}
}

// Start resets the clock used for rate calculations.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// Elapsed returns the time since the collector started.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// ReportRequest records one settled request. Aborted requests are only
// counted; they carry no latency or failure.
func (c *Collector) ReportRequest(_ int, out runner.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if out.Aborted {
		c.aborted++
		return
	}

	latency := out.Duration
	recordClamped(c.reqHist, latency)
	c.sumLatency += latency
	if c.successes+c.failures == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if out.HTTPStatus > 0 {
		c.statusCodes[out.HTTPStatus]++
	}
	if out.OK() {
		c.successes++
		return
	}
	c.failures++
	if out.Timeout() {
		c.timeouts++
	}
	reason := out.Reason
	if reason == "" {
		reason = "unknown"
	}
	c.reasons[reason]++
}

// ReportBatch records a completed batch. An interrupted batch is skipped.
func (c *Collector) ReportBatch(res runner.BatchResult) {
	if res.Interrupted() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	recordClamped(c.batchHist, res.Duration)
	c.batches++
	c.sumBatch += res.Duration
	if res.Duration > c.maxBatch {
		c.maxBatch = res.Duration
	}

	successes := res.Successes()
	c.history = append(c.history, BatchSummary{
		Number:     res.Number,
		Started:    res.Started,
		Requests:   len(res.Outcomes),
		Successes:  successes,
		Failures:   len(res.Outcomes) - successes,
		DurationMs: toMs(res.Duration),
	})
	if len(c.history) > historyLimit {
		c.history = c.history[len(c.history)-historyLimit:]
	}
}

// History returns the most recent batch summaries, oldest first.
func (c *Collector) History() []BatchSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]BatchSummary(nil), c.history...)
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:      total,
		Successes:  c.successes,
		Failures:   c.failures,
		Timeouts:   c.timeouts,
		Aborted:    c.aborted,
		Batches:    c.batches,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
		MaxBatch:   c.maxBatch,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
		stats.SuccessRate = float64(c.successes) / float64(total)
	}
	if c.reqHist.TotalCount() > 0 {
		stats.P50Latency = quantile(c.reqHist, 50)
		stats.P90Latency = quantile(c.reqHist, 90)
		stats.P95Latency = quantile(c.reqHist, 95)
		stats.P99Latency = quantile(c.reqHist, 99)
	}
	if c.batches > 0 {
		stats.MeanBatch = time.Duration(int64(c.sumBatch) / c.batches)
		stats.P50Batch = quantile(c.batchHist, 50)
		stats.P95Batch = quantile(c.batchHist, 95)
		stats.P99Batch = quantile(c.batchHist, 99)
	}

	stats.MinLatencyMs = toMs(stats.MinLatency)
	stats.MaxLatencyMs = toMs(stats.MaxLatency)
	stats.MeanLatencyMs = toMs(stats.MeanLatency)
	stats.P50LatencyMs = toMs(stats.P50Latency)
	stats.P90LatencyMs = toMs(stats.P90Latency)
	stats.P95LatencyMs = toMs(stats.P95Latency)
	stats.P99LatencyMs = toMs(stats.P99Latency)
	stats.MeanBatchMs = toMs(stats.MeanBatch)
	stats.MaxBatchMs = toMs(stats.MaxBatch)
	stats.P50BatchMs = toMs(stats.P50Batch)
	stats.P95BatchMs = toMs(stats.P95Batch)
	stats.P99BatchMs = toMs(stats.P99Batch)

	stats.Duration = elapsed
	stats.DurationMs = toMs(elapsed)
	if elapsed > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
		stats.BatchesPerSec = float64(c.batches) / elapsed.Seconds()
	}

	if len(c.reasons) > 0 {
		stats.Reasons = make(map[string]int, len(c.reasons))
		for k, v := range c.reasons {
			stats.Reasons[k] = int(v)
		}
	}
	if len(c.statusCodes) > 0 {
		stats.StatusCodes = make(map[string]int, len(c.statusCodes))
		for code, v := range c.statusCodes {
			stats.StatusCodes[strconv.Itoa(code)] = int(v)
		}
	}
	if n := len(c.history); n > 0 {
		last := c.history[n-1]
		stats.LastBatch = &last
	}

	return stats
}

func recordClamped(h *hdrhistogram.Histogram, d time.Duration) {
	us := d.Microseconds()
	if us < h.LowestTrackableValue() {
		us = h.LowestTrackableValue()
	}
	if us > h.HighestTrackableValue() {
		us = h.HighestTrackableValue()
	}
	_ = h.RecordValue(us)
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
