package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/torosent/batchfire/internal/clientmetrics"
	"github.com/torosent/batchfire/internal/metrics"
	"github.com/torosent/batchfire/internal/threshold"
)

// Summary is everything printed when a run stops.
type Summary struct {
	Target      string                 `json:"target"`
	Concurrency int                    `json:"concurrency"`
	Timeout     time.Duration          `json:"-"`
	TimeoutMs   int64                  `json:"timeout_ms"`
	KeepAlive   bool                   `json:"keepalive"`
	Stats       metrics.Stats          `json:"stats"`
	Connections clientmetrics.Snapshot `json:"connections"`
	Thresholds  []threshold.Result     `json:"thresholds,omitempty"`
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, s Summary) {
	stats := s.Stats
	fmt.Fprintln(w, "\n--- Batch Load Results ---")
	fmt.Fprintf(w, "Target:            %s\n", s.Target)
	fmt.Fprintf(w, "Concurrency:       %d (timeout %s, keepalive %t)\n", s.Concurrency, s.Timeout, s.KeepAlive)
	fmt.Fprintf(w, "Batches:           %d\n", stats.Batches)
	fmt.Fprintf(w, "Total Requests:    %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d (%.1f%%)\n", stats.Successes, stats.SuccessRate*100)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	if stats.Aborted > 0 {
		fmt.Fprintf(w, "Aborted:           %d (run stopped mid-batch)\n", stats.Aborted)
	}
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)
	fmt.Fprintln(w, "\nRequest Latency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P95:             %s\n", stats.P95Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)
	if stats.Batches > 0 {
		fmt.Fprintln(w, "\nBatch Duration:")
		fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanBatch)
		fmt.Fprintf(w, "  P50:             %s\n", stats.P50Batch)
		fmt.Fprintf(w, "  P95:             %s\n", stats.P95Batch)
		fmt.Fprintf(w, "  P99:             %s\n", stats.P99Batch)
		fmt.Fprintf(w, "  Max:             %s\n", stats.MaxBatch)
	}
	if len(stats.StatusCodes) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		writeCounts(w, stats.StatusCodes, "  HTTP ")
	}
	if len(stats.Reasons) > 0 {
		fmt.Fprintln(w, "\nFailure Reasons:")
		writeCounts(w, stats.Reasons, "  ")
	}

	conns := s.Connections
	fmt.Fprintln(w, "\nConnections:")
	fmt.Fprintf(w, "  New:             %d\n", conns.NewConnections)
	fmt.Fprintf(w, "  Reused:          %d (%.1f%%)\n", conns.ReusedConnections, conns.ReuseRate*100)
	if conns.DialErrors > 0 {
		fmt.Fprintf(w, "  Dial errors:     %d\n", conns.DialErrors)
	}

	if len(s.Thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, r := range s.Thresholds {
			fmt.Fprintf(w, "  %s\n", r.Message)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, s Summary) error {
	s.TimeoutMs = s.Timeout.Milliseconds()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func writeCounts(w io.Writer, counts map[string]int, prefix string) {
	for _, row := range metrics.SortCounts(counts) {
		fmt.Fprintf(w, "%s%s: %d\n", prefix, row.Key, row.Count)
	}
}
