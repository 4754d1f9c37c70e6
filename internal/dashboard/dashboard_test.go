package dashboard

import (
	"reflect"
	"strings"
	"testing"
	"time"

	ui "github.com/gizak/termui/v3"

	"github.com/torosent/batchfire/internal/clientmetrics"
	"github.com/torosent/batchfire/internal/metrics"
)

func TestBatchSeries(t *testing.T) {
	if got := batchSeries(nil); got != nil {
		t.Errorf("batchSeries(nil) = %v", got)
	}
	history := []metrics.BatchSummary{{Number: 1, DurationMs: 12.5}, {Number: 2, DurationMs: 30}}
	if got := batchSeries(history); !reflect.DeepEqual(got, []float64{12.5, 30}) {
		t.Errorf("batchSeries() = %v", got)
	}
}

func TestGaugeColor(t *testing.T) {
	tests := []struct {
		rate float64
		want ui.Color
	}{
		{1, ui.ColorGreen},
		{0.995, ui.ColorGreen},
		{0.95, ui.ColorYellow},
		{0.5, ui.ColorRed},
		{0, ui.ColorRed},
	}
	for _, tt := range tests {
		if got := gaugeColor(tt.rate); got != tt.want {
			t.Errorf("gaugeColor(%v) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestFormatReasonRows(t *testing.T) {
	if got := formatReasonRows(nil); len(got) != 1 || !strings.Contains(got[0], "No failures") {
		t.Errorf("empty rows = %v", got)
	}

	reasons := map[string]int{"Timeout": 4, "HTTP 502": 1}
	got := formatReasonRows(reasons)
	want := []string{"[Timeout](fg:red) 4", "[HTTP 502](fg:red) 1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("formatReasonRows() = %v, want %v", got, want)
	}

	many := map[string]int{}
	for i := 0; i < 25; i++ {
		many[strings.Repeat("x", i+1)] = i
	}
	if got := formatReasonRows(many); len(got) != maxListRows {
		t.Errorf("got %d rows, want %d", len(got), maxListRows)
	}
}

func TestFormatStatusRows(t *testing.T) {
	got := formatStatusRows(map[string]int{"200": 90, "503": 10})
	want := []string{"[HTTP 200](fg:green) 90", "[HTTP 503](fg:red) 10"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("formatStatusRows() = %v, want %v", got, want)
	}
}

func TestFormatConnections(t *testing.T) {
	if got := formatConnections(clientmetrics.Snapshot{}); got != "No connections yet" {
		t.Errorf("empty snapshot = %q", got)
	}
	got := formatConnections(clientmetrics.Snapshot{NewConnections: 10, ReusedConnections: 90, ReuseRate: 0.9, DialErrors: 2})
	for _, want := range []string{"New: 10", "Reused: 90 (90.0%)", "Dial errors: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatConnections() = %q, missing %q", got, want)
		}
	}
}

func TestFormatRunParams(t *testing.T) {
	tests := []struct {
		name string
		cfg  RunConfig
		want string
	}{
		{
			name: "unbounded",
			cfg:  RunConfig{Concurrency: 10, Timeout: 2 * time.Second},
			want: "Concurrency: 10 | Timeout: 2s | Keep-alive: false | Batches: until stopped",
		},
		{
			name: "bounded with config",
			cfg:  RunConfig{Concurrency: 5, Timeout: time.Second, KeepAlive: true, Batches: 20, ConfigFile: "run.yaml"},
			want: "Concurrency: 5 | Timeout: 1s | Keep-alive: true | Batches: 20 | Config: run.yaml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRunParams(tt.cfg); got != tt.want {
				t.Errorf("formatRunParams() = %q, want %q", got, tt.want)
			}
		})
	}
}
