package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/batchfire/internal/clientmetrics"
	"github.com/torosent/batchfire/internal/metrics"
)

const maxListRows = 10

// RunConfig holds the run parameters shown in the header.
type RunConfig struct {
	TargetURL   string
	Concurrency int
	Timeout     time.Duration
	KeepAlive   bool
	Batches     int // 0 = until interrupted
	ConfigFile  string
}

// Dashboard renders a live terminal UI for batch metrics.
type Dashboard struct {
	collector    *metrics.Collector
	conns        *clientmetrics.ClientMetrics
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid         *ui.Grid
	batchSparkle *widgets.SparklineGroup
	latencyPara  *widgets.Paragraph
	successGauge *widgets.Gauge
	reasonList   *widgets.List
	statusList   *widgets.List
	summaryPara  *widgets.Paragraph
	metricsPara  *widgets.Paragraph
	connPara     *widgets.Paragraph
	runConfig    RunConfig
}

// New creates a new Dashboard. shutdownFunc is called when the user presses
// q or Ctrl+C inside the UI.
func New(collector *metrics.Collector, conns *clientmetrics.ClientMetrics, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:    collector,
		conns:        conns,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
		runConfig:    cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Batch duration (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.batchSparkle = widgets.NewSparklineGroup(sparkline)
	d.batchSparkle.Title = "Batch Duration"
	d.batchSparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Request Latency"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP95: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.successGauge = widgets.NewGauge()
	d.successGauge.Title = "Success Rate"
	d.successGauge.Percent = 0
	d.successGauge.BarColor = ui.ColorGreen
	d.successGauge.BorderStyle.Fg = ui.ColorCyan
	d.successGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.reasonList = widgets.NewList()
	d.reasonList.Title = "Failure Reasons"
	d.reasonList.Rows = []string{"No failures"}
	d.reasonList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.reasonList.BorderStyle.Fg = ui.ColorCyan

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Codes"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Totals"
	d.metricsPara.Text = "Waiting for the first batch..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan

	d.connPara = widgets.NewParagraph()
	d.connPara.Title = "Connections"
	d.connPara.Text = "No connections yet"
	d.connPara.TextStyle = ui.NewStyle(ui.ColorGreen)
	d.connPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.2,
			ui.NewCol(0.5, d.successGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.26,
			ui.NewCol(0.65, d.batchSparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.12,
			ui.NewCol(1.0, d.connPara),
		),
		ui.NewRow(0.28,
			ui.NewCol(0.5, d.reasonList),
			ui.NewCol(0.5, d.statusList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := d.collector.Elapsed()
	stats := d.collector.Stats(elapsed)

	if series := batchSeries(d.collector.History()); len(series) > 0 {
		d.batchSparkle.Sparklines[0].Data = series
		d.batchSparkle.Title = fmt.Sprintf(
			"Batch Duration | Last: %.1fms | P95: %.1fms | Max: %.1fms",
			series[len(series)-1],
			stats.P95BatchMs,
			stats.MaxBatchMs,
		)
	}

	successPct := stats.SuccessRate * 100
	d.successGauge.Percent = int(successPct)
	d.successGauge.Label = fmt.Sprintf("%.1f%% (%d/%d)", successPct, stats.Successes, stats.Total)
	d.successGauge.BarColor = gaugeColor(stats.SuccessRate)

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | Batches: %d | %.2f batches/s",
		d.runConfig.TargetURL,
		formatRunParams(d.runConfig),
		elapsed.Round(time.Second),
		stats.Batches,
		stats.BatchesPerSec,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Total Requests:    %d\nSuccessful:        %d\nFailed:            %d\nTimeouts:          %d\nRequests/sec:      %.2f\nMean Batch:        %.2fms",
		stats.Total,
		stats.Successes,
		stats.Failures,
		stats.Timeouts,
		stats.RequestsPerSec,
		stats.MeanBatchMs,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP95:  %.2fms\nP99:  %.2fms",
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P95LatencyMs,
		stats.P99LatencyMs,
	)

	d.reasonList.Rows = formatReasonRows(stats.Reasons)
	d.statusList.Rows = formatStatusRows(stats.StatusCodes)
	d.connPara.Text = formatConnections(d.conns.Snapshot())
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func batchSeries(history []metrics.BatchSummary) []float64 {
	if len(history) == 0 {
		return nil
	}
	series := make([]float64, len(history))
	for i, b := range history {
		series[i] = b.DurationMs
	}
	return series
}

func gaugeColor(rate float64) ui.Color {
	switch {
	case rate >= 0.99:
		return ui.ColorGreen
	case rate >= 0.9:
		return ui.ColorYellow
	default:
		return ui.ColorRed
	}
}

func formatReasonRows(reasons map[string]int) []string {
	rows := metrics.SortCounts(reasons)
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	if len(rows) > maxListRows {
		rows = rows[:maxListRows]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", row.Key, row.Count))
	}
	return formatted
}

func formatStatusRows(codes map[string]int) []string {
	rows := metrics.SortCounts(codes)
	if len(rows) == 0 {
		return []string{"[No responses yet](fg:yellow)"}
	}
	if len(rows) > maxListRows {
		rows = rows[:maxListRows]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		color := "green"
		if strings.HasPrefix(row.Key, "4") || strings.HasPrefix(row.Key, "5") {
			color = "red"
		}
		formatted = append(formatted, fmt.Sprintf("[HTTP %s](fg:%s) %d", row.Key, color, row.Count))
	}
	return formatted
}

func formatConnections(snap clientmetrics.Snapshot) string {
	if snap.NewConnections == 0 && snap.ReusedConnections == 0 {
		return "No connections yet"
	}
	text := fmt.Sprintf("New: %d | Reused: %d (%.1f%%) | Mean idle before reuse: %.2fms",
		snap.NewConnections, snap.ReusedConnections, snap.ReuseRate*100, snap.MeanIdleMs)
	if snap.DialErrors > 0 {
		text += fmt.Sprintf(" | Dial errors: %d", snap.DialErrors)
	}
	return text
}

func formatRunParams(cfg RunConfig) string {
	var parts []string

	if cfg.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Concurrency: %d", cfg.Concurrency))
	}
	if cfg.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", cfg.Timeout))
	}
	parts = append(parts, fmt.Sprintf("Keep-alive: %t", cfg.KeepAlive))
	if cfg.Batches > 0 {
		parts = append(parts, fmt.Sprintf("Batches: %d", cfg.Batches))
	} else {
		parts = append(parts, "Batches: until stopped")
	}
	if cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", cfg.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
