// Package metrics aggregates request outcomes and batch durations for a run.
//
// The central [Collector] implements runner.Reporter, so it is plugged into
// the driver next to the console reporter:
//
//	collector := metrics.NewCollector()
//	d, err := runner.New(runner.Options{
//		Concurrency: 10,
//		Executor:    exec,
//		Reporter:    runner.Reporters(console, collector),
//	})
//
//	stats := collector.Stats(collector.Elapsed())
//
// # Statistics
//
// [Stats] carries request counts, the success rate, request latency
// percentiles (P50, P90, P95, P99), batch duration percentiles, failure
// counts by reason and response counts by HTTP status code. Latencies are
// kept in HDR histograms with microsecond resolution up to 60s.
//
// # History
//
// [Collector.History] keeps the most recent batches for charting.
package metrics
