// Package target implements the mock HTTP responder that batchfire is
// usually pointed at during local runs.
//
// The responder serves a pre-marshalled JSON body on every path, exposes
// Prometheus metrics for each request on /metrics and answers /healthz.
// The body may come from a YAML or JSON file that is reloaded when it
// changes on disk.
package target
