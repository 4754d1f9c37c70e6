package runner

// Reporter receives every settled request and every completed batch.
// ReportRequest is called concurrently from request goroutines; ReportBatch
// is called from the driver goroutine, once per batch, in batch order.
type Reporter interface {
	ReportRequest(batch int, outcome Outcome)
	ReportBatch(result BatchResult)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) ReportRequest(int, Outcome) {}
func (NopReporter) ReportBatch(BatchResult)    {}

type multiReporter []Reporter

// Reporters fans out to several reporters, skipping nil entries.
func Reporters(reporters ...Reporter) Reporter {
	out := make(multiReporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multiReporter) ReportRequest(batch int, outcome Outcome) {
	for _, r := range m {
		r.ReportRequest(batch, outcome)
	}
}

func (m multiReporter) ReportBatch(result BatchResult) {
	for _, r := range m {
		r.ReportBatch(result)
	}
}
