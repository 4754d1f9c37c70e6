package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

const (
	// ReasonTimeout is the failure reason of a request that ran out of time.
	ReasonTimeout = "Timeout"
	// ReasonAborted marks a request cut short because the run was stopped.
	ReasonAborted = "Aborted"
)

// Status classifies a settled request.
type Status int

const (
	StatusSuccess Status = iota + 1
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the status as its lowercase name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the settled result of one request in a batch.
type Outcome struct {
	ID         int // 1..concurrency, unique within its batch
	Status     Status
	HTTPStatus int           // response status when the exchange completed
	Reason     string        // failure reason, empty on success
	Duration   time.Duration // monotonic, start of attempt to finalization
	Err        error         // underlying cause of a failure, for loggers
	Aborted    bool          // cut short by the run stopping, says nothing about the target
}

// OK reports whether the request succeeded.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// Failed reports whether the target or transport failed the request. Aborted
// requests are neither successes nor failures.
func (o Outcome) Failed() bool {
	return o.Status == StatusFailed && !o.Aborted
}

// Timeout reports whether the request failed by running out of time.
func (o Outcome) Timeout() bool {
	return o.Status == StatusFailed && o.Reason == ReasonTimeout
}

// DurationMs returns the duration in whole milliseconds.
func (o Outcome) DurationMs() int64 {
	if o.Duration < 0 {
		return 0
	}
	return o.Duration.Milliseconds()
}

// HTTPError represents a completed exchange whose status denotes a
// client or server error.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// isHTTPFailure reports whether a response status is a client/server error.
func isHTTPFailure(code int) bool {
	return code >= 400
}

func succeeded(id, code int, elapsed time.Duration) Outcome {
	return Outcome{
		ID:         id,
		Status:     StatusSuccess,
		HTTPStatus: code,
		Duration:   nonNegative(elapsed),
	}
}

func failed(id int, reason string, err error, elapsed time.Duration) Outcome {
	return Outcome{
		ID:       id,
		Status:   StatusFailed,
		Reason:   reason,
		Duration: nonNegative(elapsed),
		Err:      err,
	}
}

func httpFailed(id, code int, elapsed time.Duration) Outcome {
	err := &HTTPError{StatusCode: code}
	out := failed(id, err.Error(), err, elapsed)
	out.HTTPStatus = code
	return out
}

// markAborted relabels a failure that happened while ctx was already done.
// A completed exchange with an error status still counts against the target.
func markAborted(ctx context.Context, out Outcome) Outcome {
	if out.Status != StatusFailed || out.HTTPStatus != 0 || ctx.Err() == nil {
		return out
	}
	out.Aborted = true
	out.Reason = ReasonAborted
	return out
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// failureReason turns a transport or body-read error into the reason
// string of a failed outcome. reqCtx is the per-request context carrying
// the policy deadline and parent is the context it was derived from.
func failureReason(parent, reqCtx context.Context, err error) string {
	if isTimeout(parent, reqCtx, err) {
		return ReasonTimeout
	}
	return describeError(err)
}

func isTimeout(parent, reqCtx context.Context, err error) bool {
	// A cancelled run is not a timeout even if the deadline raced it.
	if parent != nil && parent.Err() != nil {
		return false
	}
	if reqCtx != nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// describeError strips the url.Error envelope, which repeats method and
// target on every line, and keeps the transport cause.
func describeError(err error) string {
	if err == nil {
		return "unknown error"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
