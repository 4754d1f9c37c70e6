package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/batchfire/internal/clientmetrics"
	"github.com/torosent/batchfire/internal/httpclient"
	"github.com/torosent/batchfire/internal/tracing"
)

// Executor performs one request and always returns a settled outcome.
// Implementations must be safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, id int) Outcome
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, id int) Outcome

func (f ExecutorFunc) Execute(ctx context.Context, id int) Outcome {
	return f(ctx, id)
}

// HTTPExecutor issues a GET against the configured target under a
// connection policy.
type HTTPExecutor struct {
	client    *http.Client
	builder   *httpclient.RequestBuilder
	policy    httpclient.Policy
	conns     *clientmetrics.ClientMetrics
	tracer    trace.Tracer
	propagate bool
}

// ExecutorOption customises an HTTPExecutor.
type ExecutorOption func(*HTTPExecutor)

// WithConnectionMetrics reports connection reuse of every request to m.
func WithConnectionMetrics(m *clientmetrics.ClientMetrics) ExecutorOption {
	return func(e *HTTPExecutor) {
		e.conns = m
	}
}

// WithTracer opens a client span per request and, when propagate is set,
// injects W3C trace headers into the request.
func WithTracer(tracer trace.Tracer, propagate bool) ExecutorOption {
	return func(e *HTTPExecutor) {
		if tracer != nil {
			e.tracer = tracer
		}
		e.propagate = propagate
	}
}

// NewHTTPExecutor validates the policy and returns an executor sharing client
// across all requests of the run.
func NewHTTPExecutor(client *http.Client, builder *httpclient.RequestBuilder, policy httpclient.Policy, opts ...ExecutorOption) (*HTTPExecutor, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("http client is required")
	}
	if builder == nil {
		return nil, errors.New("request builder is required")
	}
	e := &HTTPExecutor{
		client:  client,
		builder: builder,
		policy:  policy,
		tracer:  noop.NewTracerProvider().Tracer("batchfire"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute runs one request within policy.Timeout. The response body is
// fully drained and closed before the outcome is finalized; the duration
// therefore covers the body read.
func (e *HTTPExecutor) Execute(ctx context.Context, id int) (out Outcome) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	ctx, span := tracing.StartRequestSpan(ctx, e.tracer, id)
	defer func() {
		if r := recover(); r != nil {
			out = failed(id, fmt.Sprintf("panic: %v", r), fmt.Errorf("panic: %v", r), time.Since(start))
		}
		var attrs []attribute.KeyValue
		if out.HTTPStatus > 0 {
			attrs = append(attrs, tracing.AttrHTTPStatus.Int(out.HTTPStatus))
		}
		tracing.EndSpan(span, out.Reason, attrs...)
	}()

	reqCtx, cancel := context.WithTimeout(ctx, e.policy.Timeout)
	defer cancel()
	reqCtx = e.conns.WithTrace(reqCtx)

	req, err := e.builder.Build(reqCtx)
	if err != nil {
		return failed(id, describeError(err), err, time.Since(start))
	}
	if e.propagate {
		tracing.InjectHTTPHeaders(reqCtx, req.Header)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return failed(id, failureReason(ctx, reqCtx, err), err, time.Since(start))
	}

	_, readErr := io.Copy(io.Discard, resp.Body)
	closeErr := resp.Body.Close()
	elapsed := time.Since(start)

	if readErr == nil {
		readErr = closeErr
	}
	if readErr != nil {
		return failed(id, failureReason(ctx, reqCtx, readErr), fmt.Errorf("read body: %w", readErr), elapsed)
	}
	if isHTTPFailure(resp.StatusCode) {
		return httpFailed(id, resp.StatusCode, elapsed)
	}
	return succeeded(id, resp.StatusCode, elapsed)
}
