// Package httpclient holds the connection policy and HTTP plumbing shared by
// every request of a batchfire run.
//
// # Connection Policy
//
// A [Policy] captures the per-request timeout and whether transport
// connections may be reused. It is a plain value: build it once, validate it
// and hand copies to whoever needs it.
//
//	policy := httpclient.NewPolicy(2*time.Second, true, 10)
//	if err := policy.Validate(); err != nil {
//		return err
//	}
//	client := httpclient.NewClient(policy, 10)
//
// [NewClient] sizes the transport pool to at least the concurrency so that a
// batch never waits on the pool. With
// keep-alive disabled each request dials its own connection and closes it
// after use.
//
// # Request Building
//
// [NewRequestBuilder] validates the target URL and static headers up front.
// [RequestBuilder.Build] then only attaches the context and, when enabled,
// a unique test id header per request:
//
//	builder, err := httpclient.NewRequestBuilder(target, headers, "X-Mgc-Test-Id")
//	req, err := builder.Build(ctx)
package httpclient
