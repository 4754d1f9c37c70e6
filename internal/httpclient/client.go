package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idleConnTimeout = 30 * time.Second

// RequestBuilder produces the GET request issued by every executor.
type RequestBuilder struct {
	target       string
	headers      http.Header
	testIDHeader string
}

// NewRequestBuilder validates the target and headers once so that Build
// cannot fail for configuration reasons in the hot path.
func NewRequestBuilder(target string, headers map[string]string, testIDHeader string) (*RequestBuilder, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("target URL %q must be absolute", target)
	}

	canonical := http.Header{}
	for key, value := range headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		canonical.Set(canonicalKey, value)
	}

	testIDHeader = strings.TrimSpace(testIDHeader)
	if strings.ContainsAny(testIDHeader, "\r\n: ") {
		return nil, fmt.Errorf("invalid test id header %q", testIDHeader)
	}

	return &RequestBuilder{
		target:       target,
		headers:      canonical,
		testIDHeader: http.CanonicalHeaderKey(testIDHeader),
	}, nil
}

// Build creates a GET request bound to ctx. When a test id header is
// configured every request carries a fresh UUID in it.
func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.target, nil)
	if err != nil {
		return nil, err
	}
	req.Header = b.headers.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if b.testIDHeader != "" {
		req.Header.Set(b.testIDHeader, uuid.NewString())
	}
	return req, nil
}

// NewClient builds the client shared by all executors of a run. The pool
// is bounded at max(policy.PoolSize, concurrency) and keep-alives follow the
// policy. The client itself carries no timeout: executors apply the policy
// timeout through their request context so cancellation reaches body reads.
func NewClient(policy Policy, concurrency int) *http.Client {
	size := policy.poolSize(concurrency)

	dialer := &net.Dialer{
		Timeout:   policy.Timeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     false,
		MaxIdleConns:          size,
		MaxIdleConnsPerHost:   size,
		MaxConnsPerHost:       size,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   policy.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     !policy.KeepAlive,
	}

	return &http.Client{
		Transport: transport,
	}
}
