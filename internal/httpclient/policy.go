package httpclient

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTimeout is returned when a policy carries a non-positive timeout.
	ErrInvalidTimeout = errors.New("timeout must be > 0")
	// ErrInvalidPoolSize is returned when a policy carries a negative pool size.
	ErrInvalidPoolSize = errors.New("pool size must be >= 0")
)

// Policy governs how every request of a run talks to the target.
// It is passed by value and never changes once the run has started.
type Policy struct {
	Timeout   time.Duration // per-request budget covering dial, exchange and body read
	KeepAlive bool          // reuse transport connections across requests
	PoolSize  int           // connection pool bound; 0 means "use the concurrency"
}

// NewPolicy returns a policy whose pool is sized to the given concurrency.
func NewPolicy(timeout time.Duration, keepAlive bool, concurrency int) Policy {
	return Policy{
		Timeout:   timeout,
		KeepAlive: keepAlive,
		PoolSize:  concurrency,
	}
}

// Validate reports whether the policy can be used to drive requests.
func (p Policy) Validate() error {
	if p.Timeout <= 0 {
		return fmt.Errorf("%w (got %s)", ErrInvalidTimeout, p.Timeout)
	}
	if p.PoolSize < 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidPoolSize, p.PoolSize)
	}
	return nil
}

// poolSize returns the transport pool capacity, never below the concurrency
// so that requests of one batch do not queue behind each other.
func (p Policy) poolSize(concurrency int) int {
	size := p.PoolSize
	if size < concurrency {
		size = concurrency
	}
	if size < 1 {
		size = 1
	}
	return size
}

func (p Policy) String() string {
	return fmt.Sprintf("timeout=%s keepalive=%t pool=%d", p.Timeout, p.KeepAlive, p.PoolSize)
}
