// Package clientmetrics tracks how the load generator uses transport connections.
package clientmetrics

import (
	"context"
	"net/http/httptrace"
	"sync"
	"time"
)

// ClientMetrics counts connections handed to requests, split by whether the
// transport dialed a new one or reused a pooled one.
type ClientMetrics struct {
	mu          sync.Mutex
	startTime   time.Time
	newConns    int64
	reusedConns int64
	idleWait    time.Duration
	dialErrors  int64
}

// New creates a new ClientMetrics instance.
func New() *ClientMetrics {
	return &ClientMetrics{startTime: time.Now()}
}

// WithTrace returns a context whose requests report connection events here.
func (m *ClientMetrics) WithTrace(ctx context.Context) context.Context {
	if m == nil {
		return ctx
	}
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			m.recordConn(info.Reused, info.IdleTime)
		},
		ConnectDone: func(_, _ string, err error) {
			if err != nil {
				m.IncrementDialErrors()
			}
		},
	}
	return httptrace.WithClientTrace(ctx, trace)
}

func (m *ClientMetrics) recordConn(reused bool, idle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reused {
		m.reusedConns++
		m.idleWait += idle
		return
	}
	m.newConns++
}

// IncrementDialErrors increments the failed dial counter.
func (m *ClientMetrics) IncrementDialErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialErrors++
}

// NewConnections returns how many connections were dialed.
func (m *ClientMetrics) NewConnections() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newConns
}

// ReusedConnections returns how many requests ran on a pooled connection.
func (m *ClientMetrics) ReusedConnections() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reusedConns
}

// Snapshot is a point-in-time view of the connection counters.
type Snapshot struct {
	Uptime            time.Duration `json:"-"`
	NewConnections    int64         `json:"new_connections"`
	ReusedConnections int64         `json:"reused_connections"`
	DialErrors        int64         `json:"dial_errors"`
	ReuseRate         float64       `json:"reuse_rate"`
	MeanIdleMs        float64       `json:"mean_idle_ms"`
}

// Snapshot returns a consistent snapshot of all counters.
func (m *ClientMetrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Uptime:            time.Since(m.startTime),
		NewConnections:    m.newConns,
		ReusedConnections: m.reusedConns,
		DialErrors:        m.dialErrors,
	}
	if total := m.newConns + m.reusedConns; total > 0 {
		snap.ReuseRate = float64(m.reusedConns) / float64(total)
	}
	if m.reusedConns > 0 {
		snap.MeanIdleMs = float64(m.idleWait) / float64(m.reusedConns) / float64(time.Millisecond)
	}
	return snap
}
