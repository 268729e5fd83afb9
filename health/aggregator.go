package health

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Aggregator runs every registered check concurrently under one deadline.
// The overall status is the worst check status.
type Aggregator struct {
	timeout time.Duration
	clock   clockwork.Clock

	mu     sync.RWMutex
	checks []Check
	meta   map[string]any
}

// Option configures Aggregator
type Option func(*Aggregator)

// WithClock clock for result timestamps
func WithClock(c clockwork.Clock) Option {
	return func(a *Aggregator) {
		if c != nil {
			a.clock = c
		}
	}
}

// NewAggregator timeout <= 0 means DefaultConfig().Timeout
func NewAggregator(timeout time.Duration, opts ...Option) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	a := &Aggregator{timeout: timeout, clock: clockwork.NewRealClock(), meta: map[string]any{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds c, replacing a check of the same name
func (a *Aggregator) Register(c Check) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.checks {
		if a.checks[i].Name == c.Name {
			a.checks[i] = c
			return
		}
	}
	a.checks = append(a.checks, c)
}

// SetMetadata static data echoed in every response
func (a *Aggregator) SetMetadata(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.meta[key] = value
}

// Check runs every check
func (a *Aggregator) Check(ctx context.Context) *Response {
	start := a.clock.Now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	a.mu.RLock()
	checks := slices.Clone(a.checks)
	meta := maps.Clone(a.meta)
	a.mu.RUnlock()

	results := make(chan CheckResult, len(checks))
	for _, c := range checks {
		go func() { results <- a.run(ctx, c) }()
	}

	resp := &Response{Status: StatusHealthy, Checks: make(map[string]CheckResult, len(checks)), Metadata: meta}
	for range checks {
		r := <-results
		resp.Checks[r.Name] = r
		if r.Status.rank() > resp.Status.rank() {
			resp.Status = r.Status
		}
	}
	resp.Timestamp = a.clock.Now()
	resp.Duration = resp.Timestamp.Sub(start)
	return resp
}

// run stops waiting for a check that ignores ctx once the deadline passes
func (a *Aggregator) run(ctx context.Context, c Check) CheckResult {
	start := a.clock.Now()
	var err error
	if c.Run != nil {
		done := make(chan error, 1)
		go func() { done <- c.Run(ctx) }()
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	r := CheckResult{
		Name:      c.Name,
		Status:    StatusHealthy,
		Critical:  c.Critical,
		Timestamp: start,
		Duration:  a.clock.Since(start),
	}
	if c.Details != nil {
		r.Details = c.Details()
	}
	if err != nil {
		r.Error = err.Error()
		r.Status = StatusDegraded
		if c.Critical {
			r.Status = StatusUnhealthy
		}
	}
	return r
}
