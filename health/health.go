// Package health folds store and warmup checks into the /health report
package health

import (
	"context"
	"time"
)

// Status health state
type Status string

const (
	StatusHealthy Status = "healthy"
	// StatusDegraded a non-critical check failed; reports are still served
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) rank() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	}
	return 0
}

// Check one dependency of the report service
type Check struct {
	Name string
	// Critical checks make the service unhealthy; the rest only degrade it
	Critical bool
	// Run nil always passes
	Run func(ctx context.Context) error
	// Details optional state echoed in the result, collected even when Run fails
	Details func() map[string]any
}

// CheckResult result of one check
type CheckResult struct {
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Critical  bool           `json:"critical"`
	Error     string         `json:"error,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration"`
}

// Response aggregated result
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Checks    map[string]CheckResult `json:"checks"`
	Metadata  map[string]any         `json:"metadata,omitempty"`
}

// IsHealthy every check passed
func (r *Response) IsHealthy() bool {
	return r.Status == StatusHealthy
}
