package retry

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// RetryCondition decides whether a failed attempt is retried
type RetryCondition interface {
	ShouldRetry(err error, attempt int) bool
}

// ConditionFunc adapts a function
type ConditionFunc func(err error, attempt int) bool

// ShouldRetry implements RetryCondition
func (f ConditionFunc) ShouldRetry(err error, attempt int) bool {
	return f(err, attempt)
}

// AlwaysRetry retries every error
func AlwaysRetry() RetryCondition {
	return ConditionFunc(func(err error, _ int) bool { return err != nil })
}

// HTTPError error carrying an HTTP status
type HTTPError interface {
	error
	StatusCode() int
}

// RetryOnHTTPStatus retries HTTPErrors with one of the statuses
func RetryOnHTTPStatus(statuses ...int) RetryCondition {
	set := make(map[int]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return ConditionFunc(func(err error, _ int) bool {
		var httpErr HTTPError
		if !errors.As(err, &httpErr) {
			return false
		}
		_, ok := set[httpErr.StatusCode()]
		return ok
	})
}

// RetryOnTemporaryError retries timeouts and connection refused/reset
// Cancellation of the caller's context is not retried.
func RetryOnTemporaryError() RetryCondition {
	return ConditionFunc(func(err error, _ int) bool {
		if err == nil || errors.Is(err, context.Canceled) {
			return false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return true
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return errors.Is(err, syscall.ECONNREFUSED) ||
			errors.Is(err, syscall.ECONNRESET) ||
			errors.Is(err, syscall.ETIMEDOUT) ||
			errors.Is(err, syscall.EPIPE)
	})
}

// Or retries if any condition agrees
func Or(conditions ...RetryCondition) RetryCondition {
	return ConditionFunc(func(err error, attempt int) bool {
		for _, c := range conditions {
			if c.ShouldRetry(err, attempt) {
				return true
			}
		}
		return false
	})
}
