package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

func noWait() Option { return Backoff(ExponentialBackoff(0, 0, 0)) }

func TestDoWithData_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	var retried []int
	got, err := DoWithData(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	}, MaxAttempts(5), noWait(), OnRetry(func(attempt int, _ error) {
		retried = append(retried, attempt)
	}))

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoWithData_Exhausted(t *testing.T) {
	_, err := DoWithData(context.Background(), func(context.Context) (int, error) {
		return 0, statusErr(503)
	}, MaxAttempts(3), noWait())

	require.Error(t, err)
	assert.Equal(t, 3, GetAttempts(err))
	assert.Equal(t, "status 503", err.Error())

	var me *MultiError
	require.True(t, errors.As(err, &me))
	assert.Len(t, me.Errors, 3)
	var se statusErr
	assert.True(t, errors.As(err, &se))
}

func TestDoWithData_ConditionStopsEarly(t *testing.T) {
	calls := 0
	_, err := DoWithData(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, statusErr(404)
	}, HTTPDefaults()...)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, GetAttempts(err))
}

func TestDoWithData_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, err := DoWithData(ctx, func(context.Context) (int, error) {
		cancel()
		return 0, errors.New("fail")
	}, MaxAttempts(3), Backoff(ExponentialBackoff(time.Hour, time.Hour, 0)))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithData_DeadlineShorterThanBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := DoWithData(ctx, func(context.Context) (int, error) { return 0, errors.New("fail") },
		MaxAttempts(3), Backoff(ExponentialBackoff(time.Minute, time.Minute, 0)))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, GetAttempts(err))
}

func TestExponentialBackoff(t *testing.T) {
	exp := ExponentialBackoff(500*time.Millisecond, 10*time.Second, 0)
	assert.Zero(t, exp.Next(0))
	assert.Equal(t, 500*time.Millisecond, exp.Next(1))
	assert.Equal(t, 2*time.Second, exp.Next(3))
	assert.Equal(t, 8*time.Second, exp.Next(5))
	assert.Equal(t, 10*time.Second, exp.Next(6), "capped at the attempt timeout")
	assert.Equal(t, 10*time.Second, exp.Next(40))

	jittered := ExponentialBackoff(time.Second, 4*time.Second, 0.5)
	for i := 0; i < 50; i++ {
		d := jittered.Next(1)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
		assert.LessOrEqual(t, jittered.Next(5), 4*time.Second)
	}

	assert.Equal(t, time.Second, ExponentialBackoff(time.Second, time.Millisecond, 0).Next(3),
		"a ceiling below base is raised to base")
	assert.Zero(t, ExponentialBackoff(0, 0, 0).Next(2))
}

func TestConditions(t *testing.T) {
	sentinel := errors.New("sentinel")

	assert.True(t, RetryOnHTTPStatus(503).ShouldRetry(fmt.Errorf("get: %w", statusErr(503)), 1))
	assert.False(t, RetryOnHTTPStatus(503).ShouldRetry(statusErr(400), 1))

	tmp := RetryOnTemporaryError()
	assert.True(t, tmp.ShouldRetry(&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, 1))
	assert.True(t, tmp.ShouldRetry(context.DeadlineExceeded, 1))
	assert.False(t, tmp.ShouldRetry(context.Canceled, 1))
	assert.False(t, tmp.ShouldRetry(errors.New("bad symbol"), 1))

	assert.True(t, Or(RetryOnHTTPStatus(503), AlwaysRetry()).ShouldRetry(sentinel, 1))
	assert.False(t, Or(RetryOnHTTPStatus(503), tmp).ShouldRetry(sentinel, 1))
}
