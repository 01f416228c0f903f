package http

import (
	"math"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var DefaultRetryOnStatus = []int{408, 429, 500, 502, 503, 504}

// RetryStrategy decides whether a failed attempt is repeated and how long to wait before it.
type RetryStrategy struct {
	Retries int

	// Delay before the first retry, multiplied by Multiplier for every following one.
	Delay      time.Duration
	Multiplier float64

	// DelayFunc overrides Delay and Multiplier when set.
	DelayFunc func(attempt int, err *Error) time.Duration

	// RetryOnStatus defaults to DefaultRetryOnStatus.
	RetryOnStatus []int

	// ShouldRetry overrides the status and network checks when set.
	ShouldRetry func(err *Error, attempt int) bool
}

// Allows reports whether the attempt (1-based) may run after err.
func (s RetryStrategy) Allows(attempt int, err *Error) bool {
	if attempt > s.Retries || err.IsCancelled {
		return false
	}
	if s.ShouldRetry != nil {
		return s.ShouldRetry(err, attempt)
	}

	retryOnStatus := s.RetryOnStatus
	if retryOnStatus == nil {
		retryOnStatus = DefaultRetryOnStatus
	}
	if err.Status != 0 && slices.Contains(retryOnStatus, err.Status) {
		return true
	}

	return err.IsNetworkError
}

// DelayFor returns the wait before the attempt (1-based). Non-positive values mean no wait.
func (s RetryStrategy) DelayFor(attempt int, err *Error) time.Duration {
	var delay time.Duration
	if s.DelayFunc != nil {
		delay = s.DelayFunc(attempt, err)
	} else {
		multiplier := s.Multiplier
		if multiplier == 0 {
			multiplier = 1
		}
		delay = time.Duration(float64(s.Delay) * math.Pow(multiplier, float64(attempt-1)))
	}

	if delay < 0 {
		return 0
	}
	return delay
}

func (c *Client) resolveRetryStrategy(req *Request) *RetryStrategy {
	switch {
	case req.skipRetry, req.DisableRetry:
		return nil
	case req.Retry != nil:
		return req.Retry
	default:
		return c.defaultRetry
	}
}

// retryBackOff feeds the retry strategy into backoff.RetryNotify.
type retryBackOff struct {
	strategy  *RetryStrategy
	attempt   int
	lastError func() *Error
}

func (b *retryBackOff) NextBackOff() time.Duration {
	err := b.lastError()
	if b.strategy == nil || err == nil || err.fromRequestHook {
		return backoff.Stop
	}

	b.attempt++
	if !b.strategy.Allows(b.attempt, err) {
		return backoff.Stop
	}

	return b.strategy.DelayFor(b.attempt, err)
}

func (b *retryBackOff) Reset() {
	b.attempt = 0
}
