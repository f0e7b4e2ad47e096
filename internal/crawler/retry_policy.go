package crawler

import (
	"context"
	"errors"
	"net"
)

// AttemptRetryPolicy retries throttling and transient network failures.
// Spacing between attempts is left to the rate governor.
type AttemptRetryPolicy struct {
	maxAttempts int
}

// NewAttemptRetryPolicy builds a policy allowing maxAttempts total tries.
func NewAttemptRetryPolicy(maxAttempts int) *AttemptRetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	return &AttemptRetryPolicy{maxAttempts: maxAttempts}
}

// ShouldRetry decides whether the error is retryable.
func (p *AttemptRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		switch srcErr.Kind {
		case KindRateLimited, KindBlocked, KindNetwork:
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}
