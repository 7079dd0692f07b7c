package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"policylens-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// RetryPolicy bounds retries of transient transport failures. MaxRetries of
// zero disables retrying.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

type retryingClient struct {
	base   Client
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps base with jittered exponential backoff on transient errors.
func WithRetry(base Client, policy RetryPolicy) Client {
	if base == nil || policy.MaxRetries <= 0 {
		return base
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = retryBaseDelay
	}
	return retryingClient{base: base, policy: policy, sleep: sleepCtx}
}

func (r retryingClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := r.base.Complete(ctx, req)
	for attempt := 1; attempt <= r.policy.MaxRetries; attempt++ {
		if err == nil || !ShouldRetry(err) {
			return resp, err
		}
		delay := backoff(r.policy.BaseDelay, attempt)
		telemetry.Warn("llm.retry", map[string]any{
			"attempt":  attempt,
			"contract": req.Contract,
			"delay_ms": delay.Milliseconds(),
			"error":    err.Error(),
		})
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return "", sleepErr
		}
		resp, err = r.base.Complete(ctx, req)
	}
	return resp, err
}

// backoff doubles the base delay per attempt and adds up to 50% jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
	return d + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShouldRetry reports whether err looks like a transient transport failure.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "http status 429") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "unexpected eof") {
		return true
	}

	return false
}
