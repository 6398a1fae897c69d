package restclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"github.com/sethvargo/go-retry"
)

// rateLimitedError marks a 429 response so withRetry can pick the
// rate-limit backoff policy instead of the transient-network one.
type rateLimitedError struct{}

func (rateLimitedError) Error() string { return "rate limited" }

// serverError marks a 5xx response, retried the same as a 429 since both
// indicate a controller under load rather than a permanent rejection.
type serverError struct {
	status int
	body   string
}

func (e serverError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.status, e.body)
}

// withRetry runs op once and, depending on how it fails, retries under
// one of two independent policies:
//
//   - rate-limited / server-busy: exponential backoff with jitter,
//     capped at 60s, up to MaxRetries429 additional attempts.
//   - transient network error: linear backoff, up to MaxRetriesRetry
//     additional attempts.
//
// Auth failures, 4xx client errors, and item-local errors (404, 409) are
// never retried here; they are the caller's responsibility.
func (c *Client) withRetry(ctx context.Context, method, path string, op func() error) error {
	err := op()
	if err == nil {
		return nil
	}

	switch {
	case isRateLimitOrServerBusy(err):
		return c.retryWith(ctx, method, path, op, err, "rate_limit", rateLimitBackoff(c.cfg.MaxRetries429))
	case isTransientNetwork(err):
		return c.retryWith(ctx, method, path, op, err, "transient", linearBackoff(c.cfg.MaxRetriesRetry))
	default:
		return err
	}
}

func (c *Client) retryWith(ctx context.Context, method, path string, op func() error, firstErr error, reason string, backoff retry.Backoff) error {
	lastErr := firstErr
	attempt := 1

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c.recordRetry(reason)
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt).
			Err(lastErr).
			Msg("retrying request")

		err := op()
		lastErr = err
		if err == nil {
			return nil
		}
		if isRateLimitOrServerBusy(err) || isTransientNetwork(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	if err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}

func rateLimitBackoff(maxRetries int) retry.Backoff {
	b := retry.NewExponential(1 * time.Second)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithCapped(60*time.Second, b)
	return retry.WithMaxRetries(uint64(maxRetries), b)
}

func linearBackoff(maxRetries int) retry.Backoff {
	var attempt time.Duration
	b := retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return attempt * 500 * time.Millisecond, false
	})
	return retry.WithMaxRetries(uint64(maxRetries), b)
}

func isRateLimitOrServerBusy(err error) bool {
	var rl rateLimitedError
	var se serverError
	return errors.As(err, &rl) || errors.As(err, &se)
}

func isTransientNetwork(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var sastreErr *types.Error
	if errors.As(err, &sastreErr) && sastreErr.Kind == types.ErrConnection {
		return true
	}
	return false
}

func transientOrFatal(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return types.WrapError(types.ErrConnection, err, "transport error")
	}
	return types.WrapError(types.ErrConnection, err, "request failed")
}
