package llm

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// RetryConfig bounds how hard a summary request is retried. Summaries run
// inside a worker, so the total wait must stay well under the worker timeout.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
	}
}

// transientStatus lists the upstream statuses worth another attempt.
var transientStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func shouldRetry(statusCode int) bool {
	return transientStatus[statusCode]
}

// backoff doubles from InitialBackoff per attempt, capped at MaxBackoff.
func (rc *RetryConfig) backoff(attempt int) time.Duration {
	d := rc.InitialBackoff
	for i := 0; i < attempt && d < rc.MaxBackoff; i++ {
		d *= 2
	}
	if d > rc.MaxBackoff {
		d = rc.MaxBackoff
	}
	return d
}

// retryAfter reads a Retry-After header given in seconds. Rate-limited
// responses from the provider carry one.
func retryAfter(resp *http.Response, limit time.Duration) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	if d > limit {
		d = limit
	}
	return d, true
}

// send issues the request built by newReq until it succeeds, fails with a
// non-transient status, or the attempts run out. Non-transient responses are
// returned to the caller unread.
func (c *Client) send(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	rc := c.retry
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)

		var wait time.Duration
		switch {
		case err != nil:
			lastErr = err
			wait = rc.backoff(attempt)
		case resp.StatusCode == http.StatusOK || !shouldRetry(resp.StatusCode):
			return resp, nil
		default:
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			var ok bool
			if wait, ok = retryAfter(resp, rc.MaxBackoff); !ok {
				wait = rc.backoff(attempt)
			}
			resp.Body.Close()
		}

		if attempt >= rc.MaxRetries {
			break
		}

		c.logger.Warn().
			Int("attempt", attempt+1).
			Int("max_retries", rc.MaxRetries).
			Dur("backoff", wait).
			Err(lastErr).
			Msg("Summary request failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", rc.MaxRetries, lastErr)
}
