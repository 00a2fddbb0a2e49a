package pipeline

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/codelens/internal/logging"
	"github.com/dshills/codelens/internal/providers"
)

// DefaultBackoff is the wait before the first retry; it doubles each attempt.
const DefaultBackoff = time.Second

type retryClient struct {
	next    providers.Client
	retries int
	backoff time.Duration
	logger  hclog.Logger
}

// WithRetry wraps client so that transient failures (timeouts, transport
// errors, 429 and 5xx answers) are retried up to retries times. A value of
// zero or less returns client unchanged.
func WithRetry(client providers.Client, retries int, backoff time.Duration, logger hclog.Logger) providers.Client {
	if retries <= 0 {
		return client
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &retryClient{next: client, retries: retries, backoff: backoff, logger: logger}
}

func (r *retryClient) Name() string { return r.next.Name() }

func (r *retryClient) Generate(ctx context.Context, req providers.Request) (providers.Reply, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		reply, err := r.next.Generate(ctx, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		// Don't retry auth errors or other permanent failures
		if !providers.IsTransient(err) {
			return providers.Reply{}, err
		}

		if attempt < r.retries {
			wait := r.backoff << uint(attempt)
			r.logger.Warn("transient backend failure, retrying", "error", err, "attempt", attempt+1, "wait", wait)
			select {
			case <-ctx.Done():
				return providers.Reply{}, lastErr
			case <-time.After(wait):
			}
		}
	}
	return providers.Reply{}, lastErr
}
