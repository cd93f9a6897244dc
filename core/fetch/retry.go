package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gaurav-prasanna/guidepipe/core"
)

// RetryPolicy configures Retrying.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
}

// Retrying retries a Fetcher with exponential backoff. Client errors other
// than 429 are not retried. Final errors wrap core.ErrFetch.
type Retrying struct {
	Next   core.Fetcher
	Policy RetryPolicy
	Logger *slog.Logger
}

// NewRetrying wraps next.
func NewRetrying(next core.Fetcher, policy RetryPolicy, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{Next: next, Policy: policy, Logger: logger}
}

func (r *Retrying) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.Policy.InitialDelay
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = time.Second
	}
	eb.Multiplier = r.Policy.Multiplier
	if eb.Multiplier < 1 {
		eb.Multiplier = 1
	}
	eb.RandomizationFactor = 0
	eb.MaxInterval = 2 * time.Minute
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(r.Policy.MaxRetries, 0))), ctx)
}

// Fetch calls Next until it succeeds, fails permanently or retries run out.
func (r *Retrying) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	var res *core.FetchResult
	attempt := 0
	op := func() error {
		attempt++
		var err error
		res, err = r.Next.Fetch(ctx, url)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.Logger.WarnContext(ctx, "fetch failed, retrying", "url", url, "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, r.backOff(ctx), notify); err != nil {
		return nil, fmt.Errorf("%w: %s after %d attempt(s): %v", core.ErrFetch, url, attempt, err)
	}
	return res, nil
}
