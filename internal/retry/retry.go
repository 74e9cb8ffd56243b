// Package retry wraps remote mutations in exponential backoff.
//
// Only transient failures are retried: rate limiting (429), server errors
// (5xx) and errors that carry no status code at all, such as dropped
// connections. Any other status is returned on the first attempt.
package retry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// Default backoff settings.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 500 * time.Millisecond
)

// Executor runs operations with retry.
type Executor struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialDelay is the first backoff delay; each further delay doubles.
	InitialDelay time.Duration
	// OnRetry, if set, is called before each backoff sleep.
	OnRetry func(op string, attempt int, delay time.Duration, err error)

	logger *slog.Logger
}

// New returns an Executor with the default settings.
func New(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		logger:       logger,
	}
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	code, ok := core.StatusCode(err)
	if !ok {
		return true
	}
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Do runs fn until it succeeds, fails with a non-retryable error, exhausts
// the retry budget or ctx is done. The last error from fn is returned as is.
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var (
		attempt int
		lastErr error
	)

	return goretry.Do(ctx, e.backoff(op, &attempt, &lastErr), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !Retryable(err) {
			return err
		}
		return goretry.RetryableError(err)
	})
}

func (e *Executor) backoff(op string, attempt *int, lastErr *error) goretry.Backoff {
	base := e.InitialDelay
	if base <= 0 {
		base = time.Millisecond
	}
	maxRetries := e.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	inner := goretry.WithMaxRetries(uint64(maxRetries), goretry.NewExponential(base))

	return goretry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := inner.Next()
		if stop {
			return 0, true
		}
		*attempt++
		e.logger.Warn("retrying operation",
			slog.String("op", op),
			slog.Int("attempt", *attempt),
			slog.Duration("delay", delay),
			slog.String("error", (*lastErr).Error()))
		if e.OnRetry != nil {
			e.OnRetry(op, *attempt, delay, *lastErr)
		}
		return delay, false
	})
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, e *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
