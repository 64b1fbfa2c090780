// Package retry wraps store calls with exponential backoff and timeouts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
)

// Options tunes Do. Zero values fall back to three retries starting at one second.
type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
	Logger       *zap.Logger
}

// permanent errors are returned at once; retrying cannot change the answer.
var permanent = []error{
	domain.ErrNotFound,
	domain.ErrValidation,
	domain.ErrUnauthorized,
	domain.ErrForbidden,
	domain.ErrAlreadyExists,
	domain.ErrCapacityExceeded,
	domain.ErrRoomNotEmpty,
	domain.ErrInvalidTransition,
	domain.ErrImportParse,
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	for _, p := range permanent {
		if errors.Is(err, p) {
			return false
		}
	}
	return true
}

// Do calls fn until it succeeds, returns a permanent error, or the retries
// run out. The delay doubles after every failed attempt.
func Do[T any](ctx context.Context, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = time.Second
	}
	logger := logging.OrNop(opts.Logger)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.InitialDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	if b.MaxInterval < opts.InitialDelay {
		b.MaxInterval = opts.InitialDelay
	}

	attempt := 0
	op := func() (T, error) {
		attempt++
		v, err := fn(ctx)
		if err != nil && !Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", opts.MaxRetries+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(opts.MaxRetries)), ctx)
	return backoff.RetryNotifyWithData(op, policy, notify)
}

// WithTimeout runs fn under a context that expires after d.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	v, err := fn(tctx)
	if err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		var zero T
		return zero, fmt.Errorf("%w: operation timed out after %s", domain.ErrStore, d)
	}
	return v, err
}
