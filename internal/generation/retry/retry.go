// Package retry wraps an operation with exponential backoff and a
// per-attempt timeout.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

// DefaultConfig provides sensible defaults for the generation call.
var DefaultConfig = Config{
	MaxAttempts:    3,
	BaseDelay:      1 * time.Second,
	AttemptTimeout: 30 * time.Second,
}

// Operation is one attemptable unit of work. The context passed in carries
// the per-attempt deadline.
type Operation[T any] func(ctx context.Context) (T, error)

// Do runs op up to cfg.MaxAttempts times. Each attempt races against
// cfg.AttemptTimeout; a timed-out attempt surfaces as a retryable timeout
// error and its eventual result is discarded. A failure that is a
// StructuredError with Retryable=false aborts immediately and propagates
// unchanged. Between attempts the delay doubles: BaseDelay, 2*BaseDelay, ...
func Do[T any](ctx context.Context, cfg Config, op Operation[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := runAttempt(ctx, cfg.AttemptTimeout, op)
		if err == nil {
			return result, nil
		}

		lastErr = err

		var serr *domain.StructuredError
		if errors.As(err, &serr) && !serr.Retryable {
			return zero, err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.BaseDelay << (attempt - 1)
		slog.Debug("Retrying after failure",
			"attempt", attempt,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// runAttempt executes op once, bounded by timeout. On timeout the attempt's
// goroutine keeps running until op honors the cancelled context; its result
// is discarded either way.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op Operation[T]) (T, error) {
	var zero T

	attemptCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		result T
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := op(attemptCtx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, domain.WrapError(
			domain.ErrTimeout,
			fmt.Sprintf("attempt timed out after %s", timeout),
			true,
			attemptCtx.Err(),
		)
	}
}
