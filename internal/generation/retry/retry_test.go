package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond, AttemptTimeout: time.Second}

	calls := 0
	result, err := Do(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected ok, got %q", result)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDo_NonRetryableAbortsImmediately(t *testing.T) {
	cfg := Config{MaxAttempts: 5, BaseDelay: time.Millisecond, AttemptTimeout: time.Second}

	calls := 0
	authErr := domain.NewError(domain.ErrAuthentication, "bad api key", false)
	_, err := Do(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		return "", authErr
	})

	if calls != 1 {
		t.Errorf("Expected exactly 1 call, got %d", calls)
	}

	var serr *domain.StructuredError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected StructuredError, got %T", err)
	}
	if serr != authErr {
		t.Error("Non-retryable error must propagate unchanged")
	}
}

func TestDo_RetriesWithBackoff(t *testing.T) {
	base := 10 * time.Millisecond
	cfg := Config{MaxAttempts: 3, BaseDelay: base, AttemptTimeout: time.Second}

	calls := 0
	start := time.Now()
	result, err := Do(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient failure")
		}
		return "third time lucky", nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != "third time lucky" {
		t.Errorf("Unexpected result %q", result)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	// Delays of base and 2*base must have elapsed between attempts.
	if elapsed < 3*base {
		t.Errorf("Expected at least %v of backoff, elapsed %v", 3*base, elapsed)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxAttempts: 2, BaseDelay: time.Millisecond, AttemptTimeout: time.Second}

	calls := 0
	lastErr := errors.New("still broken")
	_, err := Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, lastErr
	})

	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("Expected final failure to propagate, got %v", err)
	}
}

func TestDo_AttemptTimeout(t *testing.T) {
	cfg := Config{MaxAttempts: 1, BaseDelay: time.Millisecond, AttemptTimeout: 20 * time.Millisecond}

	_, err := Do(context.Background(), cfg, func(ctx context.Context) (string, error) {
		select {
		case <-time.After(time.Second):
			return "too late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	var serr *domain.StructuredError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected StructuredError, got %v", err)
	}
	if serr.Kind != domain.ErrTimeout {
		t.Errorf("Expected timeout kind, got %s", serr.Kind)
	}
	if !serr.Retryable {
		t.Error("Timeout must be retryable")
	}
}

func TestDo_TimeoutThenSuccess(t *testing.T) {
	cfg := Config{MaxAttempts: 2, BaseDelay: time.Millisecond, AttemptTimeout: 20 * time.Millisecond}

	calls := 0
	result, err := Do(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "recovered", nil
	})

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != "recovered" {
		t.Errorf("Unexpected result %q", result)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestDo_CallerCancellation(t *testing.T) {
	cfg := Config{MaxAttempts: 5, BaseDelay: time.Hour, AttemptTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, cfg, func(ctx context.Context) (string, error) {
		return "", errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled during backoff, got %v", err)
	}
}
