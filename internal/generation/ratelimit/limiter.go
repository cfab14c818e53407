// Package ratelimit provides sliding-window admission control for the
// external generation call. One Limiter instance guards one external quota
// and must be shared by every caller using that quota.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
)

// Config bounds admissions per trailing window.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Limiter tracks admission timestamps inside the trailing window. The
// timestamp list is pruned lazily on every check, so memory stays bounded by
// MaxRequests at the configured scale. State is in-memory only: this is a
// soft guard, not a security boundary.
type Limiter struct {
	cfg Config

	mu       sync.Mutex
	admitted []time.Time
	now      func() time.Time
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	return &Limiter{cfg: cfg, now: time.Now}
}

// Admit records one admission, or rejects with a rate-limit error carrying
// how long the caller must wait before the window frees up.
func (l *Limiter) Admit() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.admitted) >= l.cfg.MaxRequests {
		wait := l.cfg.Window - now.Sub(l.admitted[0])
		err := domain.NewError(
			domain.ErrRateLimitExceeded,
			fmt.Sprintf("generation limit reached, try again in %s", wait.Round(time.Second)),
			false,
		)
		err.WaitTime = wait
		return err
	}

	l.admitted = append(l.admitted, now)
	return nil
}

// Remaining reports how many admissions are left in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	return l.cfg.MaxRequests - len(l.admitted)
}

// TimeUntilReset reports how long until the oldest admission leaves the
// window, or 0 if the window is empty.
func (l *Limiter) TimeUntilReset() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	if len(l.admitted) == 0 {
		return 0
	}

	until := l.admitted[0].Add(l.cfg.Window).Sub(now)
	if until < 0 {
		return 0
	}
	return until
}

// Reset clears all admissions unconditionally. Administrative use only; not
// part of the normal flow.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.admitted = l.admitted[:0]
}

// prune drops timestamps older than the window. Caller holds l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	kept := l.admitted[:0]
	for _, ts := range l.admitted {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.admitted = kept
}
