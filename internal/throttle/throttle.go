// Package throttle tracks failed login attempts per identity and locks an identity
// out once too many failures land inside one window.
//
// The window opens on the first failure and is never extended by later failures.
// A window that has elapsed is discarded the next time the identity is seen.
package throttle

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxAttempts     = 5
	DefaultLockoutDuration = 15 * time.Minute
)

type entry struct {
	failures  int
	expiresAt time.Time
}

type Throttle struct {
	mu          sync.Mutex
	entries     map[string]*entry
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time
}

type Option func(*Throttle)

func WithMaxAttempts(n int) Option {
	return func(t *Throttle) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

func WithLockoutDuration(d time.Duration) Option {
	return func(t *Throttle) {
		if d > 0 {
			t.lockout = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Throttle) {
		if now != nil {
			t.now = now
		}
	}
}

func New(opts ...Option) *Throttle {
	t := &Throttle{
		entries:     make(map[string]*entry),
		maxAttempts: DefaultMaxAttempts,
		lockout:     DefaultLockoutDuration,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LockedError is returned by Check while an identity is locked out.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many failed login attempts, retry in %d seconds", e.RetryAfterSeconds())
}

func (e *LockedError) RetryAfterSeconds() int64 {
	if e.RetryAfter <= 0 {
		return 0
	}
	return int64(math.Ceil(e.RetryAfter.Seconds()))
}

// Normalize maps an identity to its throttle key.
func Normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Check returns a *LockedError when key has reached the failure limit inside its
// current window, and nil otherwise.
func (t *Throttle) Check(key string) error {
	key = Normalize(key)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return nil
	}
	if !now.Before(e.expiresAt) {
		delete(t.entries, key)
		return nil
	}
	if e.failures >= t.maxAttempts {
		return &LockedError{RetryAfter: e.expiresAt.Sub(now)}
	}
	return nil
}

// RecordFailure counts a failed attempt and reports whether this failure is the one
// that reached the limit.
func (t *Throttle) RecordFailure(key string) bool {
	key = Normalize(key)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if ok && now.Before(e.expiresAt) {
		e.failures++
		return e.failures == t.maxAttempts
	}

	t.entries[key] = &entry{failures: 1, expiresAt: now.Add(t.lockout)}
	return t.maxAttempts == 1
}

func (t *Throttle) RecordSuccess(key string) {
	key = Normalize(key)

	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// Failures returns the failure count inside the current window.
func (t *Throttle) Failures(key string) int {
	key = Normalize(key)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		return 0
	}
	return e.failures
}

// Prune drops every elapsed window and returns how many were removed.
func (t *Throttle) Prune() int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, e := range t.entries {
		if !now.Before(e.expiresAt) {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// RunPruner calls Prune every interval until ctx is done.
func (t *Throttle) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Prune()
		case <-ctx.Done():
			return
		}
	}
}
