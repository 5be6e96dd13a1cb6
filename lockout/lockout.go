package lockout

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/stonixai/dashcore/internal/clock"
)

var (
	// ErrUnavailable indicates the record store could not be reached.
	ErrUnavailable = errors.New("lockout backend unavailable")
)

// Config holds the lockout policy.
type Config struct {
	MaxAttempts int
	Duration    time.Duration
}

// Record is the failure history of one identity.
type Record struct {
	Identity      string    `json:"identity"`
	Count         int       `json:"count"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}

// RecordStore persists failure records.
type RecordStore interface {
	// Get returns the record for identity and whether one exists.
	Get(ctx context.Context, identity string) (Record, bool, error)
	// Increment adds one failure stamped at and returns the updated record.
	Increment(ctx context.Context, identity string, at time.Time) (Record, error)
	Delete(ctx context.Context, identity string) error
}

// Tracker applies the lockout policy over a RecordStore.
type Tracker struct {
	store RecordStore
	cfg   Config
	clock clock.Clock
	logf  func(format string, args ...any)
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithLogf routes lockout log lines to logf.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(t *Tracker) {
		if logf != nil {
			t.logf = logf
		}
	}
}

// NewTracker returns a Tracker over store. A nil store selects a fresh
// MemoryStore.
func NewTracker(store RecordStore, cfg Config, opts ...Option) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	t := &Tracker{
		store: store,
		cfg:   cfg,
		clock: clock.Real(),
		logf:  log.Printf,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Config returns the policy in effect.
func (t *Tracker) Config() Config {
	return t.cfg
}

// RecordFailure adds one failed attempt for identity.
func (t *Tracker) RecordFailure(ctx context.Context, identity string) error {
	if identity == "" {
		return nil
	}

	rec, err := t.store.Increment(ctx, identity, t.clock.Now())
	if err != nil {
		return err
	}
	if rec.Count == t.cfg.MaxAttempts {
		t.logf("dashcore: identity %q locked out after %d failed attempts", identity, rec.Count)
	}
	return nil
}

// Clear erases the failure record for identity.
func (t *Tracker) Clear(ctx context.Context, identity string) error {
	if identity == "" {
		return nil
	}
	return t.store.Delete(ctx, identity)
}

// IsLockedOut reports whether identity is currently barred. An elapsed
// record is cleared as a side effect.
func (t *Tracker) IsLockedOut(ctx context.Context, identity string) (bool, error) {
	remaining, err := t.remaining(ctx, identity)
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}

// RemainingLockoutMinutes returns the whole minutes, rounded up, until
// identity may authenticate again. It is 0 when identity is not locked out.
func (t *Tracker) RemainingLockoutMinutes(ctx context.Context, identity string) (int, error) {
	remaining, err := t.remaining(ctx, identity)
	if err != nil {
		return 0, err
	}
	return ceilMinutes(remaining), nil
}

func (t *Tracker) remaining(ctx context.Context, identity string) (time.Duration, error) {
	if identity == "" {
		return 0, nil
	}

	rec, ok, err := t.store.Get(ctx, identity)
	if err != nil || !ok {
		return 0, err
	}

	until := rec.LastAttemptAt.Add(t.cfg.Duration)
	now := t.clock.Now()
	if !now.Before(until) {
		if err := t.store.Delete(ctx, identity); err != nil {
			return 0, err
		}
		return 0, nil
	}
	if rec.Count < t.cfg.MaxAttempts {
		return 0, nil
	}
	return until.Sub(now), nil
}

func ceilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}
