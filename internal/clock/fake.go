package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Fake is a deterministic Clock for tests.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*fakeTimer
	sleeps []time.Duration
}

type fakeTimer struct {
	clock  *Fake
	id     uint64
	when   time.Time
	fn     func()
	active bool
}

// NewFake returns a Fake positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	f.seq++
	t := &fakeTimer{
		clock:  f,
		id:     f.seq,
		when:   f.now.Add(d),
		fn:     fn,
		active: true,
	}
	f.timers = append(f.timers, t)
	f.mu.Unlock()

	// A non-positive delay fires on the next Advance, including Advance(0).
	return t
}

// Sleep records d and advances the clock by it. It never blocks.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	f.mu.Unlock()

	f.Advance(d)
	return ctx.Err()
}

// Sleeps returns every duration passed to Sleep, in call order.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

// Advance moves the clock forward by d and runs every timer that became due,
// in deadline order. Callbacks run on the calling goroutine without the
// clock's lock held, so they may read the clock or arm new timers.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.nextDueLocked(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		if next.when.After(f.now) {
			f.now = next.when
		}
		next.active = false
		f.removeLocked(next.id)
		fn := next.fn
		f.mu.Unlock()

		fn()
	}
}

// Pending reports how many timers are armed and not yet fired.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

func (f *Fake) nextDueLocked(target time.Time) *fakeTimer {
	due := make([]*fakeTimer, 0, len(f.timers))
	for _, t := range f.timers {
		if !t.when.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].when.Equal(due[j].when) {
			return due[i].id < due[j].id
		}
		return due[i].when.Before(due[j].when)
	})
	return due[0]
}

func (f *Fake) removeLocked(id uint64) {
	for i, t := range f.timers {
		if t.id == id {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return
		}
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if !t.active {
		return false
	}
	t.active = false
	t.clock.removeLocked(t.id)
	return true
}
