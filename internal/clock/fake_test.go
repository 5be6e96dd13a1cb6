package clock

import (
	"context"
	"testing"
	"time"
)

func TestFakeAdvanceFiresDueTimersInOrder(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	var order []int
	f.AfterFunc(200*time.Millisecond, func() { order = append(order, 2) })
	f.AfterFunc(100*time.Millisecond, func() { order = append(order, 1) })
	f.AfterFunc(time.Second, func() { order = append(order, 3) })

	f.Advance(500 * time.Millisecond)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("unexpected fire order: %v", order)
	}
	if f.Pending() != 1 {
		t.Fatalf("expected 1 pending timer, got %d", f.Pending())
	}
	if got := f.Now(); !got.Equal(time.Unix(0, 0).Add(500 * time.Millisecond)) {
		t.Fatalf("unexpected now: %v", got)
	}
}

func TestFakeStopPreventsFire(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	fired := false
	timer := f.AfterFunc(time.Second, func() { fired = true })
	if !timer.Stop() {
		t.Fatal("expected Stop to report an armed timer")
	}
	if timer.Stop() {
		t.Fatal("expected second Stop to report false")
	}

	f.Advance(2 * time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
}

func TestFakeCallbackSeesDeadlineAndMayRearm(t *testing.T) {
	start := time.Unix(0, 0)
	f := NewFake(start)

	var seen []time.Time
	var rearm func()
	rearm = func() {
		seen = append(seen, f.Now())
		if len(seen) < 3 {
			f.AfterFunc(time.Second, rearm)
		}
	}
	f.AfterFunc(time.Second, rearm)

	f.Advance(10 * time.Second)
	if len(seen) != 3 {
		t.Fatalf("expected 3 fires, got %d", len(seen))
	}
	for i, at := range seen {
		want := start.Add(time.Duration(i+1) * time.Second)
		if !at.Equal(want) {
			t.Fatalf("fire %d at %v, want %v", i, at, want)
		}
	}
}

func TestFakeSleepRecordsAndAdvances(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	if err := f.Sleep(context.Background(), 100*time.Millisecond); err != nil {
		t.Fatalf("sleep: %v", err)
	}
	if err := f.Sleep(context.Background(), 200*time.Millisecond); err != nil {
		t.Fatalf("sleep: %v", err)
	}

	sleeps := f.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 100*time.Millisecond || sleeps[1] != 200*time.Millisecond {
		t.Fatalf("unexpected sleeps: %v", sleeps)
	}
	if got := f.Now().Sub(time.Unix(0, 0)); got != 300*time.Millisecond {
		t.Fatalf("expected 300ms elapsed, got %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.Sleep(ctx, time.Second); err == nil {
		t.Fatal("expected canceled sleep to fail")
	}
}

func TestRealSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Real().Sleep(ctx, time.Hour); err == nil {
		t.Fatal("expected canceled sleep to return context error")
	}
	if err := Real().Sleep(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
}
