package waiter

import (
	"testing"
	"time"
)

func TestWait_CompletesWithExactDuration(t *testing.T) {
	durations := []time.Duration{
		0,
		1 * time.Millisecond,
		19 * time.Millisecond,
		20 * time.Millisecond,
		21 * time.Millisecond,
		62500 * time.Microsecond,
		800 * time.Millisecond,
		1013 * time.Millisecond,
	}

	for _, d := range durations {
		clock := NewFakeClock(time.Unix(0, 0))
		w := New(clock, nil, 20*time.Millisecond)

		if got := w.Wait(d); got != Completed {
			t.Errorf("Wait(%v) = %v, want completed", d, got)
		}
		if got := clock.Elapsed(); got != d {
			t.Errorf("Wait(%v) elapsed %v", d, got)
		}
	}
}

func TestWait_NeverSleepsLongerThanQuantum(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	w := New(clock, nil, 20*time.Millisecond)

	w.Wait(333 * time.Millisecond)

	for i, s := range clock.Sleeps() {
		if s > w.Quantum() {
			t.Errorf("sleep %d = %v exceeds quantum", i, s)
		}
	}
}

func TestWait_CancellationShortensWait(t *testing.T) {
	const quantum = 20 * time.Millisecond

	for k := 1; k <= 5; k++ {
		clock := NewFakeClock(time.Unix(0, 0))
		cancel := &CancelAt{Clock: clock, At: time.Duration(k) * quantum}
		w := New(clock, cancel, quantum)

		hooks := 0
		w.OnCancel(func() { hooks++ })

		d := 250 * time.Millisecond
		if got := w.Wait(d); got != Cancelled {
			t.Fatalf("k=%d: Wait = %v, want cancelled", k, got)
		}
		if got, want := clock.Elapsed(), time.Duration(k)*quantum; got != want {
			t.Errorf("k=%d: elapsed %v, want %v", k, got, want)
		}
		if clock.Elapsed() > d {
			t.Errorf("k=%d: elapsed %v exceeds duration %v", k, clock.Elapsed(), d)
		}
		if hooks != 1 {
			t.Errorf("k=%d: cancel hook ran %d times, want 1", k, hooks)
		}
	}
}

func TestWait_RemainderIsNotCancellable(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	cancel := &CancelAt{Clock: clock, At: 30 * time.Millisecond}
	w := New(clock, cancel, 20*time.Millisecond)

	// One full quantum (20ms, not yet at 30ms) then a 15ms remainder.
	if got := w.Wait(35 * time.Millisecond); got != Completed {
		t.Errorf("Wait = %v, want completed", got)
	}
	if cancel.Fired() {
		t.Error("cancel should not be observed during the remainder")
	}
}

func TestNew_Defaults(t *testing.T) {
	w := New(nil, nil, 0)
	if w.Quantum() != DefaultQuantum {
		t.Errorf("Quantum() = %v, want %v", w.Quantum(), DefaultQuantum)
	}
	if _, ok := w.Clock().(RealClock); !ok {
		t.Errorf("Clock() = %T, want RealClock", w.Clock())
	}
}
