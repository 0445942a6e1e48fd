package socketio

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerRapidStateEventsCollapseToOne(t *testing.T) {
	var stateCalls int32
	var libraryCalls int32

	d := NewBroadcastDebouncer(50*time.Millisecond,
		func() { atomic.AddInt32(&stateCalls, 1) },
		func() { atomic.AddInt32(&libraryCalls, 1) },
	)
	defer d.Stop()

	// Fire 10 rapid playback state changes
	for i := 0; i < 10; i++ {
		d.Trigger("state")
	}

	// Wait for debounce window to elapse
	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&stateCalls); got != 1 {
		t.Errorf("expected 1 state callback, got %d", got)
	}
	if got := atomic.LoadInt32(&libraryCalls); got != 0 {
		t.Errorf("expected 0 library callbacks, got %d", got)
	}
}

func TestDebouncerLibraryTriggersBothStateAndLibrary(t *testing.T) {
	var stateCalls int32
	var libraryCalls int32

	d := NewBroadcastDebouncer(50*time.Millisecond,
		func() { atomic.AddInt32(&stateCalls, 1) },
		func() { atomic.AddInt32(&libraryCalls, 1) },
	)
	defer d.Stop()

	d.Trigger("library")

	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&stateCalls); got != 1 {
		t.Errorf("expected 1 state callback for library event, got %d", got)
	}
	if got := atomic.LoadInt32(&libraryCalls); got != 1 {
		t.Errorf("expected 1 library callback for library event, got %d", got)
	}
}

func TestDebouncerMixedEventsWithinWindow(t *testing.T) {
	var stateCalls int32
	var libraryCalls int32

	d := NewBroadcastDebouncer(50*time.Millisecond,
		func() { atomic.AddInt32(&stateCalls, 1) },
		func() { atomic.AddInt32(&libraryCalls, 1) },
	)
	defer d.Stop()

	// Mix of playback and library events within the window, as when
	// enrichment results land while a track plays.
	d.Trigger("state")
	d.Trigger("library")
	d.Trigger("state")

	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&stateCalls); got != 1 {
		t.Errorf("expected 1 state callback for mixed events, got %d", got)
	}
	if got := atomic.LoadInt32(&libraryCalls); got != 1 {
		t.Errorf("expected 1 library callback for mixed events, got %d", got)
	}
}

func TestDebouncerSeparateWindowsFireIndependently(t *testing.T) {
	var stateCalls int32

	d := NewBroadcastDebouncer(50*time.Millisecond,
		func() { atomic.AddInt32(&stateCalls, 1) },
		func() {},
	)
	defer d.Stop()

	// First burst
	d.Trigger("state")
	time.Sleep(100 * time.Millisecond) // Wait for first flush

	// Second burst (separate window)
	d.Trigger("state")
	time.Sleep(100 * time.Millisecond) // Wait for second flush

	if got := atomic.LoadInt32(&stateCalls); got != 2 {
		t.Errorf("expected 2 state callbacks for separate windows, got %d", got)
	}
}

func TestDebouncerStopPreventsCallbacks(t *testing.T) {
	var stateCalls int32

	d := NewBroadcastDebouncer(50*time.Millisecond,
		func() { atomic.AddInt32(&stateCalls, 1) },
		func() {},
	)

	d.Trigger("state")
	d.Stop()

	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&stateCalls); got != 0 {
		t.Errorf("expected 0 state callbacks after stop, got %d", got)
	}
}

func TestDebouncerTriggerAfterStopIsIgnored(t *testing.T) {
	var stateCalls int32

	d := NewBroadcastDebouncer(50*time.Millisecond,
		func() { atomic.AddInt32(&stateCalls, 1) },
		func() {},
	)

	d.Stop()
	d.Trigger("state")

	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&stateCalls); got != 0 {
		t.Errorf("expected 0 state callbacks after stop+trigger, got %d", got)
	}
}
