package hal

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerRunsUntilDone(t *testing.T) {
	tk := NewTicker()
	var n atomic.Int32
	tk.Start(2000, func() TickResult {
		if n.Add(1) == 5 {
			return Done
		}
		return Reschedule
	})

	deadline := time.Now().Add(2 * time.Second)
	for tk.Active() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if tk.Active() {
		t.Fatal("ticker still active after Done")
	}
	if got := n.Load(); got != 5 {
		t.Fatalf("callback ran %d times, want 5", got)
	}
	// Stop after a self-terminated schedule is a no-op.
	tk.Stop()
	tk.Stop()
}

func TestTickerStopIsSynchronous(t *testing.T) {
	tk := NewTicker()
	var n atomic.Int32
	tk.Start(5000, func() TickResult { n.Add(1); return Reschedule })
	time.Sleep(10 * time.Millisecond)
	tk.Stop()
	after := n.Load()
	time.Sleep(10 * time.Millisecond)
	if n.Load() != after {
		t.Fatal("callback ran after Stop returned")
	}
	if tk.Active() {
		t.Fatal("Active after Stop")
	}
}

func TestTickerStartReplacesSchedule(t *testing.T) {
	tk := NewTicker()
	var first, second atomic.Int32
	tk.Start(5000, func() TickResult { first.Add(1); return Reschedule })
	time.Sleep(5 * time.Millisecond)
	tk.Start(5000, func() TickResult { second.Add(1); return Reschedule })
	frozen := first.Load()
	time.Sleep(10 * time.Millisecond)
	tk.Stop()
	if first.Load() != frozen {
		t.Fatal("replaced schedule kept firing")
	}
	if second.Load() == 0 {
		t.Fatal("new schedule never fired")
	}
}

func TestTickerHoldsRate(t *testing.T) {
	for _, hz := range []uint32{200, 1000, 4000, 8000} {
		tk := NewTicker()
		var n atomic.Int64
		start := time.Now()
		tk.Start(hz, func() TickResult { n.Add(1); return Reschedule })
		time.Sleep(250 * time.Millisecond)
		tk.Stop()
		elapsed := time.Since(start)

		want := float64(hz) * elapsed.Seconds()
		if got := float64(n.Load()); got < 0.9*want || got > want+1 {
			t.Fatalf("%d Hz: %v ticks in %v, want about %.0f", hz, got, elapsed, want)
		}
	}
}

func TestTickerHugeFrequency(t *testing.T) {
	tk := NewTicker()
	var n atomic.Int32
	tk.Start(4_000_000_000, func() TickResult {
		if n.Add(1) == 3 {
			return Done
		}
		return Reschedule
	})
	deadline := time.Now().Add(time.Second)
	for tk.Active() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n.Load() != 3 {
		t.Fatalf("callback ran %d times, want 3", n.Load())
	}
}
