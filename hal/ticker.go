package hal

import (
	"sync"
	"sync/atomic"
	"time"

	"stepdrive-go/x/timex"
)

// TickResult tells the periodic source what to do after a callback.
type TickResult uint8

const (
	Done       TickResult = iota // tear the schedule down
	Reschedule                   // fire again next period
)

// Periodic is the stand-in for a hardware timer interrupt: fn is invoked
// once per period, serially, from a single callback context.
//
// Start replaces any existing schedule. Stop is synchronous and idempotent:
// when it returns, fn is not running and will not run again. Stop must not
// be called from inside fn; return Done instead.
type Periodic interface {
	Start(freqHz uint32, fn func() TickResult)
	Stop()
	Active() bool
}

// Ticker implements Periodic with one goroutine per schedule.
type Ticker struct {
	mu     sync.Mutex // serialises Start/Stop; never taken by the callback
	quit   chan struct{}
	done   chan struct{}
	active atomic.Bool
}

func NewTicker() *Ticker { return &Ticker{} }

func (t *Ticker) Start(freqHz uint32, fn func() TickResult) {
	t.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	quit := make(chan struct{})
	done := make(chan struct{})
	t.quit, t.done = quit, done
	t.active.Store(true)
	go t.loop(timex.PeriodFromHz(freqHz), fn, quit, done)
}

// loop runs fn against absolute deadlines: next advances by one period per
// call, so a late wake-up is made up by calling fn back to back. Lag beyond
// maxLag resynchronises to now.
func (t *Ticker) loop(period time.Duration, fn func() TickResult, quit, done chan struct{}) {
	defer func() {
		t.active.Store(false)
		close(done)
	}()
	lag := maxLag(period)
	wake := time.NewTimer(time.Hour)
	wake.Stop()
	defer wake.Stop()

	next := time.Now().Add(period)
	for {
		for {
			wait := time.Until(next)
			if wait < timex.SpinBelow {
				timex.Delay(wait)
				break
			}
			wake.Reset(wait - timex.SpinBelow)
			select {
			case <-quit:
				return
			case <-wake.C:
			}
		}
		// A pending quit wins over a tick that raced it.
		select {
		case <-quit:
			return
		default:
		}
		if fn() == Done {
			return
		}
		next = next.Add(period)
		if now := time.Now(); now.Sub(next) > lag {
			next = now
		}
	}
}

// maxLag bounds catch-up to 16 periods, and never less than 5 ms.
func maxLag(period time.Duration) time.Duration {
	if l := 16 * period; l > 5*time.Millisecond {
		return l
	}
	return 5 * time.Millisecond
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	quit, done := t.quit, t.done
	t.quit, t.done = nil, nil
	t.mu.Unlock()
	if quit == nil {
		return
	}
	close(quit)
	<-done
}

func (t *Ticker) Active() bool { return t.active.Load() }
