package endswitch

import (
	"testing"
	"time"

	"stepdrive-go/hal"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newSwitch(t *testing.T, cfg Config) (*Switch, *hal.SimPin, *clock) {
	t.Helper()
	c := &clock{t: time.Unix(1000, 0)}
	cfg.Now = c.now
	pin := hal.NewSimPin(3)
	s, err := New(pin, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s, pin, c
}

func TestEdgesInsideWindowCollapse(t *testing.T) {
	s, pin, c := newSwitch(t, Config{})
	c.advance(time.Second)
	pin.Pulse()
	c.advance(10 * time.Millisecond)
	pin.Pulse()
	if !s.Poll() {
		t.Fatal("first press should be accepted")
	}
	if s.Poll() {
		t.Fatal("second press 10 ms later must be discarded")
	}
}

func TestEdgesOutsideWindowCount(t *testing.T) {
	s, pin, c := newSwitch(t, Config{})
	c.advance(time.Second)
	n := 0
	pin.Pulse()
	if s.Poll() {
		n++
	}
	c.advance(600 * time.Millisecond)
	pin.Pulse()
	if s.Poll() {
		n++
	}
	if n != 2 {
		t.Fatalf("accepted %d, want 2", n)
	}
}

func TestWindowStartsAtConstruction(t *testing.T) {
	s, pin, c := newSwitch(t, Config{})
	c.advance(100 * time.Millisecond)
	pin.Pulse()
	if s.Poll() {
		t.Fatal("edge within the first window after construction is discarded")
	}
}

func TestPendingSurvivesUntilPolled(t *testing.T) {
	s, pin, c := newSwitch(t, Config{})
	c.advance(time.Second)
	pin.Pulse()
	c.advance(time.Second)
	pin.Pulse()
	if !s.Func()() {
		t.Fatal("pending should be set")
	}
	if s.Func()() {
		t.Fatal("pending is a flag, not a counter")
	}
}

func TestActiveHighAndLevel(t *testing.T) {
	s, pin, c := newSwitch(t, Config{ActiveHigh: true, Window: 50 * time.Millisecond})
	if s.Active() {
		t.Fatal("pull-down input idles inactive")
	}
	c.advance(60 * time.Millisecond)
	pin.Drive(true)
	if !s.Active() || !s.Poll() {
		t.Fatal("rising edge should fire an active-high switch")
	}
	c.advance(60 * time.Millisecond)
	pin.Drive(false)
	if s.Poll() {
		t.Fatal("falling edge must not fire an active-high switch")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	c.advance(time.Second)
	pin.Drive(true)
	if s.Poll() {
		t.Fatal("closed switch must not fire")
	}
}

func TestActiveLowLevel(t *testing.T) {
	s, pin, _ := newSwitch(t, Config{})
	if s.Active() {
		t.Fatal("pull-up idle is inactive")
	}
	pin.Drive(false)
	if !s.Active() {
		t.Fatal("low is active")
	}
}
