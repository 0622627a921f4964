// Package endswitch turns a mechanical contact (end stop, push button) into a
// debounced "did it fire since I last asked" predicate.
//
// The IRQ handler accepts an active edge only if more than Window has passed
// since the previous accepted one. With the default 500 ms window contact
// bounce is reliably suppressed, but two genuine presses closer than half a
// second register as one.
package endswitch

import (
	"sync/atomic"
	"time"

	"stepdrive-go/errcode"
	"stepdrive-go/hal"
)

const DefaultWindow = 500 * time.Millisecond

type Config struct {
	// ActiveHigh selects a pull-down input firing on the rising edge.
	// The default is active-low: pull-up, falling edge.
	ActiveHigh bool
	// Window is the minimum spacing of accepted edges. Default 500 ms.
	Window time.Duration
	// Now is the clock. Default time.Now.
	Now func() time.Time
}

type Switch struct {
	pin        hal.IRQPin
	activeHigh bool
	window     int64 // ns
	now        func() time.Time
	epoch      time.Time

	lastAccepted atomic.Int64 // ns since epoch
	pending      atomic.Bool
}

// New configures pin as an input and arms its interrupt.
func New(pin hal.IRQPin, cfg Config) (*Switch, error) {
	if pin == nil {
		return nil, errcode.Wrap(errcode.UnknownPin, "endswitch.New", nil)
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Switch{
		pin:        pin,
		activeHigh: cfg.ActiveHigh,
		window:     int64(cfg.Window),
		now:        cfg.Now,
	}
	s.epoch = s.now()

	pull, edge := hal.PullUp, hal.EdgeFalling
	if s.activeHigh {
		pull, edge = hal.PullDown, hal.EdgeRising
	}
	if err := pin.ConfigureInput(pull); err != nil {
		return nil, errcode.Wrap(errcode.Error, "endswitch.New", err)
	}
	if err := pin.SetIRQ(edge, s.onEdge); err != nil {
		return nil, errcode.Wrap(errcode.Error, "endswitch.New", err)
	}
	return s, nil
}

// onEdge runs in interrupt context.
func (s *Switch) onEdge() {
	t := int64(s.now().Sub(s.epoch))
	if t-s.lastAccepted.Load() > s.window {
		s.lastAccepted.Store(t)
		s.pending.Store(true)
	}
}

// Poll reports whether a debounced transition happened since the last call.
func (s *Switch) Poll() bool { return s.pending.Swap(false) }

// Func returns Poll as a zero-argument callable.
func (s *Switch) Func() func() bool { return s.Poll }

// Active reads the instantaneous logical level, without debouncing.
func (s *Switch) Active() bool { return s.pin.Get() == s.activeHigh }

// ActiveHigh reports the configured polarity.
func (s *Switch) ActiveHigh() bool { return s.activeHigh }

func (s *Switch) Number() int { return s.pin.Number() }

func (s *Switch) Close() error { return s.pin.ClearIRQ() }
