// Package hal holds the line-level hardware contracts used by the drivers:
// output and interrupt-capable GPIO lines, pin factories per platform, and
// the periodic callback source that stands in for a hardware timer IRQ.
package hal

import "tinygo.org/x/drivers"

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// GPIOPin is one physical line.
type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// Matches reports whether a from->to level change fires an IRQ configured for e.
func (e Edge) Matches(from, to bool) bool {
	switch e {
	case EdgeRising:
		return !from && to
	case EdgeFalling:
		return from && !to
	case EdgeBoth:
		return from != to
	}
	return false
}

// IRQPin extends GPIOPin with interrupts. The handler runs in interrupt
// context: it must not block or allocate.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// PinFactory supplies GPIO pins by the configured number scheme.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// I2CFactory injects configured I²C controllers by id ("i2c0", "i2c1").
// Uses the TinyGo drivers.I2C interface to remain compatible on MCU builds.
type I2CFactory interface {
	ByID(id string) (drivers.I2C, bool)
}
