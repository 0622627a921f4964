//go:build rp2040 || rp2350

package hal

import (
	"machine"

	"tinygo.org/x/drivers"
)

// RP2Pins maps line numbers straight onto GPn of a Pico / Pico 2.
type RP2Pins struct{}

func (RP2Pins) ByNumber(n int) (GPIOPin, bool) {
	if n < 0 || n > 28 {
		return nil, false
	}
	return &rp2Line{p: machine.Pin(n), n: n}, true
}

// RP2I2C holds the two hardware controllers, configured on their default
// pins at 400 kHz by NewRP2I2C.
type RP2I2C struct {
	buses map[string]drivers.I2C
}

func NewRP2I2C() *RP2I2C {
	f := &RP2I2C{buses: map[string]drivers.I2C{}}
	i0 := machine.I2C0
	if err := i0.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err == nil {
		f.buses["i2c0"] = i0
	}
	i1 := machine.I2C1
	if err := i1.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C1_SDA_PIN,
		SCL:       machine.I2C1_SCL_PIN,
	}); err == nil {
		f.buses["i2c1"] = i1
	}
	return f
}

func (f *RP2I2C) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}

type rp2Line struct {
	p machine.Pin
	n int
}

func (l *rp2Line) Number() int { return l.n }

func (l *rp2Line) ConfigureInput(pull Pull) error {
	mode := machine.PinInput
	switch pull {
	case PullUp:
		mode = machine.PinInputPullup
	case PullDown:
		mode = machine.PinInputPulldown
	}
	l.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (l *rp2Line) ConfigureOutput(initial bool) error {
	l.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	l.p.Set(initial)
	return nil
}

func (l *rp2Line) Set(level bool) { l.p.Set(level) }
func (l *rp2Line) Get() bool      { return l.p.Get() }

func (l *rp2Line) SetIRQ(edge Edge, handler func()) error {
	var change machine.PinChange
	switch edge {
	case EdgeRising:
		change = machine.PinRising
	case EdgeFalling:
		change = machine.PinFalling
	case EdgeBoth:
		change = machine.PinToggle
	default:
		return l.ClearIRQ()
	}
	return l.p.SetInterrupt(change, func(machine.Pin) { handler() })
}

func (l *rp2Line) ClearIRQ() error {
	var none machine.PinChange
	return l.p.SetInterrupt(none, nil)
}
