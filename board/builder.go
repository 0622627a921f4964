// Package board turns a wiring profile into a ready DRV8825 device and its
// debounced switches.
package board

import (
	"strconv"
	"time"

	"stepdrive-go/drivers/drv8825"
	"stepdrive-go/drivers/endswitch"
	"stepdrive-go/errcode"
	"stepdrive-go/hal"
	"stepdrive-go/types"
)

// Builder holds the platform factories. Pins is required; I2C only when a
// profile uses an expander.
type Builder struct {
	Pins  hal.PinFactory
	I2C   hal.I2CFactory
	Timer func() hal.Periodic

	// Test hooks; nil means the driver defaults.
	Sleep  func(time.Duration)
	Now    func() time.Time
	Notice func(string)
}

// Switch is a named, role-tagged debounced input.
type Switch struct {
	*endswitch.Switch
	Name string
	Role types.SwitchRole
}

type Rig struct {
	Name     string
	Profile  types.BoardProfile
	Motor    *drv8825.Device
	Switches []*Switch
	Expander *hal.Expander
}

// Switch looks a switch up by name.
func (r *Rig) Switch(name string) (*Switch, bool) {
	for _, s := range r.Switches {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Close disarms the switches and stops the motor.
func (r *Rig) Close() {
	if r.Motor != nil {
		r.Motor.Stop()
	}
	for _, s := range r.Switches {
		_ = s.Close()
	}
}

type claims map[int]string

func (c claims) take(n int, who string) error {
	if prev, ok := c[n]; ok {
		return &errcode.E{C: errcode.PinInUse, Op: "board.Build", Msg: who + " on pin " + strconv.Itoa(n) + " already used by " + prev}
	}
	c[n] = who
	return nil
}

// Build acquires every line in p. Nothing is retained on error.
func (b Builder) Build(p types.BoardProfile) (*Rig, error) {
	if b.Pins == nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "board.Build", nil)
	}
	mw := p.Motor
	if mw.Step < 0 {
		return nil, errcode.Wrap(errcode.MissingStepLine, "board.Build", nil)
	}
	if n := len(mw.Microstep); n != 0 && n != 3 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "board.Build", Msg: "microstep needs 3 lines"}
	}

	used := claims{}
	line := func(n int, who string) (hal.GPIOPin, error) {
		if n < 0 {
			return nil, nil
		}
		if err := used.take(n, who); err != nil {
			return nil, err
		}
		pin, ok := b.Pins.ByNumber(n)
		if !ok {
			return nil, &errcode.E{C: errcode.UnknownPin, Op: "board.Build", Msg: who + " pin " + strconv.Itoa(n)}
		}
		return pin, nil
	}

	var (
		l   drv8825.Lines
		err error
	)
	if l.Step, err = line(mw.Step, "step"); err != nil {
		return nil, err
	}
	if l.Dir, err = line(mw.Dir, "dir"); err != nil {
		return nil, err
	}
	if l.Sleep, err = line(mw.Sleep, "sleep"); err != nil {
		return nil, err
	}
	if l.Reset, err = line(mw.Reset, "reset"); err != nil {
		return nil, err
	}

	rig := &Rig{Name: p.Name, Profile: p}
	if mw.MicrostepOnExpander {
		x, err := b.expander(p.Expander)
		if err != nil {
			return nil, err
		}
		rig.Expander = x
		bits := claims{}
		for i, n := range mw.Microstep {
			if err := bits.take(n, "microstep"); err != nil {
				return nil, err
			}
			pin, ok := x.Pin(n)
			if !ok {
				return nil, &errcode.E{C: errcode.UnknownPin, Op: "board.Build", Msg: "expander bit " + strconv.Itoa(n)}
			}
			l.Microstep[i] = pin
		}
	} else {
		for i, n := range mw.Microstep {
			if l.Microstep[i], err = line(n, "microstep"); err != nil {
				return nil, err
			}
		}
	}

	// Claim switch pins before touching any hardware.
	irqs := make([]hal.IRQPin, len(p.Switches))
	for i, sw := range p.Switches {
		pin, err := line(sw.Pin, "switch "+sw.Name)
		if err != nil {
			return nil, err
		}
		if pin == nil {
			return nil, &errcode.E{C: errcode.UnknownPin, Op: "board.Build", Msg: "switch " + sw.Name}
		}
		irq, ok := pin.(hal.IRQPin)
		if !ok {
			return nil, &errcode.E{C: errcode.Unsupported, Op: "board.Build", Msg: "switch " + sw.Name + " has no interrupt"}
		}
		irqs[i] = irq
	}

	cfg := drv8825.Config{StepsPerRevolution: mw.StepsPerRev, Sleep: b.Sleep, Notice: b.Notice}
	if b.Timer != nil {
		cfg.Timer = b.Timer()
	}
	if rig.Motor, err = drv8825.New(l, cfg); err != nil {
		return nil, err
	}

	for i, sw := range p.Switches {
		s, err := endswitch.New(irqs[i], endswitch.Config{
			ActiveHigh: sw.ActiveHigh,
			Window:     time.Duration(sw.DebounceMs) * time.Millisecond,
			Now:        b.Now,
		})
		if err != nil {
			rig.Close()
			return nil, err
		}
		rig.Switches = append(rig.Switches, &Switch{Switch: s, Name: sw.Name, Role: sw.Role})
	}
	return rig, nil
}

func (b Builder) expander(w *types.ExpanderWiring) (*hal.Expander, error) {
	if w == nil || b.I2C == nil {
		return nil, &errcode.E{C: errcode.UnknownBus, Op: "board.Build", Msg: "no expander bus"}
	}
	bus, ok := b.I2C.ByID(w.Bus)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownBus, Op: "board.Build", Msg: w.Bus}
	}
	return hal.NewExpander(bus, w.Addr), nil
}
