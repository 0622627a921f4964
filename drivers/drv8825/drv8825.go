// Package drv8825 drives a DRV8825-class step/direction stepper driver.
//
// The Device owns its output lines and a periodic interrupt source. Commands
// (MoveTo, FreeRun, Stop, ...) run in the caller's context; pulses are emitted
// from the periodic callback, which is the only writer of the position counter:
//
//	d, _ := drv8825.New(lines, drv8825.Config{})
//	_ = d.MoveTo(800, 16, 400)
//	for d.Active() { time.Sleep(10 * time.Millisecond) }
//
// Commands must be issued from a single goroutine.
package drv8825

import (
	"sync/atomic"
	"time"

	"stepdrive-go/errcode"
	"stepdrive-go/hal"
	"stepdrive-go/x/timex"
)

// Timing requirements from the DRV8825 datasheet, rounded up.
const (
	WakeSettle     = 3 * time.Millisecond // tWAKE is 1.7 ms max
	DirectionSetup = 2 * time.Microsecond
	StepHold       = 2 * time.Microsecond // tWH/tWL are 1.9 µs min

	// MaxStepHz is the fastest rate one direction setup plus both holds allow.
	MaxStepHz = uint32(time.Second / (DirectionSetup + 2*StepHold))

	DefaultStepsPerRevolution = 200
)

// Lines groups the driver's output lines. Only Step is mandatory.
// Microstep is either fully populated or ignored.
type Lines struct {
	Step      hal.GPIOPin
	Dir       hal.GPIOPin
	Microstep [3]hal.GPIOPin // M0, M1, M2
	Sleep     hal.GPIOPin
	Reset     hal.GPIOPin
}

// Config controls non-wiring behaviour. All fields are optional.
type Config struct {
	// StepsPerRevolution of the motor in full steps. Default 200.
	StepsPerRevolution int
	// Timer drives the step callback. Default hal.NewTicker().
	Timer hal.Periodic
	// Sleep is used for every hardware hold time. Default timex.Delay.
	Sleep func(time.Duration)
	// Notice receives non-fatal diagnostics. Default prints a warning.
	Notice func(string)
}

// Mode is the generator's operating state.
type Mode int32

const (
	Idle Mode = iota
	Seeking
	RunningForward
	RunningReverse
)

func (m Mode) String() string {
	switch m {
	case Seeking:
		return "seeking"
	case RunningForward:
		return "running+"
	case RunningReverse:
		return "running-"
	default:
		return "idle"
	}
}

// Device is one DRV8825 channel.
type Device struct {
	step, dir    hal.GPIOPin
	ms           [3]hal.GPIOPin
	hasMS        bool
	sleep, reset hal.GPIOPin

	spr    int
	timer  hal.Periodic
	delay  func(time.Duration)
	notice func(string)

	// Shared with the callback. position is written only by the callback
	// while a schedule is active, and by commands after Stop has returned.
	position   atomic.Int64
	target     atomic.Int64
	mode       atomic.Int32
	freeRun    atomic.Bool
	resolution atomic.Int32
	fault      atomic.Pointer[errcode.E]
}

// New configures the lines and returns an idle Device. The sleep and reset
// lines come up high, so the driver starts enabled.
func New(l Lines, cfg Config) (*Device, error) {
	if l.Step == nil {
		return nil, errcode.Wrap(errcode.MissingStepLine, "drv8825.New", nil)
	}
	d := &Device{
		spr:    cfg.StepsPerRevolution,
		timer:  cfg.Timer,
		delay:  cfg.Sleep,
		notice: cfg.Notice,
	}
	if d.spr <= 0 {
		d.spr = DefaultStepsPerRevolution
	}
	if d.timer == nil {
		d.timer = hal.NewTicker()
	}
	if d.delay == nil {
		d.delay = timex.Delay
	}
	if d.notice == nil {
		d.notice = func(s string) { println("Warn:", s) }
	}

	if err := l.Step.ConfigureOutput(false); err != nil {
		return nil, errcode.Wrap(errcode.MissingStepLine, "drv8825.New", err)
	}
	d.step = l.Step
	d.dir = d.optional("dir", l.Dir, false)
	d.sleep = d.optional("sleep", l.Sleep, true)
	d.reset = d.optional("reset", l.Reset, true)

	n := 0
	for _, p := range l.Microstep {
		if p != nil {
			n++
		}
	}
	switch n {
	case 0:
	case 3:
		d.hasMS = true
		for i, p := range l.Microstep {
			if d.ms[i] = d.optional("microstep", p, false); d.ms[i] == nil {
				d.hasMS = false
			}
		}
		if !d.hasMS {
			d.ms = [3]hal.GPIOPin{}
		}
	default:
		d.notice("drv8825: partial microstep lines ignored")
	}
	d.resolution.Store(1)
	return d, nil
}

// optional configures an optional output, dropping it on failure.
func (d *Device) optional(name string, p hal.GPIOPin, initial bool) hal.GPIOPin {
	if p == nil {
		return nil
	}
	if err := p.ConfigureOutput(initial); err != nil {
		d.notice("drv8825: " + name + " line unavailable: " + err.Error())
		return nil
	}
	return p
}

// ---- queries ----

func (d *Device) Position() int64         { return d.position.Load() }
func (d *Device) Target() int64           { return d.target.Load() }
func (d *Device) Mode() Mode              { return Mode(d.mode.Load()) }
func (d *Device) Resolution() int         { return int(d.resolution.Load()) }
func (d *Device) Active() bool            { return d.timer.Active() }
func (d *Device) StepsPerRevolution() int { return d.spr }

// HasDirection reports whether a direction line is wired.
func (d *Device) HasDirection() bool { return d.dir != nil }

// Err returns the latched hardware fault, if any. Cleared by the next command.
func (d *Device) Err() error {
	if e := d.fault.Load(); e != nil {
		return e
	}
	return nil
}

// Progress is the signed step count of the current bounded move. It reads 0
// during and after a free-run until the next bounded move.
func (d *Device) Progress() int64 {
	if d.freeRun.Load() {
		return 0
	}
	return d.position.Load()
}
