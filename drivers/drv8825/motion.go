package drv8825

import (
	"math"
	"strconv"
	"time"

	"stepdrive-go/errcode"
	"stepdrive-go/hal"
	"stepdrive-go/x/mathx"
)

// Enable wakes the driver and waits for the charge pump to settle.
func (d *Device) Enable() {
	if d.sleep == nil && d.reset == nil {
		return
	}
	if d.sleep != nil {
		d.sleep.Set(true)
	}
	if d.reset != nil {
		d.reset.Set(true)
	}
	d.delay(WakeSettle)
}

// Disable stops stepping and puts the driver to sleep with outputs off.
func (d *Device) Disable() {
	d.Stop()
	if d.sleep != nil {
		d.sleep.Set(false)
	}
	if d.reset != nil {
		d.reset.Set(false)
	}
}

// Reset pulses the reset line low for interval when interval > 0, otherwise
// drives it to active. No-op without a reset line.
func (d *Device) Reset(active bool, interval time.Duration) {
	if d.reset == nil {
		return
	}
	if interval > 0 {
		d.reset.Set(false)
		d.delay(interval)
		d.reset.Set(true)
		return
	}
	d.reset.Set(active)
}

// Stop cancels the schedule and returns once the callback can no longer run.
// Lines are left as they are so the motor holds position.
func (d *Device) Stop() {
	d.timer.Stop()
	d.mode.Store(int32(Idle))
}

// MoveTo steps a signed displacement at freqHz using the given microstep
// divisor. Position restarts at zero.
func (d *Device) MoveTo(steps int64, microsteps int, freqHz uint32) error {
	if freqHz == 0 || freqHz > MaxStepHz {
		return &errcode.E{C: errcode.InvalidParams, Op: "drv8825.MoveTo", Msg: "frequency out of range"}
	}
	if steps < 0 && d.dir == nil {
		return errcode.Wrap(errcode.NoDirectionLine, "drv8825.MoveTo", nil)
	}
	d.Stop()
	d.SetResolution(microsteps)
	d.Enable()

	d.fault.Store(nil)
	d.freeRun.Store(false)
	d.position.Store(0)
	d.target.Store(steps)
	if steps == 0 {
		return nil
	}
	d.mode.Store(int32(Seeking))
	d.timer.Start(freqHz, d.tick)
	return nil
}

// MoveRevolutions converts revolutions to microsteps and delegates to MoveTo.
func (d *Device) MoveRevolutions(revs float64, microsteps int, freqHz uint32) error {
	if !Supported(microsteps) {
		d.notice("drv8825: unsupported microstep divisor " + strconv.Itoa(microsteps) + ", using full step")
		microsteps = 1
	}
	steps := int64(math.Round(revs * float64(d.spr) * float64(microsteps)))
	return d.MoveTo(steps, microsteps, freqHz)
}

// FreeRun steps continuously in the direction of freqHz's sign until the next
// command. A zero frequency just stops.
func (d *Device) FreeRun(freqHz int32, microsteps int) error {
	if freqHz == 0 {
		d.Stop()
		return nil
	}
	rate := mathx.Abs(int64(freqHz))
	if rate > int64(MaxStepHz) {
		return &errcode.E{C: errcode.InvalidParams, Op: "drv8825.FreeRun", Msg: "frequency out of range"}
	}
	if freqHz < 0 && d.dir == nil {
		return errcode.Wrap(errcode.NoDirectionLine, "drv8825.FreeRun", nil)
	}
	d.Stop()
	d.Enable()
	d.SetResolution(microsteps)

	d.fault.Store(nil)
	d.freeRun.Store(true)
	if freqHz > 0 {
		d.mode.Store(int32(RunningForward))
	} else {
		d.mode.Store(int32(RunningReverse))
	}
	d.timer.Start(uint32(rate), d.tick)
	return nil
}

// tick is the periodic callback. Reaching the target ends the schedule.
func (d *Device) tick() hal.TickResult {
	switch Mode(d.mode.Load()) {
	case RunningForward:
		if d.oneStep(1) {
			return hal.Reschedule
		}
	case RunningReverse:
		if d.oneStep(-1) {
			return hal.Reschedule
		}
	case Seeking:
		pos, tgt := d.position.Load(), d.target.Load()
		if pos != tgt {
			dir := int64(mathx.Sign(tgt - pos))
			if d.oneStep(dir) && pos+dir != tgt {
				return hal.Reschedule
			}
		}
	}
	d.mode.Store(int32(Idle))
	return hal.Done
}

// oneStep emits one pulse. It reports false, latching a fault, when a
// reverse step is asked of a board without a direction line.
func (d *Device) oneStep(dir int64) bool {
	if d.dir != nil {
		d.dir.Set(dir > 0)
		d.delay(DirectionSetup)
	} else if dir < 0 {
		d.fault.Store(errcode.Wrap(errcode.NoDirectionLine, "drv8825.step", nil))
		return false
	}
	d.step.Set(true)
	d.position.Add(dir)
	d.delay(StepHold)
	d.step.Set(false)
	d.delay(StepHold)
	return true
}
