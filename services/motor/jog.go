package motor

import (
	"context"
	"time"

	"stepdrive-go/errcode"
	"stepdrive-go/types"
	"stepdrive-go/x/mathx"
	"stepdrive-go/x/ramp"
	"stepdrive-go/x/timex"
)

// JogConfig shapes the button-style jog controller. Zero fields take defaults.
type JogConfig struct {
	Microsteps int           // default 16
	MaxHz      uint16        // top (and initial) jog speed, default 3200
	MinHz      uint16        // ramp start speed, default 480
	StepHz     uint16        // speed_up/speed_down increment and ramp increment, default 160
	RampTick   time.Duration // time per ramp increment, default 100 ms
	NudgeSteps int64         // idle speed_up/speed_down nudge, default 40
}

func (c JogConfig) withDefaults() JogConfig {
	if c.Microsteps <= 0 {
		c.Microsteps = 16
	}
	if c.MaxHz == 0 {
		c.MaxHz = 3200
	}
	if c.MinHz == 0 {
		c.MinHz = 480
	}
	c.MinHz = mathx.Min(c.MinHz, c.MaxHz)
	if c.StepHz == 0 {
		c.StepHz = 160
	}
	if c.RampTick <= 0 {
		c.RampTick = 100 * time.Millisecond
	}
	if c.NudgeSteps <= 0 {
		c.NudgeSteps = 40
	}
	return c
}

// JogState is the controller's memory between button presses.
type JogState struct {
	Speed int32 `json:"speed"` // Hz magnitude
	Dir   int8  `json:"dir"`   // -1, 0, +1
}

func (s *Service) jogAction(ctx context.Context, a types.JogAction) error {
	c := s.cfg.Jog
	switch a {
	case types.JogSpeedUp, types.JogSpeedDown:
		delta := int32(c.StepHz)
		dir := int64(1)
		if a == types.JogSpeedDown {
			delta, dir = -delta, -1
		}
		if s.jog.Dir == 0 {
			return s.nudge(dir)
		}
		s.jog.Speed = mathx.Clamp(s.jog.Speed+delta, 0, int32(c.MaxHz))
		if s.jog.Speed == 0 {
			s.dev.Stop()
			s.jog.Dir = 0
			return nil
		}
		if err := s.guard(int64(s.jog.Dir)); err != nil {
			return err
		}
		return s.dev.FreeRun(int32(s.jog.Dir)*s.jog.Speed, c.Microsteps)
	case types.JogHoldCW:
		return s.hold(ctx, 1)
	case types.JogHoldCCW:
		return s.hold(ctx, -1)
	case types.JogStop:
		dir := s.jog.Dir
		s.jog.Dir = 0
		if dir == 0 {
			s.dev.Stop()
			return nil
		}
		from := uint16(s.jog.Speed)
		s.spawn(ctx, int64(dir), func(ctx context.Context) {
			s.rampFreq(ctx, dir, from, 0)
		})
		return nil
	}
	return errcode.InvalidParams
}

func (s *Service) nudge(dir int64) error {
	if err := s.guard(dir); err != nil {
		return err
	}
	c := s.cfg.Jog
	return s.dev.MoveTo(dir*c.NudgeSteps, c.Microsteps, uint32(c.MaxHz))
}

// hold ramps towards dir, stopping first when currently going the other way.
func (s *Service) hold(ctx context.Context, dir int8) error {
	if err := s.guard(int64(dir)); err != nil {
		return err
	}
	if s.jog.Dir == dir {
		return nil
	}
	c := s.cfg.Jog
	prev := s.jog.Dir
	s.jog.Speed = mathx.Max(s.jog.Speed, int32(c.MinHz))
	top := uint16(s.jog.Speed)
	s.jog.Dir = dir
	s.spawn(ctx, int64(dir), func(ctx context.Context) {
		if prev != 0 && !s.rampFreq(ctx, prev, top, 0) {
			return
		}
		s.rampFreq(ctx, dir, c.MinHz, top)
	})
	return nil
}

// rampFreq walks the free-run frequency from one speed to another in StepHz
// increments, one per RampTick. Reaching 0 stops the motor.
func (s *Service) rampFreq(ctx context.Context, dir int8, from, to uint16) bool {
	c := s.cfg.Jog
	span := mathx.Abs(int32(to) - int32(from))
	steps := uint16(mathx.Max(span/int32(c.StepHz), 1))
	tick := func(d time.Duration) bool { return timex.Sleep(ctx.Done(), d) }
	return ramp.Linear(from, to, time.Duration(steps)*c.RampTick, steps, tick, func(level uint16) {
		_ = s.dev.FreeRun(int32(dir)*int32(level), c.Microsteps)
	})
}
