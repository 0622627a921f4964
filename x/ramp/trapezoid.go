package ramp

import "stepdrive-go/x/mathx"

// Shape constants for the trapezoidal approximation. The ramp is three
// constant-speed moves, not a true acceleration curve.
const (
	ShortMoveFactor   = 6    // |total| below microsteps*6 is moved in one go
	StartSpeedRatio   = 0.3  // accel/decel speed relative to the target
	MinStartSpeedHz   = 30   // floor for the accel/decel speed
	RampFraction      = 0.15 // share of the move spent in each ramp
	MaxRampShareDenom = 3    // a ramp never exceeds a third of the move
)

// Phase is one bounded move of a profile. Steps carries the sign of the move.
type Phase struct {
	Name   string
	Steps  int64
	FreqHz uint32
}

// Profile is the decomposition of one displacement.
type Profile struct {
	Total      int64
	Microsteps int
	TargetHz   uint32
	StartHz    uint32
	Accel      int64 // unsigned step counts
	Constant   int64
	Decel      int64
	Short      bool
}

// Trapezoid splits total into accelerate / cruise / decelerate phases.
// Accel+Constant+Decel == |total| always; the integer remainder lands in Constant.
func Trapezoid(total int64, microsteps int, targetHz uint32) Profile {
	p := Profile{Total: total, Microsteps: microsteps, TargetHz: targetHz}
	abs := mathx.Abs(total)
	ms := int64(mathx.Max(microsteps, 1))

	if abs < ms*ShortMoveFactor {
		p.Short = true
		p.StartHz = targetHz
		p.Constant = abs
		return p
	}

	p.StartHz = uint32(mathx.Max(float64(targetHz)*StartSpeedRatio, MinStartSpeedHz))
	rampSteps := mathx.Max(int64(float64(abs)*RampFraction), ms)
	p.Accel = mathx.Min(rampSteps, abs/MaxRampShareDenom)
	p.Decel = p.Accel
	p.Constant = abs - 2*p.Accel
	return p
}

// Phases lists the non-empty moves in order, signed like Total.
func (p Profile) Phases() []Phase {
	sign := mathx.Sign(p.Total)
	if p.Short {
		if p.Total == 0 {
			return nil
		}
		return []Phase{{Name: "single", Steps: p.Total, FreqHz: p.TargetHz}}
	}
	out := make([]Phase, 0, 3)
	out = append(out, Phase{Name: "accelerate", Steps: sign * p.Accel, FreqHz: p.StartHz})
	if p.Constant > 0 {
		out = append(out, Phase{Name: "constant", Steps: sign * p.Constant, FreqHz: p.TargetHz})
	}
	if p.Decel > 0 {
		out = append(out, Phase{Name: "decelerate", Steps: sign * p.Decel, FreqHz: p.StartHz})
	}
	return out
}
