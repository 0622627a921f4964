// Package motion sequences trapezoidal moves as a series of bounded moves on
// a step generator, polling progress between phases.
package motion

import (
	"context"
	"time"

	"stepdrive-go/errcode"
	"stepdrive-go/x/mathx"
	"stepdrive-go/x/ramp"
	"stepdrive-go/x/timex"
)

// Stepper is the part of a step generator the sequencer drives.
// If it also has Err() error, a latched fault aborts the current wait.
type Stepper interface {
	MoveTo(steps int64, microsteps int, freqHz uint32) error
	Progress() int64
	Stop()
}

type faulter interface{ Err() error }

type Config struct {
	// Poll is the sleep between progress reads. Default 5 ms.
	Poll time.Duration
	// Slack is how long progress may stand still, on top of two step periods,
	// before a phase counts as stalled. Default 250 ms.
	Slack time.Duration
	// Notice receives phase-level diagnostics. Default prints a warning.
	Notice func(string)
}

// Report describes what a Move did.
type Report struct {
	Profile   ramp.Profile
	Completed int64 // signed steps known to have been taken
	Recovered bool  // a recovery move finished the displacement
	Cause     error // the phase error that triggered recovery
}

type Sequencer struct {
	s      Stepper
	poll   time.Duration
	slack  time.Duration
	notice func(string)
}

func New(s Stepper, cfg Config) *Sequencer {
	q := &Sequencer{s: s, poll: cfg.Poll, slack: cfg.Slack, notice: cfg.Notice}
	if q.poll <= 0 {
		q.poll = 5 * time.Millisecond
	}
	if q.slack <= 0 {
		q.slack = 250 * time.Millisecond
	}
	if q.notice == nil {
		q.notice = func(s string) { println("Warn:", s) }
	}
	return q
}

// Move runs total steps through the accelerate, constant and decelerate
// phases. If a phase fails, the unmet displacement is covered by a single
// move at half speed and the Report says so. Cancelling ctx stops the motor
// and returns ctx.Err() without recovery.
func (q *Sequencer) Move(ctx context.Context, total int64, microsteps int, speedHz uint32) (Report, error) {
	rep := Report{Profile: ramp.Trapezoid(total, microsteps, speedHz)}
	if speedHz == 0 {
		return rep, errcode.Wrap(errcode.InvalidParams, "motion.Move", nil)
	}
	for _, ph := range rep.Profile.Phases() {
		moved, err := q.run(ctx, ph.Steps, microsteps, ph.FreqHz)
		rep.Completed += moved
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		q.notice("motion: " + ph.Name + " phase failed: " + err.Error())
		return q.recover(ctx, rep, total, microsteps, speedHz, err)
	}
	return rep, nil
}

func (q *Sequencer) recover(ctx context.Context, rep Report, total int64, microsteps int, speedHz uint32, cause error) (Report, error) {
	rep.Recovered, rep.Cause = true, cause
	remaining := total - rep.Completed
	if remaining == 0 {
		return rep, nil
	}
	moved, err := q.run(ctx, remaining, microsteps, mathx.Max(speedHz/2, 1))
	rep.Completed += moved
	if err != nil {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		return rep, &errcode.E{C: errcode.Of(err), Op: "motion.recover", Msg: "recovery move failed", Err: err}
	}
	return rep, nil
}

// run issues one bounded move and polls it to completion. The move counts as
// stalled only when progress stops changing. moved is the signed step count
// the move achieved, 0 if it never started.
func (q *Sequencer) run(ctx context.Context, steps int64, microsteps int, freqHz uint32) (moved int64, err error) {
	if err := q.s.MoveTo(steps, microsteps, freqHz); err != nil {
		return 0, err
	}
	stallAfter := q.slack + 2*timex.PeriodFromHz(freqHz)
	last, lastChange := q.s.Progress(), time.Now()
	tick := time.NewTicker(q.poll)
	defer tick.Stop()

	for {
		p := q.s.Progress()
		if p == steps {
			return p, nil
		}
		if now := time.Now(); p != last {
			last, lastChange = p, now
		} else if now.Sub(lastChange) > stallAfter {
			q.s.Stop()
			return q.s.Progress(), errcode.Wrap(errcode.Timeout, "motion.wait", nil)
		}
		if f, ok := q.s.(faulter); ok {
			if err := f.Err(); err != nil {
				q.s.Stop()
				return q.s.Progress(), err
			}
		}
		select {
		case <-ctx.Done():
			q.s.Stop()
			return q.s.Progress(), ctx.Err()
		case <-tick.C:
		}
	}
}
