package ramp

import "time"

// Step receives each intermediate level of a ramp.
type Step func(level uint16)

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// Linear walks from 'from' to 'to' in 'steps' equal increments spread over d,
// calling set for every level that changes. It runs on the caller's goroutine;
// tick owns timing and cancellation. steps==0 or d==0 snaps straight to 'to'.
// The final level is always 'to' unless tick cancels first.
func Linear(from, to uint16, d time.Duration, steps uint16, tick Tick, set Step) bool {
	if steps == 0 || d <= 0 {
		set(to)
		return true
	}
	per := d / time.Duration(steps)
	if per <= 0 {
		per = time.Millisecond
	}
	delta := int32(to) - int32(from)
	st := int32(steps)
	last := int32(from)
	for i := int32(1); i < st; i++ {
		if !tick(per) {
			return false
		}
		lvl := int32(from) + delta*i/st
		if lvl != last {
			last = lvl
			set(uint16(lvl))
		}
	}
	if !tick(per) {
		return false
	}
	set(to)
	return true
}
