package timex

import "time"

// SpinBelow is the threshold under which Delay busy-waits instead of sleeping;
// scheduler sleeps are far coarser than the microsecond holds a step pulse needs.
const SpinBelow = 100 * time.Microsecond

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// PeriodFromHz returns the tick period for a requested frequency.
// freqHz==0 is coerced to 1; the result is never below 1 ns.
func PeriodFromHz(freqHz uint32) time.Duration {
	if freqHz == 0 {
		freqHz = 1
	}
	if p := time.Second / time.Duration(freqHz); p > 0 {
		return p
	}
	return time.Nanosecond
}

// Delay waits at least d. Short waits spin on the monotonic clock.
func Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	if d >= SpinBelow {
		time.Sleep(d)
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}

// Sleep waits for d or until done is closed; it reports whether the full wait elapsed.
func Sleep(done <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return false
	case <-t.C:
		return true
	}
}
