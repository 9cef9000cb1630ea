package limiter

import (
	"runtime"
	"time"
)

// CPULimiter paces sweep work with a duty-cycle throttle: for a budget of
// maxPercent, every work slice earns a proportional sleep.
type CPULimiter struct {
	maxPercent float64
	lastSleep  time.Time
}

// NewCPULimiter creates a limiter with the given CPU percentage budget.
// Values outside (0, 100) disable throttling.
func NewCPULimiter(maxPercent float64) *CPULimiter {
	return &CPULimiter{
		maxPercent: maxPercent,
		lastSleep:  time.Now(),
	}
}

// Throttle sleeps long enough to keep the caller near its CPU budget.
// Call it between units of work, not inside tight loops. Hard guarantees
// need cgroups or systemd resource limits, not this.
func (l *CPULimiter) Throttle() {
	if l.maxPercent <= 0 || l.maxPercent >= 100 {
		return
	}

	const workSlice = 10 * time.Millisecond
	sleepTime := time.Duration(float64(workSlice) * (100.0 - l.maxPercent) / l.maxPercent)

	if time.Since(l.lastSleep) > workSlice {
		time.Sleep(sleepTime)
		l.lastSleep = time.Now()
	}

	runtime.Gosched()
}

// SetMaxPercent updates the budget. Not safe to call concurrently with Throttle.
func (l *CPULimiter) SetMaxPercent(maxPercent float64) {
	l.maxPercent = maxPercent
}
