package sched

import "time"

// Clock supplies monotonic time to the scheduler. Injecting it keeps the
// control loop testable without a real-time timer.
type Clock interface {
	Now() time.Duration
}

// WallClock is a monotonic real-time clock.
type WallClock struct {
	epoch time.Time
}

// NewWallClock returns a clock measuring time since its creation.
func NewWallClock() *WallClock {
	return &WallClock{epoch: time.Now()}
}

// Now returns the elapsed monotonic time.
func (c *WallClock) Now() time.Duration {
	return time.Since(c.epoch)
}

// VirtualClock is a manually advanced clock for tests.
type VirtualClock struct {
	now time.Duration
}

// NewVirtualClock returns a virtual clock starting at zero.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Duration {
	return c.now
}

// Advance moves the virtual time forward. Negative deltas are ignored.
func (c *VirtualClock) Advance(d time.Duration) {
	if d > 0 {
		c.now += d
	}
}
