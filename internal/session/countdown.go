package session

import (
	"fmt"
	"time"
)

// Countdown is a single deadline driven by a one-second tick.
type Countdown struct {
	deadline time.Time
	running  bool
}

// Start arms the countdown for total starting at now, replacing any
// previous deadline.
func (c *Countdown) Start(total time.Duration, now time.Time) {
	c.deadline = now.Add(total)
	c.running = true
}

// Stop disarms the countdown. Stopping a stopped countdown is a no-op.
func (c *Countdown) Stop() {
	c.running = false
}

// Running reports whether a deadline is armed.
func (c *Countdown) Running() bool {
	return c.running
}

// Remaining is the time left, rounded up to whole seconds.
func (c *Countdown) Remaining(now time.Time) time.Duration {
	if !c.running {
		return 0
	}
	d := c.deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return ((d + time.Second - 1) / time.Second) * time.Second
}

// Expired reports whether an armed countdown has reached zero.
func (c *Countdown) Expired(now time.Time) bool {
	return c.running && !now.Before(c.deadline)
}

// FormatClock renders d as m:ss, or h:mm:ss from one hour.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", total/60, s)
}
