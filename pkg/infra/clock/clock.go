// Package clock abstracts the time operations used by the delivery
// retry loop and the service loop so tests can run them without waiting.
package clock

import (
	"sync"
	"time"
)

// Clock is the subset of the time package the collector depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once d has elapsed. If
	// d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Instant returns an InstantClock starting at initial.
func Instant(initial time.Time) *InstantClock {
	return &InstantClock{current: initial}
}

// InstantClock fires every After immediately, advancing its notion of
// now by the requested duration and recording it. It is safe for
// concurrent use.
type InstantClock struct {
	mu      sync.Mutex
	current time.Time
	waits   []time.Duration
}

func (c *InstantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *InstantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waits = append(c.waits, d)
	if d > 0 {
		c.current = c.current.Add(d)
	}
	ch := make(chan time.Time, 1)
	ch <- c.current
	return ch
}

// Waits returns a copy of every duration passed to After, in order.
func (c *InstantClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}
