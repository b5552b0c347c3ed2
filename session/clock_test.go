package session_test

import (
	"sort"
	"sync"
	"time"

	"github.com/skyward-amo/portal-shell/session"
)

// fakeClock drives the idle monitor deterministically. Advance moves time
// forward, firing due timers in chronological order; callbacks may schedule
// new timers, which are picked up within the same Advance when they fall due.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	fn      func()
	seq     int
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) session.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), fn: fn, seq: len(c.timers)}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	target := c.Now().Add(d)
	for {
		timer := c.nextDue(target)
		if timer == nil {
			break
		}
		timer.fn()
	}
	c.mu.Lock()
	c.now = target
	c.mu.Unlock()
}

func (c *fakeClock) nextDue(target time.Time) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := make([]*fakeTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.when.After(target) {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].when.Equal(pending[j].when) {
			return pending[i].seq < pending[j].seq
		}
		return pending[i].when.Before(pending[j].when)
	})
	due := pending[0]
	due.fired = true
	if due.when.After(c.now) {
		c.now = due.when
	}
	return due
}
