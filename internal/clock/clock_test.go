package clock

import (
	"testing"
	"time"
)

func TestFakeFiresInDueOrder(t *testing.T) {
	c := NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	var order []string
	c.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	c.AfterFunc(time.Second, func() { order = append(order, "a") })
	c.AfterFunc(5*time.Second, func() { order = append(order, "c") })

	c.Advance(3 * time.Second)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected order %v", order)
	}
	if c.Pending() != 1 {
		t.Fatalf("expected one pending timer, got %d", c.Pending())
	}
}

func TestFakeRunsTimersScheduledDuringAdvance(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		c.AfterFunc(100*time.Millisecond, tick)
	}
	c.AfterFunc(100*time.Millisecond, tick)

	c.Advance(time.Second)
	if ticks != 10 {
		t.Fatalf("expected 10 ticks, got %d", ticks)
	}
	if got := c.Now(); !got.Equal(time.Unix(1, 0)) {
		t.Fatalf("unexpected now %s", got)
	}
}

func TestFakeStop(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })
	if !timer.Stop() {
		t.Fatalf("expected first stop to succeed")
	}
	if timer.Stop() {
		t.Fatalf("expected second stop to report false")
	}
	c.Advance(time.Minute)
	if fired {
		t.Fatalf("stopped timer fired")
	}
}

func TestFakeCallbackCanStopTimerDueAtSameInstant(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	fired := map[string]bool{}
	var poll Timer
	c.AfterFunc(2*time.Second, func() {
		fired["fallback"] = true
		poll.Stop()
	})
	poll = c.AfterFunc(2*time.Second, func() { fired["poll"] = true })

	c.Advance(2 * time.Second)
	if !fired["fallback"] || fired["poll"] {
		t.Fatalf("unexpected callbacks %v", fired)
	}
	if c.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", c.Pending())
	}
}
