package formembed

import (
	"sync"
	"time"

	"finitefield.org/marketing-web/internal/clock"
)

// PollUntil evaluates check immediately and then every interval until it
// returns true or deadline has elapsed, at which point check gets one last
// chance. done receives the outcome exactly once, unless cancel is called
// first. When the first check succeeds, done runs before PollUntil returns.
func PollUntil(clk clock.Clock, check func() bool, interval, deadline time.Duration, done func(ok bool)) (cancel func()) {
	if check() {
		done(true)
		return func() {}
	}
	p := &poller{clk: clk, check: check, interval: interval, done: done}
	p.deadline = clk.Now().Add(deadline)
	p.mu.Lock()
	p.schedule()
	p.mu.Unlock()
	return p.cancel
}

type poller struct {
	clk      clock.Clock
	check    func() bool
	interval time.Duration
	deadline time.Time
	done     func(bool)

	mu        sync.Mutex
	timer     clock.Timer
	cancelled bool
	finished  bool
}

func (p *poller) schedule() {
	wait := p.interval
	if remaining := p.deadline.Sub(p.clk.Now()); remaining < wait {
		wait = remaining
	}
	p.timer = p.clk.AfterFunc(wait, p.tick)
}

func (p *poller) tick() {
	p.mu.Lock()
	if p.cancelled || p.finished {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	ok := p.check()
	expired := !p.clk.Now().Before(p.deadline)

	p.mu.Lock()
	if p.cancelled || p.finished {
		p.mu.Unlock()
		return
	}
	if !ok && !expired {
		p.schedule()
		p.mu.Unlock()
		return
	}
	p.finished = true
	p.mu.Unlock()
	p.done(ok)
}

func (p *poller) cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = true
	if p.timer != nil {
		p.timer.Stop()
	}
}
