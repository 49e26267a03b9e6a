// Package cooldown implements the resend countdown shown while a
// verification code is outstanding.
//
// A Timer counts whole seconds down to zero and then marks resend as
// eligible. Only the most recent Start is live: every Start or Stop bumps a
// generation counter, and ticks belonging to an older generation are
// dropped, so a superseded goroutine can never flip eligibility.
package cooldown

import (
	"context"
	"sync"
	"time"
)

// State is a point-in-time view of a Timer.
type State struct {
	Remaining int
	Eligible  bool
	Running   bool
}

// Timer is safe for concurrent use.
type Timer struct {
	clock    Clock
	period   time.Duration
	onChange func(State)

	mu        sync.Mutex
	gen       uint64
	remaining int
	eligible  bool
	running   bool
	done      chan struct{}
}

type Option func(*Timer)

// WithClock replaces the ticker source.
func WithClock(c Clock) Option { return func(t *Timer) { t.clock = c } }

// WithPeriod changes the length of one countdown step. Defaults to a second.
func WithPeriod(d time.Duration) Option { return func(t *Timer) { t.period = d } }

// WithOnChange registers a hook called after every state change. It runs on
// the ticking goroutine (or the caller of Start) and must not block.
func WithOnChange(fn func(State)) Option { return func(t *Timer) { t.onChange = fn } }

// New returns an idle timer. An idle timer is eligible: nothing has been
// sent yet that would require waiting.
func New(opts ...Option) *Timer {
	t := &Timer{clock: RealClock, period: time.Second, eligible: true}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start begins a countdown of cooldown, rounded up to whole steps. Any
// previous countdown is disposed first. A non-positive cooldown leaves the
// timer at zero and eligible.
func (t *Timer) Start(ctx context.Context, cooldown time.Duration) {
	steps := int((cooldown + t.period - 1) / t.period)
	if cooldown <= 0 {
		steps = 0
	}

	t.mu.Lock()
	t.disposeLocked()
	t.gen++
	gen := t.gen
	t.remaining = steps
	t.eligible = steps == 0
	t.running = steps > 0
	st := t.stateLocked()

	var ticker Ticker
	var done chan struct{}
	if steps > 0 {
		ticker = t.clock.NewTicker(t.period)
		done = make(chan struct{})
		t.done = done
	}
	t.mu.Unlock()

	t.notify(st)

	if ticker != nil {
		go t.run(ctx, gen, ticker, done)
	}
}

// Stop disposes the live countdown. Remaining and Eligible keep their last
// values.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.disposeLocked()
	t.gen++
	t.running = false
	t.mu.Unlock()
}

// Reset disposes the live countdown and returns the timer to idle: zero
// remaining and eligible.
func (t *Timer) Reset() {
	t.mu.Lock()
	t.disposeLocked()
	t.gen++
	t.remaining = 0
	t.eligible = true
	t.running = false
	st := t.stateLocked()
	t.mu.Unlock()

	t.notify(st)
}

func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Timer) Eligible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.eligible
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Timer) stateLocked() State {
	return State{Remaining: t.remaining, Eligible: t.eligible, Running: t.running}
}

func (t *Timer) disposeLocked() {
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
}

func (t *Timer) notify(st State) {
	if t.onChange != nil {
		t.onChange(st)
	}
}

func (t *Timer) run(ctx context.Context, gen uint64, ticker Ticker, done <-chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			if t.gen == gen {
				t.running = false
				t.done = nil
			}
			t.mu.Unlock()
			return
		case <-done:
			return
		case <-ticker.C():
			st, alive, finished := t.tick(gen)
			if !alive {
				return
			}
			t.notify(st)
			if finished {
				return
			}
		}
	}
}

// tick applies one step if gen is still current.
func (t *Timer) tick(gen uint64) (st State, alive, finished bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.gen != gen {
		return State{}, false, false
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining == 0 {
		t.eligible = true
		t.running = false
		t.done = nil
		finished = true
	}
	return t.stateLocked(), true, finished
}
