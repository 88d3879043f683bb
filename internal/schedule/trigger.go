package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Logger is the logging interface used by triggers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures a Trigger.
type Option func(*Trigger)

// WithClock sets the clock wake-ups are scheduled on.
func WithClock(c clockwork.Clock) Option {
	return func(t *Trigger) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithLocation sets the zone the spec's time of day is read in.
func WithLocation(loc *time.Location) Option {
	return func(t *Trigger) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithLogger sets the trigger's logger.
func WithLogger(l Logger) Option {
	return func(t *Trigger) {
		if l != nil {
			t.logger = l
		}
	}
}

// Trigger calls fire at every occurrence of a Spec.
//
// Each wake-up re-checks ShouldFire before firing and always schedules the
// next occurrence after the current time. If no next occurrence can be
// computed the trigger logs the error and goes silent.
type Trigger struct {
	id     string
	spec   Spec
	fire   func()
	clock  clockwork.Clock
	loc    *time.Location
	logger Logger

	mu      sync.Mutex
	timer   clockwork.Timer
	next    time.Time
	stopped bool
}

// NewTrigger creates a stopped trigger. id names it in logs.
func NewTrigger(id string, spec Spec, fire func(), opts ...Option) *Trigger {
	t := &Trigger{
		id:     id,
		spec:   spec,
		fire:   fire,
		clock:  clockwork.NewRealClock(),
		loc:    time.Local,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Spec returns the trigger's schedule.
func (t *Trigger) Spec() Spec {
	return t.spec
}

// Start schedules the first wake-up. An error means the trigger is silent.
func (t *Trigger) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil
	}
	return t.scheduleLocked(t.clock.Now())
}

// scheduleLocked arms the timer for the first occurrence after from.
func (t *Trigger) scheduleLocked(from time.Time) error {
	next, err := t.spec.Next(from.In(t.loc))
	if err != nil {
		t.next = time.Time{}
		t.logger.Error("time trigger cannot compute next run, trigger is silent",
			"trigger_id", t.id, "schedule", t.spec.String(), "error", err)
		return fmt.Errorf("scheduling %s: %w", t.id, err)
	}

	t.next = next
	t.timer = t.clock.AfterFunc(next.Sub(t.clock.Now()), t.wake)
	t.logger.Debug("time trigger scheduled", "trigger_id", t.id, "next_run", next)
	return nil
}

func (t *Trigger) wake() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	target := t.next
	t.mu.Unlock()

	now := t.clock.Now().In(t.loc)
	if t.spec.ShouldFire(now) {
		t.logger.Info("time trigger fired", "trigger_id", t.id, "schedule", t.spec.String())
		t.safeFire()
	} else {
		t.logger.Debug("time trigger woke outside its window", "trigger_id", t.id, "now", now)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	// Never re-arm for the occurrence that just woke us.
	from := now
	if target.After(from) {
		from = target
	}
	_ = t.scheduleLocked(from)
}

// safeFire runs fire and logs a panic instead of letting it end the
// timer goroutine before the next occurrence is armed.
func (t *Trigger) safeFire() {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("time trigger callback panicked", "trigger_id", t.id, "panic", r)
		}
	}()
	t.fire()
}

// Stop cancels the pending wake-up. Safe to call more than once.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.next = time.Time{}
}

// Next returns the scheduled wake-up, zero when stopped or silent.
func (t *Trigger) Next() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next
}
