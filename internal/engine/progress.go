package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// DefaultTickInterval is how often a progress tick is emitted while an
// operation runs, unless configured otherwise.
const DefaultTickInterval = 25 * time.Second

// statusExcerptLimit bounds how much of an operation's latest status line
// is carried in a tick message.
const statusExcerptLimit = 100

// completedProgress is the progress and total value of the terminal tick.
const completedProgress = 100

// phases cycle once per tick while an operation runs, giving the caller
// evidence of liveness even when the operation never reports status itself.
var phases = []string{"preparing", "connecting", "generating", "still processing", "finalizing"}

const (
	terminalSuccessMessage = "completed successfully"
	terminalFailureMessage = "failed"
)

// ErrTokenActive is returned by Start when the correlation token already
// has an open channel.
var ErrTokenActive = errors.New("progress token already active")

// Tick is one progress notification. Ticks are values handed to the
// notifier; nothing retains them. Total stays zero until the terminal tick.
type Tick struct {
	Token     string
	Operation string
	Sequence  int
	Progress  float64
	Total     float64
	Message   string
}

// Notifier delivers ticks to the caller. Implementations adapt whatever
// transport session the dispatch arrived on; tests use a recorder.
type Notifier interface {
	Notify(ctx context.Context, tick Tick) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, tick Tick) error

// Notify calls the underlying function.
func (f NotifierFunc) Notify(ctx context.Context, tick Tick) error {
	return f(ctx, tick)
}

// ProgressTracker starts and stops the per-invocation progress channels.
// One tracker serves the whole process; each invocation gets its own
// independent timer.
type ProgressTracker struct {
	interval time.Duration
	clock    clockwork.Clock
	active   *xsync.MapOf[string, *Channel]
	count    *xsync.Counter
}

// NewProgressTracker creates a tracker ticking at the given interval on the
// real clock. A non-positive interval falls back to DefaultTickInterval.
func NewProgressTracker(interval time.Duration) *ProgressTracker {
	return NewProgressTrackerWithClock(interval, clockwork.NewRealClock())
}

// NewProgressTrackerWithClock creates a tracker with an injected clock so
// tests can drive ticks deterministically.
func NewProgressTrackerWithClock(interval time.Duration, clock clockwork.Clock) *ProgressTracker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &ProgressTracker{
		interval: interval,
		clock:    clock,
		active:   xsync.NewMapOf[string, *Channel](),
		count:    xsync.NewCounter(),
	}
}

// Start opens a progress channel for one invocation and emits the initial
// zero tick. An empty token opens a silent channel: the sequence advances on
// schedule but nothing is transmitted. A token that already has an active
// channel is refused with ErrTokenActive, leaving the existing channel
// untouched.
func (t *ProgressTracker) Start(ctx context.Context, operation, token string, notifier Notifier) (*Channel, error) {
	ch := &Channel{
		tracker:   t,
		operation: operation,
		token:     token,
		notifier:  notifier,
		done:      make(chan struct{}),
	}

	if token != "" {
		if _, loaded := t.active.LoadOrStore(token, ch); loaded {
			return nil, ErrTokenActive
		}
	}
	t.count.Inc()

	ch.mu.Lock()
	ch.emitLocked(ctx, Tick{Sequence: 0, Progress: 0, Message: phases[0]})
	ch.mu.Unlock()

	go ch.run(ctx)
	return ch, nil
}

// ActiveCount reports how many invocations currently hold an open channel,
// silent ones included.
func (t *ProgressTracker) ActiveCount() int64 {
	return t.count.Value()
}

// IsActive reports whether token currently has an open transmitting channel.
func (t *ProgressTracker) IsActive(token string) bool {
	_, ok := t.active.Load(token)
	return ok
}

// Channel is one invocation's progress side channel. All tick emission is
// serialized under a single mutex, which is what makes Stop synchronous: a
// tick that loses the race against Stop is suppressed, never delivered.
type Channel struct {
	tracker   *ProgressTracker
	operation string
	token     string
	notifier  Notifier
	done      chan struct{}

	mu           sync.Mutex
	sequence     int
	latestStatus string
	stopped      bool
}

// SetStatus records the operation's most recent status line. The next tick
// appends its tail to the phase message.
func (c *Channel) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latestStatus = status
}

// Stop closes the channel and, when a token is present, emits exactly one
// terminal tick at full completion. No tick can be observed after Stop
// returns. Stop is idempotent.
func (c *Channel) Stop(ctx context.Context, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true
	close(c.done)

	if c.token != "" {
		c.tracker.active.Delete(c.token)
	}
	c.tracker.count.Dec()

	message := terminalSuccessMessage
	if !success {
		message = terminalFailureMessage
	}
	c.sequence++
	c.emitLocked(ctx, Tick{
		Sequence: c.sequence,
		Progress: completedProgress,
		Total:    completedProgress,
		Message:  message,
	})
}

// run drives the interval ticks until the channel is stopped.
func (c *Channel) run(ctx context.Context) {
	ticker := c.tracker.clock.NewTicker(c.tracker.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.Chan():
			c.tick(ctx)
		}
	}
}

// tick advances the sequence and emits the next phase message. A tick that
// arrives after Stop took the mutex is suppressed.
func (c *Channel) tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.sequence++

	message := phases[c.sequence%len(phases)]
	if c.latestStatus != "" {
		message = fmt.Sprintf("%s: %s", message, tailExcerpt(c.latestStatus, statusExcerptLimit))
	}
	c.emitLocked(ctx, Tick{
		Sequence: c.sequence,
		Progress: float64(c.sequence),
		Message:  message,
	})
}

// emitLocked transmits a tick on a non-silent channel. Callers must hold
// c.mu. Delivery failures are logged and dropped; progress is a side
// channel and must not disturb the invocation itself.
func (c *Channel) emitLocked(ctx context.Context, tick Tick) {
	if c.token == "" || c.notifier == nil {
		return
	}

	tick.Token = c.token
	tick.Operation = c.operation
	if err := c.notifier.Notify(ctx, tick); err != nil {
		zap.L().Debug("Progress tick not delivered",
			zap.String("operation", c.operation),
			zap.String("token", c.token),
			zap.Int("sequence", tick.Sequence),
			zap.Error(err))
	}
}

// tailExcerpt returns the last max runes of s.
func tailExcerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[len(runes)-max:])
}
