package engine

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickRecorder collects delivered ticks, safe for concurrent use.
type tickRecorder struct {
	mu    sync.Mutex
	ticks []Tick
}

func (r *tickRecorder) Notify(_ context.Context, tick Tick) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, tick)
	return nil
}

func (r *tickRecorder) Ticks() []Tick {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.ticks)
}

func (r *tickRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ticks)
}

const testInterval = 25 * time.Second

// advanceOneTick moves the fake clock one interval forward and waits for
// the channel goroutine to finish processing the resulting tick.
func advanceOneTick(t *testing.T, clock *clockwork.FakeClock, recorder *tickRecorder, expected int) {
	t.Helper()

	blockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(blockCtx, 1), "ticker goroutine never parked on the clock")

	clock.Advance(testInterval)
	require.Eventually(t, func() bool { return recorder.Len() >= expected }, 2*time.Second, 5*time.Millisecond)
}

func TestProgress_PhaseCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewProgressTrackerWithClock(testInterval, clock)
	recorder := &tickRecorder{}
	ctx := context.Background()

	channel, err := tracker.Start(ctx, "generate_video", "tok-1", recorder)
	require.NoError(t, err)

	for i := 1; i <= 6; i++ {
		advanceOneTick(t, clock, recorder, i+1)
	}
	channel.Stop(ctx, true)

	ticks := recorder.Ticks()
	require.Len(t, ticks, 8)

	wantMessages := []string{
		"preparing",
		"connecting",
		"generating",
		"still processing",
		"finalizing",
		"preparing",
		"connecting",
		"completed successfully",
	}
	for i, tick := range ticks {
		assert.Equal(t, wantMessages[i], tick.Message, "tick %d", i)
		assert.Equal(t, i, tick.Sequence, "tick %d", i)
		assert.Equal(t, "generate_video", tick.Operation)
		assert.Equal(t, "tok-1", tick.Token)
	}

	// Intermediate ticks report an open-ended progress count; only the
	// terminal tick carries a total.
	assert.Equal(t, float64(3), ticks[3].Progress)
	assert.Equal(t, float64(0), ticks[3].Total)
	assert.Equal(t, float64(100), ticks[7].Progress)
	assert.Equal(t, float64(100), ticks[7].Total)
}

func TestProgress_StatusExcerpt(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewProgressTrackerWithClock(testInterval, clock)
	recorder := &tickRecorder{}
	ctx := context.Background()

	channel, err := tracker.Start(ctx, "generate_image", "tok-1", recorder)
	require.NoError(t, err)

	channel.SetStatus("rendering frame 2 of 4")
	advanceOneTick(t, clock, recorder, 2)

	long := strings.Repeat("x", 120) + "tail"
	channel.SetStatus(long)
	advanceOneTick(t, clock, recorder, 3)

	channel.Stop(ctx, true)

	ticks := recorder.Ticks()
	require.Len(t, ticks, 4)
	assert.Equal(t, "connecting: rendering frame 2 of 4", ticks[1].Message)

	wantTail := strings.Repeat("x", 96) + "tail"
	assert.Equal(t, "generating: "+wantTail, ticks[2].Message)
	assert.Len(t, wantTail, 100)
}

func TestProgress_StopSuppressesFurtherTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewProgressTrackerWithClock(testInterval, clock)
	recorder := &tickRecorder{}
	ctx := context.Background()

	channel, err := tracker.Start(ctx, "generate_image", "tok-1", recorder)
	require.NoError(t, err)

	advanceOneTick(t, clock, recorder, 2)
	channel.Stop(ctx, false)

	settled := recorder.Len()
	terminal := recorder.Ticks()[settled-1]
	assert.Equal(t, "failed", terminal.Message)
	assert.Equal(t, float64(100), terminal.Total)

	// Advancing the clock after Stop must not produce anything more.
	clock.Advance(10 * testInterval)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, recorder.Len())

	// Stop is idempotent.
	channel.Stop(ctx, true)
	assert.Equal(t, settled, recorder.Len())
	assert.Equal(t, int64(0), tracker.ActiveCount())
}

func TestChannel_TickAfterStopIsSuppressed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewProgressTrackerWithClock(testInterval, clock)
	recorder := &tickRecorder{}
	ctx := context.Background()

	channel, err := tracker.Start(ctx, "generate_image", "tok-1", recorder)
	require.NoError(t, err)
	channel.Stop(ctx, true)

	before := recorder.Len()
	// A timer firing that lost the race against Stop lands here; it must
	// be swallowed without touching the sequence or the notifier.
	channel.tick(ctx)
	assert.Equal(t, before, recorder.Len())
}

func TestTracker_TokenReuseRejected(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewProgressTrackerWithClock(testInterval, clock)
	recorder := &tickRecorder{}
	ctx := context.Background()

	first, err := tracker.Start(ctx, "generate_image", "tok-1", recorder)
	require.NoError(t, err)

	_, err = tracker.Start(ctx, "generate_video", "tok-1", recorder)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenActive))
	assert.True(t, tracker.IsActive("tok-1"), "rejection must leave the first channel untouched")

	first.Stop(ctx, true)
	assert.False(t, tracker.IsActive("tok-1"))

	// Once the first channel settles the token is free again.
	second, err := tracker.Start(ctx, "generate_video", "tok-1", recorder)
	require.NoError(t, err)
	second.Stop(ctx, true)
}

func TestTracker_SilentChannel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewProgressTrackerWithClock(testInterval, clock)
	ctx := context.Background()

	channel, err := tracker.Start(ctx, "generate_image", "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tracker.ActiveCount(), "silent channels still count as active")

	blockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(blockCtx, 1))
	clock.Advance(testInterval)
	time.Sleep(20 * time.Millisecond)

	channel.Stop(ctx, true)
	assert.Equal(t, int64(0), tracker.ActiveCount())
}

func TestTracker_IndependentChannels(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewProgressTrackerWithClock(testInterval, clock)
	ctx := context.Background()

	firstRecorder := &tickRecorder{}
	secondRecorder := &tickRecorder{}

	first, err := tracker.Start(ctx, "generate_image", "tok-1", firstRecorder)
	require.NoError(t, err)
	second, err := tracker.Start(ctx, "generate_video", "tok-2", secondRecorder)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tracker.ActiveCount())

	// Stopping one invocation's channel must not affect the other's.
	first.Stop(ctx, true)
	assert.False(t, tracker.IsActive("tok-1"))
	assert.True(t, tracker.IsActive("tok-2"))

	second.Stop(ctx, false)
	assert.Equal(t, int64(0), tracker.ActiveCount())

	assert.Equal(t, "completed successfully", firstRecorder.Ticks()[firstRecorder.Len()-1].Message)
	assert.Equal(t, "failed", secondRecorder.Ticks()[secondRecorder.Len()-1].Message)
}

func TestTailExcerpt(t *testing.T) {
	assert.Equal(t, "short", tailExcerpt("short", 100))
	assert.Equal(t, "cdef", tailExcerpt("abcdef", 4))
	assert.Equal(t, "héllo", tailExcerpt("héllo", 5))
}
