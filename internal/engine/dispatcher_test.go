package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Message string `json:"message" validate:"required,min=1,max=100"`
}

// echoDefinition returns a minimal operation that reports one status line
// and echoes its message back. calls counts Execute invocations when
// non-nil.
func echoDefinition(calls *atomic.Int32) *OperationDefinition {
	return &OperationDefinition{
		Name:        "echo",
		Category:    CategoryText,
		Description: "Echoes the message back",
		NewArgs:     func() any { return &echoArgs{} },
		Execute: func(_ context.Context, args any, report ReportFunc) (string, error) {
			if calls != nil {
				calls.Add(1)
			}
			message := args.(*echoArgs).Message
			report("echoing " + message)
			return "echo: " + message, nil
		},
	}
}

func failingDefinition(name string, cause error) *OperationDefinition {
	return &OperationDefinition{
		Name:        name,
		Category:    CategoryText,
		Description: "Always fails",
		Execute: func(context.Context, any, ReportFunc) (string, error) {
			return "", cause
		},
	}
}

func panickingDefinition(name string, value any) *OperationDefinition {
	return &OperationDefinition{
		Name:        name,
		Category:    CategoryText,
		Description: "Always panics",
		Execute: func(context.Context, any, ReportFunc) (string, error) {
			panic(value)
		},
	}
}

// newTestDispatcher wires a registry and a fake-clock tracker around the
// given definitions. The clock never advances unless a test drives it, so
// only the initial and terminal ticks are observable by default.
func newTestDispatcher(t *testing.T, defs ...*OperationDefinition) (*Dispatcher, *ProgressTracker, *clockwork.FakeClock) {
	t.Helper()

	registry := NewRegistry()
	for _, def := range defs {
		require.NoError(t, registry.Register(def))
	}

	clock := clockwork.NewFakeClock()
	tracker := NewProgressTrackerWithClock(time.Second, clock)
	return NewDispatcher(registry, tracker), tracker, clock
}

func TestDispatch_Success(t *testing.T) {
	dispatcher, tracker, _ := newTestDispatcher(t, echoDefinition(nil))
	recorder := &tickRecorder{}

	resp := dispatcher.Dispatch(context.Background(), "echo", map[string]any{"message": "hi"}, "tok-1", recorder)

	assert.False(t, resp.IsError)
	assert.Equal(t, "echo: hi", resp.Text)

	ticks := recorder.Ticks()
	require.Len(t, ticks, 2, "expected exactly the initial and terminal ticks")

	assert.Equal(t, 0, ticks[0].Sequence)
	assert.Equal(t, float64(0), ticks[0].Progress)
	assert.Equal(t, "preparing", ticks[0].Message)
	assert.Equal(t, "tok-1", ticks[0].Token)
	assert.Equal(t, "echo", ticks[0].Operation)

	terminal := ticks[1]
	assert.Equal(t, float64(100), terminal.Progress)
	assert.Equal(t, float64(100), terminal.Total)
	assert.Equal(t, "completed successfully", terminal.Message)

	assert.Equal(t, int64(0), tracker.ActiveCount(), "channel must be closed once dispatch settles")
}

func TestDispatch_NoToken_NoTicks(t *testing.T) {
	dispatcher, tracker, _ := newTestDispatcher(t, echoDefinition(nil))
	recorder := &tickRecorder{}

	resp := dispatcher.Dispatch(context.Background(), "echo", map[string]any{"message": "hi"}, "", recorder)

	assert.False(t, resp.IsError)
	assert.Empty(t, recorder.Ticks(), "a tokenless call transmits nothing")
	assert.Equal(t, int64(0), tracker.ActiveCount())
}

func TestDispatch_UnknownOperation(t *testing.T) {
	dispatcher, tracker, _ := newTestDispatcher(t, echoDefinition(nil))
	recorder := &tickRecorder{}

	resp := dispatcher.Dispatch(context.Background(), "missing_tool", map[string]any{}, "tok-1", recorder)

	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Text, "missing_tool")
	assert.Contains(t, resp.Text, "Error: ")
	assert.Empty(t, recorder.Ticks(), "no progress channel may be started for unknown operations")
	assert.Equal(t, int64(0), tracker.ActiveCount())
}

func TestDispatch_ValidationFailure_SkipsExecute(t *testing.T) {
	var calls atomic.Int32
	dispatcher, _, _ := newTestDispatcher(t, echoDefinition(&calls))
	recorder := &tickRecorder{}

	longMessage := make([]byte, 101)
	for i := range longMessage {
		longMessage[i] = 'x'
	}

	resp := dispatcher.Dispatch(context.Background(), "echo", map[string]any{"message": string(longMessage)}, "tok-1", recorder)

	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Text, "message")
	assert.Contains(t, resp.Text, "max")
	assert.Equal(t, int32(0), calls.Load(), "execute must not run on validation failure")
	assert.Empty(t, recorder.Ticks())
}

func TestDispatch_ValidationFailure_MissingRequired(t *testing.T) {
	var calls atomic.Int32
	dispatcher, _, _ := newTestDispatcher(t, echoDefinition(&calls))

	resp := dispatcher.Dispatch(context.Background(), "echo", map[string]any{}, "", nil)

	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Text, "message")
	assert.Contains(t, resp.Text, "required")
	assert.Equal(t, int32(0), calls.Load())
}

func TestDispatch_ExecutionError(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t, failingDefinition("boom_op", errors.New("boom")))
	recorder := &tickRecorder{}

	resp := dispatcher.Dispatch(context.Background(), "boom_op", nil, "tok-1", recorder)

	assert.True(t, resp.IsError)
	assert.Equal(t, "Error: boom", resp.Text)

	ticks := recorder.Ticks()
	require.NotEmpty(t, ticks)
	terminal := ticks[len(ticks)-1]
	assert.Equal(t, "failed", terminal.Message)
	assert.Equal(t, float64(100), terminal.Progress)
	assert.Equal(t, float64(100), terminal.Total)
}

func TestDispatch_PanicWithError(t *testing.T) {
	dispatcher, tracker, _ := newTestDispatcher(t, panickingDefinition("explode", errors.New("wrapped panic")))

	resp := dispatcher.Dispatch(context.Background(), "explode", nil, "", nil)

	assert.True(t, resp.IsError)
	assert.Equal(t, "Error: wrapped panic", resp.Text)
	assert.Equal(t, int64(0), tracker.ActiveCount(), "channel must be stopped even when execute panics")
}

func TestDispatch_PanicWithNonError(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t, panickingDefinition("explode", "chaos"))

	resp := dispatcher.Dispatch(context.Background(), "explode", nil, "", nil)

	assert.True(t, resp.IsError)
	assert.Equal(t, "Error: Unknown error occurred", resp.Text)
}

func TestDispatch_TokenReuse_CallStillSucceeds(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := &OperationDefinition{
		Name:        "slow",
		Category:    CategoryText,
		Description: "Blocks until released",
		Execute: func(context.Context, any, ReportFunc) (string, error) {
			close(started)
			<-release
			return "slow done", nil
		},
	}
	dispatcher, tracker, _ := newTestDispatcher(t, slow, echoDefinition(nil))

	first := &tickRecorder{}
	second := &tickRecorder{}

	firstDone := make(chan Response, 1)
	go func() {
		firstDone <- dispatcher.Dispatch(context.Background(), "slow", nil, "shared", first)
	}()
	<-started

	// Same token while the first call is still in flight: the call runs,
	// but its channel is silent.
	resp := dispatcher.Dispatch(context.Background(), "echo", map[string]any{"message": "hi"}, "shared", second)
	assert.False(t, resp.IsError)
	assert.Equal(t, "echo: hi", resp.Text)
	assert.Empty(t, second.Ticks(), "second channel for an active token must be silent")
	assert.True(t, tracker.IsActive("shared"), "first channel must keep the token")

	close(release)
	firstResp := <-firstDone
	assert.False(t, firstResp.IsError)
	assert.False(t, tracker.IsActive("shared"))
}

func TestDispatch_RawMapArguments(t *testing.T) {
	var got map[string]any
	raw := &OperationDefinition{
		Name:        "raw",
		Category:    CategoryMedia,
		Description: "Takes the raw argument map",
		Execute: func(_ context.Context, args any, _ ReportFunc) (string, error) {
			got = args.(map[string]any)
			return "ok", nil
		},
	}
	dispatcher, _, _ := newTestDispatcher(t, raw)

	resp := dispatcher.Dispatch(context.Background(), "raw", map[string]any{"k": "v"}, "", nil)

	assert.False(t, resp.IsError)
	assert.Equal(t, "v", got["k"])
}
