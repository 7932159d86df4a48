// Package engine routes tool calls to registered operations. A dispatch
// resolves the operation, validates its arguments, runs execute with a
// periodic progress side channel, and always settles with a tagged text
// response; failures are classified, never raised across the boundary.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
)

// Response is the single result of a dispatch. Text carries either the
// operation's rendered output or the rendered fault.
type Response struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

// Dispatcher runs tool calls against a registry with progress reporting.
type Dispatcher struct {
	registry *Registry
	tracker  *ProgressTracker
}

// NewDispatcher creates a dispatcher over the given registry and tracker
func NewDispatcher(registry *Registry, tracker *ProgressTracker) *Dispatcher {
	return &Dispatcher{registry: registry, tracker: tracker}
}

// Dispatch runs one invocation to completion. It never panics and never
// returns an error; every failure is rendered into an error-tagged
// Response. token may be empty, in which case no ticks are transmitted.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, rawArgs map[string]any, token string, notifier Notifier) Response {
	started := time.Now()
	zap.L().Debug("Dispatch received",
		zap.String("operation", name),
		zap.Bool("has_token", token != ""))

	// Resolving. Unknown names settle before any progress channel exists.
	def, err := d.registry.Resolve(name)
	if err != nil {
		core.LogDispatch(name, time.Since(started).Seconds(), err)
		return failure(err)
	}

	// Validating. Execute is never reached with arguments that fail the
	// contract.
	args, err := def.DecodeArgs(rawArgs)
	if err != nil {
		core.LogDispatch(name, time.Since(started).Seconds(), err)
		return failure(err)
	}

	// Executing.
	channel, err := d.tracker.Start(ctx, name, token, notifier)
	if err != nil {
		// Progress is a side channel: a refused token downgrades the call
		// to a silent channel instead of failing it.
		zap.L().Warn("Progress token already active, continuing without ticks",
			zap.String("operation", name),
			zap.String("token", token))
		channel, _ = d.tracker.Start(ctx, name, "", nil)
	}

	text, err := d.execute(ctx, def, args, channel.SetStatus)
	channel.Stop(ctx, err == nil)

	core.LogDispatch(name, time.Since(started).Seconds(), err)
	if err != nil {
		return failure(err)
	}
	return Response{Text: text}
}

// execute invokes the operation with panic recovery at the boundary, so a
// misbehaving operation degrades into a classified fault.
func (d *Dispatcher) execute(ctx context.Context, def *OperationDefinition, args any, report ReportFunc) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Operation panicked",
				zap.String("operation", def.Name),
				zap.Any("panic", r))
			err = ClassifyRecovered(r)
		}
	}()

	return def.Execute(ctx, args, report)
}

// failure classifies the cause and renders it as an error response.
func failure(cause error) Response {
	return Response{Text: Classify(cause).Render(), IsError: true}
}
