package backend

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockBackend produces deterministic artifacts without any network calls.
// Tests and `--backend mock` runs use it in place of a real service.
type MockBackend struct {
	seq atomic.Int64
}

// NewMockBackend creates a new mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Name returns the backend name.
func (m *MockBackend) Name() string {
	return "mock"
}

// Generate fabricates an artifact for the request. URLs are stable per
// instance: the Nth request gets sequence number N.
func (m *MockBackend) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Prompt == "" {
		return nil, &Error{Provider: "mock", Message: "prompt must not be empty"}
	}

	n := m.seq.Add(1)
	switch req.Kind {
	case KindImage:
		return &Artifact{
			ID:       fmt.Sprintf("img_mock_%03d", n),
			URL:      fmt.Sprintf("https://media.invalid/images/%03d.png", n),
			MIMEType: "image/png",
			Model:    req.Model,
		}, nil
	case KindVideo:
		return &Artifact{
			ID:       fmt.Sprintf("vid_mock_%03d", n),
			URL:      fmt.Sprintf("https://media.invalid/videos/%03d.mp4", n),
			MIMEType: "video/mp4",
			Model:    req.Model,
		}, nil
	case KindText:
		return &Artifact{
			ID:    fmt.Sprintf("txt_mock_%03d", n),
			Text:  fmt.Sprintf("mock response to: %s", req.Prompt),
			Model: req.Model,
		}, nil
	case KindAnalysis:
		mediaURL := stringParam(req.Params, ParamMediaURL)
		return &Artifact{
			ID:    fmt.Sprintf("ana_mock_%03d", n),
			Text:  fmt.Sprintf("mock analysis of %s: %s", mediaURL, req.Prompt),
			Model: req.Model,
		}, nil
	default:
		return nil, &Error{Provider: "mock", Message: fmt.Sprintf("unsupported generation kind: %s", req.Kind)}
	}
}

// HealthCheck always reports healthy.
func (m *MockBackend) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Interface guard for MockBackend
var _ Backend = &MockBackend{}
