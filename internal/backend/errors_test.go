package backend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samihalawa/gemini-image-video-mcp/internal/engine"
)

// Interface guard: backend errors must carry their code and status through
// the dispatcher's fault classification.
var _ engine.BackendFault = &Error{}

func TestError_ClassifiesAsBackendFault(t *testing.T) {
	cause := fmt.Errorf("calling gemini: %w", &Error{
		Provider:   "gemini",
		Message:    "quota exceeded",
		Code:       "RESOURCE_EXHAUSTED",
		StatusCode: 429,
		Details:    `{"error": {"status": "RESOURCE_EXHAUSTED"}}`,
	})

	fault := engine.Classify(cause)
	require.Equal(t, engine.FaultBackend, fault.Kind)
	assert.Equal(t, "quota exceeded", fault.Message)
	assert.Equal(t, "RESOURCE_EXHAUSTED", fault.Code)
	assert.Equal(t, 429, fault.HTTPStatus)
	assert.NotEmpty(t, fault.Details)
	assert.Equal(t, "Error: quota exceeded (RESOURCE_EXHAUSTED, http 429)", fault.Render())
}

func TestError_MessageOnlyRendering(t *testing.T) {
	err := &Error{Provider: "mock", Message: "prompt must not be empty"}
	assert.Equal(t, "prompt must not be empty", err.Error())
	assert.Empty(t, err.BackendCode())
	assert.Zero(t, err.HTTPStatus())
}
