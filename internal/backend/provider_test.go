package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samihalawa/gemini-image-video-mcp/internal/config"
)

func TestNewBackend_SelectsConfiguredBackend(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.APIKey = "test-key"

	cfg.Backend = config.BackendGemini
	b, err := NewBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &GeminiBackend{}, b)
	assert.Equal(t, "gemini", b.Name())

	cfg.Backend = config.BackendOpenAI
	b, err = NewBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIBackend{}, b)
	assert.Equal(t, "openai", b.Name())

	cfg.Backend = config.BackendMock
	b, err = NewBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &MockBackend{}, b)
	assert.Equal(t, "mock", b.Name())
}

func TestNewBackend_UnknownBackend(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Backend = config.BackendKind("dalle")

	_, err := NewBackend(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend: dalle")
	assert.Contains(t, err.Error(), "supported:")
}

func TestIsValidKind(t *testing.T) {
	for kind := range ValidKinds() {
		assert.True(t, IsValidKind(kind))
	}
	assert.False(t, IsValidKind(Kind("hologram")))
}
