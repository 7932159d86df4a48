package backend

import (
	"fmt"

	"github.com/samihalawa/gemini-image-video-mcp/internal/config"
	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
)

// NewBackend creates the generation backend selected by the configuration.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		return NewGeminiBackend(cfg)
	case config.BackendOpenAI:
		return NewOpenAIBackend(cfg)
	case config.BackendMock:
		return NewMockBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (supported: %s)", cfg.Backend, core.JoinMapKeys(config.ValidBackends()))
	}
}
