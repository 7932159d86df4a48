// Package tools defines the operations the server registers: image, video,
// text, and analysis generation backed by the configured backend, plus
// catalog operations over the media generated so far.
package tools

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/samihalawa/gemini-image-video-mcp/internal/backend"
	"github.com/samihalawa/gemini-image-video-mcp/internal/catalog"
	"github.com/samihalawa/gemini-image-video-mcp/internal/config"
	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
	"github.com/samihalawa/gemini-image-video-mcp/internal/engine"
)

const (
	defaultListLimit = 10
	// displayURLLimit keeps result text readable when a backend returns
	// inline data URLs
	displayURLLimit = 160
)

// Source binds the operation definitions to their collaborators: the
// generation backend, the media catalog, and the configured models.
type Source struct {
	cfg     *config.Config
	backend backend.Backend
	catalog *catalog.Catalog
}

// NewSource creates the operation source.
func NewSource(cfg *config.Config, b backend.Backend, c *catalog.Catalog) *Source {
	return &Source{cfg: cfg, backend: b, catalog: c}
}

// Definitions returns every operation in registration order.
func (s *Source) Definitions() []*engine.OperationDefinition {
	return []*engine.OperationDefinition{
		s.imageDefinition(),
		s.videoDefinition(),
		s.textDefinition(),
		s.analyzeDefinition(),
		s.listDefinition(),
		s.getDefinition(),
	}
}

// Interface guard for Source
var _ engine.Source = &Source{}

// record adds a media artifact to the catalog. Text artifacts carry no URL
// and are not recorded.
func (s *Source) record(kind backend.Kind, prompt string, artifact *backend.Artifact) {
	if artifact.URL == "" {
		return
	}

	err := s.catalog.Add(catalog.Entry{
		ID:       artifact.ID,
		Kind:     kind,
		Prompt:   prompt,
		Model:    artifact.Model,
		URL:      artifact.URL,
		MIMEType: artifact.MIMEType,
	})
	if err != nil {
		zap.L().Warn("Failed to record media entry",
			zap.String("id", artifact.ID),
			zap.Error(err))
	}
}

// displayURL shortens inline data URLs for result text; ordinary URLs pass
// through whole.
func displayURL(artifact *backend.Artifact) string {
	if len(artifact.URL) <= displayURLLimit {
		return artifact.URL
	}
	return fmt.Sprintf("%s (inline data; fetch the full entry with get_media id=%s)",
		core.Truncate(artifact.URL, displayURLLimit), artifact.ID)
}
