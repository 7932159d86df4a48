package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samihalawa/gemini-image-video-mcp/internal/backend"
	"github.com/samihalawa/gemini-image-video-mcp/internal/catalog"
	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
	"github.com/samihalawa/gemini-image-video-mcp/internal/engine"
)

// listArgs is the argument contract for list_media.
type listArgs struct {
	Kind  string `json:"kind" validate:"omitempty,oneof=image video all"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=50"`
}

// getArgs is the argument contract for get_media.
type getArgs struct {
	ID string `json:"id" validate:"required,min=1"`
}

func (s *Source) listDefinition() *engine.OperationDefinition {
	return &engine.OperationDefinition{
		Name:        "list_media",
		Category:    engine.CategoryMedia,
		Description: "List media generated in this session, newest first",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"kind": map[string]any{
					"type":        "string",
					"description": "Which media kind to list",
					"enum":        []string{"image", "video", "all"},
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum entries to return (1-50, default 10)",
				},
			},
		},
		NewArgs: func() any { return &listArgs{} },
		Execute: s.executeList,
	}
}

func (s *Source) getDefinition() *engine.OperationDefinition {
	return &engine.OperationDefinition{
		Name:        "get_media",
		Category:    engine.CategoryMedia,
		Description: "Fetch one generated media entry by ID, including its full URL",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": "The media entry ID, as reported at generation time",
				},
			},
			"required": []string{"id"},
		},
		NewArgs: func() any { return &getArgs{} },
		Execute: s.executeGet,
	}
}

func (s *Source) executeList(ctx context.Context, args any, report engine.ReportFunc) (string, error) {
	in, ok := args.(*listArgs)
	if !ok {
		return "", fmt.Errorf("unexpected argument type %T", args)
	}

	var kind backend.Kind
	switch in.Kind {
	case "image":
		kind = backend.KindImage
	case "video":
		kind = backend.KindVideo
	}

	limit := in.Limit
	if limit == 0 {
		limit = defaultListLimit
	}

	return listResultText(s.catalog.List(kind, limit)), nil
}

func (s *Source) executeGet(ctx context.Context, args any, report engine.ReportFunc) (string, error) {
	in, ok := args.(*getArgs)
	if !ok {
		return "", fmt.Errorf("unexpected argument type %T", args)
	}

	entry, err := s.catalog.Get(in.ID)
	if err != nil {
		return "", err
	}

	return entryText(entry), nil
}

func listResultText(entries []*catalog.Entry) string {
	if len(entries) == 0 {
		return "No media generated yet."
	}

	var b strings.Builder
	core.MustFprintf(&b, "%d media entries (newest first):\n", len(entries))
	for _, entry := range entries {
		core.MustFprintf(&b, "- %s [%s] %s (%s)\n  prompt: %s\n  url: %s\n",
			entry.ID, entry.Kind, entry.Model, entry.CreatedAt.Format(time.RFC3339),
			core.Truncate(entry.Prompt, 80), core.Truncate(entry.URL, displayURLLimit))
	}
	return b.String()
}

// entryText renders one catalog entry in full, untruncated URL included.
func entryText(entry *catalog.Entry) string {
	var b strings.Builder
	core.MustFprintf(&b, "ID: %s\nKind: %s\nModel: %s\n", entry.ID, entry.Kind, entry.Model)
	if entry.MIMEType != "" {
		core.MustFprintf(&b, "MIME type: %s\n", entry.MIMEType)
	}
	core.MustFprintf(&b, "Created: %s\nPrompt: %s\nURL: %s",
		entry.CreatedAt.Format(time.RFC3339), entry.Prompt, entry.URL)
	return b.String()
}
