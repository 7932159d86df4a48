package tools

import (
	"context"
	"fmt"

	"github.com/samihalawa/gemini-image-video-mcp/internal/backend"
	"github.com/samihalawa/gemini-image-video-mcp/internal/engine"
)

// analyzeArgs is the argument contract for analyze_media.
type analyzeArgs struct {
	MediaURL string `json:"media_url" validate:"required,url"`
	Question string `json:"question" validate:"omitempty,max=2000"`
	Detail   string `json:"detail" validate:"omitempty,oneof=brief detailed"`
}

func (s *Source) analyzeDefinition() *engine.OperationDefinition {
	return &engine.OperationDefinition{
		Name:        "analyze_media",
		Category:    engine.CategoryAnalysis,
		Description: "Answer a question about an image or video reachable at a URL",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"media_url": map[string]any{
					"type":        "string",
					"description": "URL of the image or video to analyze",
				},
				"question": map[string]any{
					"type":        "string",
					"description": "What to find out about the media; defaults to a general description",
				},
				"detail": map[string]any{
					"type":        "string",
					"description": "How thorough the answer should be",
					"enum":        []string{"brief", "detailed"},
				},
			},
			"required": []string{"media_url"},
		},
		NewArgs: func() any { return &analyzeArgs{} },
		Prompt: &engine.PromptSpec{
			Description: "Describe or interrogate a piece of media",
			Arguments: []engine.PromptArgument{
				{Name: "media_url", Description: "URL of the media to look at", Required: true},
				{Name: "focus", Description: "What to pay attention to"},
			},
			Render: renderAnalyzePrompt,
		},
		Execute: s.executeAnalyze,
	}
}

func renderAnalyzePrompt(args map[string]string) string {
	focus := args["focus"]
	if focus == "" {
		return fmt.Sprintf("Call the analyze_media tool on %s and summarize what it shows.", args["media_url"])
	}
	return fmt.Sprintf("Call the analyze_media tool on %s, asking specifically about %s.", args["media_url"], focus)
}

// analysisPrompt builds the question sent alongside the media, honoring the
// requested detail level.
func analysisPrompt(in *analyzeArgs) string {
	question := in.Question
	if question == "" {
		question = "Describe this media."
	}

	switch in.Detail {
	case "brief":
		return question + " Answer in two or three sentences."
	case "detailed":
		return question + " Give a thorough, structured description covering subjects, setting, style, and any visible text."
	default:
		return question
	}
}

func (s *Source) executeAnalyze(ctx context.Context, args any, report engine.ReportFunc) (string, error) {
	in, ok := args.(*analyzeArgs)
	if !ok {
		return "", fmt.Errorf("unexpected argument type %T", args)
	}

	report(fmt.Sprintf("analyzing media with %s", s.cfg.TextModel))

	artifact, err := s.backend.Generate(ctx, backend.Request{
		Kind:   backend.KindAnalysis,
		Model:  s.cfg.TextModel,
		Prompt: analysisPrompt(in),
		Params: map[string]any{backend.ParamMediaURL: in.MediaURL},
	})
	if err != nil {
		return "", err
	}

	return artifact.Text, nil
}
