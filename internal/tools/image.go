package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/samihalawa/gemini-image-video-mcp/internal/backend"
	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
	"github.com/samihalawa/gemini-image-video-mcp/internal/engine"
)

// imageArgs is the argument contract for generate_image.
type imageArgs struct {
	Prompt         string `json:"prompt" validate:"required,min=1,max=4000"`
	AspectRatio    string `json:"aspect_ratio" validate:"omitempty,oneof=1:1 16:9 9:16 4:3 3:4"`
	Count          int    `json:"count" validate:"omitempty,min=1,max=4"`
	NegativePrompt string `json:"negative_prompt" validate:"omitempty,max=1200"`
}

func (s *Source) imageDefinition() *engine.OperationDefinition {
	return &engine.OperationDefinition{
		Name:        "generate_image",
		Category:    engine.CategoryImage,
		Description: "Generate an image from a text prompt using the configured image model",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "What the image should show, in as much detail as possible",
				},
				"aspect_ratio": map[string]any{
					"type":        "string",
					"description": "Output aspect ratio",
					"enum":        []string{"1:1", "16:9", "9:16", "4:3", "3:4"},
				},
				"count": map[string]any{
					"type":        "integer",
					"description": "How many images to sample (1-4)",
				},
				"negative_prompt": map[string]any{
					"type":        "string",
					"description": "What to keep out of the image",
				},
			},
			"required": []string{"prompt"},
		},
		NewArgs: func() any { return &imageArgs{} },
		Prompt: &engine.PromptSpec{
			Description: "Draft a detailed visual prompt and generate an image from it",
			Arguments: []engine.PromptArgument{
				{Name: "subject", Description: "What the image should show", Required: true},
				{Name: "style", Description: "Art style or mood to render it in"},
			},
			Render: renderImagePrompt,
		},
		Execute: s.executeImage,
	}
}

func renderImagePrompt(args map[string]string) string {
	var b strings.Builder
	core.MustFprintf(&b, "Create an image of %s.", args["subject"])
	if style := args["style"]; style != "" {
		core.MustFprintf(&b, " Render it in %s style.", style)
	}
	b.WriteString(" Expand this into a detailed visual description covering subject, setting, lighting, and composition, then call the generate_image tool with that description as the prompt.")
	return b.String()
}

func (s *Source) executeImage(ctx context.Context, args any, report engine.ReportFunc) (string, error) {
	in, ok := args.(*imageArgs)
	if !ok {
		return "", fmt.Errorf("unexpected argument type %T", args)
	}

	report(fmt.Sprintf("generating image with %s", s.cfg.ImageModel))

	params := map[string]any{}
	if in.AspectRatio != "" {
		params[backend.ParamAspectRatio] = in.AspectRatio
	}
	if in.Count > 0 {
		params[backend.ParamSampleCount] = in.Count
	}
	if in.NegativePrompt != "" {
		params[backend.ParamNegativePrompt] = in.NegativePrompt
	}

	artifact, err := s.backend.Generate(ctx, backend.Request{
		Kind:   backend.KindImage,
		Model:  s.cfg.ImageModel,
		Prompt: in.Prompt,
		Params: params,
	})
	if err != nil {
		return "", err
	}

	report("image ready, recording artifact")
	s.record(backend.KindImage, in.Prompt, artifact)

	return fmt.Sprintf("Image generated successfully.\nID: %s\nModel: %s\nURL: %s",
		artifact.ID, artifact.Model, displayURL(artifact)), nil
}
