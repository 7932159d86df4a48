package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/samihalawa/gemini-image-video-mcp/internal/backend"
	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
	"github.com/samihalawa/gemini-image-video-mcp/internal/engine"
)

// videoArgs is the argument contract for generate_video.
type videoArgs struct {
	Prompt          string `json:"prompt" validate:"required,min=1,max=2000"`
	AspectRatio     string `json:"aspect_ratio" validate:"omitempty,oneof=16:9 9:16"`
	DurationSeconds int    `json:"duration_seconds" validate:"omitempty,min=4,max=8"`
	ImageURL        string `json:"image_url" validate:"omitempty,url"`
}

func (s *Source) videoDefinition() *engine.OperationDefinition {
	return &engine.OperationDefinition{
		Name:        "generate_video",
		Category:    engine.CategoryVideo,
		Description: "Generate a short video clip from a text prompt, optionally seeded with an image",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "What the video should show, including motion and camera direction",
				},
				"aspect_ratio": map[string]any{
					"type":        "string",
					"description": "Output aspect ratio",
					"enum":        []string{"16:9", "9:16"},
				},
				"duration_seconds": map[string]any{
					"type":        "integer",
					"description": "Clip length in seconds (4-8)",
				},
				"image_url": map[string]any{
					"type":        "string",
					"description": "Optional image URL to animate from",
				},
			},
			"required": []string{"prompt"},
		},
		NewArgs: func() any { return &videoArgs{} },
		Prompt: &engine.PromptSpec{
			Description: "Draft a motion-aware prompt and generate a video clip from it",
			Arguments: []engine.PromptArgument{
				{Name: "scene", Description: "What happens in the clip", Required: true},
				{Name: "camera", Description: "Camera movement, e.g. slow pan or static shot"},
			},
			Render: renderVideoPrompt,
		},
		Execute: s.executeVideo,
	}
}

func renderVideoPrompt(args map[string]string) string {
	var b strings.Builder
	core.MustFprintf(&b, "Create a short video clip of %s.", args["scene"])
	if camera := args["camera"]; camera != "" {
		core.MustFprintf(&b, " Shoot it as a %s.", camera)
	}
	b.WriteString(" Describe the motion beat by beat, then call the generate_video tool with that description as the prompt.")
	return b.String()
}

func (s *Source) executeVideo(ctx context.Context, args any, report engine.ReportFunc) (string, error) {
	in, ok := args.(*videoArgs)
	if !ok {
		return "", fmt.Errorf("unexpected argument type %T", args)
	}

	report(fmt.Sprintf("rendering video with %s, this can take a few minutes", s.cfg.VideoModel))

	params := map[string]any{}
	if in.AspectRatio != "" {
		params[backend.ParamAspectRatio] = in.AspectRatio
	}
	if in.DurationSeconds > 0 {
		params[backend.ParamDurationSeconds] = in.DurationSeconds
	}
	if in.ImageURL != "" {
		params[backend.ParamImageURL] = in.ImageURL
	}

	artifact, err := s.backend.Generate(ctx, backend.Request{
		Kind:   backend.KindVideo,
		Model:  s.cfg.VideoModel,
		Prompt: in.Prompt,
		Params: params,
	})
	if err != nil {
		return "", err
	}

	report("video ready, recording artifact")
	s.record(backend.KindVideo, in.Prompt, artifact)

	return fmt.Sprintf("Video generated successfully.\nID: %s\nModel: %s\nURL: %s",
		artifact.ID, artifact.Model, displayURL(artifact)), nil
}
