package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/samihalawa/gemini-image-video-mcp/internal/backend"
	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
	"github.com/samihalawa/gemini-image-video-mcp/internal/engine"
)

// textArgs is the argument contract for generate_text.
type textArgs struct {
	Prompt            string  `json:"prompt" validate:"required,min=1,max=8000"`
	SystemInstruction string  `json:"system_instruction" validate:"omitempty,max=2000"`
	Temperature       float64 `json:"temperature" validate:"omitempty,min=0,max=2"`
}

func (s *Source) textDefinition() *engine.OperationDefinition {
	return &engine.OperationDefinition{
		Name:        "generate_text",
		Category:    engine.CategoryText,
		Description: "Generate text from a prompt using the configured text model",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "The prompt to respond to",
				},
				"system_instruction": map[string]any{
					"type":        "string",
					"description": "Optional system instruction shaping tone and role",
				},
				"temperature": map[string]any{
					"type":        "number",
					"description": "Sampling temperature (0-2)",
				},
			},
			"required": []string{"prompt"},
		},
		NewArgs: func() any { return &textArgs{} },
		Prompt: &engine.PromptSpec{
			Description: "Draft text on a topic in a given voice",
			Arguments: []engine.PromptArgument{
				{Name: "topic", Description: "What the text should cover", Required: true},
				{Name: "voice", Description: "Tone or persona to write in"},
			},
			Render: renderTextPrompt,
		},
		Execute: s.executeText,
	}
}

func renderTextPrompt(args map[string]string) string {
	var b strings.Builder
	core.MustFprintf(&b, "Write about %s.", args["topic"])
	if voice := args["voice"]; voice != "" {
		core.MustFprintf(&b, " Use a %s voice.", voice)
	}
	b.WriteString(" Call the generate_text tool with the request as the prompt, moving any persona into system_instruction.")
	return b.String()
}

func (s *Source) executeText(ctx context.Context, args any, report engine.ReportFunc) (string, error) {
	in, ok := args.(*textArgs)
	if !ok {
		return "", fmt.Errorf("unexpected argument type %T", args)
	}

	report(fmt.Sprintf("generating text with %s", s.cfg.TextModel))

	params := map[string]any{}
	if in.SystemInstruction != "" {
		params[backend.ParamSystemInstruction] = in.SystemInstruction
	}
	if in.Temperature > 0 {
		params[backend.ParamTemperature] = in.Temperature
	}

	artifact, err := s.backend.Generate(ctx, backend.Request{
		Kind:   backend.KindText,
		Model:  s.cfg.TextModel,
		Prompt: in.Prompt,
		Params: params,
	})
	if err != nil {
		return "", err
	}

	return artifact.Text, nil
}
