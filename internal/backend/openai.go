package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/samihalawa/gemini-image-video-mcp/internal/config"
	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
)

// OpenAIBackend adapts an OpenAI-compatible API: images via the images
// endpoint, text via chat completions, analysis via vision content parts.
// Video generation is not part of the OpenAI surface and reports a typed
// UNSUPPORTED error.
type OpenAIBackend struct {
	client *openai.Client
}

// NewOpenAIBackend creates an OpenAI backend from the configuration. The
// API key falls back to OPENAI_API_KEY when the config carries none, and
// base_url points the client at any OpenAI-compatible endpoint.
func NewOpenAIBackend(cfg *config.Config) (*OpenAIBackend, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = core.GetEnv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai backend requires an API key: set OPENAI_API_KEY or api_key in the config")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.CallTimeout(),
	}

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

// Name returns the backend name.
func (o *OpenAIBackend) Name() string {
	return "openai"
}

// Generate executes one generation or analysis request against the API.
func (o *OpenAIBackend) Generate(ctx context.Context, req Request) (*Artifact, error) {
	start := time.Now()
	artifact, err := o.generate(ctx, req)
	core.LogBackendCall(o.Name(), req.Model, time.Since(start).Seconds(), err)
	return artifact, err
}

func (o *OpenAIBackend) generate(ctx context.Context, req Request) (*Artifact, error) {
	switch req.Kind {
	case KindImage:
		return o.generateImage(ctx, req)
	case KindVideo:
		return nil, &Error{
			Provider: o.Name(),
			Message:  "video generation is not supported by the openai backend",
			Code:     "UNSUPPORTED",
		}
	case KindText:
		return o.generateText(ctx, req)
	case KindAnalysis:
		return o.analyzeMedia(ctx, req)
	default:
		return nil, &Error{Provider: o.Name(), Message: fmt.Sprintf("unsupported generation kind: %s", req.Kind)}
	}
}

func (o *OpenAIBackend) generateImage(ctx context.Context, req Request) (*Artifact, error) {
	imageReq := openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          req.Model,
		Size:           imageSizeForAspect(stringParam(req.Params, ParamAspectRatio)),
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
	}
	if n := intParam(req.Params, ParamSampleCount); n > 0 {
		imageReq.N = n
	}

	resp, err := o.client.CreateImage(ctx, imageReq)
	if err != nil {
		return nil, o.wrapError(err)
	}
	if len(resp.Data) == 0 {
		return nil, &Error{Provider: o.Name(), Message: "openai returned no image data"}
	}

	return &Artifact{
		ID:       core.NewID("img"),
		URL:      resp.Data[0].URL,
		MIMEType: "image/png",
		Model:    req.Model,
	}, nil
}

func (o *OpenAIBackend) generateText(ctx context.Context, req Request) (*Artifact, error) {
	var messages []openai.ChatCompletionMessage
	if sys := stringParam(req.Params, ParamSystemInstruction); sys != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: sys,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})
	return o.complete(ctx, req, messages, "txt")
}

func (o *OpenAIBackend) analyzeMedia(ctx context.Context, req Request) (*Artifact, error) {
	mediaURL := stringParam(req.Params, ParamMediaURL)
	if mediaURL == "" {
		return nil, &Error{Provider: o.Name(), Message: "analysis requires a media_url parameter"}
	}

	messages := []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: mediaURL, Detail: openai.ImageURLDetailAuto},
			},
			{
				Type: openai.ChatMessagePartTypeText,
				Text: req.Prompt,
			},
		},
	}}
	return o.complete(ctx, req, messages, "ana")
}

func (o *OpenAIBackend) complete(ctx context.Context, req Request, messages []openai.ChatCompletionMessage, idPrefix string) (*Artifact, error) {
	completionReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if temp, ok := floatParam(req.Params, ParamTemperature); ok {
		completionReq.Temperature = float32(temp)
	}

	resp, err := o.client.CreateChatCompletion(ctx, completionReq)
	if err != nil {
		return nil, o.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Provider: o.Name(), Message: "openai returned no choices"}
	}

	return &Artifact{
		ID:    core.NewID(idPrefix),
		Text:  resp.Choices[0].Message.Content,
		Model: req.Model,
	}, nil
}

// HealthCheck lists models to verify the endpoint is reachable and the API
// key is accepted.
func (o *OpenAIBackend) HealthCheck(ctx context.Context) error {
	if _, err := o.client.ListModels(ctx); err != nil {
		return o.wrapError(err)
	}
	return nil
}

// wrapError converts go-openai errors to backend errors, keeping the API
// error code and status when the service supplied them.
func (o *OpenAIBackend) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprintf("%v", apiErr.Code)
		}
		return &Error{
			Provider:   o.Name(),
			Message:    apiErr.Message,
			Code:       code,
			StatusCode: apiErr.HTTPStatusCode,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Provider: o.Name(), Message: reqErr.Error(), StatusCode: reqErr.HTTPStatusCode}
	}

	return &Error{Provider: o.Name(), Message: err.Error()}
}

// imageSizeForAspect maps an aspect ratio to the closest size the images
// endpoint accepts.
func imageSizeForAspect(aspect string) string {
	switch aspect {
	case "16:9", "4:3":
		return openai.CreateImageSize1792x1024
	case "9:16", "3:4":
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}

// Interface guard for OpenAIBackend
var _ Backend = &OpenAIBackend{}
