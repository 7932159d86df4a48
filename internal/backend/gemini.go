package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/samihalawa/gemini-image-video-mcp/internal/config"
	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiAPIKeyHeader   = "x-goog-api-key"
	retryBaseDelay       = 500 * time.Millisecond
	retryMaxDelay        = 8 * time.Second
	// errorDetailLimit bounds how much of an error response body is kept
	// around for logging
	errorDetailLimit = 512
)

// GeminiBackend talks to the Google Generative Language API: Imagen models
// via :predict, Veo models via :predictLongRunning plus operation polling,
// and Gemini models via :generateContent.
type GeminiBackend struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	clock        clockwork.Clock
	attempts     uint
	pollInterval time.Duration
	callTimeout  time.Duration
}

// NewGeminiBackend creates a Gemini backend from the configuration.
func NewGeminiBackend(cfg *config.Config) (*GeminiBackend, error) {
	return NewGeminiBackendWithClock(cfg, clockwork.NewRealClock())
}

// NewGeminiBackendWithClock creates a Gemini backend with an injected clock,
// which tests use to drive the video poll loop deterministically.
func NewGeminiBackendWithClock(cfg *config.Config, clock clockwork.Clock) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini backend requires an API key: set GEMINI_API_KEY or api_key in the config")
	}

	baseURL := defaultGeminiBaseURL
	if cfg.BaseURL != "" {
		baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &GeminiBackend{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: cfg.CallTimeout(),
		},
		clock:        clock,
		attempts:     uint(cfg.RetryAttempts),
		pollInterval: cfg.PollTickInterval(),
		callTimeout:  cfg.CallTimeout(),
	}, nil
}

// Name returns the backend name.
func (g *GeminiBackend) Name() string {
	return "gemini"
}

// Generate executes one generation or analysis request against the API.
func (g *GeminiBackend) Generate(ctx context.Context, req Request) (*Artifact, error) {
	start := g.clock.Now()
	artifact, err := g.generate(ctx, req)
	core.LogBackendCall(g.Name(), req.Model, g.clock.Since(start).Seconds(), err)
	return artifact, err
}

func (g *GeminiBackend) generate(ctx context.Context, req Request) (*Artifact, error) {
	switch req.Kind {
	case KindImage:
		return g.generateImage(ctx, req)
	case KindVideo:
		return g.generateVideo(ctx, req)
	case KindText, KindAnalysis:
		return g.generateContent(ctx, req)
	default:
		return nil, &Error{Provider: g.Name(), Message: fmt.Sprintf("unsupported generation kind: %s", req.Kind)}
	}
}

// generateImage calls the Imagen predict endpoint. The response carries the
// image bytes inline, so the artifact URL is a data URL.
func (g *GeminiBackend) generateImage(ctx context.Context, req Request) (*Artifact, error) {
	params := predictParameters{SampleCount: 1}
	if n := intParam(req.Params, ParamSampleCount); n > 0 {
		params.SampleCount = n
	}
	params.AspectRatio = stringParam(req.Params, ParamAspectRatio)
	params.NegativePrompt = stringParam(req.Params, ParamNegativePrompt)

	payload := predictRequest{
		Instances:  []predictInstance{{Prompt: req.Prompt}},
		Parameters: params,
	}

	var resp predictResponse
	url := fmt.Sprintf("%s/models/%s:predict", g.baseURL, req.Model)
	if err := g.postJSON(ctx, url, payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Predictions) == 0 {
		return nil, &Error{Provider: g.Name(), Message: "gemini returned no image predictions"}
	}
	if len(resp.Predictions) > 1 {
		zap.L().Debug("Multiple image predictions returned, keeping the first",
			zap.Int("count", len(resp.Predictions)))
	}

	pred := resp.Predictions[0]
	mimeType := pred.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}

	return &Artifact{
		ID:       core.NewID("img"),
		URL:      fmt.Sprintf("data:%s;base64,%s", mimeType, pred.BytesBase64Encoded),
		MIMEType: mimeType,
		Model:    req.Model,
	}, nil
}

// generateVideo starts a long-running Veo operation and polls it until the
// video is ready.
func (g *GeminiBackend) generateVideo(ctx context.Context, req Request) (*Artifact, error) {
	instance := predictInstance{Prompt: req.Prompt}
	if imageURL := stringParam(req.Params, ParamImageURL); imageURL != "" {
		instance.Image = &videoSeedImage{ImageURI: imageURL}
	}

	payload := predictRequest{
		Instances: []predictInstance{instance},
		Parameters: predictParameters{
			AspectRatio:     stringParam(req.Params, ParamAspectRatio),
			DurationSeconds: intParam(req.Params, ParamDurationSeconds),
		},
	}

	var handle operationHandle
	url := fmt.Sprintf("%s/models/%s:predictLongRunning", g.baseURL, req.Model)
	if err := g.postJSON(ctx, url, payload, &handle); err != nil {
		return nil, fmt.Errorf("starting video generation: %w", err)
	}
	if handle.Name == "" {
		return nil, &Error{Provider: g.Name(), Message: "gemini did not return a long-running operation name"}
	}

	status, err := g.awaitOperation(ctx, handle.Name)
	if err != nil {
		return nil, err
	}

	uri := status.videoURI()
	if uri == "" {
		return nil, &Error{Provider: g.Name(), Message: "video operation finished without a video URI"}
	}

	return &Artifact{
		ID:       core.NewID("vid"),
		URL:      uri,
		MIMEType: "video/mp4",
		Model:    req.Model,
	}, nil
}

// awaitOperation polls a long-running operation until it reports done. The
// poll loop is bounded by the configured call timeout and by the context.
func (g *GeminiBackend) awaitOperation(ctx context.Context, name string) (*operationStatus, error) {
	deadline := g.clock.Now().Add(g.callTimeout)
	ticker := g.clock.NewTicker(g.pollInterval)
	defer ticker.Stop()

	url := fmt.Sprintf("%s/%s", g.baseURL, strings.TrimPrefix(name, "/"))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.Chan():
			var status operationStatus
			if err := g.getJSON(ctx, url, &status); err != nil {
				return nil, err
			}
			if status.Done {
				if status.Error != nil {
					message := status.Error.Message
					if message == "" {
						message = "video generation failed"
					}
					return nil, &Error{
						Provider: g.Name(),
						Message:  message,
						Code:     status.Error.Status,
					}
				}
				return &status, nil
			}
			zap.L().Debug("Video operation still running", zap.String("operation", name))
			if g.clock.Now().After(deadline) {
				return nil, &Error{
					Provider: g.Name(),
					Message:  fmt.Sprintf("timed out waiting for video generation after %s", g.callTimeout),
				}
			}
		}
	}
}

// generateContent calls the generateContent endpoint for text and analysis
// requests. Analysis requests attach the referenced media as a fileData part
// ahead of the question.
func (g *GeminiBackend) generateContent(ctx context.Context, req Request) (*Artifact, error) {
	var parts []contentPart
	if req.Kind == KindAnalysis {
		mediaURL := stringParam(req.Params, ParamMediaURL)
		if mediaURL == "" {
			return nil, &Error{Provider: g.Name(), Message: "analysis requires a media_url parameter"}
		}
		parts = append(parts, contentPart{FileData: &fileData{FileURI: mediaURL, MimeType: mimeTypeForURL(mediaURL)}})
	}
	parts = append(parts, contentPart{Text: req.Prompt})

	payload := generateContentRequest{
		Contents: []content{{Parts: parts}},
	}
	if sys := stringParam(req.Params, ParamSystemInstruction); sys != "" {
		payload.SystemInstruction = &content{Parts: []contentPart{{Text: sys}}}
	}
	if temp, ok := floatParam(req.Params, ParamTemperature); ok {
		payload.GenerationConfig = &generationConfig{Temperature: &temp}
	}

	var resp generateContentResponse
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, req.Model)
	if err := g.postJSON(ctx, url, payload, &resp); err != nil {
		return nil, err
	}

	text := resp.text()
	if text == "" {
		return nil, &Error{Provider: g.Name(), Message: "gemini returned no text candidates"}
	}

	prefix := "txt"
	if req.Kind == KindAnalysis {
		prefix = "ana"
	}
	return &Artifact{ID: core.NewID(prefix), Text: text, Model: req.Model}, nil
}

// HealthCheck lists models to verify the endpoint is reachable and the API
// key is accepted.
func (g *GeminiBackend) HealthCheck(ctx context.Context) error {
	var listing modelListing
	if err := g.getJSON(ctx, fmt.Sprintf("%s/models", g.baseURL), &listing); err != nil {
		return err
	}
	if len(listing.Models) == 0 {
		return &Error{Provider: g.Name(), Message: "gemini endpoint returned no models"}
	}
	return nil
}

func (g *GeminiBackend) postJSON(ctx context.Context, url string, payload, out any) error {
	return g.doJSON(ctx, http.MethodPost, url, payload, out)
}

func (g *GeminiBackend) getJSON(ctx context.Context, url string, out any) error {
	return g.doJSON(ctx, http.MethodGet, url, nil, out)
}

// doJSON performs one API call with retries on transient failures. Connect
// errors and 408/429/5xx answers are retried; every other failure aborts
// immediately.
func (g *GeminiBackend) doJSON(ctx context.Context, method, url string, payload, out any) error {
	body, err := retry.DoWithData(
		func() ([]byte, error) {
			return g.roundTrip(ctx, method, url, payload)
		},
		retry.Context(ctx),
		retry.Attempts(g.attempts),
		retry.Delay(retryBaseDelay),
		retry.MaxDelay(retryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			zap.L().Warn("Gemini request failed, retrying",
				zap.Uint("attempt", attempt+1),
				zap.String("url", url),
				zap.Error(err))
		}),
	)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (g *GeminiBackend) roundTrip(ctx context.Context, method, url string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, retry.Unrecoverable(fmt.Errorf("failed to marshal request: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(geminiAPIKeyHeader, g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		// Transport failures (refused, reset, DNS) are worth another attempt.
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer core.LogDeferredError(resp.Body.Close)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := g.apiError(resp.StatusCode, body)
		if retryableStatus(resp.StatusCode) {
			return nil, apiErr
		}
		return nil, retry.Unrecoverable(apiErr)
	}
	return body, nil
}

// retryableStatus reports whether an HTTP status is worth another attempt.
func retryableStatus(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500
}

// apiError maps a non-200 answer to an Error, reading the Google error body
// {"error": {"code", "message", "status"}} when present.
func (g *GeminiBackend) apiError(status int, body []byte) *Error {
	var wrapper googleErrorResponse
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Message != "" {
		return &Error{
			Provider:   g.Name(),
			Message:    wrapper.Error.Message,
			Code:       wrapper.Error.Status,
			StatusCode: status,
			Details:    core.Truncate(string(body), errorDetailLimit),
		}
	}
	return &Error{
		Provider:   g.Name(),
		Message:    fmt.Sprintf("gemini API error: %d - %s", status, core.Truncate(string(body), errorDetailLimit)),
		StatusCode: status,
	}
}

// mimeTypeForURL guesses a media MIME type from the URL's file extension.
func mimeTypeForURL(rawURL string) string {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	switch strings.ToLower(path.Ext(trimmed)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Interface guard for GeminiBackend
var _ Backend = &GeminiBackend{}

// Gemini wire types
type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string          `json:"prompt"`
	Image  *videoSeedImage `json:"image,omitempty"`
}

type videoSeedImage struct {
	ImageURI string `json:"imageUri,omitempty"`
}

type predictParameters struct {
	SampleCount     int    `json:"sampleCount,omitempty"`
	AspectRatio     string `json:"aspectRatio,omitempty"`
	NegativePrompt  string `json:"negativePrompt,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type predictResponse struct {
	Predictions []prediction `json:"predictions"`
}

type prediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type operationHandle struct {
	Name string `json:"name"`
}

type operationStatus struct {
	Name     string            `json:"name"`
	Done     bool              `json:"done"`
	Error    *operationError   `json:"error,omitempty"`
	Response operationResponse `json:"response"`
}

// videoURI returns the first generated sample's URI, or "" when the
// operation response carries none.
func (s *operationStatus) videoURI() string {
	for _, sample := range s.Response.GenerateVideoResponse.GeneratedSamples {
		if sample.Video.URI != "" {
			return sample.Video.URI
		}
	}
	return ""
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type operationResponse struct {
	GenerateVideoResponse generateVideoResponse `json:"generateVideoResponse"`
}

type generateVideoResponse struct {
	GeneratedSamples []generatedSample `json:"generatedSamples"`
}

type generatedSample struct {
	Video videoResult `json:"video"`
}

type videoResult struct {
	URI string `json:"uri"`
}

type generateContentRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []contentPart `json:"parts"`
	Role  string        `json:"role,omitempty"`
}

type contentPart struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"fileData,omitempty"`
}

type fileData struct {
	FileURI  string `json:"fileUri"`
	MimeType string `json:"mimeType,omitempty"`
}

type generationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

// text concatenates the text parts of the first candidate.
func (r *generateContentResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

type candidate struct {
	Content content `json:"content"`
}

type googleErrorResponse struct {
	Error googleError `json:"error"`
}

type googleError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type modelListing struct {
	Models []modelEntry `json:"models"`
}

type modelEntry struct {
	Name string `json:"name"`
}
