// Package backend provides the generation backends the media operations
// delegate to: Gemini over HTTP, an OpenAI-compatible adapter, and an
// in-process mock for tests and offline runs.
package backend

import (
	"context"
)

// Kind identifies what a generation request produces.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindText     Kind = "text"
	KindAnalysis Kind = "analysis"
)

func (k Kind) String() string {
	return string(k)
}

// ValidKinds returns the set of supported generation kinds.
func ValidKinds() map[Kind]struct{} {
	return map[Kind]struct{}{
		KindImage:    {},
		KindVideo:    {},
		KindText:     {},
		KindAnalysis: {},
	}
}

// IsValidKind reports whether the given kind is supported.
func IsValidKind(kind Kind) bool {
	_, ok := ValidKinds()[kind]
	return ok
}

// Parameter keys recognized in Request.Params. Operations set these; each
// backend reads the ones its API supports and ignores the rest.
const (
	ParamAspectRatio       = "aspect_ratio"
	ParamSampleCount       = "sample_count"
	ParamNegativePrompt    = "negative_prompt"
	ParamDurationSeconds   = "duration_seconds"
	ParamImageURL          = "image_url"
	ParamSystemInstruction = "system_instruction"
	ParamTemperature       = "temperature"
	ParamMediaURL          = "media_url"
)

// Request describes one generation or analysis call.
type Request struct {
	Kind   Kind           `json:"kind"`
	Model  string         `json:"model"`
	Prompt string         `json:"prompt"`
	Params map[string]any `json:"params,omitempty"`
}

// Artifact is the result of a generation call. Media kinds fill URL and
// MIMEType; text kinds fill Text.
type Artifact struct {
	ID       string `json:"id"`
	URL      string `json:"url,omitempty"`
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Model    string `json:"model"`
}

// Backend is the interface every generation backend implements.
type Backend interface {
	// Name returns the backend name (e.g., "gemini", "openai", "mock")
	Name() string

	// Generate executes one generation or analysis request and returns the
	// resulting artifact. Failures carry backend error details where the
	// upstream service supplied them.
	Generate(ctx context.Context, req Request) (*Artifact, error)

	// HealthCheck verifies the backend is reachable and usable. A nil return
	// means healthy; the error explains what is wrong otherwise.
	HealthCheck(ctx context.Context) error
}

// stringParam reads a string parameter, returning "" when absent or not a
// string.
func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// intParam reads an integer parameter. JSON decoding hands numbers over as
// float64, so both forms are accepted.
func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// floatParam reads a float parameter and reports whether it was present.
func floatParam(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
