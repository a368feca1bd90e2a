package ai

import (
	"context"
)

// ResponseFormat selects how the model is asked to shape its output.
type ResponseFormat int

const (
	// ResponseText leaves the output unconstrained.
	ResponseText ResponseFormat = iota
	// ResponseJSONObject asks for any syntactically valid JSON object.
	ResponseJSONObject
	// ResponseJSONSchema asks for JSON matching GenerateOptions.Schema.
	ResponseJSONSchema
)

// GenerateOptions holds configuration for AI generation requests.
type GenerateOptions struct {
	Model         string         // Model identifier to use for generation
	SystemPrompts []string       // System prompts prepended to the request
	Temperature   float64        // Sampling temperature (0.0-2.0)
	MaxTokens     int            // Upper bound for generated tokens, 0 means provider default
	Format        ResponseFormat // Requested output shape
	SchemaName    string         // Name of the JSON schema (ResponseJSONSchema only)
	SchemaDesc    string         // Description of the JSON schema (ResponseJSONSchema only)
	Schema        any            // JSON schema document (ResponseJSONSchema only)
}

// ModelMetrics contains performance metrics from AI model operations.
type ModelMetrics struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	Requests       int     `json:"requests"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// GenerateOption is a functional option for configuring AI generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
// Higher values (e.g., 1.0) produce more random outputs, while lower values
// (e.g., 0.2) make outputs more focused and deterministic.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens caps the number of generated tokens.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithJSONResponse asks the model for a JSON object without enforcing a schema.
func WithJSONResponse() GenerateOption {
	return func(o *GenerateOptions) {
		o.Format = ResponseJSONObject
	}
}

// WithJSONSchema asks the model for JSON matching the schema reflected from v.
// Backends without schema support degrade to a plain JSON object request.
func WithJSONSchema(name, description string, v any) GenerateOption {
	return func(o *GenerateOptions) {
		o.Format = ResponseJSONSchema
		o.SchemaName = name
		o.SchemaDesc = description
		o.Schema = GenerateSchema(v)
	}
}

// ApplyOptions folds opts over defaults and returns the result.
func ApplyOptions(defaults GenerateOptions, opts ...GenerateOption) GenerateOptions {
	for _, o := range opts {
		o(&defaults)
	}
	return defaults
}

// Generator produces text completions.
type Generator interface {
	GenerateCompletion(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (string, error)
}

// Embedder turns each input into one vector, preserving order.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)
}

// Transcriber converts recorded speech into text. fileName carries the
// container extension the remote service uses to detect the format.
type Transcriber interface {
	GenerateAudioTranscription(
		ctx context.Context,
		audio []byte,
		fileName string,
		language string,
	) (string, error)
}

// Client is the full capability set a backend adapter provides.
// Implementations classify their failures with NewCallError so callers can
// dispatch on Classify.
type Client interface {
	Generator
	Embedder
	Transcriber

	ResetMetrics()
	GetMetrics() ModelMetrics
}
