package ai

import (
	"context"

	"github.com/statutelab/lexgraph/pkg/common"
)

// GenerateOptions holds configuration for language-model generation requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
}

// GenerateOption is a functional option for configuring generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
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
// Lower values make the output more deterministic, which is what fact
// extraction wants.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// ModelMetrics accumulates token usage and latency across model calls.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// FactAIClient is the language-model service used for extraction. The schema
// for GenerateCompletionWithFormat is derived from the out parameter's type,
// so implementations can enforce structured output where the backend supports
// it and fall back to repair-parsing where it does not.
type FactAIClient interface {
	GenerateCompletion(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (string, error)
	GenerateCompletionWithFormat(
		ctx context.Context,
		name string,
		description string,
		prompt string,
		out any,
		opts ...GenerateOption,
	) error
	Metrics() ModelMetrics
}

// FactExtractor turns one source's canonical text into structured legal facts.
// An extraction with zero facts is a valid success; failure to reach or parse
// the model is an error.
type FactExtractor interface {
	Extract(ctx context.Context, text string, src common.Source) (common.Extraction, error)
}
