package core

import "context"

const (
	DefaultTemperature     float32 = 0.7
	DefaultMaxOutputTokens int32   = 8192
)

// GenerateOptions tunes a single text generation.
type GenerateOptions struct {
	// Temperature is nil when unset, so that 0 can be asked for.
	Temperature     *float32
	MaxOutputTokens int32
	// JSON asks the model to answer with a JSON document only.
	JSON bool
}

// WithDefaults fills unset options.
func (o GenerateOptions) WithDefaults() GenerateOptions {
	if o.Temperature == nil {
		o = o.WithTemperature(DefaultTemperature)
	}
	if o.MaxOutputTokens == 0 {
		o.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return o
}

// WithTemperature returns a copy of o sampling at t.
func (o GenerateOptions) WithTemperature(t float32) GenerateOptions {
	o.Temperature = &t
	return o
}

// TextOracle is any service that turns a prompt into generated text.
// The returned text may be truncated, wrapped in prose or fenced; callers must be tolerant.
type TextOracle interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
