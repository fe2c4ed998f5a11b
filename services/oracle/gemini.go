// Package oraclesvc implements core.TextOracle.
package oraclesvc

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/trezcool/edupilot/core"
)

const jsonMIMEType = "application/json"

// ErrEmptyAnswer is returned when the model produced no text at all.
var ErrEmptyAnswer = errors.New("the model returned an empty answer")

type gemini struct {
	client *genai.Client
	model  string
	logger core.Logger
}

var _ core.TextOracle = (*gemini)(nil)

// NewGemini returns the Gemini oracle for conf.Gemini.
func NewGemini(ctx context.Context, conf *core.Config, logger core.Logger) (core.TextOracle, error) {
	g, err := newGemini(ctx, conf, logger, genai.HTTPOptions{})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func newGemini(ctx context.Context, conf *core.Config, logger core.Logger, httpOpts genai.HTTPOptions) (*gemini, error) {
	if conf.Gemini.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      conf.Gemini.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	return &gemini{client: client, model: conf.Gemini.Model, logger: logger}, nil
}

func (g *gemini) Generate(ctx context.Context, prompt string, opts core.GenerateOptions) (string, error) {
	opts = opts.WithDefaults()
	config := &genai.GenerateContentConfig{
		Temperature:     opts.Temperature,
		MaxOutputTokens: opts.MaxOutputTokens,
	}
	if opts.JSON {
		config.ResponseMIMEType = jsonMIMEType
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", errors.Wrapf(err, "generating with %s", g.model)
	}

	text := resp.Text()
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		g.logger.Warn("model answer hit the output token limit", map[string]interface{}{
			"model": g.model, "maxOutputTokens": opts.MaxOutputTokens,
		})
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyAnswer
	}
	return text, nil
}
