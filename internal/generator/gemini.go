package generator

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/aanand-mishra/graduation-api/internal/config"
)

// ErrModelUnavailable is returned by Unavailable for every call.
var ErrModelUnavailable = errors.New("generative model is not configured")

// Gemini implements Model with Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// GeminiOption customises the underlying client configuration.
type GeminiOption func(*genai.ClientConfig)

// WithBaseURL points the client at a different endpoint (used in tests).
func WithBaseURL(url string) GeminiOption {
	return func(c *genai.ClientConfig) {
		c.HTTPOptions.BaseURL = url
	}
}

// NewGemini creates a Gemini model from the genai config section.
func NewGemini(ctx context.Context, cfg config.GenAI, opts ...GeminiOption) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("NewGemini: %w", ErrModelUnavailable)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(clientCfg)
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  cfg.Model,
		config: &genai.GenerateContentConfig{
			Temperature: genai.Ptr(cfg.Temperature),
			TopP:        genai.Ptr(cfg.TopP),
		},
	}, nil
}

// GenerateText sends prompt as a single user turn and returns the
// concatenated text of the first candidate.
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}

// Unavailable is the Model used when no API key is configured.
type Unavailable struct{}

// GenerateText always fails with ErrModelUnavailable, so the generator
// answers with its fallback text.
func (Unavailable) GenerateText(context.Context, string) (string, error) {
	return "", ErrModelUnavailable
}
