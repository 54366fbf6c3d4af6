package oracle

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/himanishpuri/EchoCommand/pkg/echocommand"
	"github.com/himanishpuri/EchoCommand/pkg/logger"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini asks a Gemini model for a JSON verdict through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
	log    echocommand.Logger
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	return NewGeminiWithURL(ctx, apiKey, model, "")
}

// NewGeminiWithURL points the client at baseURL instead of the public endpoint.
func NewGeminiWithURL(ctx context.Context, apiKey, model, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is empty", echocommand.ErrNotConfigured)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Gemini{client: client, model: model, log: logger.GetLogger()}, nil
}

// Model is the Gemini model verdicts are requested from.
func (g *Gemini) Model() string { return g.model }

func (g *Gemini) WithLogger(log echocommand.Logger) *Gemini {
	g.log = log
	return g
}

func (g *Gemini) Evaluate(ctx context.Context, expected, actual string) (bool, error) {
	system, user, err := renderPrompt(expected, actual)
	if err != nil {
		return false, err
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0),
	})
	if err != nil {
		return false, fmt.Errorf("%w: gemini: %v", echocommand.ErrServiceUnavailable, err)
	}

	content := resp.Text()
	match, ok := parseVerdict(content)
	if !ok {
		g.log.Warnf("Gemini did not return a valid verdict. Content received: '%s'", truncate(content, 200))
		return false, nil
	}
	return match, nil
}
