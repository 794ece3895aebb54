package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ircmdb/ircmdb/pkg/config"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int
	log       *logrus.Logger
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, cfg config.BackendConfig, log *logrus.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.URL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.URL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Gemini{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		log:       log,
	}, nil
}

// Name implements Client.
func (g *Gemini) Name() string { return config.BackendGemini }

// Send implements Client.
func (g *Gemini) Send(ctx context.Context, prompt, systemRole string) (string, error) {
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemRole, genai.RoleUser),
	}
	if g.maxTokens > 0 {
		genConfig.MaxOutputTokens = int32(g.maxTokens)
	}

	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
	if err != nil {
		if code, msg, ok := geminiStatus(err); ok {
			return "", statusError(code, msg)
		}
		return "", transportError(err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: response has no candidates", ErrBackend)
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: response has no text content", ErrBackend)
	}

	fields := logrus.Fields{
		"backend":    g.Name(),
		"model":      g.model,
		"latency_ms": time.Since(start).Milliseconds(),
	}
	if result.UsageMetadata != nil {
		fields["input_tokens"] = result.UsageMetadata.PromptTokenCount
		fields["output_tokens"] = result.UsageMetadata.CandidatesTokenCount
	}
	g.log.WithFields(fields).Debug("backend call completed")

	return text.String(), nil
}

func geminiStatus(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}
