package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ircmdb/ircmdb/pkg/config"
	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/sirupsen/logrus"
)

// Anthropic defaults.
const (
	DefaultAnthropicURL   = "https://api.anthropic.com"
	DefaultAnthropicModel = "claude-3-5-sonnet-latest"
	DefaultTimeout        = 120 * time.Second

	anthropicVersion = "2023-06-01"
)

// Anthropic calls the Anthropic /v1/messages API.
type Anthropic struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	log       *logrus.Logger
}

// NewAnthropic creates an Anthropic client.
func NewAnthropic(cfg config.BackendConfig, log *logrus.Logger) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultAnthropicURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Anthropic{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimSuffix(cfg.URL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		log:       log,
	}, nil
}

// Name implements Client.
func (a *Anthropic) Name() string { return config.BackendAnthropic }

// Send implements Client.
func (a *Anthropic) Send(ctx context.Context, prompt, systemRole string) (string, error) {
	body, err := json.Marshal(models.AnthropicRequest{
		Model:     a.model,
		Messages:  []models.ChatMessage{{Role: "user", Content: prompt}},
		System:    systemRole,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(fmt.Errorf("read response: %w", err))
	}

	var msg models.AnthropicResponse
	decodeErr := json.Unmarshal(respBody, &msg)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := strings.TrimSpace(string(respBody))
		if decodeErr == nil && msg.Error != nil {
			detail = msg.Error.Type + ": " + msg.Error.Message
		}
		return "", statusError(resp.StatusCode, detail)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrBackend, decodeErr)
	}

	text := msg.Text()
	if text == "" {
		return "", fmt.Errorf("%w: response has no text content", ErrBackend)
	}

	fields := logrus.Fields{
		"backend":    a.Name(),
		"model":      msg.Model,
		"latency_ms": time.Since(start).Milliseconds(),
	}
	if msg.Usage != nil {
		u := msg.Usage.ToUsage()
		fields["input_tokens"] = u.PromptTokens
		fields["output_tokens"] = u.CompletionTokens
	}
	a.log.WithFields(fields).Debug("backend call completed")

	return text, nil
}
