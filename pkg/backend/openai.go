package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ircmdb/ircmdb/pkg/config"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI calls an OpenAI-compatible chat completions API.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int
	log       *logrus.Logger
}

// NewOpenAI creates an OpenAI client. cfg.URL targets a compatible gateway.
func NewOpenAI(cfg config.BackendConfig, log *logrus.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.URL != "" {
		opts = append(opts, option.WithBaseURL(cfg.URL))
	}

	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		log:       log,
	}, nil
}

// Name implements Client.
func (o *OpenAI) Name() string { return config.BackendOpenAI }

// Send implements Client.
func (o *OpenAI) Send(ctx context.Context, prompt, systemRole string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemRole),
			openai.UserMessage(prompt),
		},
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxTokens))
	}

	start := time.Now()
	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", statusError(apiErr.StatusCode, apiErr.Message)
		}
		return "", transportError(err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: response has no text content", ErrBackend)
	}

	o.log.WithFields(logrus.Fields{
		"backend":       o.Name(),
		"model":         completion.Model,
		"input_tokens":  completion.Usage.PromptTokens,
		"output_tokens": completion.Usage.CompletionTokens,
		"latency_ms":    time.Since(start).Milliseconds(),
	}).Debug("backend call completed")

	return completion.Choices[0].Message.Content, nil
}
