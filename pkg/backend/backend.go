// Package backend sends prompts to a language-model service.
//
// Adapters never retry. Every failure is translated into ErrUnavailable or
// ErrBackend so callers can tell a backend they could not reach from one that
// answered badly.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/ircmdb/ircmdb/pkg/config"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnavailable covers network failures, timeouts and rejected credentials.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrBackend covers non-2xx responses and responses without usable content.
	ErrBackend = errors.New("backend error")
)

// Client sends a prompt with a system role and returns the raw model text.
type Client interface {
	Send(ctx context.Context, prompt, systemRole string) (string, error)
	Name() string
}

// New creates the adapter selected by cfg.Type.
// An empty API key falls back to the provider's conventional environment variable.
func New(ctx context.Context, cfg config.BackendConfig, log *logrus.Logger) (Client, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	switch cfg.Type {
	case config.BackendAnthropic, "":
		cfg.APIKey = keyOrEnv(cfg.APIKey, "ANTHROPIC_API_KEY")
		return NewAnthropic(cfg, log)
	case config.BackendOpenAI:
		cfg.APIKey = keyOrEnv(cfg.APIKey, "OPENAI_API_KEY")
		return NewOpenAI(cfg, log)
	case config.BackendGemini:
		cfg.APIKey = keyOrEnv(cfg.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
		return NewGemini(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Type)
	}
}

func keyOrEnv(key string, vars ...string) string {
	if key != "" {
		return key
	}
	for _, v := range vars {
		if val := os.Getenv(v); val != "" {
			return val
		}
	}
	return ""
}

// statusError maps a non-2xx HTTP status to the error taxonomy.
func statusError(code int, detail string) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, code, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrBackend, code, detail)
	}
}

// transportError wraps a failure to complete the round trip.
func transportError(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
