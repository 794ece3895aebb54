package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Backend types.
const (
	BackendAnthropic = "anthropic"
	BackendOpenAI    = "openai"
	BackendGemini    = "gemini"
)

// DefaultCacheCapacity is the per-kind entry bound used when none is configured.
const DefaultCacheCapacity = 128

// Config holds all ircmdb configuration.
type Config struct {
	Listen       string               `yaml:"listen"`
	SnapshotPath string               `yaml:"snapshot_path"`
	CORSOrigins  []string             `yaml:"cors_origins"`
	Backend      BackendConfig        `yaml:"backend"`
	Cache        CacheConfig          `yaml:"cache"`
	History      models.HistoryConfig `yaml:"history"`
	Log          LogConfig            `yaml:"log"`
}

// BackendConfig defines the language-model backend.
// Type is "anthropic" (default), "openai" or "gemini".
type BackendConfig struct {
	Type      string        `yaml:"type"`
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CacheConfig controls the advisory cache.
type CacheConfig struct {
	FAQCapacity         int      `yaml:"faq_capacity"`
	AdHocCapacity       int      `yaml:"adhoc_capacity"`
	FingerprintSnapshot bool     `yaml:"fingerprint_snapshot"`
	WarmQuestions       []string `yaml:"warm_questions"`
	WarmConcurrency     int      `yaml:"warm_concurrency"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:       ":8000",
		SnapshotPath: "file.json",
		CORSOrigins: []string{
			"http://localhost:5173",
			"http://localhost:8000",
		},
		Backend: BackendConfig{
			Type:      BackendAnthropic,
			Model:     "claude-3-5-sonnet-latest",
			MaxTokens: 1024,
			Timeout:   120 * time.Second,
		},
		Cache: CacheConfig{
			FAQCapacity:     DefaultCacheCapacity,
			AdHocCapacity:   DefaultCacheCapacity,
			WarmConcurrency: 4,
		},
		History: models.HistoryConfig{
			Enabled:       false,
			DBPath:        "ircmdb.db",
			RetentionDays: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file, expands environment variables and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Listen, validation.Required),
		validation.Field(&c.SnapshotPath, validation.Required),
		validation.Field(&c.Backend),
		validation.Field(&c.Cache),
		validation.Field(&c.History, validation.By(validateHistory)),
		validation.Field(&c.Log),
	)
}

// Validate checks backend constraints.
func (b BackendConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Type, validation.Required, validation.In(BackendAnthropic, BackendOpenAI, BackendGemini)),
		validation.Field(&b.MaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&b.Timeout, validation.Min(time.Duration(0))),
	)
}

// Validate checks cache constraints.
func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FAQCapacity, validation.Min(0)),
		validation.Field(&c.AdHocCapacity, validation.Min(0)),
		validation.Field(&c.WarmConcurrency, validation.Min(0)),
	)
}

// Validate checks logging constraints.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.By(func(value any) error {
			s, _ := value.(string)
			if s == "" {
				return nil
			}
			_, err := logrus.ParseLevel(s)
			return err
		})),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

func validateHistory(value any) error {
	h, ok := value.(models.HistoryConfig)
	if !ok || !h.Enabled {
		return nil
	}
	return validation.ValidateStruct(&h,
		validation.Field(&h.DBPath, validation.Required),
		validation.Field(&h.RetentionDays, validation.Min(0)),
	)
}
