// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"os"

	"github.com/ircmdb/ircmdb/pkg/config"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr with the configured level and format.
func New(cfg config.LogConfig) *logrus.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit output.
func NewWithWriter(cfg config.LogConfig, w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
