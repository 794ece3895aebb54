package main

import (
	"context"
	"fmt"

	"github.com/ircmdb/ircmdb/pkg/advisory"
	"github.com/ircmdb/ircmdb/pkg/backend"
	"github.com/ircmdb/ircmdb/pkg/cache/memory"
	"github.com/ircmdb/ircmdb/pkg/config"
	"github.com/ircmdb/ircmdb/pkg/history"
	"github.com/ircmdb/ircmdb/pkg/logging"
	"github.com/ircmdb/ircmdb/pkg/snapshot"
	"github.com/sirupsen/logrus"
)

// app holds the components shared by the commands.
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	svc     *advisory.Service
	history *history.Log
}

func loadConfig(path string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.New(cfg.Log), nil
}

// newApp wires the snapshot store, backend, cache, optional history and the
// advisory service from the config at path.
func newApp(ctx context.Context, path string) (*app, error) {
	cfg, log, err := loadConfig(path)
	if err != nil {
		return nil, err
	}

	client, err := backend.New(ctx, cfg.Backend, log)
	if err != nil {
		return nil, fmt.Errorf("init backend: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	opts := []advisory.Option{
		advisory.WithLogger(log),
		advisory.WithFingerprint(cfg.Cache.FingerprintSnapshot),
	}
	if cfg.History.Enabled {
		a.history, err = history.Open(cfg.History)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
		opts = append(opts, advisory.WithRecorder(a.history))
	}

	a.svc = advisory.New(snapshot.NewFileStore(cfg.SnapshotPath), client, memory.FromConfig(cfg.Cache), opts...)
	log.WithFields(logrus.Fields{
		"backend":  client.Name(),
		"snapshot": cfg.SnapshotPath,
		"history":  cfg.History.Enabled,
	}).Debug("advisory service ready")
	return a, nil
}

// Close flushes pending history records and closes the query log.
func (a *app) Close() error {
	a.svc.Wait()
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

// warmCache precomputes the FAQ and the configured warm-up questions.
func (a *app) warmCache(ctx context.Context) error {
	questions := a.cfg.Cache.WarmQuestions
	if err := a.svc.Warm(ctx, questions, a.cfg.Cache.WarmConcurrency); err != nil {
		a.log.WithError(err).Warn("cache warm-up incomplete")
		return err
	}
	a.log.WithField("questions", len(questions)).Info("cache warm-up complete")
	return nil
}
