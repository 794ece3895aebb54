package main

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ircmdb/ircmdb/pkg/advisory"
	"github.com/ircmdb/ircmdb/pkg/cache/memory"
	"github.com/ircmdb/ircmdb/pkg/config"
	"github.com/ircmdb/ircmdb/pkg/logging"
	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/ircmdb/ircmdb/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	calls atomic.Int32
}

func (c *countingClient) Name() string { return "counting" }

func (c *countingClient) Send(context.Context, string, string) (string, error) {
	c.calls.Add(1)
	return `{"Are there public S3 buckets?": "No."}`, nil
}

func testApp(t *testing.T, client *countingClient) *app {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"account_id": 42}`), 0644))

	cfg := config.Default()
	cfg.SnapshotPath = path
	log := logging.Discard()
	svc := advisory.New(snapshot.NewFileStore(path), client, memory.FromConfig(cfg.Cache), advisory.WithLogger(log))
	return &app{cfg: cfg, log: log, svc: svc}
}

func TestWarmCacheWithoutQuestionsWarmsFAQ(t *testing.T) {
	client := &countingClient{}
	a := testApp(t, client)

	require.NoError(t, a.warmCache(context.Background()))
	assert.Equal(t, int32(1), client.calls.Load())
	assert.Equal(t, 1, a.svc.CacheStats().Entries[models.KindFAQ])
}

func TestWarmCacheIncludesConfiguredQuestions(t *testing.T) {
	client := &countingClient{}
	a := testApp(t, client)
	a.cfg.Cache.WarmQuestions = []string{"Is MFA enforced?", "Are backups encrypted?"}

	require.NoError(t, a.warmCache(context.Background()))
	assert.Equal(t, int32(3), client.calls.Load())
	assert.Equal(t, 2, a.svc.CacheStats().Entries[models.KindAdHoc])
}
