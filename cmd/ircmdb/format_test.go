package main

import (
	"strings"
	"testing"
	"time"

	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestFormatFAQ(t *testing.T) {
	out := formatFAQ(map[string]string{"b?": "two", "a?": "one"})
	assert.Equal(t, "Q: a?\nA: one\n\nQ: b?\nA: two\n\n", out)
}

func TestFormatRecords(t *testing.T) {
	now := time.Now()
	out := formatRecords([]models.QueryRecord{
		{RequestID: "req-1", AccountID: "42", Kind: models.KindAdHoc, Question: "Is MFA enforced?", Outcome: models.OutcomeShared, LatencyMs: 812, CreatedAt: now.Add(-2 * time.Minute)},
		{RequestID: "req-2", AccountID: "42", Kind: models.KindFAQ, ErrorCode: "backend_unavailable", CreatedAt: now},
	}, now)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[2], "shared")
	assert.Contains(t, lines[2], "2 minutes ago")
	assert.Contains(t, lines[2], "812ms")
	assert.Contains(t, lines[3], "backend_unavailable")

	assert.Equal(t, "No query log entries found.\n", formatRecords(nil, now))
}

func TestFormatHistoryStats(t *testing.T) {
	out := formatHistoryStats([]models.HistoryStat{{Kind: models.KindAdHoc, Outcome: "hit", Day: "2024-05-01", Count: 12345}})
	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "2024-05-01")
}
