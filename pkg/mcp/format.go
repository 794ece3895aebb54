package mcp

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ircmdb/ircmdb/pkg/models"
)

// formatFAQ renders FAQ answers as question/answer pairs in a stable order.
func formatFAQ(faq map[string]string) string {
	if len(faq) == 0 {
		return "No answers returned."
	}
	questions := make([]string, 0, len(faq))
	for q := range faq {
		questions = append(questions, q)
	}
	sort.Strings(questions)

	var b strings.Builder
	for i, q := range questions {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", q, faq[q])
	}
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	var b strings.Builder
	b.WriteString("Cache Statistics\n")
	for _, k := range models.Kinds {
		fmt.Fprintf(&b, "  %-9s %d / %d entries\n", string(k)+":", stats.Entries[k], stats.Capacity[k])
	}
	fmt.Fprintf(&b, "  Hits:     %d\n", stats.Hits)
	fmt.Fprintf(&b, "  Misses:   %d\n", stats.Misses)
	fmt.Fprintf(&b, "  Shared:   %d\n", stats.Shared)
	fmt.Fprintf(&b, "  Evicted:  %d\n", stats.Evictions)
	fmt.Fprintf(&b, "  Hit Rate: %.1f%%\n", stats.HitRate()*100)
	return b.String()
}

// formatHistory formats query records as a text table.
func formatHistory(records []models.QueryRecord, now time.Time) string {
	if len(records) == 0 {
		return "No queries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-16s %-6s %-8s %8s  %s\n",
		"Request ID", "When", "Kind", "Result", "Latency", "Question")
	b.WriteString(strings.Repeat("-", 100) + "\n")
	for _, r := range records {
		result := string(r.Outcome)
		if r.Failed() {
			result = r.ErrorCode
		}
		fmt.Fprintf(&b, "%-38s %-16s %-6s %-8s %6dms  %s\n",
			r.RequestID, humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
			r.Kind, result, r.LatencyMs, r.Question)
	}
	return b.String()
}
