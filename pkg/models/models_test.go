package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdHocKeyTrimsOnly(t *testing.T) {
	a := AdHocKey("42", "  Are there public S3 buckets?\n")
	b := AdHocKey("42", "Are there public S3 buckets?")
	c := AdHocKey("42", "are there public s3 buckets?")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "case differences must produce distinct keys")
	assert.Equal(t, "Are there public S3 buckets?", a.Question)
}

func TestCacheKeyStringUnambiguous(t *testing.T) {
	k1 := CacheKey{AccountID: `a":"b`, Kind: KindAdHoc, Question: "q"}
	k2 := CacheKey{AccountID: "a", Kind: KindAdHoc, Question: `b":"q`}
	assert.NotEqual(t, k1.String(), k2.String())

	assert.Equal(t, `faq:"42":"":""`, FAQKey("42").String())
}

func TestAdvisoryResultClone(t *testing.T) {
	orig := AdvisoryResult{FAQ: map[string]string{"q": "a"}}
	cp := orig.Clone()
	cp.FAQ["q"] = "changed"
	assert.Equal(t, "a", orig.FAQ["q"])
}

func TestSnapshotPrettyKeepsOrder(t *testing.T) {
	s := Snapshot{AccountID: "42", Raw: json.RawMessage(`{"zeta":1,"account_id":42,"alpha":[1,2]}`)}
	want := "{\n  \"zeta\": 1,\n  \"account_id\": 42,\n  \"alpha\": [\n    1,\n    2\n  ]\n}"
	assert.Equal(t, want, s.Pretty())
	assert.Equal(t, `{"zeta":1,"account_id":42,"alpha":[1,2]}`, string(s.Compact()))
}

func TestCacheStatsHitRate(t *testing.T) {
	assert.Zero(t, CacheStats{}.HitRate())
	assert.InDelta(t, 0.75, CacheStats{Hits: 3, Misses: 1}.HitRate(), 1e-9)
}

func TestAnthropicResponseText(t *testing.T) {
	r := AnthropicResponse{Content: []AnthropicContent{
		{Type: "text", Text: "No public "},
		{Type: "tool_use"},
		{Type: "text", Text: "buckets found."},
	}}
	assert.Equal(t, "No public buckets found.", r.Text())
	u := (&AnthropicUsage{InputTokens: 10, OutputTokens: 5}).ToUsage()
	assert.Equal(t, 15, u.TotalTokens)
}
