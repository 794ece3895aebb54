package models

import (
	"maps"
	"strconv"
	"strings"
)

// QueryKind selects which of the two advisory modes a request uses.
type QueryKind string

const (
	KindFAQ   QueryKind = "faq"
	KindAdHoc QueryKind = "adhoc"
)

// Kinds lists every supported query kind.
var Kinds = []QueryKind{KindFAQ, KindAdHoc}

// Valid reports whether k is a known query kind.
func (k QueryKind) Valid() bool {
	return k == KindFAQ || k == KindAdHoc
}

// CacheKey identifies one memoizable computation.
// Keys compare by exact value; question text is trimmed but never normalised further.
type CacheKey struct {
	AccountID string
	Kind      QueryKind
	Question  string
	// Fingerprint is empty unless snapshot fingerprinting is enabled.
	Fingerprint string
}

// FAQKey builds the key for the fixed FAQ set of an account.
func FAQKey(accountID string) CacheKey {
	return CacheKey{AccountID: accountID, Kind: KindFAQ}
}

// AdHocKey builds the key for a single question against an account.
func AdHocKey(accountID, question string) CacheKey {
	return CacheKey{AccountID: accountID, Kind: KindAdHoc, Question: strings.TrimSpace(question)}
}

// String renders the key as an unambiguous flat string, e.g. adhoc:"42":"":"Are there public S3 buckets?".
func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString(string(k.Kind))
	b.WriteByte(':')
	b.WriteString(strconv.Quote(k.AccountID))
	b.WriteByte(':')
	b.WriteString(strconv.Quote(k.Fingerprint))
	b.WriteByte(':')
	b.WriteString(strconv.Quote(k.Question))
	return b.String()
}

// AdvisoryResult is the value produced by one advisory computation.
// FAQ results populate FAQ; ad-hoc results populate Answer.
type AdvisoryResult struct {
	FAQ    map[string]string `json:"faq,omitempty"`
	Answer string            `json:"response,omitempty"`
}

// Clone returns a copy that shares no mutable state with r.
func (r AdvisoryResult) Clone() AdvisoryResult {
	return AdvisoryResult{FAQ: maps.Clone(r.FAQ), Answer: r.Answer}
}
