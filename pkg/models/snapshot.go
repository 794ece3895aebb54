package models

import (
	"bytes"
	"encoding/json"
)

// Snapshot is one account's infrastructure inventory at a point in time.
// Everything besides the account identifier is opaque and passed through verbatim.
type Snapshot struct {
	AccountID string          `json:"account_id"`
	Raw       json.RawMessage `json:"-"`
}

// Pretty returns the document indented with two spaces, preserving its key order.
func (s Snapshot) Pretty() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, s.Raw, "", "  "); err != nil {
		return string(s.Raw)
	}
	return buf.String()
}

// Compact returns the document with insignificant whitespace removed.
func (s Snapshot) Compact() []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, s.Raw); err != nil {
		return s.Raw
	}
	return buf.Bytes()
}
