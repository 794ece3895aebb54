package models

import "time"

// QueryRecord is one answered (or failed) advisory request.
type QueryRecord struct {
	RequestID string       `json:"request_id"`
	AccountID string       `json:"account_id"`
	Kind      QueryKind    `json:"kind"`
	Question  string       `json:"question,omitempty"`
	Outcome   CacheOutcome `json:"outcome,omitempty"`
	ErrorCode string       `json:"error_code,omitempty"`
	LatencyMs int64        `json:"latency_ms"`
	CreatedAt time.Time    `json:"created_at"`
}

// Failed reports whether the request ended in an error.
func (r QueryRecord) Failed() bool {
	return r.ErrorCode != ""
}

// HistoryConfig controls the query log.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// HistoryQueryOpts specifies filters for querying the log.
type HistoryQueryOpts struct {
	Kind       QueryKind
	AccountID  string
	Since      time.Time
	RequestID  string
	FailedOnly bool
	Limit      int
}

// HistoryStat holds aggregate counts for a kind/outcome/day combination.
type HistoryStat struct {
	Kind    QueryKind
	Outcome string
	Day     string
	Count   int
}
