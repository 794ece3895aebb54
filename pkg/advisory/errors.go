package advisory

import (
	"errors"

	"github.com/ircmdb/ircmdb/pkg/backend"
	"github.com/ircmdb/ircmdb/pkg/parser"
	"github.com/ircmdb/ircmdb/pkg/snapshot"
)

// ErrEmptyQuestion is returned when an ad-hoc question is blank after trimming.
var ErrEmptyQuestion = errors.New("empty question")

// Error codes reported to callers and stored in the query history.
const (
	CodeSnapshotNotFound    = "snapshot_not_found"
	CodeSnapshotMalformed   = "snapshot_malformed"
	CodeEmptyQuestion       = "empty_question"
	CodeBackendUnavailable  = "backend_unavailable"
	CodeBackendError        = "backend_error"
	CodeResponseUnparseable = "response_unparseable"
	CodeInternal            = "internal_error"
)

var codes = []struct {
	err  error
	code string
}{
	{snapshot.ErrNotFound, CodeSnapshotNotFound},
	{snapshot.ErrMalformed, CodeSnapshotMalformed},
	{ErrEmptyQuestion, CodeEmptyQuestion},
	{backend.ErrUnavailable, CodeBackendUnavailable},
	{backend.ErrBackend, CodeBackendError},
	{parser.ErrUnparseable, CodeResponseUnparseable},
}

// Code returns the stable code for err, or "" when err is nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
