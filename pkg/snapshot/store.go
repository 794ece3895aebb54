// Package snapshot loads the infrastructure inventory the advisory engine reasons about.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"strings"

	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrNotFound is returned when the backing snapshot resource is absent.
	ErrNotFound = errors.New("snapshot not found")
	// ErrMalformed is returned when the snapshot is not a well-formed document
	// or lacks an account_id.
	ErrMalformed = errors.New("snapshot malformed")
)

// Store supplies the current infrastructure snapshot.
// Implementations must not cache; every Load reflects the backing resource.
type Store interface {
	Load(ctx context.Context) (models.Snapshot, error)
}

const documentSchema = `{
	"type": "object",
	"required": ["account_id"],
	"properties": {
		"account_id": {
			"anyOf": [
				{"type": "integer"},
				{"type": "string", "minLength": 1}
			]
		}
	}
}`

var schema = mustSchema(documentSchema)

func mustSchema(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("snapshot: compile schema: %v", err))
	}
	return sch
}

// FileStore reads a JSON snapshot from disk on every Load.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads and validates the snapshot file.
func (s *FileStore) Load(ctx context.Context) (models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, err
	}
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return Parse(data)
}

// Parse validates a raw snapshot document and extracts its account identifier.
func Parse(data []byte) (models.Snapshot, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return models.Snapshot{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return models.Snapshot{}, fmt.Errorf("%w: %s", ErrMalformed, strings.Join(msgs, "; "))
	}

	id, err := accountID(data)
	if err != nil {
		return models.Snapshot{}, err
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return models.Snapshot{AccountID: id, Raw: raw}, nil
}

// accountID returns account_id as a string; 42, 42.0, 4.2e1 and "42" yield the same value.
func accountID(data []byte) (string, error) {
	var doc struct {
		AccountID any `json:"account_id"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var id string
	switch v := doc.AccountID.(type) {
	case json.Number:
		id = canonicalInteger(v)
	case string:
		id = strings.TrimSpace(v)
	}
	if id == "" {
		return "", fmt.Errorf("%w: missing account_id", ErrMalformed)
	}
	return id, nil
}

// canonicalInteger renders an integral JSON number in plain decimal form.
func canonicalInteger(n json.Number) string {
	r, ok := new(big.Rat).SetString(n.String())
	if !ok || !r.IsInt() {
		return n.String()
	}
	return r.Num().String()
}
