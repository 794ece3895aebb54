// Package parser interprets raw model output for each query kind.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrUnparseable is returned when model output does not have the expected structure.
var ErrUnparseable = errors.New("response unparseable")

const faqSchema = `{
	"type": "object",
	"additionalProperties": {"type": "string"}
}`

var faq = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(faqSchema))
	if err != nil {
		panic(fmt.Sprintf("parser: compile schema: %v", err))
	}
	return s
}()

// ParseFAQ decodes a flat JSON object of question to answer.
// A single surrounding Markdown code fence is tolerated.
func ParseFAQ(raw string) (map[string]string, error) {
	body := stripFence(raw)
	if !json.Valid([]byte(body)) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrUnparseable)
	}

	res, err := faq.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if !res.Valid() {
		return nil, fmt.Errorf("%w: expected a flat object of strings: %s", ErrUnparseable, res.Errors()[0].String())
	}

	var out map[string]string
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return out, nil
}

// ParseAdHoc returns the model's free-text answer unchanged.
func ParseAdHoc(raw string) string {
	return raw
}

func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(s, "```")
	// drop the opening fence line, including an optional language tag
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	return strings.TrimSpace(s)
}
