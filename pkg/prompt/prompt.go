// Package prompt turns an infrastructure snapshot into model prompts.
//
// Builders are pure: identical snapshots and questions always yield identical
// prompt text, which lets the advisory cache treat a prompt's answer as a
// function of its key.
package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ircmdb/ircmdb/pkg/models"
)

// SystemRole is the persona sent with every prompt.
const SystemRole = "You are a cybersecurity analyst expert"

// FAQVersion identifies the current FAQQuestions set.
const FAQVersion = "v1"

// FAQQuestions is the fixed, ordered security questionnaire answered for each account.
var FAQQuestions = []string{
	"Are there potential security concerns with any of the security groups?",
	"Are there any IAM users with potentially excessive permissions?",
	"What security risks are present in any of the VPC configuration?",
	"Are there any instances exposing sensitive services to the public?",
	"Is there adequate network segmentation and isolation?",
}

// BuildFAQ returns the prompt answering every FAQ question as one JSON object.
func BuildFAQ(s models.Snapshot) string {
	var b strings.Builder
	b.WriteString("Based on the following AWS infrastructure, answer the questions below.\n\n")
	b.WriteString("Questions:\n")
	for _, q := range FAQQuestions {
		fmt.Fprintf(&b, "Q: %s\n", q)
	}
	b.WriteString("\nReturn only a JSON object that maps each question, copied exactly, to its answer as a string, ")
	b.WriteString(`for example {"<question>": "<answer>"}. Do not add any text outside the JSON object.`)
	b.WriteString("\n\nAWS infrastructure:\n")
	b.WriteString(s.Pretty())
	return b.String()
}

// BuildAdHoc returns the prompt answering a single free-text question.
func BuildAdHoc(s models.Snapshot, question string) string {
	var b strings.Builder
	b.WriteString("Based on the following AWS infrastructure, answer the question ")
	fmt.Fprintf(&b, "'%s'.\n", question)
	b.WriteString("Answer in plain text.\n\nAWS infrastructure:\n")
	b.WriteString(s.Pretty())
	return b.String()
}

// Fingerprint returns a content hash of the snapshot document.
// Formatting differences in the source file do not change the fingerprint.
func Fingerprint(s models.Snapshot) string {
	h := sha256.Sum256(s.Compact())
	return hex.EncodeToString(h[:])
}
