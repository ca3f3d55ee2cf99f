// Package validator checks note create and update requests and reports
// per-field failures.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
)

const (
	MaxContentBytes = 64 * 1024
	MaxTags         = 32
	MaxTagLength    = 64
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateCreate checks a new note and normalises its tags in place.
func ValidateCreate(req *notes.CreateRequest) error {
	return validate(req.Content, &req.Tags)
}

// ValidateUpdate checks an edit and normalises its tags in place.
func ValidateUpdate(req *notes.UpdateRequest) error {
	return validate(req.Content, &req.Tags)
}

func validate(content string, tags *[]string) error {
	errs := make(map[string]string)

	switch {
	case strings.TrimSpace(content) == "":
		errs["content"] = "content is required and must not be blank"
	case len(content) > MaxContentBytes:
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", MaxContentBytes)
	case !utf8.ValidString(content):
		errs["content"] = "content must be valid UTF-8"
	}

	normalized, msg := NormalizeTags(*tags)
	if msg != "" {
		errs["tags"] = msg
	} else {
		*tags = normalized
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// NormalizeTags trims and de-duplicates tags, keeping first occurrences. It
// returns a message describing the first problem found, or "".
func NormalizeTags(tags []string) ([]string, string) {
	if len(tags) > MaxTags {
		return nil, fmt.Sprintf("at most %d tags are allowed", MaxTags)
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, "tags must not be empty"
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, fmt.Sprintf("tags must be at most %d characters", MaxTagLength)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out, ""
}
