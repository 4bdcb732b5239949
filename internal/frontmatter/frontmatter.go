// Package frontmatter splits a post into its metadata block and Markdown body.
//
// A post starts with YAML metadata terminated by a line containing only the
// delimiter "/~":
//
//	title: Hello
//	date: 1970-01-01
//	page: post
//	summary: First post
//	/~
//	# Body starts here
package frontmatter

import (
	"bytes"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/verin/internal/foundation/errors"
)

// Delimiter terminates the metadata block. It must sit on its own line.
const Delimiter = "/~"

// Metadata is the parsed metadata block of one post.
type Metadata struct {
	Title    string `yaml:"title"`
	Date     string `yaml:"date"`
	Page     string `yaml:"page"`
	Summary  string `yaml:"summary"`
	MaxDepth *int   `yaml:"max_depth"`

	// Extra keeps keys this version does not know about.
	Extra map[string]any `yaml:",inline"`

	// Published is Date parsed with the configured input pattern.
	Published time.Time `yaml:"-"`
}

// DepthLimit returns the TOC depth limit and whether one was set.
func (m *Metadata) DepthLimit() (int, bool) {
	if m.MaxDepth == nil {
		return 0, false
	}
	return *m.MaxDepth, true
}

// DateParser parses the raw date field of a post.
type DateParser interface {
	ParseDate(value string) (time.Time, error)
}

// Extractor turns raw posts into metadata and body.
type Extractor struct {
	dates DateParser
}

// NewExtractor returns an Extractor that validates dates with dates.
func NewExtractor(dates DateParser) *Extractor {
	return &Extractor{dates: dates}
}

// Extract splits raw into metadata and body and validates the metadata.
// On failure no body is returned.
func (e *Extractor) Extract(raw []byte) (*Metadata, []byte, error) {
	head, body, ok := Split(raw)
	if !ok {
		return nil, nil, ferrors.MalformedFrontmatter("missing metadata delimiter " + Delimiter).Build()
	}

	meta, err := Parse(head)
	if err != nil {
		return nil, nil, err
	}

	published, err := e.dates.ParseDate(strings.TrimSpace(meta.Date))
	if err != nil {
		return nil, nil, ferrors.InvalidDate("invalid date").WithCause(err).
			WithContext("date", meta.Date).Build()
	}
	meta.Published = published

	return meta, body, nil
}

// Split separates the metadata text from the body at the first line that
// consists of the delimiter alone. Trailing whitespace (including \r) on the
// delimiter line is ignored.
func Split(raw []byte) (head []byte, body []byte, ok bool) {
	offset := 0
	for offset <= len(raw) {
		end := bytes.IndexByte(raw[offset:], '\n')
		lineEnd, next := len(raw), len(raw)
		if end >= 0 {
			lineEnd = offset + end
			next = lineEnd + 1
		}
		if string(bytes.TrimRight(raw[offset:lineEnd], " \t\r")) == Delimiter {
			return raw[:offset], raw[next:], true
		}
		if end < 0 {
			break
		}
		offset = next
	}
	return nil, nil, false
}

// Parse decodes the metadata text and checks required fields.
func Parse(head []byte) (*Metadata, error) {
	var meta Metadata
	if len(bytes.TrimSpace(head)) > 0 {
		if err := yaml.Unmarshal(head, &meta); err != nil {
			return nil, ferrors.MalformedFrontmatter("metadata is not valid YAML").WithCause(err).Build()
		}
	}

	required := []struct {
		key   string
		value string
	}{
		{"title", meta.Title},
		{"date", meta.Date},
		{"page", meta.Page},
		{"summary", meta.Summary},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return nil, ferrors.MalformedFrontmatter("missing required field " + field.key).
				WithContext("field", field.key).Build()
		}
	}
	if meta.Extra == nil {
		meta.Extra = map[string]any{}
	}
	return &meta, nil
}
