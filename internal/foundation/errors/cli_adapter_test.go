package errors

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: ExitOK},
		{name: "validation", err: ValidationError("bad flag").Build(), expected: ExitUsage},
		{name: "config", err: ConfigError("bad config").Build(), expected: ExitConfig},
		{name: "partial build", err: BuildError("2 documents failed").Build(), expected: ExitPartial},
		{name: "fatal build", err: BuildError("index template missing").Fatal().Build(), expected: ExitFatalBuild},
		{name: "missing index template", err: TemplateNotFound("index").Fatal().Build(), expected: ExitFatalBuild},
		{name: "filesystem", err: FileSystemError("cannot read posts dir").Fatal().Build(), expected: ExitFatalBuild},
		{name: "unreachable", err: ServerUnreachable("localhost:4112").Build(), expected: ExitUnreachable},
		{name: "per-document frontmatter", err: MalformedFrontmatter("missing delimiter").Build(), expected: ExitPartial},
		{name: "wrapped classified", err: fmt.Errorf("run: %w", ConfigError("bad").Build()), expected: ExitConfig},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, expected: ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "classified message", err: ConfigError("bad config").Build(), expected: "Error: bad config"},
		{
			name:     "classified with cause",
			err:      WrapError(&customError{msg: "permission denied"}, CategoryFileSystem, "read posts dir").Build(),
			expected: "Error: read posts dir: permission denied",
		},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, expected: "Error: unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.FormatError(tt.err))
		})
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logs, out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	adapter := NewCLIErrorAdapter(true, logger)
	adapter.out = &out

	code := adapter.HandleError(TemplateNotFound("post").Build())

	assert.Equal(t, ExitPartial, code)
	assert.Contains(t, out.String(), "[template] template not found")
	assert.Contains(t, logs.String(), "template=post")
	assert.Equal(t, ExitOK, adapter.HandleError(nil))
}

// customError is a test helper for unclassified errors
type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
