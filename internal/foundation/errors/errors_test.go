package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "config.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, exists := err.Context().GetString("file")
		require.True(t, exists)
		assert.Equal(t, "config.yaml", file)
	})

	t.Run("Error detection", func(t *testing.T) {
		err := ConfigError("test error").Build()

		assert.True(t, IsClassified(err))
		assert.True(t, HasCategory(err, CategoryConfig))
		assert.True(t, err.IsFatal())
		assert.True(t, IsFatal(err))
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		inner := InvalidDate("date does not match %Y-%m-%d").Build()
		err := fmt.Errorf("posts/a.md: %w", inner)

		assert.True(t, HasCategory(err, CategoryDate))
		assert.Equal(t, CategoryDate, GetCategory(err))
		assert.False(t, IsFatal(err))
	})

	t.Run("Unclassified errors", func(t *testing.T) {
		err := errors.New("plain")
		assert.False(t, IsClassified(err))
		assert.Equal(t, CategoryInternal, GetCategory(err))
	})
}

func TestErrorBuilder(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, CategoryUnreachable, "dial failed").
		Warning().
		WithContext("host", "localhost").
		WithContext("port", 4112).
		Build()

	assert.Equal(t, CategoryUnreachable, err.Category())
	assert.Equal(t, SeverityWarning, err.Severity())
	assert.ErrorIs(t, err, originalErr)
	assert.Equal(t, "[unreachable] dial failed: original error", err.Error())

	port, ok := err.Context().Get("port")
	require.True(t, ok)
	assert.Equal(t, 4112, port)
}

func TestClassifiedError_WithContextDoesNotMutate(t *testing.T) {
	base := TemplateNotFound("post").Build()
	derived := base.WithContext("document", "a.md")

	_, ok := base.Context().Get("document")
	assert.False(t, ok)
	doc, ok := derived.Context().GetString("document")
	require.True(t, ok)
	assert.Equal(t, "a.md", doc)
	assert.ErrorIs(t, derived, base)
}

func TestTaxonomyConstructors(t *testing.T) {
	tests := []struct {
		err      *ClassifiedError
		category ErrorCategory
	}{
		{MalformedFrontmatter("x").Build(), CategoryFrontmatter},
		{InvalidDate("x").Build(), CategoryDate},
		{TemplateNotFound("x").Build(), CategoryTemplate},
		{UnsupportedHighlightLanguage("brainfuck").Build(), CategoryHighlight},
		{FileSystemError("x").Build(), CategoryFileSystem},
		{SubscriberWriteFailure("id").Build(), CategorySubscriber},
		{ServerUnreachable("addr").Build(), CategoryUnreachable},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category())
		})
	}
}
