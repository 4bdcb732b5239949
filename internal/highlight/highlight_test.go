package highlight

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/verin/internal/foundation/errors"
)

func TestHighlight_KnownLanguage(t *testing.T) {
	var buf bytes.Buffer
	err := New("monokai").Highlight(&buf, "package main\n", "go")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<pre")
	assert.Contains(t, out, "style=")
	assert.Contains(t, out, "package")
}

func TestHighlight_EmptyLanguageIsEscapedPlainCode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("monokai").Highlight(&buf, "<b>&</b>", ""))
	assert.Equal(t, "<pre><code>&lt;b&gt;&amp;&lt;/b&gt;</code></pre>\n", buf.String())
}

func TestHighlight_UnknownLanguage(t *testing.T) {
	var buf bytes.Buffer
	err := New("monokai").Highlight(&buf, "x", "no-such-language-xyz")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryHighlight))
	assert.Contains(t, err.Error(), "no-such-language-xyz")
	assert.Empty(t, buf.String())
}

func TestNew_UnknownStyleFallsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("does-not-exist").Highlight(&buf, "x := 1", "go"))
	assert.NotEmpty(t, buf.String())
}
