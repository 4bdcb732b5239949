// Package highlight renders fenced code blocks as syntax-highlighted HTML.
package highlight

import (
	"html"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"git.home.luguber.info/inful/verin/internal/foundation/errors"
)

// Chroma highlights code with inline styles so pages need no extra stylesheet.
type Chroma struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// New returns a highlighter using the named chroma style. Unknown styles fall
// back to chroma's default.
func New(style string) *Chroma {
	return &Chroma{
		style:     styles.Get(style),
		formatter: chromahtml.New(chromahtml.WithClasses(false), chromahtml.PreventSurroundingPre(false)),
	}
}

// Highlight writes code as HTML. An empty language emits escaped plain code;
// a language chroma has no lexer for is an error.
func (c *Chroma) Highlight(w io.Writer, code, language string) error {
	language = strings.TrimSpace(language)
	if language == "" {
		_, err := io.WriteString(w, "<pre><code>"+html.EscapeString(code)+"</code></pre>\n")
		return err
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		return errors.UnsupportedHighlightLanguage(language).Build()
	}

	it, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return errors.WrapError(err, errors.CategoryHighlight, "tokenise code block").
			WithContext("language", language).
			Build()
	}
	if err := c.formatter.Format(w, c.style, it); err != nil {
		return errors.WrapError(err, errors.CategoryHighlight, "format code block").
			WithContext("language", language).
			Build()
	}
	return nil
}
