package build

import (
	"bytes"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/verin/internal/foundation/errors"
	"git.home.luguber.info/inful/verin/internal/templates"
	"git.home.luguber.info/inful/verin/internal/toc"
)

// PageContext is the data a post template is executed with.
type PageContext struct {
	Title   string
	Date    string
	Refresh template.HTML
	Content template.HTML

	// TOC is the pruned heading tree; Headers is the same entries flattened
	// in document order.
	TOC     []toc.Entry
	Headers []toc.Entry

	// MaxDepth is nil when the post sets no limit.
	MaxDepth *int
	Summary  string
	// Template is the "page" metadata field.
	Template string
	// Output is the path of the generated file relative to the site root.
	Output string
	Extra  map[string]any
}

// pageResult is the outcome of building one post.
type pageResult struct {
	output  string
	content []byte
	article Article
	err     error
}

// outputPath maps a post path to its generated page: "a/b.md" becomes "a/b.html".
func outputPath(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".html"
}

// buildDocument extracts and renders one post. Nothing is written.
func (e *env) buildDocument(rel string) pageResult {
	// #nosec G304 -- rel was discovered below the posts directory.
	raw, err := os.ReadFile(filepath.Join(e.req.PostsDir, filepath.FromSlash(rel)))
	if err != nil {
		return pageResult{err: ferrors.FileSystemError("read document").WithCause(err).
			WithContext("document", rel).Build()}
	}

	meta, body, err := e.extractor.Extract(raw)
	if err != nil {
		return pageResult{err: err}
	}
	if !e.templates.Has(meta.Page) {
		return pageResult{err: ferrors.TemplateNotFound(meta.Page).WithContext("document", rel).Build()}
	}

	doc := e.converter.Parse(body)
	depth := toc.Unbounded
	if limit, ok := meta.DepthLimit(); ok {
		depth = limit
	}
	tree := toc.Build(doc.Blocks, depth)

	var content bytes.Buffer
	if err := e.converter.Render(&content, doc, toc.Annotate(doc.Blocks)); err != nil {
		return pageResult{err: err}
	}

	out := outputPath(rel)
	ctx := PageContext{
		Title: meta.Title,
		Date:  e.cfg.Date.FormatDate(meta.Published),
		// #nosec G203 -- content is our own rendered Markdown.
		Content:  template.HTML(content.String()),
		Refresh:  e.refresh,
		TOC:      tree.Entries(),
		Headers:  tree.Flatten(),
		MaxDepth: meta.MaxDepth,
		Summary:  meta.Summary,
		Template: meta.Page,
		Output:   out,
		Extra:    meta.Extra,
	}
	page, err := renderTemplate(e.templates, meta.Page, ctx)
	if err != nil {
		return pageResult{err: err}
	}
	return pageResult{output: out, content: page, article: newArticle(rel, out, meta, e)}
}

func renderTemplate(set *templates.Set, id string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := set.Render(&buf, id, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

