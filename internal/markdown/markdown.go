// Package markdown parses post bodies into blocks and renders them to HTML.
//
// Parsing and rendering go through goldmark. Headings are rendered with the
// anchor ids assigned by the table of contents builder, and fenced code blocks
// are delegated to a Highlighter.
package markdown

import (
	"io"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Highlighter renders a code fence body. An empty language means plain text.
type Highlighter interface {
	Highlight(w io.Writer, code, language string) error
}

// Document is a parsed body.
type Document struct {
	Blocks []Block

	source []byte
	root   gmast.Node
}

// Converter parses and renders post bodies. It is safe for concurrent use; the
// build shares one across its workers.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter returns a Converter. If hl is nil, code fences use goldmark's
// default rendering.
func NewConverter(hl Highlighter) *Converter {
	rendererOpts := []renderer.Option{html.WithUnsafe()}
	if hl != nil {
		rendererOpts = append(rendererOpts,
			renderer.WithNodeRenderers(util.Prioritized(&codeFenceRenderer{hl: hl}, 100)))
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &Converter{md: md}
}

// Parse parses body into a Document.
func (c *Converter) Parse(body []byte) *Document {
	root := c.md.Parser().Parse(text.NewReader(body))
	return &Document{
		Blocks: collectBlocks(root, body),
		source: body,
		root:   root,
	}
}

// Render writes doc as HTML. Heading blocks in blocks that carry an Anchor get
// it as their id attribute; blocks must come from doc.
func (c *Converter) Render(w io.Writer, doc *Document, blocks []Block) error {
	for _, b := range blocks {
		if b.Kind != BlockHeading || b.node == nil || b.Anchor == "" {
			continue
		}
		b.node.SetAttributeString("id", []byte(b.Anchor))
	}
	return c.md.Renderer().Render(w, doc.source, doc.root)
}

// codeFenceRenderer hands fenced code blocks to a Highlighter.
type codeFenceRenderer struct {
	hl Highlighter
}

func (r *codeFenceRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gmast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeFenceRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	n := node.(*gmast.FencedCodeBlock)
	if err := r.hl.Highlight(w, string(blockLines(n, source)), fenceLanguage(n, source)); err != nil {
		return gmast.WalkStop, err
	}
	return gmast.WalkSkipChildren, nil
}
