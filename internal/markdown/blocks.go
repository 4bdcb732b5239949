package markdown

import (
	"bytes"
	"strings"

	gmast "github.com/yuin/goldmark/ast"
)

// BlockKind tags the variant of a Block.
type BlockKind int

const (
	BlockOther BlockKind = iota
	BlockHeading
	BlockParagraph
	BlockCodeFence
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockParagraph:
		return "paragraph"
	case BlockCodeFence:
		return "code_fence"
	default:
		return "other"
	}
}

// Block is one leaf block of a parsed body, in document order.
type Block struct {
	Kind BlockKind

	// Heading fields.
	Level  int
	Text   string
	Anchor string

	// Code fence fields.
	Language string
	Source   string

	// NodeKind names the underlying node for BlockOther (e.g. "ThematicBreak").
	NodeKind string

	node gmast.Node
}

// collectBlocks flattens the block structure of root. Container blocks (lists,
// list items, block quotes) are descended into and never emitted themselves.
func collectBlocks(root gmast.Node, src []byte) []Block {
	blocks := make([]Block, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering || n == root {
			return gmast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *gmast.List, *gmast.ListItem, *gmast.Blockquote:
			return gmast.WalkContinue, nil
		case *gmast.Heading:
			blocks = append(blocks, Block{
				Kind:  BlockHeading,
				Level: node.Level,
				Text:  plainText(node, src),
				node:  node,
			})
		case *gmast.Paragraph, *gmast.TextBlock:
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: plainText(node, src), node: node})
		case *gmast.FencedCodeBlock:
			blocks = append(blocks, Block{
				Kind:     BlockCodeFence,
				Language: fenceLanguage(node, src),
				Source:   string(blockLines(node, src)),
				node:     node,
			})
		default:
			blocks = append(blocks, Block{Kind: BlockOther, NodeKind: n.Kind().String(), node: node})
		}
		return gmast.WalkSkipChildren, nil
	})
	return blocks
}

// plainText concatenates the textual content of the inline children of n.
func plainText(n gmast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *gmast.String:
			buf.Write(t.Value)
		case *gmast.RawHTML:
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

func blockLines(n gmast.Node, src []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.Bytes()
}

// fenceLanguage returns the first word of the fence info string.
func fenceLanguage(n *gmast.FencedCodeBlock, src []byte) string {
	if n.Info == nil {
		return ""
	}
	return string(n.Language(src))
}
