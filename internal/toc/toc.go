// Package toc builds the table of contents of a post from its heading blocks.
//
// The tree lives in an arena: nodes are stored in a slice and refer to their
// parent and children by index. Depth is the position in the stack of open
// headings when a heading is inserted (roots have depth 1), not the literal
// heading level, so skipped levels nest directly under the previous heading.
package toc

import (
	"math"

	"git.home.luguber.info/inful/verin/internal/markdown"
)

// Unbounded disables depth pruning.
const Unbounded = math.MaxInt

// NoParent marks a root node.
const NoParent = -1

// Node is one entry of the table of contents.
type Node struct {
	Level    int
	Title    string
	Anchor   string
	Depth    int
	Parent   int
	Children []int
}

// Tree is a forest of headings stored in an arena.
type Tree struct {
	Nodes []Node
	Roots []int
}

// Entry is the nested, template-friendly view of a Node.
type Entry struct {
	Level    int
	Depth    int
	Title    string
	Anchor   string
	Children []Entry
}

// Annotate returns a copy of blocks where every heading carries its anchor id.
// Ids are assigned to all headings, including those Build prunes.
func Annotate(blocks []markdown.Block) []markdown.Block {
	out := make([]markdown.Block, len(blocks))
	copy(out, blocks)
	a := newAnchorer()
	for i := range out {
		if out[i].Kind == markdown.BlockHeading {
			out[i].Anchor = a.next(out[i].Text)
		}
	}
	return out
}

type openHeading struct {
	level int
	index int // arena index, or NoParent when pruned
}

// Build constructs the table of contents for the headings in blocks. Headings
// whose depth exceeds maxDepth are left out; maxDepth <= 0 yields an empty tree.
func Build(blocks []markdown.Block, maxDepth int) *Tree {
	annotated := Annotate(blocks)
	t := &Tree{Nodes: []Node{}, Roots: []int{}}
	stack := make([]openHeading, 0, 6)

	for _, b := range annotated {
		if b.Kind != markdown.BlockHeading {
			continue
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= b.Level {
			stack = stack[:len(stack)-1]
		}

		depth := len(stack) + 1
		index := NoParent
		if depth <= maxDepth {
			parent := nearestIncluded(stack)
			index = len(t.Nodes)
			t.Nodes = append(t.Nodes, Node{
				Level:  b.Level,
				Title:  b.Text,
				Anchor: b.Anchor,
				Depth:  depth,
				Parent: parent,
			})
			if parent == NoParent {
				t.Roots = append(t.Roots, index)
			} else {
				t.Nodes[parent].Children = append(t.Nodes[parent].Children, index)
			}
		}
		stack = append(stack, openHeading{level: b.Level, index: index})
	}
	return t
}

func nearestIncluded(stack []openHeading) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].index != NoParent {
			return stack[i].index
		}
	}
	return NoParent
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.Nodes) }

// Entries returns the nested view of the tree.
func (t *Tree) Entries() []Entry {
	return t.entries(t.Roots)
}

func (t *Tree) entries(indices []int) []Entry {
	if len(indices) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(indices))
	for _, i := range indices {
		n := t.Nodes[i]
		out = append(out, Entry{
			Level:    n.Level,
			Depth:    n.Depth,
			Title:    n.Title,
			Anchor:   n.Anchor,
			Children: t.entries(n.Children),
		})
	}
	return out
}

// Flatten returns the nodes in document order without nesting.
func (t *Tree) Flatten() []Entry {
	out := make([]Entry, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		out = append(out, Entry{Level: n.Level, Depth: n.Depth, Title: n.Title, Anchor: n.Anchor})
	}
	return out
}
