package csharp

import (
	"strings"

	tree_sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// node is a detached copy of a tree-sitter node, so the tree can be closed
// before declarations are read.
type node struct {
	kind     string
	start    uint
	end      uint
	children []*node
}

func convertTreeSitterNode(tsNode tree_sitter.Node) *node {
	if tsNode.IsNull() {
		return nil
	}
	n := &node{
		kind:  tsNode.Type(),
		start: tsNode.StartByte(),
		end:   tsNode.EndByte(),
	}
	for i := range tsNode.ChildCount() {
		if child := convertTreeSitterNode(tsNode.Child(i)); child != nil {
			n.children = append(n.children, child)
		}
	}
	return n
}

func (n *node) text(src []byte) string {
	if n == nil || n.end > uint(len(src)) || n.start > n.end {
		return ""
	}
	return string(src[n.start:n.end])
}

func (n *node) child(kinds ...string) *node {
	for _, c := range n.children {
		for _, k := range kinds {
			if c.kind == k {
				return c
			}
		}
	}
	return nil
}

func (n *node) childrenOf(kind string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (n *node) indexOf(kind string) int {
	for i, c := range n.children {
		if c.kind == kind {
			return i
		}
	}
	return -1
}

// isPunctuation reports whether the node is an anonymous token such as ";".
func (n *node) isPunctuation() bool {
	return len(n.kind) > 0 && strings.IndexFunc(n.kind, func(r rune) bool {
		return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}) < 0
}
