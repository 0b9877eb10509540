// Package docs builds the navigation tree for a publish run from a local
// documentation directory.
package docs

// Node is one page in the navigation tree: a markdown document or a section
// synthesized from a directory.
type Node struct {
	Title     string
	Path      string // source file path; empty for synthesized sections
	Dir       string // directory for resolving relative references
	Source    []byte // markdown source
	Synthetic bool   // section page generated from a directory
	Children  []int  // arena indices, in navigation order
}

// Tree is an arena of nodes referenced by index, so walking and reparenting
// never chase embedded pointers.
type Tree struct {
	Nodes   []Node
	Roots   []int
	RootDir string // docs directory the tree was built from
}

// TitleByPath maps each document's source path to its page title, used to
// patch cross-page links.
func (t *Tree) TitleByPath() map[string]string {
	index := make(map[string]string, len(t.Nodes))
	for i := range t.Nodes {
		if t.Nodes[i].Path != "" {
			index[t.Nodes[i].Path] = t.Nodes[i].Title
		}
	}
	return index
}

// Walk visits every node depth-first in navigation order.
func (t *Tree) Walk(visit func(idx int, node *Node)) {
	var rec func(idx int)
	rec = func(idx int) {
		visit(idx, &t.Nodes[idx])
		for _, child := range t.Nodes[idx].Children {
			rec(child)
		}
	}
	for _, root := range t.Roots {
		rec(root)
	}
}

// Len returns the number of pages in the tree.
func (t *Tree) Len() int { return len(t.Nodes) }
