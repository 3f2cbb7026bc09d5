package behaviortree

import (
	"fmt"
	"strings"

	tp "github.com/xlab/treeprint"
)

// NodeInfo renders the subtree rooted at n as indented text in the style
// of the `tree` command: one line per node, "uid= <u> path= <full_path>",
// indented according to depth.
func NodeInfo(n *Node) string {
	tree := tp.New()
	addBranch(n, tree)
	return tree.String()
}

func nodeLabel(n *Node) string {
	return fmt.Sprintf("uid= %d path= %s", n.UID(), n.FullPath())
}

func addBranch(n *Node, tree tp.Tree) {
	label := nodeLabel(n)
	switch n.Kind() {
	case KindComposite:
		branch := tree.AddBranch(label)
		for _, c := range n.Children() {
			addBranch(c, branch)
		}
	case KindDecorator:
		branch := tree.AddBranch(label)
		addBranch(n.Inner(), branch)
	default:
		tree.AddNode(label)
	}
}

// DotInfo renders the subtree rooted at n as a Graphviz "digraph G { ... }"
// document, with one edge statement per parent-child relationship:
// "<parent_uid>_<parent_path>" -> "<child_uid>_<child_path>";
func DotInfo(n *Node) string {
	var b strings.Builder
	b.WriteString("digraph G {\n")
	n.ApplyRecursiveVisitor(func(node *Node, depth int) {
		switch node.Kind() {
		case KindComposite:
			for _, c := range node.Children() {
				writeDotEdge(&b, node, c)
			}
		case KindDecorator:
			writeDotEdge(&b, node, node.Inner())
		}
	})
	b.WriteString("}\n")
	return b.String()
}

func writeDotEdge(b *strings.Builder, parent, child *Node) {
	fmt.Fprintf(b, "  %q -> %q;\n", dotNodeID(parent), dotNodeID(child))
}

func dotNodeID(n *Node) string {
	return fmt.Sprintf("%d_%s", n.UID(), n.FullPath())
}
