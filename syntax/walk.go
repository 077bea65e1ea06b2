// Copyright © 2024 The ELPS authors

package syntax

import "context"

// Walk calls fn for every node in the tree, depth-first, parents before
// children. parent is nil for root.
func Walk(root *Node, fn func(node *Node, parent *Node, depth int)) {
	walkNode(root, nil, 0, fn)
}

func walkNode(node *Node, parent *Node, depth int, fn func(*Node, *Node, int)) {
	if node == nil {
		return
	}
	fn(node, parent, depth)
	for _, child := range node.Children {
		walkNode(child, node, depth+1, fn)
	}
}

// Inspect traverses the tree depth-first. When fn returns false the
// children of that node are skipped.
func Inspect(root *Node, fn func(node *Node) bool) {
	if root == nil || !fn(root) {
		return
	}
	for _, child := range root.Children {
		Inspect(child, fn)
	}
}

// Visitor is called by Search for each node. It returns whether to descend
// into the node's children and whether to stop the search entirely.
type Visitor func(node *Node) (descend bool, stop bool)

// Search traverses the tree depth-first until visit asks to stop or ctx is
// done. It reports whether the traversal stopped early at visit's request.
// A done context aborts the search with ctx.Err().
func Search(ctx context.Context, root *Node, visit Visitor) (bool, error) {
	s := searcher{ctx: ctx, visit: visit}
	stopped := s.search(root)
	if s.err != nil {
		return false, s.err
	}
	return stopped, nil
}

type searcher struct {
	ctx   context.Context
	visit Visitor
	err   error
}

func (s *searcher) search(n *Node) bool {
	if n == nil {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return true
	}
	descend, stop := s.visit(n)
	if stop {
		return true
	}
	if !descend {
		return false
	}
	for _, child := range n.Children {
		if s.search(child) {
			return true
		}
	}
	return false
}
