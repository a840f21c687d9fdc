package syntax

// Children returns the direct children of n in source order. Nil children
// are omitted.
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		if c != nil {
			out = append(out, c)
		}
	}
	switch n := n.(type) {
	case *Call:
		for _, a := range n.Args {
			add(a)
		}
	case *FunctionDecl:
		for _, p := range n.Params {
			add(p)
		}
		add(n.Body)
	case *Binary:
		add(n.Left)
		add(n.Right)
	case *Unary:
		add(n.Operand)
	case *Paren:
		add(n.Inner)
	case *List:
		for _, e := range n.Elems {
			add(e)
		}
	case *Map:
		for _, e := range n.Entries {
			add(e)
		}
	}
	return out
}

// Inspect traverses the tree depth-first in source order, calling f for
// each node. Children are skipped when f returns false.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// PathTo returns the chain of nodes from root down to target, both
// inclusive, or nil when target is not part of the tree. Subtrees whose
// range cannot hold target are skipped.
func PathTo(root, target Node) []Node {
	if root == nil || target == nil {
		return nil
	}
	want := target.Range()
	var path []Node
	var find func(n Node) bool
	find = func(n Node) bool {
		if !n.Range().Covers(want) {
			return false
		}
		path = append(path, n)
		if n == target {
			return true
		}
		for _, c := range Children(n) {
			if find(c) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if !find(root) {
		return nil
	}
	return path
}
