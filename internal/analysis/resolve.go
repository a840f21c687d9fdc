package analysis

import (
	"errors"

	"github.com/jward/scarpetls/internal/syntax"
)

// ErrForeignNode is returned when a query names a node that is not part
// of the tree the tables were built from.
var ErrForeignNode = errors.New("analysis: node does not belong to this tree")

// Resolve returns the declaration node referenced by node, or (nil, nil)
// when the name has no definition. Strings are never resolved here; use
// ResolveString once the classifier has confirmed them.
func (t *Tables) Resolve(root, node syntax.Node) (syntax.Node, error) {
	path := syntax.PathTo(root, node)
	if path == nil {
		return nil, ErrForeignNode
	}
	return t.ResolveIn(t.scopeOnPath(path[:len(path)-1]), node), nil
}

// ResolveIn resolves node as seen from scope s. Callers walking the tree
// themselves use this to avoid a path search per node.
func (t *Tables) ResolveIn(s *Scope, node syntax.Node) syntax.Node {
	if s == nil {
		s = t.Root
	}
	switch n := node.(type) {
	case *syntax.Variable:
		return t.lookupVariable(s, n.Name)
	case *syntax.Param:
		return t.lookupVariable(s, n.Name)
	case *syntax.RestParam:
		return t.lookupVariable(s, n.Name)
	case *syntax.OuterParam:
		if IsGlobalName(n.Name) {
			return t.lookupVariable(s, n.Name)
		}
		if !s.captured[n.Name] {
			return nil
		}
		return t.declOf(s.names[n.Name])
	case *syntax.Call:
		if fn, ok := t.functions[n.Name]; ok {
			return fn
		}
	case *syntax.FunctionDecl:
		if !n.IsLambda() {
			return n
		}
	}
	return nil
}

// ResolveString resolves a string literal already classified as a
// function reference.
func (t *Tables) ResolveString(s *syntax.String) syntax.Node {
	if fn, ok := t.functions[s.Value]; ok {
		return fn
	}
	return nil
}

// scopeOnPath returns the table of the innermost function declaration in
// path.
func (t *Tables) scopeOnPath(path []syntax.Node) *Scope {
	s := t.Root
	for _, n := range path {
		if fn, ok := n.(*syntax.FunctionDecl); ok {
			if inner := t.scopes[fn]; inner != nil {
				s = inner
			}
		}
	}
	return s
}

// ScopeAt returns the innermost table enclosing offset. Unlike Locate, a
// node's end offset counts as inside it, so a cursor just after the last
// character of a body is still in that body.
func (t *Tables) ScopeAt(root syntax.Node, offset int) *Scope {
	s := t.Root
	n := root
	for n != nil && touches(n.Range(), offset) {
		if fn, ok := n.(*syntax.FunctionDecl); ok {
			if inner := t.scopes[fn]; inner != nil {
				s = inner
			}
		}
		var next syntax.Node
		for _, c := range syntax.Children(n) {
			if touches(c.Range(), offset) {
				next = c
				break
			}
		}
		n = next
	}
	return s
}

func touches(r syntax.Range, offset int) bool {
	return r.Start.Offset <= offset && offset <= r.End.Offset
}

// Locate returns the innermost node whose range contains offset, or nil
// when offset lies outside the root.
func Locate(root syntax.Node, offset int) syntax.Node {
	if root == nil || !root.Range().Contains(offset) {
		return nil
	}
	n := root
	for {
		c := childAt(n, offset)
		if c == nil {
			return n
		}
		n = c
	}
}

// childAt returns the first child, in source order, containing offset.
func childAt(n syntax.Node, offset int) syntax.Node {
	for _, c := range syntax.Children(n) {
		if c.Range().Contains(offset) {
			return c
		}
	}
	return nil
}
