package analysis

import (
	"github.com/jward/scarpetls/internal/syntax"
)

// Visitor is called for every node of a scoped walk with the table the
// node is evaluated in and the innermost enclosing declaration (nil at
// top level). Parameters of a declaration are visited in the
// declaration's own table. Returning false skips the node's children.
type Visitor func(n syntax.Node, s *Scope, enclosing *syntax.FunctionDecl) bool

// Walk traverses the tree in source order, tracking scope.
func (t *Tables) Walk(root syntax.Node, visit Visitor) {
	var walk func(n syntax.Node, s *Scope, fn *syntax.FunctionDecl)
	walk = func(n syntax.Node, s *Scope, fn *syntax.FunctionDecl) {
		if n == nil || !visit(n, s, fn) {
			return
		}
		if decl, ok := n.(*syntax.FunctionDecl); ok {
			if inner := t.scopes[decl]; inner != nil {
				s = inner
			}
			fn = decl
		}
		for _, c := range syntax.Children(n) {
			walk(c, s, fn)
		}
	}
	walk(root, t.Root, nil)
}

// References returns, in source order, every node of the tree that
// denotes decl: variable references and assignment targets, parameters,
// calls, the declaration itself, and strings in fnRefs naming it. fnRefs
// is normally Classifier.Collect(root) and may be nil.
func (t *Tables) References(root, decl syntax.Node, fnRefs map[*syntax.String]bool) []syntax.Node {
	if decl == nil {
		return nil
	}
	var out []syntax.Node
	t.Walk(root, func(n syntax.Node, s *Scope, _ *syntax.FunctionDecl) bool {
		switch n := n.(type) {
		case *syntax.String:
			if fnRefs[n] && t.ResolveString(n) == decl {
				out = append(out, n)
			}
		case *syntax.Variable, *syntax.Param, *syntax.RestParam, *syntax.OuterParam,
			*syntax.Call, *syntax.FunctionDecl:
			if t.ResolveIn(s, n) == decl {
				out = append(out, n)
			}
		}
		return true
	})
	return out
}
