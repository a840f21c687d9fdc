package analysis

import (
	"maps"

	"github.com/jward/scarpetls/internal/syntax"
)

// DefaultFunctionArgs maps built-ins that take a function name as a
// string to the zero-based index of that argument.
var DefaultFunctionArgs = map[string]int{
	"call":                0,
	"task":                0,
	"task_thread":         1,
	"schedule":            1,
	"handle_event":        1,
	"entity_load_handler": 1,
	"entity_event":        2,
	"create_screen":       3,
}

// Classifier decides which string literals name a user function. It only
// looks at the raw tree.
type Classifier struct {
	table map[string]int
}

// NewClassifier returns a classifier over DefaultFunctionArgs plus extra.
// Entries in extra override the defaults; a negative index removes one.
func NewClassifier(extra map[string]int) *Classifier {
	table := maps.Clone(DefaultFunctionArgs)
	for name, idx := range extra {
		if idx < 0 {
			delete(table, name)
			continue
		}
		table[name] = idx
	}
	return &Classifier{table: table}
}

// ArgIndex returns the function-name argument index of a built-in.
func (c *Classifier) ArgIndex(name string) (int, bool) {
	i, ok := c.table[name]
	return i, ok
}

// IsFunctionReference reports whether n is a string literal occupying the
// function-name argument of a tabled call somewhere in root.
func (c *Classifier) IsFunctionReference(root, n syntax.Node) bool {
	s, ok := n.(*syntax.String)
	if !ok || root == nil {
		return false
	}
	return c.search(root, s)
}

func (c *Classifier) search(n syntax.Node, target *syntax.String) bool {
	if n == nil || !n.Range().Covers(target.Range()) {
		return false
	}
	switch n := n.(type) {
	case *syntax.Call:
		if c.atIndex(n, target) {
			return true
		}
		for _, a := range n.Args {
			if c.search(a, target) {
				return true
			}
		}
	case *syntax.FunctionDecl:
		return c.search(n.Body, target)
	case *syntax.Binary, *syntax.Unary, *syntax.Paren, *syntax.List, *syntax.Map:
		for _, ch := range syntax.Children(n) {
			if c.search(ch, target) {
				return true
			}
		}
	}
	return false
}

func (c *Classifier) atIndex(call *syntax.Call, target *syntax.String) bool {
	i, ok := c.table[call.Name]
	if !ok || i >= len(call.Args) {
		return false
	}
	s, ok := syntax.Unparen(call.Args[i]).(*syntax.String)
	return ok && s == target
}

// Collect returns every string literal in root that the classifier
// accepts.
func (c *Classifier) Collect(root syntax.Node) map[*syntax.String]bool {
	out := make(map[*syntax.String]bool)
	syntax.Inspect(root, func(n syntax.Node) bool {
		call, ok := n.(*syntax.Call)
		if !ok {
			return true
		}
		if i, ok := c.table[call.Name]; ok && i < len(call.Args) {
			if s, ok := syntax.Unparen(call.Args[i]).(*syntax.String); ok {
				out[s] = true
			}
		}
		return true
	})
	return out
}
