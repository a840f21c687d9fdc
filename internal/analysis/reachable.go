package analysis

import (
	"github.com/jward/scarpetls/internal/syntax"
)

// Symbol is one entry of a reachability set.
type Symbol struct {
	Name string
	Decl syntax.Node
	Kind Kind
}

// Reachable returns the symbols visible at offset: lexical bindings
// introduced before the anchor (closest table first, introduction order
// within a table), then the whole global_ namespace, then the whole
// function map. A name appears at most once per category; the closest
// binding wins.
func (t *Tables) Reachable(root syntax.Node, offset int) []Symbol {
	pos := anchorOffset(root, offset)
	seen := make(map[string]bool)
	var out []Symbol

	for s := t.ScopeAt(root, offset); s != nil; s = s.Parent {
		latest := make(map[string]Binding)
		var names []string
		for _, b := range s.order {
			if b.At > pos {
				continue
			}
			if _, ok := latest[b.Name]; !ok {
				names = append(names, b.Name)
			}
			latest[b.Name] = b
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			b := latest[name]
			out = append(out, Symbol{Name: name, Decl: t.declOf(b), Kind: b.Kind})
		}
	}

	for _, name := range t.globalOrder {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Symbol{Name: name, Decl: t.globals[name].Decl, Kind: KindGlobal})
	}

	// Functions live in their own namespace; a variable f does not hide f().
	for _, name := range t.funcOrder {
		out = append(out, Symbol{Name: name, Decl: t.functions[name], Kind: KindFunction})
	}
	return out
}

// anchorOffset is the position bindings must precede. For a leaf under
// the cursor it is the leaf's start, so a half-typed name does not see
// its own assignment; otherwise it is the cursor itself.
func anchorOffset(root syntax.Node, offset int) int {
	switch n := Locate(root, offset).(type) {
	case *syntax.Variable, *syntax.Constant, *syntax.String, *syntax.Number,
		*syntax.Param, *syntax.RestParam, *syntax.OuterParam, *syntax.Call:
		return n.Range().Start.Offset
	}
	return offset
}
