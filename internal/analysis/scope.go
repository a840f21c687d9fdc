// Package analysis resolves names in a Scarpet syntax tree: per-function
// scope tables, the global_ namespace, the flat function map, definition
// lookup, reachability, reference search and rename validation.
//
// Tables are derived from one tree and must not be used with another.
package analysis

import (
	"strings"

	"github.com/jward/scarpetls/internal/syntax"
)

// GlobalPrefix marks names that live in the document-wide namespace.
const GlobalPrefix = "global_"

// IsGlobalName reports whether name belongs to the document namespace.
func IsGlobalName(name string) bool { return strings.HasPrefix(name, GlobalPrefix) }

// Kind classifies a binding.
type Kind uint8

const (
	KindVariable Kind = iota
	KindParameter
	KindRest
	KindOuter
	KindGlobal
	KindFunction
)

var kindNames = [...]string{
	KindVariable:  "variable",
	KindParameter: "parameter",
	KindRest:      "rest",
	KindOuter:     "outer",
	KindGlobal:    "global",
	KindFunction:  "function",
}

func (k Kind) String() string { return kindNames[k] }

// Binding ties a name to its declaring node within one table.
type Binding struct {
	Name string
	Decl syntax.Node
	Kind Kind
	// At is the offset from which the binding is visible: the end of the
	// assignment or parameter that introduced it.
	At int

	// from is the scope owning the captured name for KindOuter bindings.
	from *Scope
}

// Scope is the table for one function body, or the document root.
type Scope struct {
	// Func is the declaration owning this scope; nil for the root.
	Func   *syntax.FunctionDecl
	Parent *Scope

	names    map[string]Binding
	order    []Binding // every binding in introduction order, overwritten ones included
	captured map[string]bool
}

func newScope(fn *syntax.FunctionDecl, parent *Scope) *Scope {
	return &Scope{
		Func:     fn,
		Parent:   parent,
		names:    make(map[string]Binding),
		captured: make(map[string]bool),
	}
}

func (s *Scope) bind(b Binding) {
	s.names[b.Name] = b
	s.order = append(s.order, b)
}

// Local returns the final binding of name in this table only.
func (s *Scope) Local(name string) (Binding, bool) {
	b, ok := s.names[name]
	return b, ok
}

// Lookup searches this table and then each enclosing one.
func (s *Scope) Lookup(name string) (Binding, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if b, ok := sc.names[name]; ok {
			return b, true
		}
	}
	return Binding{}, false
}

// Captured reports whether name was aliased in by an outer(name) parameter.
func (s *Scope) Captured(name string) bool { return s.captured[name] }

// Bindings returns every binding in introduction order, including ones a
// later assignment overwrote.
func (s *Scope) Bindings() []Binding {
	return append([]Binding(nil), s.order...)
}

// Tables is the result of one Build over a tree.
type Tables struct {
	Root *Scope

	globals     map[string]Binding
	globalOrder []string
	functions   map[string]*syntax.FunctionDecl
	funcOrder   []string
	scopes      map[*syntax.FunctionDecl]*Scope
}

// Build walks the tree once and produces its tables. A nil root yields
// empty tables.
func Build(root syntax.Node) *Tables {
	t := &Tables{
		Root:      newScope(nil, nil),
		globals:   make(map[string]Binding),
		functions: make(map[string]*syntax.FunctionDecl),
		scopes:    make(map[*syntax.FunctionDecl]*Scope),
	}
	b := &builder{t: t}
	b.visit(root, t.Root)
	return t
}

// Global returns the first declaration of a global_ name.
func (t *Tables) Global(name string) (Binding, bool) {
	b, ok := t.globals[name]
	return b, ok
}

// Globals returns the namespace table in first-declaration order.
func (t *Tables) Globals() []Binding {
	out := make([]Binding, 0, len(t.globalOrder))
	for _, name := range t.globalOrder {
		out = append(out, t.globals[name])
	}
	return out
}

// Function returns the last declaration of name.
func (t *Tables) Function(name string) (*syntax.FunctionDecl, bool) {
	fn, ok := t.functions[name]
	return fn, ok
}

// Functions returns the function map ordered by each name's first
// declaration.
func (t *Tables) Functions() []*syntax.FunctionDecl {
	out := make([]*syntax.FunctionDecl, 0, len(t.funcOrder))
	for _, name := range t.funcOrder {
		out = append(out, t.functions[name])
	}
	return out
}

// ScopeOf returns the table built for fn, or nil when fn is not from this
// tree.
func (t *Tables) ScopeOf(fn *syntax.FunctionDecl) *Scope {
	return t.scopes[fn]
}

// declOf follows capture aliases to the declaration a binding denotes.
func (t *Tables) declOf(b Binding) syntax.Node {
	for b.Kind == KindOuter && b.from != nil {
		next, ok := b.from.names[b.Name]
		if !ok {
			return b.Decl
		}
		b = next
	}
	return b.Decl
}

// lookupVariable resolves a variable name as seen from scope s.
func (t *Tables) lookupVariable(s *Scope, name string) syntax.Node {
	if IsGlobalName(name) {
		if b, ok := t.globals[name]; ok {
			return b.Decl
		}
		return nil
	}
	b, ok := s.Lookup(name)
	if !ok {
		return nil
	}
	return t.declOf(b)
}

type builder struct {
	t *Tables
}

func (b *builder) visit(n syntax.Node, s *Scope) {
	switch n := n.(type) {
	case nil:
		return
	case *syntax.Binary:
		if n.Op == "=" {
			// The value is evaluated before the target is bound.
			b.visit(n.Right, s)
			b.assign(n.Left, s, n.Range().End.Offset)
			return
		}
	case *syntax.FunctionDecl:
		b.declare(n, s)
		return
	case *syntax.Call:
		if v := OuterTarget(n); v != nil && s.Func != nil {
			b.capture(s, v.Name, n.Range().End.Offset)
		}
	}
	for _, c := range syntax.Children(n) {
		b.visit(c, s)
	}
}

// assign binds the targets of an assignment. Lists and l(...) calls on the
// left destructure into their elements.
func (b *builder) assign(target syntax.Node, s *Scope, at int) {
	switch t := target.(type) {
	case *syntax.Variable:
		b.bindVariable(t, s, at)
		return
	case *syntax.List:
		for _, e := range t.Elems {
			b.assign(e, s, at)
		}
		return
	case *syntax.Call:
		if t.Name == "l" {
			for _, e := range t.Args {
				b.assign(e, s, at)
			}
			return
		}
	}
	b.visit(target, s)
}

func (b *builder) bindVariable(v *syntax.Variable, s *Scope, at int) {
	if IsGlobalName(v.Name) {
		if _, ok := b.t.globals[v.Name]; !ok {
			b.t.globals[v.Name] = Binding{Name: v.Name, Decl: v, Kind: KindGlobal, At: at}
			b.t.globalOrder = append(b.t.globalOrder, v.Name)
		}
		return
	}
	// Writes through a captured name keep the alias.
	if s.captured[v.Name] {
		return
	}
	s.bind(Binding{Name: v.Name, Decl: v, Kind: KindVariable, At: at})
}

func (b *builder) declare(fn *syntax.FunctionDecl, s *Scope) {
	if !fn.IsLambda() {
		if _, seen := b.t.functions[fn.Name]; !seen {
			b.t.funcOrder = append(b.t.funcOrder, fn.Name)
		}
		b.t.functions[fn.Name] = fn
	}

	inner := newScope(fn, s)
	b.t.scopes[fn] = inner
	for _, p := range fn.Params {
		at := p.Range().End.Offset
		switch p := p.(type) {
		case *syntax.Param:
			inner.bind(Binding{Name: p.Name, Decl: p, Kind: KindParameter, At: at})
		case *syntax.RestParam:
			inner.bind(Binding{Name: p.Name, Decl: p, Kind: KindRest, At: at})
		case *syntax.OuterParam:
			b.capture(inner, p.Name, at)
		}
	}
	b.visit(fn.Body, inner)
}

// capture aliases name from the tables enclosing s into s, if it is bound
// there at this point of the walk.
func (b *builder) capture(s *Scope, name string, at int) {
	if IsGlobalName(name) || s.Parent == nil {
		return
	}
	if _, local := s.names[name]; local {
		return
	}
	owner := s.Parent.owner(name)
	if owner == nil {
		return
	}
	s.bind(Binding{Name: name, Decl: owner.names[name].Decl, Kind: KindOuter, At: at, from: owner})
	s.captured[name] = true
}

// OuterTarget returns x for a call of the form outer(x).
func OuterTarget(c *syntax.Call) *syntax.Variable {
	if c.Name != "outer" || len(c.Args) != 1 {
		return nil
	}
	v, _ := c.Args[0].(*syntax.Variable)
	return v
}

// owner returns the innermost table in the chain holding name.
func (s *Scope) owner(name string) *Scope {
	for sc := s; sc != nil; sc = sc.Parent {
		if _, ok := sc.names[name]; ok {
			return sc
		}
	}
	return nil
}
