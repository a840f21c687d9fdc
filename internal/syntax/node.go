// Package syntax defines the Scarpet syntax tree. Trees are built by
// internal/parser, never mutated afterwards, and compared by node identity.
package syntax

// Node is any syntax tree node.
type Node interface {
	Range() Range
	node()
}

// Variable is a plain variable reference or assignment target.
type Variable struct {
	Loc  Range
	Name string
}

// Constant is one of the named constants (true, false, null, pi, euler).
type Constant struct {
	Loc  Range
	Name string
}

// String is a single-quoted string literal. Value holds the unescaped
// contents.
type String struct {
	Loc   Range
	Value string
}

// Number is a numeric literal. Text is the literal as written.
type Number struct {
	Loc   Range
	Text  string
	Value float64
	IsInt bool
	Int   int64
}

// Call is a function call: name(args...).
type Call struct {
	Loc       Range
	Name      string
	NameRange Range
	Args      []Node
}

// FunctionDecl is name(params...) -> body. A Name of "_" is a lambda.
type FunctionDecl struct {
	Loc       Range
	Name      string
	NameRange Range
	// Params holds *Param, *RestParam and *OuterParam in source order.
	Params  []Node
	Body    Node
	Comment string
}

// IsLambda reports whether the declaration is anonymous.
func (f *FunctionDecl) IsLambda() bool { return f.Name == "_" || f.Name == "" }

// Param is an ordinary function parameter.
type Param struct {
	Loc  Range
	Name string
}

// RestParam is ...name.
type RestParam struct {
	Loc       Range
	Name      string
	NameRange Range
}

// OuterParam is outer(name).
type OuterParam struct {
	Loc       Range
	Name      string
	NameRange Range
}

// Binary is any infix expression, including assignment, ';' and '->' when
// the left side is not a call. Right is nil for a trailing ';'.
type Binary struct {
	Loc   Range
	Op    string
	Left  Node
	Right Node
}

// Unary is a prefix expression: -x, !x, ...x.
type Unary struct {
	Loc     Range
	Op      string
	Operand Node
}

type Paren struct {
	Loc   Range
	Inner Node
}

type List struct {
	Loc   Range
	Elems []Node
}

type Map struct {
	Loc     Range
	Entries []Node
}

// Bad stands in for source that failed to parse.
type Bad struct {
	Loc Range
}

func (n *Variable) Range() Range     { return n.Loc }
func (n *Constant) Range() Range     { return n.Loc }
func (n *String) Range() Range       { return n.Loc }
func (n *Number) Range() Range       { return n.Loc }
func (n *Call) Range() Range         { return n.Loc }
func (n *FunctionDecl) Range() Range { return n.Loc }
func (n *Param) Range() Range        { return n.Loc }
func (n *RestParam) Range() Range    { return n.Loc }
func (n *OuterParam) Range() Range   { return n.Loc }
func (n *Binary) Range() Range       { return n.Loc }
func (n *Unary) Range() Range        { return n.Loc }
func (n *Paren) Range() Range        { return n.Loc }
func (n *List) Range() Range         { return n.Loc }
func (n *Map) Range() Range          { return n.Loc }
func (n *Bad) Range() Range          { return n.Loc }

func (*Variable) node()     {}
func (*Constant) node()     {}
func (*String) node()       {}
func (*Number) node()       {}
func (*Call) node()         {}
func (*FunctionDecl) node() {}
func (*Param) node()        {}
func (*RestParam) node()    {}
func (*OuterParam) node()   {}
func (*Binary) node()       {}
func (*Unary) node()        {}
func (*Paren) node()        {}
func (*List) node()         {}
func (*Map) node()          {}
func (*Bad) node()          {}

// KindOf returns a short lowercase name for the node's type.
func KindOf(n Node) string {
	switch n.(type) {
	case *Variable:
		return "variable"
	case *Constant:
		return "constant"
	case *String:
		return "string"
	case *Number:
		return "number"
	case *Call:
		return "call"
	case *FunctionDecl:
		return "function"
	case *Param:
		return "parameter"
	case *RestParam:
		return "rest"
	case *OuterParam:
		return "outer"
	case *Binary:
		return "binary"
	case *Unary:
		return "unary"
	case *Paren:
		return "paren"
	case *List:
		return "list"
	case *Map:
		return "map"
	case *Bad:
		return "bad"
	}
	return ""
}

// Unparen strips any number of enclosing parentheses.
func Unparen(n Node) Node {
	for {
		p, ok := n.(*Paren)
		if !ok || p.Inner == nil {
			return n
		}
		n = p.Inner
	}
}

// Severity mirrors the LSP diagnostic severities.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "info"
	case SeverityHint:
		return "hint"
	}
	return "unknown"
}

// Diagnostic is a problem found in a document.
type Diagnostic struct {
	Range    Range
	Severity Severity
	Code     string
	Message  string
}

// Tree is the output of a parse.
type Tree struct {
	// Root is nil for an empty document.
	Root        Node
	Diagnostics []Diagnostic
	Lines       *LineIndex
	Source      string
}
