package store

import "time"

// Positions are zero-based lines and UTF-16 columns, matching LSP.

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Symbol kinds.
const (
	KindScript    = "script"
	KindFunction  = "function"
	KindVariable  = "variable"
	KindGlobal    = "global"
	KindParameter = "parameter"
	KindRest      = "rest"
	KindOuter     = "outer"
)

// Symbol is one declaration. Every file has a KindScript symbol spanning the
// whole document; top-level calls are attributed to it in the call graph.
type Symbol struct {
	ID             int64
	FileID         *int64
	Name           string
	Kind           string
	Signature      string
	Doc            string
	StartLine      int
	StartCol       int
	EndLine        int
	EndCol         int
	ParentSymbolID *int64
}

type FunctionParam struct {
	ID       int64
	SymbolID int64
	Name     string
	Ordinal  int
	Kind     string // parameter, rest or outer
}

// Scope kinds.
const (
	ScopeDocument = "document"
	ScopeFunction = "function"
	ScopeLambda   = "lambda"
)

type Scope struct {
	ID            int64
	FileID        int64
	SymbolID      *int64
	Kind          string
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
	ParentScopeID *int64
}

// Reference contexts.
const (
	ContextDeclaration    = "declaration"
	ContextVariable       = "variable"
	ContextCall           = "call"
	ContextFunctionString = "function_string"
	ContextCapture        = "capture"
)

// Reference is one name occurrence. The span covers the bare name only.
type Reference struct {
	ID        int64
	FileID    int64
	ScopeID   *int64
	Name      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Context   string
}

// Resolution kinds.
const (
	ResolutionLexical  = "lexical"
	ResolutionGlobal   = "global"
	ResolutionFunction = "function"
	ResolutionCapture  = "capture"
)

type ResolvedReference struct {
	ID             int64
	ReferenceID    int64
	TargetSymbolID int64
	ResolutionKind string
}

type CallEdge struct {
	ID             int64
	CallerSymbolID int64
	CalleeSymbolID int64
	FileID         *int64
	Line           int
	Col            int
}
