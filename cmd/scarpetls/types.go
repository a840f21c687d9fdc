package main

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLISymbol is a JSON-friendly symbol representation.
type CLISymbol struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Signature string `json:"signature,omitempty"`
	Doc       string `json:"doc,omitempty"`
	File      string `json:"file,omitempty"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	RefCount  int    `json:"ref_count"`
}

// CLILocation extends Location with the symbol ID for chaining.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
	SymbolID  *int64 `json:"symbol_id,omitempty"`
}

// CLICallEdge is a JSON-friendly call graph edge.
type CLICallEdge struct {
	CallerID   int64  `json:"caller_id"`
	CallerName string `json:"caller_name,omitempty"`
	CalleeID   int64  `json:"callee_id"`
	CalleeName string `json:"callee_name,omitempty"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line"`
	Col        int    `json:"col"`
}

// CLIFile is a JSON-friendly file representation.
type CLIFile struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Language  string `json:"language"`
	LineCount int    `json:"line_count"`
}

// CLIProjectSummary is a JSON-friendly project summary.
type CLIProjectSummary struct {
	FileCount   int            `json:"file_count"`
	LineCount   int            `json:"line_count"`
	SymbolCount int            `json:"symbol_count"`
	KindCounts  map[string]int `json:"kind_counts"`
	TopSymbols  []CLISymbol    `json:"top_symbols"`
}

// CLISymbolDetail is a JSON-friendly symbol detail.
type CLISymbolDetail struct {
	Symbol     CLISymbol          `json:"symbol"`
	Parameters []CLIFunctionParam `json:"parameters"`
	Children   []CLISymbol        `json:"children"`
}

// CLIFunctionParam is a JSON-friendly function parameter.
type CLIFunctionParam struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
	Kind    string `json:"kind"`
}

// CLIScope is a JSON-friendly scope.
type CLIScope struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
	SymbolID  *int64 `json:"symbol_id,omitempty"`
}

// CLICallGraph is a JSON-friendly transitive call graph.
type CLICallGraph struct {
	Root  int64              `json:"root"`
	Nodes []CLICallGraphNode `json:"nodes"`
	Edges []CLICallGraphEdge `json:"edges"`
	Depth int                `json:"depth"`
}

// CLICallGraphNode is a node in a transitive call graph.
type CLICallGraphNode struct {
	Symbol CLISymbol `json:"symbol"`
	Depth  int       `json:"depth"`
}

// CLICallGraphEdge is an edge in a transitive call graph.
type CLICallGraphEdge struct {
	CallerID int64  `json:"caller_id"`
	CalleeID int64  `json:"callee_id"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
}

// CLIHotspot is a heavily-called function with fan-in/fan-out metrics.
type CLIHotspot struct {
	Symbol      CLISymbol `json:"symbol"`
	CallerCount int       `json:"caller_count"`
	CalleeCount int       `json:"callee_count"`
}

// CLIDiagnostic is one problem reported by `check`. Line and column are
// 0-based like every other position the CLI prints.
type CLIDiagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	EndLine  int    `json:"end_line"`
	EndCol   int    `json:"end_col"`
	Severity string `json:"severity"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
}
