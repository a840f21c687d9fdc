package scarpetls

import (
	"github.com/tliron/commonlog"

	"github.com/jward/scarpetls/internal/analysis"
	"github.com/jward/scarpetls/internal/builtins"
	"github.com/jward/scarpetls/internal/parser"
	"github.com/jward/scarpetls/internal/syntax"
)

// Analyzer turns source text into Documents. It holds the inputs shared by
// every document and is safe for concurrent use.
type Analyzer struct {
	builtins   *builtins.Table
	classifier *analysis.Classifier
	markdown   bool
	log        commonlog.Logger
}

// NewAnalyzer creates an Analyzer. Only WithBuiltins, WithFunctionRefs,
// WithMarkdown and WithLogger apply.
func NewAnalyzer(opts ...Option) *Analyzer {
	return newAnalyzer(applyOptions(opts))
}

func newAnalyzer(s *settings) *Analyzer {
	return &Analyzer{
		builtins:   s.builtins,
		classifier: analysis.NewClassifier(s.functionRefs),
		markdown:   s.markdown,
		log:        s.log,
	}
}

// Builtins returns the built-in table documents are checked against.
func (a *Analyzer) Builtins() *builtins.Table { return a.builtins }

// Markdown reports whether hover and completion documentation is markdown.
func (a *Analyzer) Markdown() bool { return a.markdown }

// Classifier returns the function-reference classifier.
func (a *Analyzer) Classifier() *analysis.Classifier { return a.classifier }

// Analyze parses text and builds every table the queries need.
func (a *Analyzer) Analyze(uri string, version int32, text string) *Document {
	tree := parser.Parse(text)
	d := &Document{
		URI:      uri,
		Version:  version,
		Text:     text,
		Tree:     tree,
		analyzer: a,
		tables:   analysis.Build(tree.Root),
		fnRefs:   a.classifier.Collect(tree.Root),
	}
	d.diags = append(append([]syntax.Diagnostic(nil), tree.Diagnostics...), d.semanticDiagnostics()...)
	a.log.Debugf("analyzed %s v%d: %d diagnostic(s)", uri, version, len(d.diags))
	return d
}

// Document is an immutable analysis of one version of a script.
type Document struct {
	URI     string
	Version int32
	Text    string
	Tree    *syntax.Tree

	analyzer *Analyzer
	tables   *analysis.Tables
	fnRefs   map[*syntax.String]bool
	diags    []syntax.Diagnostic
}

// Edit replaces Range with NewText.
type Edit struct {
	Range   syntax.Range
	NewText string
}

// Root returns the tree root; nil for an empty document.
func (d *Document) Root() syntax.Node { return d.Tree.Root }

// Tables returns the scope tables built for this version.
func (d *Document) Tables() *analysis.Tables { return d.tables }

// Diagnostics returns parser diagnostics followed by semantic warnings.
// The slice is shared and must not be modified.
func (d *Document) Diagnostics() []syntax.Diagnostic { return d.diags }

// Locate returns the innermost node covering offset, or nil.
func (d *Document) Locate(offset int) syntax.Node {
	return analysis.Locate(d.Tree.Root, offset)
}

// OffsetAt converts an LSP line/character position to a byte offset.
func (d *Document) OffsetAt(line, character int) int {
	return d.Tree.Lines.Offset(line, character)
}

// PositionAt converts a byte offset to a position.
func (d *Document) PositionAt(offset int) syntax.Position {
	return d.Tree.Lines.Position(offset)
}

// IsFunctionReference reports whether node is a string literal naming a
// function.
func (d *Document) IsFunctionReference(node syntax.Node) bool {
	s, ok := node.(*syntax.String)
	return ok && d.fnRefs[s]
}

// ResolveDefinition returns the declaration node denotes: a variable
// assignment, a parameter or a function declaration. It returns (nil, nil)
// when there is none and analysis.ErrForeignNode when node is not part of
// this document.
func (d *Document) ResolveDefinition(node syntax.Node) (syntax.Node, error) {
	if node == nil {
		return nil, nil
	}
	if s, ok := node.(*syntax.String); ok {
		if syntax.PathTo(d.Tree.Root, s) == nil {
			return nil, analysis.ErrForeignNode
		}
		if !d.fnRefs[s] {
			return nil, nil
		}
		return d.tables.ResolveString(s), nil
	}
	return d.tables.Resolve(d.Tree.Root, node)
}

// DefinitionAt resolves the node at offset. When nothing resolves there it
// retries at offset-1, so a cursor just past the end of a name still
// resolves.
func (d *Document) DefinitionAt(offset int) (syntax.Node, error) {
	for _, off := range []int{offset, offset - 1} {
		n := d.nameNodeAt(off)
		if n == nil {
			continue
		}
		decl, err := d.ResolveDefinition(n)
		if err != nil {
			return nil, err
		}
		if decl != nil {
			return decl, nil
		}
	}
	return nil, nil
}

// nameNodeAt is Locate restricted to name positions: a function
// declaration only counts when offset is on its name.
func (d *Document) nameNodeAt(offset int) syntax.Node {
	if offset < 0 {
		return nil
	}
	n := d.Locate(offset)
	if fn, ok := n.(*syntax.FunctionDecl); ok && !fn.NameRange.Contains(offset) {
		return nil
	}
	return n
}

// ReachableSymbols returns the symbols visible at offset, closest first.
func (d *Document) ReachableSymbols(offset int) []analysis.Symbol {
	return d.tables.Reachable(d.Tree.Root, offset)
}

// FindReferences returns every node denoting the same declaration as node,
// in source order and including the declaration. Nodes that resolve to
// nothing, such as built-in calls, have no references.
func (d *Document) FindReferences(node syntax.Node) ([]syntax.Node, error) {
	decl, err := d.ResolveDefinition(node)
	if err != nil || decl == nil {
		return nil, err
	}
	return d.tables.References(d.Tree.Root, decl, d.fnRefs), nil
}

// ReferencesAt is FindReferences for the name at offset, with the same
// offset-1 fallback as DefinitionAt.
func (d *Document) ReferencesAt(offset int) ([]syntax.Node, error) {
	decl, err := d.DefinitionAt(offset)
	if err != nil || decl == nil {
		return nil, err
	}
	return d.tables.References(d.Tree.Root, decl, d.fnRefs), nil
}

// Rename returns the edits renaming the symbol node denotes to newName.
// Built-in names are rejected before newName is looked at; see
// analysis.ValidateRename for the name rules. A name with no declaration
// in this document yields no edits.
func (d *Document) Rename(node syntax.Node, newName string) ([]Edit, error) {
	name, ok := d.symbolName(node)
	if !ok {
		return nil, nil
	}
	if err := analysis.ValidateRename(name, newName, d.isBuiltin(node, name)); err != nil {
		return nil, err
	}
	refs, err := d.FindReferences(node)
	if err != nil {
		return nil, err
	}
	edits := make([]Edit, 0, len(refs))
	for _, r := range refs {
		edits = append(edits, Edit{Range: analysis.NameRange(r), NewText: newName})
	}
	return edits, nil
}

// RenameAt is Rename for the name at offset.
func (d *Document) RenameAt(offset int, newName string) ([]Edit, error) {
	n := d.renameTarget(offset)
	if n == nil {
		return nil, nil
	}
	return d.Rename(n, newName)
}

// PrepareRename returns the span of the name at offset, or nil when there
// is nothing renameable there. Built-in names are rejected.
func (d *Document) PrepareRename(offset int) (*syntax.Range, error) {
	n := d.renameTarget(offset)
	if n == nil {
		return nil, nil
	}
	name, _ := d.symbolName(n)
	if d.isBuiltin(n, name) {
		return nil, analysis.ValidateRename(name, name, true)
	}
	decl, err := d.ResolveDefinition(n)
	if err != nil || decl == nil {
		return nil, err
	}
	r := analysis.NameRange(n)
	return &r, nil
}

// renameTarget finds the named node at offset or offset-1.
func (d *Document) renameTarget(offset int) syntax.Node {
	for _, off := range []int{offset, offset - 1} {
		n := d.nameNodeAt(off)
		if _, ok := d.symbolName(n); ok {
			return n
		}
	}
	return nil
}

// symbolName is analysis.NameOf extended to constants, with unclassified
// strings excluded.
func (d *Document) symbolName(n syntax.Node) (string, bool) {
	switch n := n.(type) {
	case nil:
		return "", false
	case *syntax.Constant:
		return n.Name, true
	case *syntax.String:
		if !d.fnRefs[n] {
			return "", false
		}
	}
	return analysis.NameOf(n)
}

// isBuiltin reports whether the name n carries belongs to the game rather
// than the script. Variables and functions live in separate namespaces, so
// a variable is only built-in when it names a constant, and a function
// only when it names a built-in function or a callback.
func (d *Document) isBuiltin(n syntax.Node, name string) bool {
	t := d.analyzer.builtins
	switch n.(type) {
	case *syntax.Call, *syntax.FunctionDecl, *syntax.String:
		return t.Kind(name) == builtins.FunctionSymbol || t.IsCallback(name)
	default:
		_, ok := t.Constants[name]
		return ok
	}
}
