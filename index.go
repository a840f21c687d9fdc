package scarpetls

import (
	"fmt"
	"path/filepath"

	"github.com/jward/scarpetls/internal/analysis"
	"github.com/jward/scarpetls/internal/store"
	"github.com/jward/scarpetls/internal/syntax"
)

// exporter writes one analysed document to a DataStore. Every file gets a
// script symbol spanning the document; top-level declarations hang off it
// and top-level calls are attributed to it in the call graph.
type exporter struct {
	ds     store.DataStore
	fileID int64
	doc    *Document

	script   int64
	docScope int64
	symbols  map[syntax.Node]int64
	scopes   map[*syntax.FunctionDecl]int64
	parent   map[*syntax.FunctionDecl]*syntax.FunctionDecl
	decls    []*syntax.FunctionDecl // lambdas included, source order
}

// indexDocument exports doc as file fileID.
func indexDocument(ds store.DataStore, fileID int64, path string, doc *Document) error {
	x := &exporter{
		ds:      ds,
		fileID:  fileID,
		doc:     doc,
		symbols: make(map[syntax.Node]int64),
		scopes:  make(map[*syntax.FunctionDecl]int64),
		parent:  make(map[*syntax.FunctionDecl]*syntax.FunctionDecl),
	}
	x.collect(doc.Tree.Root, nil)

	if err := x.insertScript(filepath.Base(path)); err != nil {
		return fmt.Errorf("script symbol: %w", err)
	}
	if err := x.insertFunctions(); err != nil {
		return fmt.Errorf("functions: %w", err)
	}
	if err := x.insertScopes(); err != nil {
		return fmt.Errorf("scopes: %w", err)
	}
	if err := x.insertVariables(); err != nil {
		return fmt.Errorf("variables: %w", err)
	}
	if err := x.insertReferences(); err != nil {
		return fmt.Errorf("references: %w", err)
	}
	return nil
}

func (x *exporter) collect(n syntax.Node, enclosing *syntax.FunctionDecl) {
	if n == nil {
		return
	}
	if fn, ok := n.(*syntax.FunctionDecl); ok {
		x.parent[fn] = enclosing
		x.decls = append(x.decls, fn)
		enclosing = fn
	}
	for _, c := range syntax.Children(n) {
		x.collect(c, enclosing)
	}
}

// owner returns the symbol a node inside fn belongs to: the nearest named
// declaration at or above fn, or the script.
func (x *exporter) owner(fn *syntax.FunctionDecl) int64 {
	for f := fn; f != nil; f = x.parent[f] {
		if !f.IsLambda() {
			return x.symbols[f]
		}
	}
	return x.script
}

func (x *exporter) scopeOf(fn *syntax.FunctionDecl) int64 {
	if id, ok := x.scopes[fn]; ok {
		return id
	}
	return x.docScope
}

func (x *exporter) documentEnd() syntax.Position {
	return x.doc.PositionAt(len(x.doc.Text))
}

func (x *exporter) insertSymbol(decl syntax.Node, sym *store.Symbol, r syntax.Range) error {
	sym.FileID = &x.fileID
	sym.StartLine, sym.StartCol = r.Start.Line, r.Start.Character
	sym.EndLine, sym.EndCol = r.End.Line, r.End.Character
	id, err := x.ds.InsertSymbol(sym)
	if err != nil {
		return err
	}
	if decl != nil {
		x.symbols[decl] = id
	}
	return nil
}

func (x *exporter) insertScript(name string) error {
	sym := &store.Symbol{Name: name, Kind: store.KindScript}
	if err := x.insertSymbol(nil, sym, syntax.Range{End: x.documentEnd()}); err != nil {
		return err
	}
	x.script = sym.ID
	return nil
}

// insertFunctions writes named declarations with their parameters, and
// the parameters of lambdas. Declarations come in preorder, so a parent is
// always written before anything nested in it.
func (x *exporter) insertFunctions() error {
	for _, fn := range x.decls {
		owner := x.owner(x.parent[fn])
		if !fn.IsLambda() {
			sym := &store.Symbol{
				Name:           fn.Name,
				Kind:           store.KindFunction,
				Signature:      Signature(fn),
				Doc:            fn.Comment,
				ParentSymbolID: &owner,
			}
			if err := x.insertSymbol(fn, sym, fn.NameRange); err != nil {
				return err
			}
			owner = sym.ID
		}
		for i, p := range fn.Params {
			name, _ := analysis.NameOf(p)
			kind := paramKind(p).String()
			if !fn.IsLambda() {
				fp := &store.FunctionParam{SymbolID: owner, Name: name, Ordinal: i, Kind: kind}
				if _, err := x.ds.InsertFunctionParam(fp); err != nil {
					return err
				}
			}
			if _, ok := p.(*syntax.OuterParam); ok {
				// Captures alias an existing declaration.
				continue
			}
			sym := &store.Symbol{Name: name, Kind: kind, ParentSymbolID: &owner}
			if err := x.insertSymbol(p, sym, analysis.NameRange(p)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (x *exporter) insertScopes() error {
	doc := &store.Scope{FileID: x.fileID, Kind: store.ScopeDocument}
	doc.EndLine, doc.EndCol = x.documentEnd().Line, x.documentEnd().Character
	if _, err := x.ds.InsertScope(doc); err != nil {
		return err
	}
	x.docScope = doc.ID

	for _, fn := range x.decls {
		parent := x.scopeOf(x.parent[fn])
		sc := &store.Scope{
			FileID:        x.fileID,
			Kind:          store.ScopeFunction,
			StartLine:     fn.Loc.Start.Line,
			StartCol:      fn.Loc.Start.Character,
			EndLine:       fn.Loc.End.Line,
			EndCol:        fn.Loc.End.Character,
			ParentScopeID: &parent,
		}
		if fn.IsLambda() {
			sc.Kind = store.ScopeLambda
		} else {
			id := x.symbols[fn]
			sc.SymbolID = &id
		}
		if _, err := x.ds.InsertScope(sc); err != nil {
			return err
		}
		x.scopes[fn] = sc.ID
	}
	return nil
}

// insertVariables writes one symbol per assignment that introduced a
// binding, overwritten ones included, and one per global_ name.
func (x *exporter) insertVariables() error {
	tables := x.doc.tables
	emit := func(s *analysis.Scope, owner int64) error {
		for _, b := range s.Bindings() {
			if b.Kind != analysis.KindVariable {
				continue
			}
			if _, done := x.symbols[b.Decl]; done {
				continue
			}
			sym := &store.Symbol{Name: b.Name, Kind: store.KindVariable, ParentSymbolID: &owner}
			if err := x.insertSymbol(b.Decl, sym, b.Decl.Range()); err != nil {
				return err
			}
		}
		return nil
	}

	if err := emit(tables.Root, x.script); err != nil {
		return err
	}
	for _, fn := range x.decls {
		if s := tables.ScopeOf(fn); s != nil {
			if err := emit(s, x.owner(fn)); err != nil {
				return err
			}
		}
	}
	for _, b := range tables.Globals() {
		owner := x.script
		sym := &store.Symbol{Name: b.Name, Kind: store.KindGlobal, ParentSymbolID: &owner}
		if err := x.insertSymbol(b.Decl, sym, b.Decl.Range()); err != nil {
			return err
		}
	}
	return nil
}

// insertReferences records every name occurrence with its resolution, and
// a call edge for each call or function string that resolves.
func (x *exporter) insertReferences() error {
	tables := x.doc.tables
	var err error
	tables.Walk(x.doc.Tree.Root, func(n syntax.Node, s *analysis.Scope, enclosing *syntax.FunctionDecl) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *syntax.Variable:
			decl := tables.ResolveIn(s, n)
			context := store.ContextVariable
			if decl == syntax.Node(n) {
				context = store.ContextDeclaration
			}
			_, err = x.reference(n.Name, n.Loc, enclosing, context, decl, variableResolution(s, n.Name))
		case *syntax.Param, *syntax.RestParam:
			name, _ := analysis.NameOf(n)
			_, err = x.reference(name, analysis.NameRange(n), enclosing, store.ContextDeclaration, n, store.ResolutionLexical)
		case *syntax.OuterParam:
			resolution := store.ResolutionCapture
			if analysis.IsGlobalName(n.Name) {
				resolution = store.ResolutionGlobal
			}
			_, err = x.reference(n.Name, n.NameRange, enclosing, store.ContextCapture, tables.ResolveIn(s, n), resolution)
		case *syntax.FunctionDecl:
			if !n.IsLambda() {
				_, err = x.reference(n.Name, n.NameRange, enclosing, store.ContextDeclaration, n, store.ResolutionFunction)
			}
		case *syntax.Call:
			var target int64
			target, err = x.reference(n.Name, n.NameRange, enclosing, store.ContextCall, tables.ResolveIn(s, n), store.ResolutionFunction)
			if err == nil && target != 0 {
				err = x.callEdge(enclosing, target, n.NameRange)
			}
		case *syntax.String:
			if !x.doc.fnRefs[n] {
				break
			}
			var target int64
			target, err = x.reference(n.Value, analysis.NameRange(n), enclosing, store.ContextFunctionString, tables.ResolveString(n), store.ResolutionFunction)
			if err == nil && target != 0 {
				err = x.callEdge(enclosing, target, n.Loc)
			}
		}
		return err == nil
	})
	return err
}

// reference inserts one occurrence and, when decl has a symbol, its
// resolution. It returns the target symbol ID, or 0.
func (x *exporter) reference(name string, r syntax.Range, enclosing *syntax.FunctionDecl, context string, decl syntax.Node, resolution string) (int64, error) {
	scopeID := x.scopeOf(enclosing)
	ref := &store.Reference{
		FileID:    x.fileID,
		ScopeID:   &scopeID,
		Name:      name,
		StartLine: r.Start.Line,
		StartCol:  r.Start.Character,
		EndLine:   r.End.Line,
		EndCol:    r.End.Character,
		Context:   context,
	}
	if _, err := x.ds.InsertReference(ref); err != nil {
		return 0, err
	}
	if decl == nil {
		return 0, nil
	}
	target, ok := x.symbols[decl]
	if !ok {
		return 0, nil
	}
	rr := &store.ResolvedReference{ReferenceID: ref.ID, TargetSymbolID: target, ResolutionKind: resolution}
	if _, err := x.ds.InsertResolvedReference(rr); err != nil {
		return 0, err
	}
	return target, nil
}

func (x *exporter) callEdge(enclosing *syntax.FunctionDecl, callee int64, r syntax.Range) error {
	_, err := x.ds.InsertCallEdge(&store.CallEdge{
		CallerSymbolID: x.owner(enclosing),
		CalleeSymbolID: callee,
		FileID:         &x.fileID,
		Line:           r.Start.Line,
		Col:            r.Start.Character,
	})
	return err
}

func variableResolution(s *analysis.Scope, name string) string {
	if analysis.IsGlobalName(name) {
		return store.ResolutionGlobal
	}
	if b, ok := s.Lookup(name); ok && b.Kind == analysis.KindOuter {
		return store.ResolutionCapture
	}
	return store.ResolutionLexical
}
