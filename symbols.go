package scarpetls

import (
	"github.com/jward/scarpetls/internal/analysis"
	"github.com/jward/scarpetls/internal/syntax"
)

// DocumentSymbol is one outline entry. Range covers the whole declaration,
// SelectionRange just its name.
type DocumentSymbol struct {
	Name           string
	Detail         string
	Kind           analysis.Kind
	Range          syntax.Range
	SelectionRange syntax.Range
	Children       []DocumentSymbol
}

// Symbols returns the document outline: named functions in source order,
// each with its parameters as children, followed by the global_ variables
// in first-declaration order. Redeclared functions appear once per
// declaration.
func (d *Document) Symbols() []DocumentSymbol {
	var out []DocumentSymbol
	syntax.Inspect(d.Tree.Root, func(n syntax.Node) bool {
		fn, ok := n.(*syntax.FunctionDecl)
		if !ok || fn.IsLambda() {
			return true
		}
		sym := DocumentSymbol{
			Name:           fn.Name,
			Detail:         Signature(fn),
			Kind:           analysis.KindFunction,
			Range:          fn.Loc,
			SelectionRange: fn.NameRange,
		}
		for _, p := range fn.Params {
			name, _ := analysis.NameOf(p)
			sym.Children = append(sym.Children, DocumentSymbol{
				Name:           name,
				Kind:           paramKind(p),
				Range:          p.Range(),
				SelectionRange: analysis.NameRange(p),
			})
		}
		out = append(out, sym)
		return true
	})
	for _, b := range d.tables.Globals() {
		out = append(out, DocumentSymbol{
			Name:           b.Name,
			Kind:           analysis.KindGlobal,
			Range:          b.Decl.Range(),
			SelectionRange: b.Decl.Range(),
		})
	}
	return out
}

func paramKind(p syntax.Node) analysis.Kind {
	switch p.(type) {
	case *syntax.RestParam:
		return analysis.KindRest
	case *syntax.OuterParam:
		return analysis.KindOuter
	}
	return analysis.KindParameter
}
