package scarpetls

import (
	"strings"

	"github.com/jward/scarpetls/internal/analysis"
	"github.com/jward/scarpetls/internal/builtins"
	"github.com/jward/scarpetls/internal/syntax"
)

// CompletionKind classifies a completion item.
type CompletionKind uint8

const (
	CompletionVariable CompletionKind = iota + 1
	CompletionFunction
	CompletionConstant
	CompletionKeyword
	CompletionSnippet
)

// CompletionItem is one completion proposal. Range is the span the
// insertion replaces; it is empty at the cursor when nothing is typed yet.
type CompletionItem struct {
	Label         string
	Kind          CompletionKind
	Detail        string
	Documentation string
	InsertText    string
	Deprecated    bool
	Range         syntax.Range
}

// Completions returns the proposals at offset. Inside a string classified
// as a function reference only function names are offered, quoted; inside
// other strings and in comments nothing is.
func (d *Document) Completions(offset int) []CompletionItem {
	if d.inComment(offset) {
		return nil
	}
	var node syntax.Node
	if offset > 0 {
		node = d.Locate(offset - 1)
	}
	r := syntax.Range{Start: d.PositionAt(offset), End: d.PositionAt(offset)}
	if c, ok := node.(*syntax.Call); ok {
		if c.NameRange.Contains(offset - 1) {
			r = c.NameRange
		}
	} else if node != nil && isWordNode(node) {
		r = node.Range()
	}

	s, isString := node.(*syntax.String)
	asString := isString && d.fnRefs[s]
	if isString && !asString {
		return nil
	}

	t := d.analyzer.builtins
	md := d.analyzer.markdown
	var items []CompletionItem
	if !asString {
		for _, name := range t.ConstantNames() {
			c := t.Constants[name]
			items = append(items, CompletionItem{
				Label:         name,
				Kind:          CompletionKeyword,
				Documentation: builtinText("", c.Plain, c.Markdown, md),
				InsertText:    name,
			})
		}
	}
	for _, name := range t.FunctionNames() {
		fn := t.Functions[name]
		item := CompletionItem{
			Label:         name,
			Kind:          CompletionFunction,
			Detail:        t.Syntax(name),
			Documentation: builtinText(fn.Deprecated, fn.Plain, fn.Markdown, md),
			InsertText:    name,
			Deprecated:    fn.Deprecated != "",
		}
		if asString {
			item.Kind = CompletionConstant
			item.InsertText = "'" + name + "'"
		}
		items = append(items, item)
	}
	if !asString {
		for _, name := range t.CallbackNames() {
			cb := t.Callbacks[name]
			params := make([]string, len(cb.Params))
			for i, p := range cb.Params {
				params[i] = p.Name
			}
			items = append(items, CompletionItem{
				Label:         name,
				Kind:          CompletionSnippet,
				Detail:        builtins.FormatCall(name, cb.Params),
				Documentation: builtinText(cb.Deprecated, cb.Plain, cb.Markdown, md),
				InsertText:    name + "(" + strings.Join(params, ", ") + ") -> ",
				Deprecated:    cb.Deprecated != "",
			})
		}
	}

	for _, sym := range d.ReachableSymbols(offset) {
		if sym.Kind == analysis.KindFunction {
			fn := sym.Decl.(*syntax.FunctionDecl)
			if t.IsCallback(fn.Name) {
				continue
			}
			item := CompletionItem{
				Label:         fn.Name,
				Kind:          CompletionFunction,
				Detail:        Signature(fn),
				Documentation: commentText(fn.Comment, md),
				InsertText:    fn.Name,
			}
			if asString {
				item.Kind = CompletionConstant
				item.InsertText = "'" + fn.Name + "'"
			}
			items = append(items, item)
			continue
		}
		if asString {
			continue
		}
		items = append(items, CompletionItem{
			Label:      sym.Name,
			Kind:       CompletionVariable,
			Detail:     sym.Kind.String(),
			InsertText: sym.Name,
		})
	}

	for i := range items {
		items[i].Range = r
	}
	return items
}

// inComment reports whether offset is after a // on its line. Strings are
// not taken into account, matching how the lexer scans comments.
func (d *Document) inComment(offset int) bool {
	offset = max(0, min(offset, len(d.Text)))
	lineStart := strings.LastIndexByte(d.Text[:offset], '\n') + 1
	return strings.Contains(d.Text[lineStart:offset], "//")
}

// isWordNode reports whether typing at the end of n extends it.
func isWordNode(n syntax.Node) bool {
	switch n.(type) {
	case *syntax.Variable, *syntax.Constant, *syntax.String:
		return true
	}
	return false
}
