package scarpetls

import (
	"strconv"
	"strings"

	"github.com/jward/scarpetls/internal/analysis"
	"github.com/jward/scarpetls/internal/builtins"
	"github.com/jward/scarpetls/internal/syntax"
)

// Hover is the information shown for the node under the cursor.
type Hover struct {
	Range    syntax.Range
	Contents string
	Markdown bool
}

// Hover describes the node at offset, or returns nil when there is nothing
// to say about it.
func (d *Document) Hover(offset int) *Hover {
	n := d.Locate(offset)
	if n == nil {
		return nil
	}
	md := d.analyzer.markdown

	var r syntax.Range
	var text string
	switch n := n.(type) {
	case *syntax.Call:
		r = n.NameRange
		if fn, ok := d.tables.Function(n.Name); ok {
			text = functionDoc(fn, md)
		} else {
			text = builtinDoc(d.analyzer.builtins, n.Name, md)
		}
	case *syntax.FunctionDecl:
		if !n.NameRange.Contains(offset) {
			return nil
		}
		r = n.NameRange
		text = functionDoc(n, md)
		if cb, ok := d.analyzer.builtins.Callbacks[n.Name]; ok {
			text += "\n\n" + builtinText(cb.Deprecated, cb.Plain, cb.Markdown, md)
		}
	case *syntax.Variable:
		r = n.Loc
		decl, _ := d.tables.Resolve(d.Tree.Root, n)
		if decl == nil && d.analyzer.builtins.Kind(n.Name) == builtins.ConstantSymbol {
			text = builtinDoc(d.analyzer.builtins, n.Name, md)
			break
		}
		if decl == nil {
			decl = n
		}
		text = codeBlock(variableLabel(decl), md)
	case *syntax.Param, *syntax.RestParam, *syntax.OuterParam:
		r = analysis.NameRange(n)
		text = codeBlock(variableLabel(n), md)
	case *syntax.Constant:
		r = n.Loc
		text = builtinDoc(d.analyzer.builtins, n.Name, md)
	case *syntax.Number:
		r = n.Loc
		text = codeBlock(numberLabel(n), md)
	case *syntax.String:
		if !d.fnRefs[n] {
			return nil
		}
		r = n.Loc
		if fn := d.tables.ResolveString(n); fn != nil {
			text = functionDoc(fn.(*syntax.FunctionDecl), md)
		} else {
			text = builtinDoc(d.analyzer.builtins, n.Value, md)
		}
	}
	if text == "" {
		return nil
	}
	return &Hover{Range: r, Contents: strings.TrimSpace(text), Markdown: md}
}

// Signature renders a declaration head as written: name(a, ...rest, outer(b)).
func Signature(fn *syntax.FunctionDecl) string {
	parts := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		switch p := p.(type) {
		case *syntax.Param:
			parts = append(parts, p.Name)
		case *syntax.RestParam:
			parts = append(parts, "..."+p.Name)
		case *syntax.OuterParam:
			parts = append(parts, "outer("+p.Name+")")
		}
	}
	return fn.Name + "(" + strings.Join(parts, ", ") + ")"
}

func functionDoc(fn *syntax.FunctionDecl, md bool) string {
	text := codeBlock(Signature(fn)+" -> ...", md)
	if fn.Comment != "" {
		text += "\n\n" + commentText(fn.Comment, md)
	}
	return text
}

// commentText joins a doc comment block. Plain text keeps line breaks;
// markdown separates paragraphs at blank comment lines.
func commentText(comment string, md bool) string {
	if !md {
		return comment
	}
	var paras []string
	var cur []string
	for _, line := range strings.Split(comment, "\n") {
		if line == "" {
			if len(cur) > 0 {
				paras = append(paras, strings.Join(cur, " "))
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		paras = append(paras, strings.Join(cur, " "))
	}
	return strings.Join(paras, "\n\n")
}

// builtinDoc renders syntax, deprecation and documentation of a built-in,
// or "" for an unknown name.
func builtinDoc(t *builtins.Table, name string, md bool) string {
	switch t.Kind(name) {
	case builtins.FunctionSymbol:
		fn := t.Functions[name]
		return codeBlock(t.Syntax(name), md) + "\n\n" + builtinText(fn.Deprecated, fn.Plain, fn.Markdown, md)
	case builtins.ConstantSymbol:
		c := t.Constants[name]
		return codeBlock(name, md) + "\n\n" + builtinText("", c.Plain, c.Markdown, md)
	case builtins.CallbackSymbol:
		cb := t.Callbacks[name]
		return codeBlock(builtins.FormatCall(name, cb.Params), md) + "\n\n" + builtinText(cb.Deprecated, cb.Plain, cb.Markdown, md)
	}
	return ""
}

func builtinText(deprecated, plain, markdown string, md bool) string {
	var sb strings.Builder
	if deprecated != "" {
		sb.WriteString(deprecated)
		if md {
			sb.WriteString("\n\n")
		} else {
			sb.WriteString("\n")
		}
	}
	if md && markdown != "" {
		sb.WriteString(markdown)
	} else {
		sb.WriteString(plain)
	}
	return sb.String()
}

func codeBlock(code string, md bool) string {
	if !md {
		return code
	}
	return "```scarpet\n" + code + "\n```"
}

func variableLabel(decl syntax.Node) string {
	switch n := decl.(type) {
	case *syntax.Param:
		return "(parameter) " + n.Name
	case *syntax.RestParam:
		return "(parameter) ..." + n.Name
	case *syntax.OuterParam:
		return "(outer) " + n.Name
	case *syntax.Variable:
		if analysis.IsGlobalName(n.Name) {
			return "(global) " + n.Name
		}
		return n.Name
	}
	name, _ := analysis.NameOf(decl)
	return name
}

// numberLabel shows integers in decimal and hex, other numbers as decimal.
func numberLabel(n *syntax.Number) string {
	if !n.IsInt {
		return strconv.FormatFloat(n.Value, 'f', -1, 64)
	}
	hex := strings.ToUpper(strconv.FormatInt(n.Int, 16))
	if n.Int < 0 {
		return strconv.FormatInt(n.Int, 10) + " (-0x" + strings.TrimPrefix(hex, "-") + ")"
	}
	return strconv.FormatInt(n.Int, 10) + " (0x" + hex + ")"
}
