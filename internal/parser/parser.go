// Package parser turns Scarpet source into a syntax.Tree. Parsing never
// fails: malformed input is reported through diagnostics and the affected
// source is represented by *syntax.Bad nodes.
package parser

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/jward/scarpetls/internal/syntax"
)

type parser struct {
	toks    []token
	pos     int
	prevEnd syntax.Position
	diags   []syntax.Diagnostic
	docs    map[*syntax.Call]string
}

// Parse parses src.
func Parse(src string) *syntax.Tree {
	lx := newLexer(src)
	var toks []token
	for {
		t := lx.next()
		if t.kind == tokIllegal {
			continue
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			break
		}
	}

	p := &parser{toks: toks, docs: make(map[*syntax.Call]string)}
	p.diags = append(p.diags, lx.diags...)
	root := p.parseProgram()

	slices.SortStableFunc(p.diags, func(a, b syntax.Diagnostic) int {
		return cmp.Compare(a.Range.Start.Offset, b.Range.Start.Offset)
	})
	return &syntax.Tree{
		Root:        root,
		Diagnostics: p.diags,
		Lines:       syntax.NewLineIndex(src),
		Source:      src,
	}
}

// --- token helpers ---

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) at(k tokenKind) bool { return p.toks[p.pos].kind == k }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
		p.prevEnd = t.loc.End
	}
	return t
}

func (p *parser) errorf(r syntax.Range, code, msg string) {
	p.diags = append(p.diags, syntax.Diagnostic{Range: r, Severity: syntax.SeverityError, Code: code, Message: msg})
}

// expect consumes a token of kind k and returns its range. When the token
// is missing it reports an error and returns an empty range at the end of
// the previous token.
func (p *parser) expect(k tokenKind) syntax.Range {
	if p.at(k) {
		return p.advance().loc
	}
	t := p.peek()
	p.errorf(t.loc, "expected-token", "expected "+k.String()+", found "+describe(t))
	return syntax.Range{Start: p.prevEnd, End: p.prevEnd}
}

// closes reports whether t ends an enclosing construct, so a missing
// expression before it should not consume it.
func closes(t token) bool {
	switch t.kind {
	case tokEOF, tokRParen, tokRBracket, tokRBrace, tokComma:
		return true
	case tokOperator:
		return t.text == ";"
	}
	return false
}

func startsExpr(t token) bool {
	switch t.kind {
	case tokNumber, tokString, tokIdent, tokCall, tokLParen, tokLBracket, tokLBrace:
		return true
	case tokOperator:
		return prefixOps[t.text]
	}
	return false
}

func describe(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of file"
	case tokOperator, tokIdent, tokCall:
		return "'" + t.text + "'"
	}
	return t.kind.String()
}

// --- grammar ---

func (p *parser) parseProgram() syntax.Node {
	if p.at(tokEOF) {
		return nil
	}
	root := p.parseExpr(0)
	for !p.at(tokEOF) {
		t := p.peek()
		p.errorf(t.loc, "unexpected-token", "unexpected "+describe(t)+", missing ';'?")
		if !startsExpr(t) {
			p.advance()
			if p.at(tokEOF) {
				break
			}
		}
		more := p.parseExpr(0)
		root = &syntax.Binary{Loc: syntax.Span(root.Range(), more.Range()), Op: ";", Left: root, Right: more}
	}
	return root
}

func (p *parser) parseExpr(minPrec int) syntax.Node {
	left := p.parseUnary()
	for {
		t := p.peek()
		if t.kind != tokOperator {
			return left
		}
		info, ok := binaryOps[t.text]
		if !ok || info.prec < minPrec {
			return left
		}
		p.advance()

		if t.text == ";" && closes(p.peek()) {
			// Trailing separator.
			left = &syntax.Binary{Loc: syntax.Span(left.Range(), t.loc), Op: ";", Left: left}
			continue
		}

		next := info.prec + 1
		if info.right {
			next = info.prec
		}
		right := p.parseExpr(next)
		left = p.combine(t, left, right)
	}
}

func (p *parser) combine(op token, left, right syntax.Node) syntax.Node {
	if op.text == "->" {
		if decl := p.attachBody(left, right); decl != nil {
			return decl
		}
	}
	return &syntax.Binary{Loc: syntax.Span(left.Range(), right.Range()), Op: op.text, Left: left, Right: right}
}

// attachBody builds a declaration from left -> body when left is a call or
// an assignment chain ending in one, as in g = _(x) -> x where '=' binds
// tighter than '->'.
func (p *parser) attachBody(left, body syntax.Node) syntax.Node {
	switch l := left.(type) {
	case *syntax.Call:
		return p.declare(l, body)
	case *syntax.Binary:
		if binaryOps[l.Op].prec != precAssignment || l.Right == nil {
			return nil
		}
		inner := p.attachBody(l.Right, body)
		if inner == nil {
			return nil
		}
		return &syntax.Binary{Loc: syntax.Span(l.Loc, body.Range()), Op: l.Op, Left: l.Left, Right: inner}
	}
	return nil
}

func (p *parser) parseUnary() syntax.Node {
	t := p.peek()
	if t.kind == tokOperator && prefixOps[t.text] {
		p.advance()
		operand := p.parseExpr(precUnary)
		return &syntax.Unary{Loc: syntax.Span(t.loc, operand.Range()), Op: t.text, Operand: operand}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() syntax.Node {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.advance()
		return parseNumber(t)
	case tokString:
		p.advance()
		return &syntax.String{Loc: t.loc, Value: t.str}
	case tokIdent:
		p.advance()
		if IsConstant(t.text) {
			return &syntax.Constant{Loc: t.loc, Name: t.text}
		}
		return &syntax.Variable{Loc: t.loc, Name: t.text}
	case tokCall:
		return p.parseCall()
	case tokLParen:
		p.advance()
		inner := p.parseExpr(0)
		end := p.expect(tokRParen)
		return &syntax.Paren{Loc: syntax.Span(t.loc, end), Inner: inner}
	case tokLBracket:
		p.advance()
		elems, end := p.parseElements(tokRBracket)
		return &syntax.List{Loc: syntax.Span(t.loc, end), Elems: elems}
	case tokLBrace:
		p.advance()
		entries, end := p.parseElements(tokRBrace)
		return &syntax.Map{Loc: syntax.Span(t.loc, end), Entries: entries}
	}

	p.errorf(t.loc, "expected-expression", "expected expression, found "+describe(t))
	if closes(t) {
		return &syntax.Bad{Loc: syntax.Range{Start: t.loc.Start, End: t.loc.Start}}
	}
	p.advance()
	return &syntax.Bad{Loc: t.loc}
}

func (p *parser) parseCall() syntax.Node {
	name := p.advance()
	p.advance() // '('
	args, end := p.parseElements(tokRParen)
	call := &syntax.Call{
		Loc:       syntax.Span(name.loc, end),
		Name:      name.text,
		NameRange: name.loc,
		Args:      args,
	}
	if name.doc != "" {
		p.docs[call] = name.doc
	}
	return call
}

// parseElements parses a comma-separated list up to the closing token.
func (p *parser) parseElements(closer tokenKind) ([]syntax.Node, syntax.Range) {
	var out []syntax.Node
	if !p.at(closer) {
		for {
			out = append(out, p.parseExpr(0))
			if !p.at(tokComma) {
				break
			}
			p.advance()
		}
	}
	return out, p.expect(closer)
}

// declare turns name(args) -> body into a function declaration.
func (p *parser) declare(call *syntax.Call, body syntax.Node) *syntax.FunctionDecl {
	fn := &syntax.FunctionDecl{
		Loc:       syntax.Span(call.Loc, body.Range()),
		Name:      call.Name,
		NameRange: call.NameRange,
		Body:      body,
		Comment:   p.docs[call],
	}
	hasRest := false
	for _, arg := range call.Args {
		switch a := arg.(type) {
		case *syntax.Variable:
			fn.Params = append(fn.Params, &syntax.Param{Loc: a.Loc, Name: a.Name})
			continue
		case *syntax.Unary:
			if v, ok := a.Operand.(*syntax.Variable); ok && a.Op == "..." {
				if hasRest {
					p.errorf(a.Loc, "duplicate-rest", "a function can only have one rest parameter")
					continue
				}
				hasRest = true
				fn.Params = append(fn.Params, &syntax.RestParam{Loc: a.Loc, Name: v.Name, NameRange: v.Loc})
				continue
			}
		case *syntax.Call:
			if a.Name == "outer" && len(a.Args) == 1 {
				if v, ok := a.Args[0].(*syntax.Variable); ok {
					fn.Params = append(fn.Params, &syntax.OuterParam{Loc: a.Loc, Name: v.Name, NameRange: v.Loc})
					continue
				}
			}
		case *syntax.Bad:
			continue
		}
		p.errorf(arg.Range(), "invalid-parameter", "invalid parameter: expected a name, ...name or outer(name)")
	}
	return fn
}

func parseNumber(t token) *syntax.Number {
	n := &syntax.Number{Loc: t.loc, Text: t.text}
	text := strings.ToLower(t.text)
	if strings.HasPrefix(text, "0x") {
		if v, err := strconv.ParseUint(text[2:], 16, 64); err == nil {
			n.IsInt, n.Int, n.Value = true, int64(v), float64(v)
			return n
		}
	}
	if !strings.ContainsAny(text, ".e") {
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			n.IsInt, n.Int, n.Value = true, v, float64(v)
			return n
		}
	}
	n.Value, _ = strconv.ParseFloat(text, 64)
	return n
}
