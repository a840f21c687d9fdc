package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/jward/scarpetls/internal/syntax"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokCall // identifier immediately followed by '('
	tokNumber
	tokString
	tokOperator
	tokComma
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokLBrace
	tokRBrace
	tokIllegal
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokIdent, tokCall:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokOperator:
		return "operator"
	case tokComma:
		return "','"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	}
	return "illegal character"
}

type token struct {
	kind tokenKind
	text string // raw source text
	str  string // unescaped contents for tokString
	loc  syntax.Range
	// doc is the '//' comment block that ends on the line directly above
	// this token.
	doc string
}

var punctuation = map[byte]tokenKind{
	',': tokComma, '(': tokLParen, ')': tokRParen, '[': tokLBracket,
	']': tokRBracket, '{': tokLBrace, '}': tokRBrace,
}

// operators, longest first within each leading byte.
var operators = []string{
	"...", "->", "+=", "-=", "*=", "/=", "<>", "||", "&&", "==", "!=", "<=", ">=",
	";", "=", "<", ">", "+", "-", "*", "/", "%", "^", ":", "~", "!",
}

type lexer struct {
	src   string
	off   int
	line  int
	char  int // UTF-16 units into the line
	diags []syntax.Diagnostic

	docLines []string
	docEnd   int // line of the last comment in docLines
}

func newLexer(src string) *lexer {
	return &lexer{src: src, docEnd: -2}
}

func (lx *lexer) pos() syntax.Position {
	return syntax.Position{Line: lx.line, Character: lx.char, Offset: lx.off}
}

func (lx *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(lx.src[lx.off:])
	lx.off += size
	switch r {
	case '\n':
		lx.line++
		lx.char = 0
	case '\r':
		if lx.off < len(lx.src) && lx.src[lx.off] == '\n' {
			lx.off++
		}
		lx.line++
		lx.char = 0
	default:
		if r >= 0x10000 {
			lx.char += 2
		} else {
			lx.char++
		}
	}
	return r
}

func (lx *lexer) peekByte(n int) byte {
	if lx.off+n < len(lx.src) {
		return lx.src[lx.off+n]
	}
	return 0
}

func (lx *lexer) errorf(r syntax.Range, code, msg string) {
	lx.diags = append(lx.diags, syntax.Diagnostic{Range: r, Severity: syntax.SeverityError, Code: code, Message: msg})
}

// skipTrivia consumes whitespace and comments, collecting the doc block.
func (lx *lexer) skipTrivia() {
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			lx.advance()
		case c == '/' && lx.peekByte(1) == '/':
			line := lx.line
			start := lx.off + 2
			for lx.off < len(lx.src) && lx.src[lx.off] != '\n' && lx.src[lx.off] != '\r' {
				lx.advance()
			}
			text := strings.TrimSpace(lx.src[start:lx.off])
			if line != lx.docEnd+1 {
				lx.docLines = lx.docLines[:0]
			}
			lx.docLines = append(lx.docLines, text)
			lx.docEnd = line
		default:
			return
		}
	}
}

func (lx *lexer) takeDoc(line int) string {
	defer func() {
		lx.docLines = lx.docLines[:0]
		lx.docEnd = -2
	}()
	if len(lx.docLines) == 0 || lx.docEnd != line-1 {
		return ""
	}
	return strings.Join(lx.docLines, "\n")
}

func (lx *lexer) next() token {
	lx.skipTrivia()
	start := lx.pos()
	doc := lx.takeDoc(start.Line)
	tok := lx.scan()
	tok.loc = syntax.Range{Start: start, End: lx.pos()}
	tok.text = lx.src[start.Offset:lx.off]
	tok.doc = doc
	return tok
}

func (lx *lexer) scan() token {
	if lx.off >= len(lx.src) {
		return token{kind: tokEOF}
	}
	c := lx.src[lx.off]
	switch {
	case isIdentStart(c):
		for lx.off < len(lx.src) && isIdentPart(lx.src[lx.off]) {
			lx.advance()
		}
		if lx.peekByte(0) == '(' {
			return token{kind: tokCall}
		}
		return token{kind: tokIdent}
	case isDigit(c) || (c == '.' && isDigit(lx.peekByte(1))):
		lx.scanNumber()
		return token{kind: tokNumber}
	case c == '\'':
		return lx.scanString()
	}

	if k, ok := punctuation[c]; ok {
		lx.advance()
		return token{kind: k}
	}
	for _, op := range operators {
		if strings.HasPrefix(lx.src[lx.off:], op) {
			for range op {
				lx.advance()
			}
			return token{kind: tokOperator}
		}
	}

	start := lx.pos()
	r := lx.advance()
	lx.errorf(syntax.Range{Start: start, End: lx.pos()}, "illegal-character", "unexpected character "+quoteRune(r))
	return token{kind: tokIllegal}
}

func (lx *lexer) scanNumber() {
	if lx.src[lx.off] == '0' && (lx.peekByte(1) == 'x' || lx.peekByte(1) == 'X') && isHex(lx.peekByte(2)) {
		lx.advance()
		lx.advance()
		for lx.off < len(lx.src) && isHex(lx.src[lx.off]) {
			lx.advance()
		}
		return
	}
	for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
		lx.advance()
	}
	if lx.peekByte(0) == '.' && isDigit(lx.peekByte(1)) {
		lx.advance()
		for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
			lx.advance()
		}
	}
	if c := lx.peekByte(0); c == 'e' || c == 'E' {
		n := 1
		if s := lx.peekByte(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(lx.peekByte(n)) {
			for i := 0; i < n; i++ {
				lx.advance()
			}
			for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
				lx.advance()
			}
		}
	}
}

func (lx *lexer) scanString() token {
	start := lx.pos()
	lx.advance()
	var b strings.Builder
	for {
		if lx.off >= len(lx.src) {
			lx.errorf(syntax.Range{Start: start, End: lx.pos()}, "unterminated-string", "unterminated string literal")
			return token{kind: tokString, str: b.String()}
		}
		r := lx.advance()
		switch r {
		case '\'':
			return token{kind: tokString, str: b.String()}
		case '\\':
			if lx.off >= len(lx.src) {
				continue
			}
			e := lx.advance()
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteRune(e)
			}
		default:
			b.WriteRune(r)
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}
