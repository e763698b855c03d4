package bibparser

import (
	gotok "go/token"
	"strings"

	"github.com/jschaf/bibmgr/ast"
	"github.com/jschaf/bibmgr/token"
)

// parseQuotedText parses a "..."-delimited field value into an
// *ast.ParsedText, assuming p.tok is token.DoubleQuote (the scanner has
// already switched into string-scanning mode for us).
func (p *parser) parseQuotedText() ast.Expr {
	lbrace := p.pos
	p.next() // consume opening DoubleQuote
	values := p.parseStringValues(token.DoubleQuote)
	rbrace := p.pos
	p.next() // consume closing DoubleQuote
	return &ast.ParsedText{Lbrace: lbrace, Values: values, Rbrace: rbrace}
}

// parseBracedText parses a "{...}"-delimited field value the same way.
func (p *parser) parseBracedText() ast.Expr {
	lbrace := p.pos
	p.next() // consume opening StringLBrace
	values := p.parseStringValues(token.StringRBrace)
	rbrace := p.pos
	p.next() // consume closing StringRBrace
	return &ast.ParsedText{Lbrace: lbrace, Values: values, Rbrace: rbrace}
}

// parseStringValues consumes string-mode tokens up to (but not including)
// the token that closes the current literal: closeTok is DoubleQuote for a
// quote-delimited value, StringRBrace for a brace-delimited one. Nested
// brace groups (used to protect case, e.g. "the {Go} language") are
// flattened directly into the returned slice so author/editor splitting can
// still see commas and the "and" separator across a protected span.
func (p *parser) parseStringValues(closeTok token.Token) []ast.Expr {
	var values []ast.Expr
	for {
		switch p.tok {
		case closeTok:
			return values
		case token.EOF:
			p.error(p.pos, "string literal not terminated")
			return values
		case token.StringLBrace:
			p.next()
			nested := p.parseStringValues(token.StringRBrace)
			values = append(values, nested...)
			p.next() // consume nested StringRBrace
		case token.StringContents:
			values = append(values, &ast.Text{ValuePos: p.pos, Value: p.lit})
			p.next()
		case token.StringSpace:
			values = append(values, &ast.TextSpace{ValuePos: p.pos, Value: p.lit})
			p.next()
		case token.StringNBSP:
			values = append(values, &ast.TextNBSP{ValuePos: p.pos})
			p.next()
		case token.StringComma:
			values = append(values, &ast.TextComma{ValuePos: p.pos})
			p.next()
		case token.StringHyphen:
			values = append(values, &ast.TextHyphen{ValuePos: p.pos, Value: p.lit})
			p.next()
		case token.StringMath:
			values = append(values, &ast.TextMath{ValuePos: p.pos, Value: p.lit})
			p.next()
		case token.StringBackslash:
			values = append(values, &ast.TextEscaped{ValuePos: p.pos, Value: strings.TrimPrefix(p.lit, `\`)})
			p.next()
		case token.StringMacro:
			// A TeX macro invocation we don't expand, e.g. \url or \,. Keep it
			// as literal text so rendering can reproduce it.
			values = append(values, &ast.Text{ValuePos: p.pos, Value: `\` + p.lit})
			p.next()
		case token.StringAccent:
			values = append(values, p.parseAccent(p.pos, p.lit))
			p.next()
		default:
			p.error(p.pos, "unexpected token in string literal: "+p.tok.String())
			p.next()
		}
	}
}

// parseAccent decodes a StringAccent literal like `\'{e}`, `\'e`, or `\c c`
// into an *ast.TextAccent with the accent marker and base letter split out.
func (p *parser) parseAccent(pos gotok.Pos, lit string) ast.Expr {
	// lit always starts with the consumed backslash.
	body := strings.TrimPrefix(lit, `\`)
	if body == "" {
		p.error(pos, "empty accent literal")
		return &ast.TextAccent{ValuePos: pos, Text: &ast.Text{Value: ""}}
	}
	accent := token.Accent(body[0])
	rest := strings.TrimPrefix(body[1:], "{")
	rest = strings.TrimSuffix(rest, "}")
	rest = strings.TrimPrefix(rest, " ")
	return &ast.TextAccent{
		ValuePos: pos,
		Accent:   accent,
		Text:     &ast.Text{ValuePos: pos + gotok.Pos(len(lit)-len(rest)), Value: rest},
	}
}
