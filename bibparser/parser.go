package bibparser

import (
	gotok "go/token"
	"strconv"
	"strings"

	"github.com/jschaf/bibmgr/ast"
	"github.com/jschaf/bibmgr/scanner"
	"github.com/jschaf/bibmgr/token"
)

// parser holds the parser's internal state while it walks one bibtex file.
type parser struct {
	file    *gotok.File
	src     []byte
	errors  ErrorList
	scanner scanner.Scanner

	mode   Mode
	trace  bool
	indent int

	comments    []*ast.CommentGroup
	leadComment *ast.CommentGroup
	lineComment *ast.CommentGroup

	pos gotok.Pos
	tok token.Token
	lit string

	syncPos gotok.Pos
	syncCnt int

	topScope   *ast.Scope
	unresolved []*ast.Ident

	synthCount int
	seenKeys   map[string]bool
	warnings   []ast.Warning
}

// knownEntryTypes are the BibTeX standard-class entry types; anything else
// is coerced to "misc" with a warning rather than rejected outright.
var knownEntryTypes = map[string]bool{
	"article": true, "book": true, "booklet": true, "conference": true,
	"inbook": true, "incollection": true, "inproceedings": true,
	"manual": true, "mastersthesis": true, "misc": true, "phdthesis": true,
	"proceedings": true, "techreport": true, "unpublished": true,
}

func (p *parser) warn(pos gotok.Pos, msg string) {
	p.warnings = append(p.warnings, ast.Warning{Pos: pos, Msg: msg})
}

func (p *parser) init(fset *gotok.FileSet, filename string, src []byte, mode Mode) {
	p.file = fset.AddFile(filename, -1, len(src))
	p.src = src
	m := scanner.ScanStrings
	if mode&ParseComments != 0 {
		m |= scanner.ScanComments
	}
	eh := func(pos gotok.Position, msg string) { p.errors.Add(pos, msg) }
	p.scanner.Init(p.file, src, eh, m)

	p.mode = mode
	p.trace = mode&Trace != 0
	p.seenKeys = make(map[string]bool)

	p.next()
}

// ----------------------------------------------------------------------------
// Scoping support

func (p *parser) openScope() { p.topScope = ast.NewScope(p.topScope) }
func (p *parser) closeScope() { p.topScope = p.topScope.Outer }

var unresolvedSentinel = new(ast.Object)

// ----------------------------------------------------------------------------
// Token handling

func (p *parser) next0() {
	p.pos, p.tok, p.lit = p.scanner.Scan()
}

func (p *parser) consumeComment() (comment *ast.Comment, endLine int) {
	endLine = p.file.Line(p.pos)
	comment = &ast.Comment{Start: p.pos, Text: p.lit}
	p.next0()
	return
}

func (p *parser) consumeCommentGroup(n int) (comments *ast.CommentGroup, endLine int) {
	var list []*ast.Comment
	endLine = p.file.Line(p.pos)
	for p.tok == token.TexComment && p.file.Line(p.pos) <= endLine+n {
		var comment *ast.Comment
		comment, endLine = p.consumeComment()
		list = append(list, comment)
	}
	comments = &ast.CommentGroup{List: list}
	p.comments = append(p.comments, comments)
	return
}

// next advances to the next non-comment token, collecting
// comment groups and classifying them as lead or line comments the same way
// go/parser does for Go source.
func (p *parser) next() {
	p.leadComment = nil
	p.lineComment = nil
	prev := p.pos
	p.next0()

	if p.tok == token.TexComment {
		var comment *ast.CommentGroup
		var endLine int

		if p.file.Line(p.pos) == p.file.Line(prev) {
			comment, endLine = p.consumeCommentGroup(0)
			if p.file.Line(p.pos) != endLine || p.tok == token.EOF {
				p.lineComment = comment
			}
		}

		endLine = -1
		for p.tok == token.TexComment {
			comment, endLine = p.consumeCommentGroup(1)
		}
		if endLine+1 == p.file.Line(p.pos) {
			p.leadComment = comment
		}
	}
}

type bailout struct{}

func (p *parser) error(pos gotok.Pos, msg string) {
	epos := p.file.Position(pos)

	if p.mode&AllErrors == 0 {
		n := len(p.errors.Errs)
		if n > 0 && p.errors.Errs[n-1].Pos.Line == epos.Line {
			return
		}
		if n > 10 {
			panic(bailout{})
		}
	}
	p.errors.Add(epos, msg)
}

func (p *parser) errorExpected(pos gotok.Pos, msg string) {
	msg = "expected " + msg
	if pos == p.pos {
		switch {
		case p.tok.IsLiteral():
			msg += ", found " + p.lit
		default:
			msg += ", found '" + p.tok.String() + "'"
		}
	}
	p.error(pos, msg)
}

func (p *parser) expect(tok token.Token) gotok.Pos {
	pos := p.pos
	if p.tok != tok {
		p.errorExpected(pos, "'"+tok.String()+"'")
	}
	p.next()
	return pos
}

func (p *parser) expectClose(useParen bool) gotok.Pos {
	if useParen {
		return p.expect(token.RParen)
	}
	return p.expect(token.RBrace)
}

func (p *parser) expectComma() {
	if p.tok == token.RBrace || p.tok == token.RParen {
		return
	}
	switch p.tok {
	case token.Comma:
		p.next()
	default:
		p.errorExpected(p.pos, "','")
		p.advance(stmtStart)
	}
}

// advance consumes tokens until the current token is in the 'to' set, or EOF.
func (p *parser) advance(to map[token.Token]bool) {
	for ; p.tok != token.EOF; p.next() {
		if to[p.tok] {
			if p.pos == p.syncPos && p.syncCnt < 10 {
				p.syncCnt++
				return
			}
			if p.pos > p.syncPos {
				p.syncPos = p.pos
				p.syncCnt = 0
				return
			}
		}
	}
}

var stmtStart = map[token.Token]bool{
	token.Abbrev:   true,
	token.Comment:  true,
	token.Preamble: true,
	token.BibEntry: true,
	token.Ident:    true,
}

var entryStart = map[token.Token]bool{
	token.Abbrev:   true,
	token.Comment:  true,
	token.Preamble: true,
	token.BibEntry: true,
}

func isValidTagName(key *ast.Ident) bool {
	if key.Name == "" {
		return false
	}
	ch := key.Name[0]
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

// ----------------------------------------------------------------------------
// Expressions

// parseValue parses the right-hand side of a tag assignment: a string or
// brace-delimited literal (possibly resolved into an ast.ParsedText run), a
// number, an identifier referencing an @string abbreviation, or a '#'
// concatenation of any of those.
func (p *parser) parseValue() (x ast.Expr) {
	pos := p.pos
	switch {
	case p.tok == token.Ident:
		id := &ast.Ident{NamePos: p.pos, Name: p.lit}
		p.tryResolve(id)
		p.next()
		x = id
	case p.tok == token.Number:
		x = &ast.BasicLit{ValuePos: p.pos, Kind: token.Number, Value: p.lit}
		p.next()
	case p.tok == token.String || p.tok == token.DoubleQuote:
		x = p.parseQuotedText()
	case p.tok == token.BraceString || p.tok == token.StringLBrace:
		x = p.parseBracedText()
	default:
		p.errorExpected(p.pos, "value: string, number, or identifier")
		x = &ast.BadExpr{From: pos, To: p.pos}
		p.next()
		return
	}

	if p.tok == token.Concat {
		opPos := p.pos
		p.next()
		y := p.parseValue()
		x = &ast.ConcatExpr{X: x, OpPos: opPos, Y: y}
	}
	return
}

// parseExpr is the public single-value entry point used by ParseExpr.
func (p *parser) parseExpr() ast.Expr { return p.parseValue() }

func (p *parser) tryResolve(id *ast.Ident) {
	if p.topScope == nil {
		return
	}
	for s := p.topScope; s != nil; s = s.Outer {
		if obj := s.Lookup(id.Name); obj != nil {
			id.Obj = obj
			return
		}
	}
	id.Obj = unresolvedSentinel
	p.unresolved = append(p.unresolved, id)
}

// ----------------------------------------------------------------------------
// Statements

func (p *parser) parseIdent() *ast.Ident {
	pos := p.pos
	name := "_"
	switch p.tok {
	case token.Ident, token.Number:
		name = p.lit
		p.next()
	default:
		p.expect(token.Ident)
	}
	return &ast.Ident{NamePos: pos, Name: name}
}

func (p *parser) parseTagStmt() *ast.TagStmt {
	doc := p.leadComment
	key := p.parseIdent()
	if p.tok == token.Assign {
		p.next()
	} else {
		p.expect(token.Assign)
	}
	val := p.parseValue()
	return &ast.TagStmt{
		Doc:     doc,
		NamePos: key.Pos(),
		Name:    strings.ToLower(key.Name),
		RawName: key.Name,
		Value:   val,
	}
}

func (p *parser) openDelim() (useParen bool) {
	switch p.tok {
	case token.LParen:
		useParen = true
		p.next()
	case token.LBrace:
		p.next()
	default:
		p.errorExpected(p.pos, "'{' or '('")
	}
	return
}

func (p *parser) parsePreambleDecl() *ast.PreambleDecl {
	doc := p.leadComment
	pos := p.expect(token.Preamble)
	useParen := p.openDelim()
	text := p.parseValue()
	rParen := p.expectClose(useParen)
	return &ast.PreambleDecl{Doc: doc, Entry: pos, Text: text, Rparen: rParen, UseParen: useParen}
}

func (p *parser) parseAbbrevDecl() *ast.AbbrevDecl {
	doc := p.leadComment
	pos := p.expect(token.Abbrev)
	useParen := p.openDelim()
	tag := p.parseTagStmt()
	if tag.Name != "" {
		p.topScope.Insert(ast.NewObj(ast.Abbrev, tag.Name))
	}
	p.expectComma()
	rParen := p.expectClose(useParen)
	return &ast.AbbrevDecl{Doc: doc, Entry: pos, Tag: tag, Rparen: rParen, UseParen: useParen}
}

func (p *parser) parseCommentDecl() *ast.CommentDecl {
	pos := p.expect(token.Comment)
	useParen := p.openDelim()
	depth := 1
	start := p.pos
	for depth > 0 && p.tok != token.EOF {
		switch p.tok {
		case token.LBrace, token.LParen:
			depth++
		case token.RBrace, token.RParen:
			depth--
			if depth == 0 {
				break
			}
		}
		if depth > 0 {
			p.next()
		}
	}
	raw := ""
	if end := p.file.Offset(p.pos); end > p.file.Offset(start) {
		raw = string(p.src[p.file.Offset(start):end])
	}
	rParen := p.expectClose(useParen)
	return &ast.CommentDecl{Entry: pos, Raw: raw, Rparen: rParen, UseParen: useParen}
}

func (p *parser) synthesizeKey(pos gotok.Pos) *ast.Ident {
	p.synthCount++
	return &ast.Ident{NamePos: pos, Name: "entry_" + strconv.Itoa(p.synthCount)}
}

func (p *parser) parseBibDecl() *ast.BibDecl {
	doc := p.leadComment
	pos := p.pos
	rawType := strings.TrimPrefix(p.lit, "@")
	p.expect(token.BibEntry)
	entryType := strings.ToLower(rawType)
	if !knownEntryTypes[entryType] {
		p.warn(pos, "unknown entry type "+rawType+", coercing to @misc")
		entryType = "misc"
	}

	useParen := p.openDelim()

	var bibKey *ast.Ident
	var extraKeys []*ast.Ident
	tags := make([]*ast.TagStmt, 0, 8)

	for p.tok == token.Ident || p.tok == token.Number {
		doc := p.leadComment
		key := p.parseIdent()

		if p.tok == token.Assign {
			if !isValidTagName(key) {
				p.error(key.Pos(), "tag keys must not start with a number")
			}
			p.next()
			val := p.parseValue()
			tags = append(tags, &ast.TagStmt{
				Doc:     doc,
				NamePos: key.Pos(),
				Name:    strings.ToLower(key.Name),
				RawName: key.Name,
				Value:   val,
			})
		} else if bibKey == nil {
			bibKey = key
		} else {
			extraKeys = append(extraKeys, key)
		}

		if p.tok == token.Comma {
			p.next()
			continue
		}
		break
	}

	synthesized := false
	if bibKey == nil {
		bibKey = p.synthesizeKey(pos)
		synthesized = true
	}
	lowerKey := strings.ToLower(bibKey.Name)
	if p.seenKeys[lowerKey] {
		p.warn(bibKey.Pos(), "duplicate citation key "+bibKey.Name)
	}
	p.seenKeys[lowerKey] = true

	rParen := p.expectClose(useParen)
	return &ast.BibDecl{
		Doc:               doc,
		Entry:             pos,
		Type:              entryType,
		RawType:           rawType,
		Key:               bibKey,
		KeyWasSynthesized: synthesized,
		ExtraKeys:         extraKeys,
		Tags:              tags,
		Rparen:            rParen,
		UseParen:          useParen,
	}
}

func (p *parser) parseDecl() ast.Decl {
	switch p.tok {
	case token.Preamble:
		return p.parsePreambleDecl()
	case token.Abbrev:
		return p.parseAbbrevDecl()
	case token.Comment:
		return p.parseCommentDecl()
	case token.BibEntry:
		return p.parseBibDecl()
	default:
		pos := p.pos
		p.errorExpected(pos, "entry")
		p.advance(entryStart)
		return &ast.BadDecl{From: pos, To: p.pos}
	}
}

// ----------------------------------------------------------------------------
// Files

func (p *parser) parseFile() *ast.File {
	if p.errors.Len() != 0 {
		return nil
	}

	doc := p.leadComment

	p.openScope()
	fileScope := p.topScope
	var decls []ast.Decl
	for p.tok != token.EOF {
		decls = append(decls, p.parseDecl())
	}
	p.closeScope()

	i := 0
	for _, ident := range p.unresolved {
		if ident.Obj != unresolvedSentinel {
			continue
		}
		ident.Obj = fileScope.Lookup(ident.Name)
		if ident.Obj == nil {
			p.unresolved[i] = ident
			i++
		}
	}

	return &ast.File{
		Doc:        doc,
		Entries:    decls,
		Scope:      fileScope,
		Unresolved: p.unresolved[0:i],
		Comments:   p.comments,
		Warnings:   p.warnings,
	}
}
