// Package ast declares the types used to represent syntax trees for bibtex
// source files: entries, string abbreviations, preambles, comments, and the
// parsed-text values inside tag fields (authors, TeX accents, math spans).
//
// The node set and position-based design mirror go/ast: every node knows its
// own Pos/End, declarations carry an optional doc comment, and identifiers
// that reference an @string abbreviation are resolved against a per-file
// Scope (see scope.go) rather than eagerly substituted, so format-preserving
// callers can still see the original reference.
package ast

import (
	gotok "go/token"

	"github.com/jschaf/bibmgr/token"
)

// Node is the interface implemented by every node in a bibtex syntax tree.
type Node interface {
	Pos() gotok.Pos
	End() gotok.Pos
}

// Expr is implemented by value expressions: literals, identifiers (string
// abbreviation references), parsed text runs, and concatenations.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by statement nodes, i.e. the tag assignments inside a
// bibtex entry or abbreviation declaration.
type Stmt interface {
	Node
	stmtNode()
}

// Decl is implemented by top-level declarations: @article/@book/etc entries,
// @string definitions, @preamble blocks, and @comment blocks.
type Decl interface {
	Node
	declNode()
}

// ----------------------------------------------------------------------------
// Comments

// A Comment node represents a single %-style line comment.
type Comment struct {
	Start gotok.Pos
	Text  string // comment text, excluding the leading '%' and trailing '\n'
}

func (c *Comment) Pos() gotok.Pos { return c.Start }
func (c *Comment) End() gotok.Pos { return gotok.Pos(int(c.Start) + len(c.Text)) }

// A CommentGroup represents a sequence of comments with no other tokens and
// no blank lines between them.
type CommentGroup struct {
	List []*Comment // len(List) > 0
}

func (g *CommentGroup) Pos() gotok.Pos { return g.List[0].Pos() }
func (g *CommentGroup) End() gotok.Pos { return g.List[len(g.List)-1].End() }

// ----------------------------------------------------------------------------
// Expressions

type (
	// BadExpr is a placeholder for an expression containing a syntax error for
	// which no correct expression node could be built.
	BadExpr struct {
		From, To gotok.Pos
	}

	// Ident is a reference to an @string abbreviation, e.g. the "jan" in
	// `month = jan`. Obj is filled in during resolution and is nil until then.
	Ident struct {
		NamePos gotok.Pos
		Name    string
		Obj     *Object
	}

	// BasicLit is a quoted ("foo"), braced ({foo}), or bare numeric (2024)
	// literal, kept as the raw, unparsed field value.
	BasicLit struct {
		ValuePos gotok.Pos
		Kind     token.Token // token.String, token.BraceString, or token.Number
		Value    string      // literal text with quotes/braces stripped
	}

	// ConcatExpr is a '#'-joined concatenation of two values, e.g.
	// "Jan" # "uary" or month # "-issue".
	ConcatExpr struct {
		X     Expr
		OpPos gotok.Pos
		Y     Expr
	}

	// ParsedText is a braced or quoted field value broken into a run of Text
	// (and Text subtype) nodes by the scanner: prose interspersed with
	// whitespace, hyphens, commas, TeX accents, and math spans. Author- and
	// editor-field values are always parsed into a ParsedText so the name
	// splitter in the entry package can walk the run looking for the "and"
	// separator and commas.
	ParsedText struct {
		Lbrace gotok.Pos // may be NoPos for quote-delimited values
		Values []Expr
		Rbrace gotok.Pos
	}

	// MacroText is a run of text produced by expanding an @string macro
	// reference inside a concatenation; it holds the same Values shape as
	// ParsedText but preserves the originating identifier for format-
	// preserving rendering.
	MacroText struct {
		Name   string
		Values []Expr
	}

	// Text is a plain run of prose content with no special meaning.
	Text struct {
		ValuePos gotok.Pos
		Value    string
	}

	// TextSpace is one or more whitespace characters.
	TextSpace struct {
		ValuePos gotok.Pos
		Value    string
	}

	// TextNBSP is a TeX non-breaking space ("~").
	TextNBSP struct {
		ValuePos gotok.Pos
	}

	// TextComma is a literal comma inside a parsed text run, used by the
	// author-name splitter to find "Last, First" boundaries.
	TextComma struct {
		ValuePos gotok.Pos
	}

	// TextHyphen is a literal hyphen ("-" or "--").
	TextHyphen struct {
		ValuePos gotok.Pos
		Value    string
	}

	// TextMath is a "$...$" inline math span; Value is the content between
	// the dollar signs.
	TextMath struct {
		ValuePos gotok.Pos
		Value    string
	}

	// TextEscaped is a backslash-escaped literal character, e.g. "\&" or "\%".
	TextEscaped struct {
		ValuePos gotok.Pos
		Value    string // the character following the backslash
	}

	// TextAccent is a TeX accent command applied to a letter, e.g. \'{e} or
	// \"u. Accent identifies the diacritic and Text holds the base letter(s).
	TextAccent struct {
		ValuePos gotok.Pos
		Accent   token.Accent
		Text     *Text
	}
)

func (x *BadExpr) Pos() gotok.Pos { return x.From }
func (x *BadExpr) End() gotok.Pos { return x.To }
func (*BadExpr) exprNode()        {}

func (x *Ident) Pos() gotok.Pos { return x.NamePos }
func (x *Ident) End() gotok.Pos { return gotok.Pos(int(x.NamePos) + len(x.Name)) }
func (*Ident) exprNode()        {}

func (x *BasicLit) Pos() gotok.Pos { return x.ValuePos }
func (x *BasicLit) End() gotok.Pos { return gotok.Pos(int(x.ValuePos) + len(x.Value)) }
func (*BasicLit) exprNode()        {}

func (x *ConcatExpr) Pos() gotok.Pos { return x.X.Pos() }
func (x *ConcatExpr) End() gotok.Pos { return x.Y.End() }
func (*ConcatExpr) exprNode()        {}

func (x *ParsedText) Pos() gotok.Pos {
	if x.Lbrace.IsValid() {
		return x.Lbrace
	}
	if len(x.Values) > 0 {
		return x.Values[0].Pos()
	}
	return gotok.NoPos
}
func (x *ParsedText) End() gotok.Pos {
	if x.Rbrace.IsValid() {
		return x.Rbrace + 1
	}
	if n := len(x.Values); n > 0 {
		return x.Values[n-1].End()
	}
	return gotok.NoPos
}
func (*ParsedText) exprNode() {}

func (x *MacroText) Pos() gotok.Pos {
	if len(x.Values) > 0 {
		return x.Values[0].Pos()
	}
	return gotok.NoPos
}
func (x *MacroText) End() gotok.Pos {
	if n := len(x.Values); n > 0 {
		return x.Values[n-1].End()
	}
	return gotok.NoPos
}
func (*MacroText) exprNode() {}

func (x *Text) Pos() gotok.Pos { return x.ValuePos }
func (x *Text) End() gotok.Pos { return gotok.Pos(int(x.ValuePos) + len(x.Value)) }
func (*Text) exprNode()        {}

func (x *TextSpace) Pos() gotok.Pos { return x.ValuePos }
func (x *TextSpace) End() gotok.Pos { return gotok.Pos(int(x.ValuePos) + len(x.Value)) }
func (*TextSpace) exprNode()        {}

func (x *TextNBSP) Pos() gotok.Pos { return x.ValuePos }
func (x *TextNBSP) End() gotok.Pos { return x.ValuePos + 1 }
func (*TextNBSP) exprNode()        {}

func (x *TextComma) Pos() gotok.Pos { return x.ValuePos }
func (x *TextComma) End() gotok.Pos { return x.ValuePos + 1 }
func (*TextComma) exprNode()        {}

func (x *TextHyphen) Pos() gotok.Pos { return x.ValuePos }
func (x *TextHyphen) End() gotok.Pos { return gotok.Pos(int(x.ValuePos) + len(x.Value)) }
func (*TextHyphen) exprNode()        {}

func (x *TextMath) Pos() gotok.Pos { return x.ValuePos }
func (x *TextMath) End() gotok.Pos { return gotok.Pos(int(x.ValuePos) + len(x.Value) + 2) }
func (*TextMath) exprNode()        {}

func (x *TextEscaped) Pos() gotok.Pos { return x.ValuePos }
func (x *TextEscaped) End() gotok.Pos { return gotok.Pos(int(x.ValuePos) + len(x.Value) + 1) }
func (*TextEscaped) exprNode()        {}

func (x *TextAccent) Pos() gotok.Pos { return x.ValuePos }
func (x *TextAccent) End() gotok.Pos { return x.Text.End() }
func (*TextAccent) exprNode()        {}

// ----------------------------------------------------------------------------
// Author

// Author is a single parsed name extracted from an author or editor field.
// Each component is kept as a *Text so accents and escapes survive into
// rendering; IsEmpty reports a name with no content at all.
type Author struct {
	First  *Text
	Prefix *Text // the "von" part, e.g. "van", "de"
	Last   *Text
	Suffix *Text // e.g. "Jr.", "III"
}

// IsEmpty reports whether every component of the author is blank.
func (a *Author) IsEmpty() bool {
	if a == nil {
		return true
	}
	return textEmpty(a.First) && textEmpty(a.Prefix) && textEmpty(a.Last) && textEmpty(a.Suffix)
}

func textEmpty(t *Text) bool { return t == nil || t.Value == "" }

// Authors is an ordered list of parsed author or editor names.
type Authors []*Author

// ----------------------------------------------------------------------------
// Statements

type (
	// BadStmt is a placeholder for a statement containing a syntax error.
	BadStmt struct {
		From, To gotok.Pos
	}

	// TagStmt is a single "name = value" pair inside an entry or abbreviation.
	TagStmt struct {
		Doc     *CommentGroup
		NamePos gotok.Pos
		Name    string // lower-cased field name
		RawName string // field name exactly as it appeared in source
		Value   Expr
	}
)

func (x *BadStmt) Pos() gotok.Pos { return x.From }
func (x *BadStmt) End() gotok.Pos { return x.To }
func (*BadStmt) stmtNode()        {}

func (x *TagStmt) Pos() gotok.Pos { return x.NamePos }
func (x *TagStmt) End() gotok.Pos { return x.Value.End() }
func (*TagStmt) stmtNode()        {}

// ----------------------------------------------------------------------------
// Declarations

type (
	// BadDecl is a placeholder for a declaration containing a syntax error.
	BadDecl struct {
		From, To gotok.Pos
	}

	// AbbrevDecl is an @string declaration, e.g. @string{ jan = "January" }.
	AbbrevDecl struct {
		Doc      *CommentGroup
		Entry    gotok.Pos // position of the "@string" token
		Lparen   gotok.Pos
		Tag      *TagStmt
		Rparen   gotok.Pos // position of the closing delimiter (brace or paren)
		UseParen bool
	}

	// BibDecl is a bibliography entry, e.g. @article{ key, author = {...} }.
	BibDecl struct {
		Doc               *CommentGroup
		Entry             gotok.Pos // position of the "@article" (etc) token
		Type              string    // lower-cased entry type, e.g. "article"
		RawType           string    // entry type exactly as it appeared in source
		Lparen            gotok.Pos
		Key               *Ident // citation key; synthesized if the source omitted one
		KeyWasSynthesized bool
		ExtraKeys         []*Ident // additional comma-separated identifiers before the first '='
		Tags              []*TagStmt
		Rparen            gotok.Pos
		UseParen          bool
	}

	// PreambleDecl is an @preamble{ "..." } declaration.
	PreambleDecl struct {
		Doc      *CommentGroup
		Entry    gotok.Pos
		Lparen   gotok.Pos
		Text     Expr
		Rparen   gotok.Pos
		UseParen bool
	}

	// CommentDecl is an @comment{ ... } declaration; the body is skipped as a
	// balanced-brace block and kept verbatim for format preservation.
	CommentDecl struct {
		Entry    gotok.Pos
		Lparen   gotok.Pos
		Raw      string
		Rparen   gotok.Pos
		UseParen bool
	}
)

func (d *BadDecl) Pos() gotok.Pos { return d.From }
func (d *BadDecl) End() gotok.Pos { return d.To }
func (*BadDecl) declNode()        {}

func (d *AbbrevDecl) Pos() gotok.Pos { return d.Entry }
func (d *AbbrevDecl) End() gotok.Pos { return d.Rparen }
func (*AbbrevDecl) declNode()        {}

func (d *BibDecl) Pos() gotok.Pos { return d.Entry }
func (d *BibDecl) End() gotok.Pos { return d.Rparen }
func (*BibDecl) declNode()        {}

func (d *PreambleDecl) Pos() gotok.Pos { return d.Entry }
func (d *PreambleDecl) End() gotok.Pos { return d.Rparen }
func (*PreambleDecl) declNode()        {}

func (d *CommentDecl) Pos() gotok.Pos { return d.Entry }
func (d *CommentDecl) End() gotok.Pos { return d.Rparen }
func (*CommentDecl) declNode()        {}

// ----------------------------------------------------------------------------
// Files and packages

// A File node represents one parsed bibtex source file (or, for the
// streaming parser, one logical chunk of a larger stream).
type File struct {
	Name       string
	Doc        *CommentGroup
	Entries    []Decl // top-level declarations in source order
	Scope      *Scope // @string abbreviations defined in this file
	Unresolved []*Ident
	Comments   []*CommentGroup
	// Warnings holds non-fatal conditions noticed while parsing, such as a
	// duplicate citation key or an entry type outside the known set coerced
	// to "misc". Unlike parse errors these never stop the parse.
	Warnings []Warning
}

// Warning records one non-fatal condition noticed during parsing.
type Warning struct {
	Pos gotok.Pos
	Msg string
}

func (f *File) Pos() gotok.Pos { return gotok.Pos(1) }
func (f *File) End() gotok.Pos {
	if n := len(f.Entries); n > 0 {
		return f.Entries[n-1].End()
	}
	return gotok.Pos(1)
}

// A Package node represents a set of bibtex files belonging to the same
// logical library, e.g. every .bib file imported into one collection.
type Package struct {
	Name  string
	Scope *Scope
	Files map[string]*File
}

func (p *Package) Pos() gotok.Pos { return gotok.NoPos }
func (p *Package) End() gotok.Pos { return gotok.NoPos }
