// Package bibparser implements a recursive-descent parser for bibtex source
// text. It turns .bib source into an *ast.File: @string abbreviations are
// collected into a file-level Scope and resolved against references in
// entry tags, author/editor fields are broken into ast.ParsedText runs for
// name splitting, and a parse error in one entry does not abort the parse
// of the rest of the file - the parser synchronizes on the next "@" and
// keeps going, recording every error it saw along the way.
package bibparser

import (
	"bytes"
	"errors"
	"fmt"
	gotok "go/token"
	"io"
	"os"

	"github.com/jschaf/bibmgr/ast"
)

// Mode is a set of flags (or 0) controlling parser behavior.
type Mode uint

const (
	// ParseComments causes comments to be parsed and added to the AST.
	ParseComments Mode = 1 << iota
	// Trace causes the parser to print a trace of parsed productions.
	Trace
	// DeclarationErrors causes the parser to report declaration errors.
	DeclarationErrors
	// AllErrors causes all errors to be reported, not just the first 10.
	AllErrors
	// PreserveFormat is accepted but not read by the parser: the resulting
	// AST is the same with or without it. Tag values are kept as parsed
	// runs (ast.ParsedText), number literals (ast.BasicLit) and
	// abbreviation references (ast.Ident); raw token text and whitespace are
	// not retained, so a file cannot be re-emitted byte-for-byte from the AST.
	PreserveFormat
)

func readSource(filename string, src interface{}) ([]byte, error) {
	if src != nil {
		switch s := src.(type) {
		case string:
			return []byte(s), nil
		case []byte:
			return s, nil
		case *bytes.Buffer:
			if s != nil {
				return s.Bytes(), nil
			}
		case io.Reader:
			return io.ReadAll(s)
		}
		return nil, errors.New("invalid source")
	}
	return os.ReadFile(filename)
}

// ParseFile parses a single bibtex source file and returns the resulting
// *ast.File along with any errors encountered. Unlike most parsers, a
// non-nil error does not mean the returned file is unusable: ParseFile
// recovers from malformed entries and keeps parsing, so a caller that wants
// every salvageable entry should inspect the returned file even when err is
// non-nil (err is a *ErrorList naming every entry that failed).
func ParseFile(fset *gotok.FileSet, filename string, src interface{}, mode Mode) (f *ast.File, err error) {
	if fset == nil {
		panic("bibparser.ParseFile: no gotok.FileSet provided")
	}
	text, err := readSource(filename, src)
	if err != nil {
		return nil, err
	}

	var p parser
	defer func() {
		if e := recover(); e != nil {
			if _, ok := e.(bailout); !ok {
				panic(e)
			}
		}
		p.errors.Sort()
		err = p.errors.Err()
	}()

	p.init(fset, filename, text, mode)
	f = p.parseFile()
	return
}

// ParseExpr parses a single bibtex field value expression, e.g. the text
// that would appear on the right-hand side of a tag assignment. It is
// useful for parsing a value typed interactively or substituted at runtime
// without constructing a whole entry.
func ParseExpr(x string) (ast.Expr, error) {
	fset := gotok.NewFileSet()
	var p parser
	// The scanner reads a '{' as a braced value only after '=', '#' or '{';
	// a leading '=' puts it in the same state as the right-hand side of a
	// tag. Error positions are shifted back so they refer to x itself.
	p.init(fset, "", []byte("="+x), ParseComments)
	p.next() // consume the leading '='
	e := p.parseExpr()
	for i := range p.errors.Errs {
		pos := &p.errors.Errs[i].Pos
		pos.Offset--
		if pos.Line == 1 {
			pos.Column--
		}
	}
	p.errors.Sort()
	return e, p.errors.Err()
}

// Error records one parse error and the position at which it occurred.
type Error struct {
	Pos gotok.Position
	Msg string
}

func (e Error) Error() string {
	if e.Pos.Filename != "" || e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return e.Msg
}

// ErrorList is a sortable list of Error values; *ErrorList satisfies the
// error interface, and callers inspect the individual errors through
// ErrorList.Errs.
type ErrorList struct {
	Errs []Error
}

func (l *ErrorList) Add(pos gotok.Position, msg string) {
	l.Errs = append(l.Errs, Error{Pos: pos, Msg: msg})
}

func (l *ErrorList) Len() int { return len(l.Errs) }

func (l *ErrorList) Sort() {
	// Insertion sort; error lists are small (error recovery bails out well
	// before this would matter) and this keeps the sort stable.
	for i := 1; i < len(l.Errs); i++ {
		for j := i; j > 0 && lessPos(l.Errs[j].Pos, l.Errs[j-1].Pos); j-- {
			l.Errs[j], l.Errs[j-1] = l.Errs[j-1], l.Errs[j]
		}
	}
}

func lessPos(a, b gotok.Position) bool {
	if a.Filename != b.Filename {
		return a.Filename < b.Filename
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}

func (l *ErrorList) Err() error {
	if len(l.Errs) == 0 {
		return nil
	}
	return l
}

func (l *ErrorList) Error() string {
	switch len(l.Errs) {
	case 0:
		return "no errors"
	case 1:
		return l.Errs[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l.Errs[0].Error(), len(l.Errs)-1)
}
