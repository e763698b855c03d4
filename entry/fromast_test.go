package entry

import (
	gotok "go/token"
	"testing"
	"time"

	"github.com/jschaf/bibmgr/ast"
	"github.com/jschaf/bibmgr/bibparser"
)

func parseOneDecl(t *testing.T, src string) *ast.BibDecl {
	t.Helper()
	fset := gotok.NewFileSet()
	f, err := bibparser.ParseFile(fset, "test.bib", src, bibparser.ParseComments)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	for _, d := range f.Entries {
		if bd, ok := d.(*ast.BibDecl); ok {
			return bd
		}
	}
	t.Fatalf("no entry decl found in %q", src)
	return nil
}

func TestFromDecl_SimpleFields(t *testing.T) {
	src := `@article{turing1936,
  author = {Alan Turing},
  title = {On Computable Numbers},
  journal = {Proc. London Math. Soc.},
  year = {1936}
}`
	decl := parseOneDecl(t, src)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e, err := FromDecl(decl, now)
	if err != nil {
		t.Fatalf("FromDecl: %v", err)
	}
	if e.Key != "turing1936" {
		t.Errorf("Key = %q", e.Key)
	}
	if e.Type != TypeArticle {
		t.Errorf("Type = %q", e.Type)
	}
	if e.Title != "On Computable Numbers" {
		t.Errorf("Title = %q", e.Title)
	}
	if e.Year != 1936 {
		t.Errorf("Year = %d", e.Year)
	}
	if len(e.Author) != 1 || e.Author[0].Given != "Alan" || e.Author[0].Family != "Turing" {
		t.Errorf("Author = %+v", e.Author)
	}
}

func TestFromDecl_MultipleAuthorsAndVonLast(t *testing.T) {
	src := `@book{beethoven1824,
  author = {Ludwig van Beethoven and Ada Lovelace},
  title = {Ninth Symphony},
  publisher = {Schott},
  year = {1824}
}`
	decl := parseOneDecl(t, src)
	e, err := FromDecl(decl, time.Now())
	if err != nil {
		t.Fatalf("FromDecl: %v", err)
	}
	if len(e.Author) != 2 {
		t.Fatalf("expected 2 authors, got %+v", e.Author)
	}
	if e.Author[0].Von != "van" || e.Author[0].Family != "Beethoven" {
		t.Errorf("Author[0] = %+v", e.Author[0])
	}
	if e.Author[1].Given != "Ada" || e.Author[1].Family != "Lovelace" {
		t.Errorf("Author[1] = %+v", e.Author[1])
	}
}

func TestFromDecl_CommaFormAuthor(t *testing.T) {
	src := `@misc{king1963,
  author = {King, Jr., Martin Luther}
}`
	decl := parseOneDecl(t, src)
	e, err := FromDecl(decl, time.Now())
	if err != nil {
		t.Fatalf("FromDecl: %v", err)
	}
	if len(e.Author) != 1 {
		t.Fatalf("expected 1 author, got %+v", e.Author)
	}
	a := e.Author[0]
	if a.Family != "King" || a.Suffix != "Jr." || a.Given != "Martin Luther" {
		t.Errorf("Author[0] = %+v", a)
	}
}

func TestFromDecl_UnknownFieldGoesToExtra(t *testing.T) {
	src := `@misc{x,
  customtag = {hello}
}`
	decl := parseOneDecl(t, src)
	e, err := FromDecl(decl, time.Now())
	if err != nil {
		t.Fatalf("FromDecl: %v", err)
	}
	if e.Extra["customtag"] != "hello" {
		t.Errorf("Extra[customtag] = %q", e.Extra["customtag"])
	}
}
