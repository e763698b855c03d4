package bibparser

import (
	gotok "go/token"
	"testing"

	"github.com/jschaf/bibmgr/ast"
)

func parse(t *testing.T, src string, mode Mode) (*ast.File, error) {
	t.Helper()
	fset := gotok.NewFileSet()
	return ParseFile(fset, "test.bib", src, mode)
}

func firstBibDecl(t *testing.T, f *ast.File) *ast.BibDecl {
	t.Helper()
	for _, d := range f.Entries {
		if bd, ok := d.(*ast.BibDecl); ok {
			return bd
		}
	}
	t.Fatal("no @article/@book/etc decl found")
	return nil
}

func tagValue(t *testing.T, decl *ast.BibDecl, name string) ast.Expr {
	t.Helper()
	for _, tag := range decl.Tags {
		if tag.Name == name {
			return tag.Value
		}
	}
	t.Fatalf("tag %q not found", name)
	return nil
}

func TestParseFile_SimpleArticle(t *testing.T) {
	src := `@article{turing1936,
  author = {Alan Turing},
  title = {On Computable Numbers},
  year = {1936}
}`
	f, err := parse(t, src, 0)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	decl := firstBibDecl(t, f)
	if decl.Type != "article" {
		t.Errorf("Type = %q, want article", decl.Type)
	}
	if decl.Key.Name != "turing1936" {
		t.Errorf("Key = %q", decl.Key.Name)
	}
	if len(decl.Tags) != 3 {
		t.Errorf("Tags = %+v, want 3 tags", decl.Tags)
	}
}

func TestParseFile_EntryTypeIsLowerCased(t *testing.T) {
	src := `@ARTICLE{k, title = {T}}`
	f, err := parse(t, src, 0)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	decl := firstBibDecl(t, f)
	if decl.Type != "article" {
		t.Errorf("Type = %q, want lower-cased article", decl.Type)
	}
	if decl.RawType != "ARTICLE" {
		t.Errorf("RawType = %q, want original casing preserved", decl.RawType)
	}
}

func TestParseFile_ParenDelimitedEntry(t *testing.T) {
	src := `@article(k,
  title = {T}
)`
	f, err := parse(t, src, 0)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	decl := firstBibDecl(t, f)
	if !decl.UseParen {
		t.Error("UseParen should be true for a paren-delimited entry")
	}
}

func TestParseFile_StringAbbreviationResolvesViaScope(t *testing.T) {
	src := `@string{ieee = {IEEE Press}}
@article{k,
  publisher = ieee
}`
	f, err := parse(t, src, 0)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	decl := firstBibDecl(t, f)
	val := tagValue(t, decl, "publisher")
	ident, ok := val.(*ast.Ident)
	if !ok {
		t.Fatalf("publisher value = %T, want *ast.Ident referencing the @string abbreviation", val)
	}
	if ident.Name != "ieee" {
		t.Errorf("Ident.Name = %q, want ieee", ident.Name)
	}
	if f.Scope.Lookup("ieee") == nil {
		t.Error("file scope should resolve the ieee abbreviation")
	}
}

func TestParseFile_MultipleEntries(t *testing.T) {
	src := `@article{a, title = {A}}
@book{b, title = {B}}`
	f, err := parse(t, src, 0)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(f.Entries) != 2 {
		t.Fatalf("Entries = %d, want 2", len(f.Entries))
	}
}

func TestParseFile_ErrorRecoverySkipsMalformedEntryAndContinues(t *testing.T) {
	src := `@article{a title = {Missing Comma}}
@book{b, title = {Valid}}`
	f, err := parse(t, src, 0)
	if err == nil {
		t.Fatal("expected a parse error for the malformed first entry")
	}
	el, ok := err.(*ErrorList)
	if !ok {
		t.Fatalf("err = %T, want *ErrorList", err)
	}
	if el.Len() == 0 {
		t.Error("ErrorList should record at least one error")
	}
	if f == nil {
		t.Fatal("a partial parse should still return a usable *ast.File")
	}
	found := false
	for _, d := range f.Entries {
		if bd, ok := d.(*ast.BibDecl); ok && bd.Key != nil && bd.Key.Name == "b" {
			found = true
		}
	}
	if !found {
		t.Error("the well-formed entry after the malformed one should still be parsed")
	}
}

func TestParseFile_ParsesComments(t *testing.T) {
	src := `% a leading comment
@article{a, title = {A}}`
	f, err := parse(t, src, ParseComments)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(f.Comments) == 0 {
		t.Error("expected at least one parsed comment group")
	}
}

func TestParseFile_DuplicateKeyProducesWarning(t *testing.T) {
	src := `@article{dup, title = {First}}
@article{dup, title = {Second}}`
	f, err := parse(t, src, 0)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(f.Warnings) == 0 {
		t.Error("a duplicate citation key should produce a non-fatal warning, not a parse error")
	}
}

func TestParseExpr_ConcatenatedText(t *testing.T) {
	e, err := ParseExpr(`{Hello} # " " # {World}`)
	if err != nil {
		t.Fatalf("ParseExpr: %v", err)
	}
	if e == nil {
		t.Fatal("ParseExpr returned a nil expression")
	}
}

func TestErrorList_ErrorMessageSummarizesCount(t *testing.T) {
	el := &ErrorList{}
	el.Add(gotok.Position{Line: 1, Column: 1}, "first")
	el.Add(gotok.Position{Line: 2, Column: 1}, "second")
	msg := el.Error()
	if msg == "" {
		t.Fatal("Error() returned empty string")
	}
	if msg == "first" {
		t.Error("Error() with multiple errors should mention there are more")
	}
}
