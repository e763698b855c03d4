package citekey

import (
	"testing"

	"github.com/jschaf/bibmgr/entry"
)

func mustParse(t *testing.T, tmpl string) Pattern {
	t.Helper()
	p, err := Parse(tmpl)
	if err != nil {
		t.Fatalf("Parse(%q): %v", tmpl, err)
	}
	return p
}

func TestParse_LiteralsAndTokens(t *testing.T) {
	p := mustParse(t, "{author}{year}-{title:3}")
	if len(p.Segments) != 4 {
		t.Fatalf("got %d segments, want 4: %+v", len(p.Segments), p.Segments)
	}
	if p.Segments[0].Token != TokenAuthor {
		t.Errorf("segment 0 = %+v", p.Segments[0])
	}
	if p.Segments[2].Literal != "-" {
		t.Errorf("segment 2 = %+v", p.Segments[2])
	}
	if p.Segments[3].Token != TokenTitle || p.Segments[3].Param != "3" {
		t.Errorf("segment 3 = %+v", p.Segments[3])
	}
}

func TestParse_UnrecognizedToken(t *testing.T) {
	if _, err := Parse("{bogus}"); err == nil {
		t.Error("expected error for unrecognized token")
	}
}

func TestParse_Unterminated(t *testing.T) {
	if _, err := Parse("{author"); err == nil {
		t.Error("expected error for unterminated token")
	}
}

func testEntry() entry.Entry {
	return entry.Entry{
		Key:    "x",
		Type:   entry.TypeArticle,
		Author: []entry.Person{{Given: "Ada", Family: "Lovelace"}},
		Title:  "The Analytical Engine",
		Year:   1843,
	}
}

func TestGenerator_Base(t *testing.T) {
	g := New(Config{
		Pattern:   mustParse(t, "{author}{year}{title:1}"),
		Case:      CaseLower,
		MinLength: 3,
		MaxLength: 40,
	})
	got, err := g.Base(testEntry())
	if err != nil {
		t.Fatal(err)
	}
	// "The Analytical Engine" -> "The" is a stopword, so the first
	// significant word is "Analytical"; {title:1} takes its first letter.
	if got != "lovelace1843a" {
		t.Errorf("Base() = %q, want %q", got, "lovelace1843a")
	}
}

func TestGenerator_Generate_AutoDisambiguate(t *testing.T) {
	g := New(Config{
		Pattern:          mustParse(t, "{author}{year}"),
		Case:             CaseLower,
		AutoDisambiguate: true,
	})
	e := testEntry()
	exists := func(string) bool { return false }

	k1, err := g.Generate(e, exists)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := g.Generate(e, exists)
	if err != nil {
		t.Fatal(err)
	}
	if k1 == k2 {
		t.Errorf("expected distinct keys from repeated Generate calls, got %q twice", k1)
	}
	if k2 != k1+"a" {
		t.Errorf("k2 = %q, want %q", k2, k1+"a")
	}
}

func TestGenerator_Generate_CollisionAppendLetter(t *testing.T) {
	g := New(Config{
		Pattern:           mustParse(t, "{author}{year}"),
		Case:              CaseLower,
		CollisionStrategy: CollisionAppendLetter,
	})
	e := testEntry()
	taken := map[string]bool{"lovelace1843": true, "lovelace1843a": true}
	exists := func(k string) bool { return taken[k] }

	got, err := g.Generate(e, exists)
	if err != nil {
		t.Fatal(err)
	}
	if got != "lovelace1843b" {
		t.Errorf("Generate() = %q, want %q", got, "lovelace1843b")
	}
}

func TestGenerator_Generate_CollisionFail(t *testing.T) {
	g := New(Config{
		Pattern:           mustParse(t, "{author}{year}"),
		Case:              CaseLower,
		CollisionStrategy: CollisionFail,
	})
	exists := func(string) bool { return true }
	if _, err := g.Generate(testEntry(), exists); err == nil {
		t.Error("expected error from CollisionFail when key already exists")
	}
}

func TestGenerator_Generate_MissingYear(t *testing.T) {
	g := New(Config{Pattern: mustParse(t, "{author}{year}"), Case: CaseLower})
	e := testEntry()
	e.Year = 0
	got, err := g.Generate(e, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "lovelacend" {
		t.Errorf("Generate() = %q, want %q", got, "lovelacend")
	}
}

func TestDisambigSuffix_WrapsPastZ(t *testing.T) {
	if disambigSuffix(1) != "a" {
		t.Errorf("disambigSuffix(1) = %q", disambigSuffix(1))
	}
	if disambigSuffix(26) != "z" {
		t.Errorf("disambigSuffix(26) = %q", disambigSuffix(26))
	}
	if disambigSuffix(27) != "aa" {
		t.Errorf("disambigSuffix(27) = %q", disambigSuffix(27))
	}
}
