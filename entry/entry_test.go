package entry

import (
	"testing"
	"time"
)

func TestPerson_String(t *testing.T) {
	tests := []struct {
		name string
		p    Person
		want string
	}{
		{"given family", Person{Given: "Ada", Family: "Lovelace"}, "Ada Lovelace"},
		{"family only", Person{Family: "Plato"}, "Plato"},
		{"von family", Person{Given: "Ludwig", Von: "van", Family: "Beethoven"}, "Ludwig van Beethoven"},
		{"suffix", Person{Given: "Martin", Family: "King", Suffix: "Jr."}, "King, Jr., Martin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPerson_IsEmpty(t *testing.T) {
	if !(Person{}).IsEmpty() {
		t.Error("zero-value Person should be empty")
	}
	if (Person{Given: "A"}).IsEmpty() {
		t.Error("Person with a Given name should not be empty")
	}
}

func TestEntry_WithField_StandardFields(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := New("knuth1997", TypeBook, now)

	later := now.Add(time.Hour)
	e2 := e.WithField(FieldTitle, "The Art of Computer Programming", later)
	if e2.Title != "The Art of Computer Programming" {
		t.Errorf("Title = %q", e2.Title)
	}
	if !e2.ModifiedAt.Equal(later) {
		t.Errorf("ModifiedAt not updated: got %v want %v", e2.ModifiedAt, later)
	}
	if e.Title != "" {
		t.Error("original Entry mutated by WithField")
	}
}

func TestEntry_WithField_Year(t *testing.T) {
	now := time.Now()
	e := New("k", TypeArticle, now)
	e = e.WithField(FieldYear, "circa 1997 or so", now)
	if e.Year != 1997 {
		t.Errorf("Year = %d, want 1997", e.Year)
	}
}

func TestEntry_WithField_Keywords(t *testing.T) {
	now := time.Now()
	e := New("k", TypeArticle, now)
	e = e.WithField(FieldKeywords, "go, concurrency; testing", now)
	want := []string{"go", "concurrency", "testing"}
	if len(e.Keywords) != len(want) {
		t.Fatalf("Keywords = %v, want %v", e.Keywords, want)
	}
	for i := range want {
		if e.Keywords[i] != want[i] {
			t.Errorf("Keywords[%d] = %q, want %q", i, e.Keywords[i], want[i])
		}
	}
}

func TestEntry_WithField_Unknown_GoesToExtra(t *testing.T) {
	now := time.Now()
	e := New("k", TypeMisc, now)
	e = e.WithField(Field("nonstandard"), "value", now)
	if e.Extra["nonstandard"] != "value" {
		t.Errorf("Extra[nonstandard] = %q, want %q", e.Extra["nonstandard"], "value")
	}
}

func TestEntry_clone_DeepCopiesSlicesAndMaps(t *testing.T) {
	now := time.Now()
	e := New("k", TypeArticle, now)
	e.Author = []Person{{Family: "A"}}
	e.Keywords = []string{"x"}
	e.Extra = map[string]string{"a": "1"}

	e2 := e.WithField(FieldTitle, "t", now)
	e2.Author[0].Family = "B"
	e2.Keywords[0] = "y"
	e2.Extra["a"] = "2"

	if e.Author[0].Family != "A" {
		t.Error("Author slice shared between clones")
	}
	if e.Keywords[0] != "x" {
		t.Error("Keywords slice shared between clones")
	}
	if e.Extra["a"] != "1" {
		t.Error("Extra map shared between clones")
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1997", 1997},
		{"circa 1997 AD", 1997},
		{"no year here", 0},
		{"12", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParseYear(tt.in); got != tt.want {
			t.Errorf("ParseYear(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSplitKeywords(t *testing.T) {
	got := SplitKeywords(" a, b ; c,,d ")
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("SplitKeywords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEntry_FieldValue_YearAbsentWhenZero(t *testing.T) {
	e := New("k", TypeMisc, time.Now())
	if _, ok := e.FieldValue(FieldYear); ok {
		t.Error("FieldValue(FieldYear) should be absent when Year is zero")
	}
}

func TestEntry_MissingRequiredFields(t *testing.T) {
	now := time.Now()
	e := New("k", TypeArticle, now)
	missing := e.MissingRequiredFields()
	if len(missing) != 4 {
		t.Fatalf("expected 4 missing alternatives for a bare article, got %d: %v", len(missing), missing)
	}

	e = e.WithField(FieldAuthor, "", now)
	e.Author = []Person{{Family: "Turing"}}
	e = e.WithField(FieldTitle, "On Computable Numbers", now)
	e = e.WithField(FieldJournal, "Proc. LMS", now)
	e = e.WithField(FieldYear, "1936", now)
	if missing := e.MissingRequiredFields(); len(missing) != 0 {
		t.Errorf("expected no missing fields, got %v", missing)
	}
}

func TestEntry_MissingRequiredFields_Alternative(t *testing.T) {
	now := time.Now()
	e := New("k", TypeBook, now)
	e.Editor = []Person{{Family: "Ed"}}
	e = e.WithField(FieldTitle, "T", now)
	e = e.WithField(FieldPublisher, "P", now)
	e = e.WithField(FieldYear, "2000", now)
	if missing := e.MissingRequiredFields(); len(missing) != 0 {
		t.Errorf("editor alone should satisfy author-or-editor alternative, got missing=%v", missing)
	}
}

func TestEntry_SearchText_IsLowercased(t *testing.T) {
	now := time.Now()
	e := New("k", TypeArticle, now)
	e = e.WithField(FieldTitle, "UPPER Case Title", now)
	text := e.SearchText()
	for _, r := range text {
		if r >= 'A' && r <= 'Z' {
			t.Fatalf("SearchText contains uppercase rune: %q", text)
		}
	}
}

func TestEntry_AllFieldNames_SortedAndIncludesExtra(t *testing.T) {
	now := time.Now()
	e := New("k", TypeMisc, now)
	e = e.WithField(Field("zzz-custom"), "v", now)
	names := e.AllFieldNames()
	if len(names) != len(standardFieldOrder)+1 {
		t.Fatalf("got %d names, want %d", len(names), len(standardFieldOrder)+1)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("AllFieldNames not sorted: %v", names)
		}
	}
}
