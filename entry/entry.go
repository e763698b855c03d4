// Package entry declares the immutable value types at the center of the
// bibliographic database: Entry, Collection, Tag, Note, EntryMetadata,
// ValidationResult, and DuplicateMatch. Every "mutation" on these types
// returns a new value; none of them carry methods that write to storage -
// persistence is the repository package's job.
package entry

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Type is one of the fixed BibTeX entry categories.
type Type string

const (
	TypeArticle       Type = "article"
	TypeBook          Type = "book"
	TypeBooklet       Type = "booklet"
	TypeConference    Type = "conference"
	TypeInbook        Type = "inbook"
	TypeIncollection  Type = "incollection"
	TypeInproceedings Type = "inproceedings"
	TypeManual        Type = "manual"
	TypeMastersthesis Type = "mastersthesis"
	TypeMisc          Type = "misc"
	TypePhdthesis     Type = "phdthesis"
	TypeProceedings   Type = "proceedings"
	TypeTechreport    Type = "techreport"
	TypeUnpublished   Type = "unpublished"
)

// KnownTypes lists every recognized entry type, in the order they appear in
// the BibTeX standard classes.
var KnownTypes = []Type{
	TypeArticle, TypeBook, TypeBooklet, TypeConference, TypeInbook,
	TypeIncollection, TypeInproceedings, TypeManual, TypeMastersthesis,
	TypeMisc, TypePhdthesis, TypeProceedings, TypeTechreport, TypeUnpublished,
}

// IsKnown reports whether t is one of KnownTypes.
func (t Type) IsKnown() bool {
	for _, k := range KnownTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Field names a bibtex tag, always lower-cased.
type Field string

const (
	FieldAuthor       Field = "author"
	FieldEditor       Field = "editor"
	FieldTitle        Field = "title"
	FieldJournal      Field = "journal"
	FieldBooktitle    Field = "booktitle"
	FieldPublisher    Field = "publisher"
	FieldSchool       Field = "school"
	FieldInstitution  Field = "institution"
	FieldYear         Field = "year"
	FieldMonth        Field = "month"
	FieldVolume       Field = "volume"
	FieldNumber       Field = "number"
	FieldPages        Field = "pages"
	FieldSeries       Field = "series"
	FieldEdition      Field = "edition"
	FieldChapter      Field = "chapter"
	FieldAddress      Field = "address"
	FieldNote         Field = "note"
	FieldHowpublished Field = "howpublished"
	FieldOrganization Field = "organization"
	FieldCrossref     Field = "crossref"
	FieldAnnote       Field = "annote"
	FieldAbstract     Field = "abstract"
	FieldDOI          Field = "doi"
	FieldEprint       Field = "eprint"
	FieldISBN         Field = "isbn"
	FieldISSN         Field = "issn"
	FieldKeywords     Field = "keywords"
	FieldLanguage     Field = "language"
	FieldLocation     Field = "location"
	FieldPMID         Field = "pmid"
	FieldURL          Field = "url"
)

// Person is a single parsed author or editor name, split into the four
// BibTeX name-grammar parts.
type Person struct {
	Given  string `json:"given,omitempty"`
	Von    string `json:"von,omitempty"`
	Family string `json:"family,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

// String renders a Person as "Von Family, Suffix, Given" when a suffix is
// present, and "Given Von Family" otherwise - the conventional
// display form BibTeX itself would produce from "First von Last".
func (p Person) String() string {
	family := strings.TrimSpace(strings.TrimSpace(p.Von + " " + p.Family))
	if p.Suffix == "" {
		if p.Given == "" {
			return family
		}
		return strings.TrimSpace(p.Given + " " + family)
	}
	return strings.TrimSpace(family + ", " + p.Suffix + ", " + p.Given)
}

// IsEmpty reports whether every component of p is blank.
func (p Person) IsEmpty() bool {
	return p.Given == "" && p.Von == "" && p.Family == "" && p.Suffix == ""
}

// Entry is an immutable bibliographic record identified by a citation key.
// Every field access is a plain struct read; every change goes through a
// With* method that returns a new Entry with ModifiedAt refreshed.
type Entry struct {
	Key  string `json:"key"`
	Type Type   `json:"type"`

	Author []Person `json:"author,omitempty"`
	Editor []Person `json:"editor,omitempty"`

	Title        string `json:"title,omitempty"`
	Journal      string `json:"journal,omitempty"`
	Booktitle    string `json:"booktitle,omitempty"`
	Publisher    string `json:"publisher,omitempty"`
	School       string `json:"school,omitempty"`
	Institution  string `json:"institution,omitempty"`
	Year         int    `json:"year,omitempty"`
	Month        string `json:"month,omitempty"`
	Volume       string `json:"volume,omitempty"`
	Number       string `json:"number,omitempty"`
	Pages        string `json:"pages,omitempty"`
	Series       string `json:"series,omitempty"`
	Edition      string `json:"edition,omitempty"`
	Chapter      string `json:"chapter,omitempty"`
	Address      string `json:"address,omitempty"`
	Note         string `json:"note,omitempty"`
	Howpublished string `json:"howpublished,omitempty"`
	Organization string `json:"organization,omitempty"`
	Crossref     string `json:"crossref,omitempty"`
	Annote       string `json:"annote,omitempty"`

	Abstract string   `json:"abstract,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	Eprint   string   `json:"eprint,omitempty"`
	ISBN     string   `json:"isbn,omitempty"`
	ISSN     string   `json:"issn,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Language string   `json:"language,omitempty"`
	Location string   `json:"location,omitempty"`
	PMID     string   `json:"pmid,omitempty"`
	URL      string   `json:"url,omitempty"`

	FilePath string `json:"filePath,omitempty"`

	// Extra holds any field not named above (verbatim as it parsed), so
	// nonstandard or forward-compatible tags round-trip instead of being
	// silently dropped.
	Extra map[string]string `json:"extra,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// New returns a minimal Entry with the given key and type and both audit
// timestamps set to now.
func New(key string, typ Type, now time.Time) Entry {
	return Entry{Key: key, Type: typ, CreatedAt: now, ModifiedAt: now}
}

func (e Entry) clone() Entry {
	c := e
	c.Author = append([]Person(nil), e.Author...)
	c.Editor = append([]Person(nil), e.Editor...)
	c.Keywords = append([]string(nil), e.Keywords...)
	if e.Extra != nil {
		c.Extra = make(map[string]string, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// WithKey returns a copy of e with Key replaced.
func (e Entry) WithKey(key string, now time.Time) Entry {
	c := e.clone()
	c.Key = key
	c.ModifiedAt = now
	return c
}

// WithType returns a copy of e with Type replaced.
func (e Entry) WithType(t Type, now time.Time) Entry {
	c := e.clone()
	c.Type = t
	c.ModifiedAt = now
	return c
}

// WithField returns a copy of e with the named standard field set to value.
// Year is parsed leniently (first run of digits); Keywords splits on comma
// or semicolon. Unknown fields are stored verbatim in Extra. Author and
// editor are not parsed here: a FieldAuthor or FieldEditor value is stored
// verbatim in Extra like an unknown field, and Author/Editor are left as
// they were (WithAuthors and WithEditors set them).
func (e Entry) WithField(f Field, value string, now time.Time) Entry {
	c := e.clone()
	switch f {
	case FieldTitle:
		c.Title = value
	case FieldJournal:
		c.Journal = value
	case FieldBooktitle:
		c.Booktitle = value
	case FieldPublisher:
		c.Publisher = value
	case FieldSchool:
		c.School = value
	case FieldInstitution:
		c.Institution = value
	case FieldYear:
		c.Year = ParseYear(value)
	case FieldMonth:
		c.Month = value
	case FieldVolume:
		c.Volume = value
	case FieldNumber:
		c.Number = value
	case FieldPages:
		c.Pages = value
	case FieldSeries:
		c.Series = value
	case FieldEdition:
		c.Edition = value
	case FieldChapter:
		c.Chapter = value
	case FieldAddress:
		c.Address = value
	case FieldNote:
		c.Note = value
	case FieldHowpublished:
		c.Howpublished = value
	case FieldOrganization:
		c.Organization = value
	case FieldCrossref:
		c.Crossref = value
	case FieldAnnote:
		c.Annote = value
	case FieldAbstract:
		c.Abstract = value
	case FieldDOI:
		c.DOI = value
	case FieldEprint:
		c.Eprint = value
	case FieldISBN:
		c.ISBN = value
	case FieldISSN:
		c.ISSN = value
	case FieldKeywords:
		c.Keywords = SplitKeywords(value)
	case FieldLanguage:
		c.Language = value
	case FieldLocation:
		c.Location = value
	case FieldPMID:
		c.PMID = value
	case FieldURL:
		c.URL = value
	default:
		if c.Extra == nil {
			c.Extra = make(map[string]string, 1)
		}
		c.Extra[string(f)] = value
	}
	c.ModifiedAt = now
	return c
}

// WithAuthors returns a copy of e with Author replaced.
func (e Entry) WithAuthors(authors []Person, now time.Time) Entry {
	c := e.clone()
	c.Author = append([]Person(nil), authors...)
	c.ModifiedAt = now
	return c
}

// WithEditors returns a copy of e with Editor replaced.
func (e Entry) WithEditors(editors []Person, now time.Time) Entry {
	c := e.clone()
	c.Editor = append([]Person(nil), editors...)
	c.ModifiedAt = now
	return c
}

// ParseYear extracts the first run of 4 decimal digits in s and parses it as
// a year; it returns 0 if no such run exists.
func ParseYear(s string) int {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start == -1 {
				start = i
			}
			if i-start == 3 {
				y, err := strconv.Atoi(s[start : i+1])
				if err == nil {
					return y
				}
			}
		} else {
			start = -1
		}
	}
	return 0
}

// SplitKeywords splits a comma- or semicolon-separated keyword string,
// trimming whitespace and dropping empty segments.
func SplitKeywords(s string) []string {
	f := func(r rune) bool { return r == ',' || r == ';' }
	parts := strings.FieldsFunc(s, f)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AuthorNames renders Author as display strings using Person.String
// ("Given Von Family", or "Von Family, Suffix, Given" when a suffix is set).
func (e Entry) AuthorNames() []string {
	return personNames(e.Author)
}

// EditorNames renders Editor the same way as AuthorNames.
func (e Entry) EditorNames() []string {
	return personNames(e.Editor)
}

func personNames(ps []Person) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.String())
	}
	return out
}

// SearchText concatenates the fields a free-text search should match:
// title, author/editor names, journal/booktitle, keywords, and abstract.
func (e Entry) SearchText() string {
	parts := []string{e.Key, e.Title, e.Journal, e.Booktitle, e.Abstract}
	parts = append(parts, e.AuthorNames()...)
	parts = append(parts, e.EditorNames()...)
	parts = append(parts, e.Keywords...)
	return strings.ToLower(strings.Join(parts, " "))
}

// FieldAlternative is a disjunctive required-field rule: the entry is valid
// as long as at least one of Fields is present.
type FieldAlternative struct {
	Fields []Field
}

// RequiredFields lists, per entry type, the required-field alternatives
// from the BibTeX standard classes (an article requires author AND title
// AND journal AND year; a book requires author OR editor).
var RequiredFields = map[Type][]FieldAlternative{
	TypeArticle: {
		{Fields: []Field{FieldAuthor}}, {Fields: []Field{FieldTitle}},
		{Fields: []Field{FieldJournal}}, {Fields: []Field{FieldYear}},
	},
	TypeBook: {
		{Fields: []Field{FieldAuthor, FieldEditor}},
		{Fields: []Field{FieldTitle}}, {Fields: []Field{FieldPublisher}},
		{Fields: []Field{FieldYear}},
	},
	TypeBooklet: {
		{Fields: []Field{FieldTitle}},
	},
	TypeConference: {
		{Fields: []Field{FieldAuthor}}, {Fields: []Field{FieldTitle}},
		{Fields: []Field{FieldBooktitle}}, {Fields: []Field{FieldYear}},
	},
	TypeInbook: {
		{Fields: []Field{FieldAuthor, FieldEditor}},
		{Fields: []Field{FieldTitle}},
		{Fields: []Field{FieldChapter, FieldPages}},
		{Fields: []Field{FieldPublisher}}, {Fields: []Field{FieldYear}},
	},
	TypeIncollection: {
		{Fields: []Field{FieldAuthor}}, {Fields: []Field{FieldTitle}},
		{Fields: []Field{FieldBooktitle}}, {Fields: []Field{FieldPublisher}},
		{Fields: []Field{FieldYear}},
	},
	TypeInproceedings: {
		{Fields: []Field{FieldAuthor}}, {Fields: []Field{FieldTitle}},
		{Fields: []Field{FieldBooktitle}}, {Fields: []Field{FieldYear}},
	},
	TypeManual: {
		{Fields: []Field{FieldTitle}},
	},
	TypeMastersthesis: {
		{Fields: []Field{FieldAuthor}}, {Fields: []Field{FieldTitle}},
		{Fields: []Field{FieldSchool}}, {Fields: []Field{FieldYear}},
	},
	TypeMisc: {},
	TypePhdthesis: {
		{Fields: []Field{FieldAuthor}}, {Fields: []Field{FieldTitle}},
		{Fields: []Field{FieldSchool}}, {Fields: []Field{FieldYear}},
	},
	TypeProceedings: {
		{Fields: []Field{FieldTitle}}, {Fields: []Field{FieldYear}},
	},
	TypeTechreport: {
		{Fields: []Field{FieldAuthor}}, {Fields: []Field{FieldTitle}},
		{Fields: []Field{FieldInstitution}}, {Fields: []Field{FieldYear}},
	},
	TypeUnpublished: {
		{Fields: []Field{FieldAuthor}}, {Fields: []Field{FieldTitle}},
		{Fields: []Field{FieldNote}},
	},
}

// FieldValue returns the string form of field f on e, and whether it was
// present (non-empty / non-zero).
func (e Entry) FieldValue(f Field) (string, bool) {
	switch f {
	case FieldAuthor:
		if len(e.Author) == 0 {
			return "", false
		}
		return strings.Join(e.AuthorNames(), " and "), true
	case FieldEditor:
		if len(e.Editor) == 0 {
			return "", false
		}
		return strings.Join(e.EditorNames(), " and "), true
	case FieldTitle:
		return e.Title, e.Title != ""
	case FieldJournal:
		return e.Journal, e.Journal != ""
	case FieldBooktitle:
		return e.Booktitle, e.Booktitle != ""
	case FieldPublisher:
		return e.Publisher, e.Publisher != ""
	case FieldSchool:
		return e.School, e.School != ""
	case FieldInstitution:
		return e.Institution, e.Institution != ""
	case FieldYear:
		if e.Year == 0 {
			return "", false
		}
		return strconv.Itoa(e.Year), true
	case FieldMonth:
		return e.Month, e.Month != ""
	case FieldVolume:
		return e.Volume, e.Volume != ""
	case FieldNumber:
		return e.Number, e.Number != ""
	case FieldPages:
		return e.Pages, e.Pages != ""
	case FieldSeries:
		return e.Series, e.Series != ""
	case FieldEdition:
		return e.Edition, e.Edition != ""
	case FieldChapter:
		return e.Chapter, e.Chapter != ""
	case FieldAddress:
		return e.Address, e.Address != ""
	case FieldNote:
		return e.Note, e.Note != ""
	case FieldHowpublished:
		return e.Howpublished, e.Howpublished != ""
	case FieldOrganization:
		return e.Organization, e.Organization != ""
	case FieldCrossref:
		return e.Crossref, e.Crossref != ""
	case FieldAnnote:
		return e.Annote, e.Annote != ""
	case FieldAbstract:
		return e.Abstract, e.Abstract != ""
	case FieldDOI:
		return e.DOI, e.DOI != ""
	case FieldEprint:
		return e.Eprint, e.Eprint != ""
	case FieldISBN:
		return e.ISBN, e.ISBN != ""
	case FieldISSN:
		return e.ISSN, e.ISSN != ""
	case FieldKeywords:
		if len(e.Keywords) == 0 {
			return "", false
		}
		return strings.Join(e.Keywords, ", "), true
	case FieldLanguage:
		return e.Language, e.Language != ""
	case FieldLocation:
		return e.Location, e.Location != ""
	case FieldPMID:
		return e.PMID, e.PMID != ""
	case FieldURL:
		return e.URL, e.URL != ""
	default:
		v, ok := e.Extra[string(f)]
		return v, ok
	}
}

// MissingRequiredFields returns the required-field alternatives from
// RequiredFields that e satisfies none of.
func (e Entry) MissingRequiredFields() []FieldAlternative {
	var missing []FieldAlternative
	for _, alt := range RequiredFields[e.Type] {
		satisfied := false
		for _, f := range alt.Fields {
			if _, ok := e.FieldValue(f); ok {
				satisfied = true
				break
			}
		}
		if !satisfied {
			missing = append(missing, alt)
		}
	}
	return missing
}

// AllFieldNames returns every standard field name plus the extra field
// names present on e, sorted for deterministic iteration (used by field
// completeness reporting in the quality package).
func (e Entry) AllFieldNames() []string {
	names := make([]string, 0, len(standardFieldOrder)+len(e.Extra))
	for _, f := range standardFieldOrder {
		names = append(names, string(f))
	}
	for k := range e.Extra {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

var standardFieldOrder = []Field{
	FieldAuthor, FieldEditor, FieldTitle, FieldJournal, FieldBooktitle,
	FieldPublisher, FieldSchool, FieldInstitution, FieldYear, FieldMonth,
	FieldVolume, FieldNumber, FieldPages, FieldSeries, FieldEdition,
	FieldChapter, FieldAddress, FieldNote, FieldHowpublished,
	FieldOrganization, FieldCrossref, FieldAnnote, FieldAbstract, FieldDOI,
	FieldEprint, FieldISBN, FieldISSN, FieldKeywords, FieldLanguage,
	FieldLocation, FieldPMID, FieldURL,
}
