package dedupe

import (
	"strconv"

	"github.com/jschaf/bibmgr/entry"
)

// Thresholds configures the pairwise matcher's cutoffs.
type Thresholds struct {
	Title    float64 // default 0.85
	Author   float64 // default 0.7
	Combined float64 // default 0.7
}

// DefaultThresholds returns the thresholds named in the spec.
func DefaultThresholds() Thresholds {
	return Thresholds{Title: 0.85, Author: 0.7, Combined: 0.7}
}

// Matcher evaluates pairs of entries for duplication by a fixed precedence
// of match types.
type Matcher struct {
	Thresholds Thresholds
}

// NewMatcher builds a Matcher with the default thresholds.
func NewMatcher() *Matcher { return &Matcher{Thresholds: DefaultThresholds()} }

// Match evaluates a and b and returns a DuplicateMatch if they appear to be
// the same work, or ok=false if not.
func (m *Matcher) Match(a, b entry.Entry) (entry.DuplicateMatch, bool) {
	if a.Key == b.Key {
		return entry.DuplicateMatch{KeyA: a.Key, KeyB: b.Key, Score: 1, MatchTypes: []entry.MatchType{entry.MatchExactKey}, MatchingFields: []string{"key"}}, true
	}

	if a.DOI != "" && b.DOI != "" && NormalizeDOI(a.DOI) == NormalizeDOI(b.DOI) {
		return entry.DuplicateMatch{KeyA: a.Key, KeyB: b.Key, Score: 1, MatchTypes: []entry.MatchType{entry.MatchDOI}, MatchingFields: []string{"doi"}}, true
	}

	titleSim := 0.0
	if a.Title != "" && b.Title != "" {
		titleSim = Levenshtein(NormalizeTitle(a.Title), NormalizeTitle(b.Title))
	}
	if titleSim >= m.Thresholds.Title {
		score := titleSim
		fields := []string{"title"}
		if a.Year != 0 && a.Year == b.Year {
			score = min1(score*1.1, 1)
			fields = append(fields, "year")
		}
		return entry.DuplicateMatch{KeyA: a.Key, KeyB: b.Key, Score: score, MatchTypes: []entry.MatchType{entry.MatchTitle}, MatchingFields: fields}, true
	}

	authorSim := 0.0
	if len(a.Author) > 0 && len(b.Author) > 0 {
		authorSim = Jaccard(joinAuthors(a), joinAuthors(b))
	}
	if authorSim >= m.Thresholds.Author && titleSim > 0.5 {
		score := (authorSim + titleSim) / 2
		return entry.DuplicateMatch{KeyA: a.Key, KeyB: b.Key, Score: score, MatchTypes: []entry.MatchType{entry.MatchAuthor}, MatchingFields: []string{"author", "title"}}, true
	}

	// Combined score: each component contributes only if it clears its own
	// minimum, and at least 2 fields must match.
	const (
		minTitleContribution   = 0.5
		minAuthorContribution  = 0.5
		minJournalContribution = 0.7
	)
	var total, weight float64
	var matching []string
	if titleSim >= minTitleContribution {
		total += titleSim
		weight++
		matching = append(matching, "title")
	}
	if authorSim >= minAuthorContribution {
		total += authorSim
		weight++
		matching = append(matching, "author")
	}
	if a.Year != 0 && a.Year == b.Year {
		total += 1
		weight++
		matching = append(matching, "year")
	}
	journalSim := 0.0
	if a.Journal != "" && b.Journal != "" {
		journalSim = Jaccard(a.Journal, b.Journal)
		if journalSim >= minJournalContribution {
			total += journalSim
			weight++
			matching = append(matching, "journal")
		}
	}
	if weight == 0 || len(matching) < 2 {
		return entry.DuplicateMatch{}, false
	}
	combined := total / weight
	if combined >= m.Thresholds.Combined {
		return entry.DuplicateMatch{KeyA: a.Key, KeyB: b.Key, Score: combined, MatchTypes: []entry.MatchType{entry.MatchCombined}, MatchingFields: matching}, true
	}
	return entry.DuplicateMatch{}, false
}

func min1(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func joinAuthors(e entry.Entry) string {
	s := ""
	for i, a := range e.Author {
		if i > 0 {
			s += " "
		}
		s += a.Family
	}
	return s
}

// yearString renders an entry's year as a string, or "" if unset.
func yearString(e entry.Entry) string {
	if e.Year == 0 {
		return ""
	}
	return strconv.Itoa(e.Year)
}
