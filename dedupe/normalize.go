// Package dedupe implements the duplicate-detection and merge engine:
// normalizers, similarity metrics, an inverted index, a pairwise matcher,
// a cluster builder, and a merger.
package dedupe

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var latexCmdWithArgRe = regexp.MustCompile(`\\[A-Za-z]+\{([^{}]*)\}`)
var latexBareCmdRe = regexp.MustCompile(`\\[A-Za-z]+`)
var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)
var whitespaceRe = regexp.MustCompile(`\s+`)

var titleAbbrevExpansions = map[string]string{
	"proc":  "proceedings",
	"conf":  "conference",
	"intl":  "international",
	"natl":  "national",
	"trans": "transactions",
	"j":     "journal",
}

// NormalizeTitle strips LaTeX commands, lowercases, removes punctuation
// (keeping hyphens), collapses whitespace, and expands common
// abbreviations, so two titles that differ only in markup or
// abbreviation style compare equal.
func NormalizeTitle(title string) string {
	s := latexCmdWithArgRe.ReplaceAllString(title, "$1")
	s = latexBareCmdRe.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	words := strings.Split(s, " ")
	for i, w := range words {
		if exp, ok := titleAbbrevExpansions[w]; ok {
			words[i] = exp
		}
	}
	return strings.Join(words, " ")
}

var nameSuffixes = map[string]bool{"jr": true, "sr": true, "ii": true, "iii": true, "iv": true}

// stripDiacritics removes Unicode combining marks after NFKD decomposition.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeAuthor reduces a single author name to "last initial-initial…":
// it decomposes diacritics, swaps "Last, First" order, strips name
// suffixes, and lowercases.
func NormalizeAuthor(name string) string {
	s := strings.TrimSpace(name)
	var last, rest string
	if idx := strings.Index(s, ","); idx >= 0 {
		last = strings.TrimSpace(s[:idx])
		rest = strings.TrimSpace(s[idx+1:])
	} else {
		parts := strings.Fields(s)
		if len(parts) == 0 {
			return ""
		}
		last = parts[len(parts)-1]
		rest = strings.Join(parts[:len(parts)-1], " ")
	}
	last = stripDiacritics(strings.ToLower(last))
	last = nonWordRe.ReplaceAllString(last, "")

	fields := strings.Fields(rest)
	initials := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.Trim(f, "."))
		if nameSuffixes[f] {
			continue
		}
		r := stripDiacritics(f)
		if r == "" {
			continue
		}
		initials = append(initials, string([]rune(r)[0]))
	}
	if len(initials) == 0 {
		return last
	}
	return last + " " + strings.Join(initials, "-")
}

const etAlMarker = "\x00ET_AL\x00"

// NormalizeAuthorList splits an author-list field on " and ", normalizing
// each name; "et al." or "others" collapses to a single distinguished
// marker slot rather than being split further.
func NormalizeAuthorList(authorField string) []string {
	parts := strings.Split(authorField, " and ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		lower := strings.ToLower(p)
		if lower == "et al." || lower == "et al" || lower == "others" {
			out = append(out, etAlMarker)
			continue
		}
		if p == "" {
			continue
		}
		out = append(out, NormalizeAuthor(p))
	}
	return out
}

var doiPrefixRe = regexp.MustCompile(`(?i)^(doi:|https?://(dx\.)?doi\.org/)`)

// NormalizeDOI strips a "doi:" or doi.org URL prefix and lowercases.
func NormalizeDOI(doi string) string {
	s := doiPrefixRe.ReplaceAllString(strings.TrimSpace(doi), "")
	return strings.ToLower(s)
}
