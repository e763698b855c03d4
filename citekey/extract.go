package citekey

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jschaf/bibmgr/entry"
)

var nonLetterHyphenRe = regexp.MustCompile(`[^A-Za-z-]`)

// extractAuthor returns the first author's last name, transliterated to
// letters/hyphens only, trimmed to n characters (0 means no limit).
func extractAuthor(e entry.Entry, n int) string {
	if len(e.Author) == 0 {
		return ""
	}
	last := Transliterate(e.Author[0].Family)
	last = nonLetterHyphenRe.ReplaceAllString(last, "")
	return clampChars(last, n)
}

// extractAuthors returns the first-letter initials of up to n authors,
// concatenated.
func extractAuthors(e entry.Entry, n int) string {
	if n <= 0 {
		n = len(e.Author)
	}
	var sb strings.Builder
	for i, a := range e.Author {
		if i >= n {
			break
		}
		t := Transliterate(a.Family)
		for _, r := range t {
			if unicode.IsLetter(r) {
				sb.WriteRune(unicode.ToLower(r))
				break
			}
		}
	}
	return sb.String()
}

// extractYear returns the full year, or its last two digits if param is
// "2"; a missing year becomes "nd".
func extractYear(e entry.Entry, param string) string {
	if e.Year == 0 {
		return "nd"
	}
	y := strconv.Itoa(e.Year)
	if param == "2" && len(y) >= 2 {
		return y[len(y)-2:]
	}
	return y
}

func significantTitleWords(title string) []string {
	var out []string
	for _, w := range strings.Fields(title) {
		clean := nonLetterHyphenRe.ReplaceAllString(w, "")
		lower := strings.ToLower(clean)
		if len(clean) < MinTitleChars || Stopwords[lower] {
			continue
		}
		out = append(out, clean)
	}
	return out
}

// extractTitle returns the first significant title word, trimmed to n
// characters.
func extractTitle(e entry.Entry, n int) string {
	words := significantTitleWords(e.Title)
	if len(words) == 0 {
		return ""
	}
	return clampChars(Transliterate(words[0]), n)
}

// extractWord returns the pos'th (1-indexed) significant title word.
func extractWord(e entry.Entry, pos int) string {
	words := significantTitleWords(e.Title)
	if pos < 1 || pos > len(words) {
		return ""
	}
	return Transliterate(words[pos-1])
}

var allUpperWordRe = regexp.MustCompile(`^[A-Z]+$`)

// extractJournal returns the first word of the journal name, or an acronym
// built from the first 1-3 words if they're all uppercase, trimmed to n
// characters.
func extractJournal(e entry.Entry, n int) string {
	words := strings.Fields(e.Journal)
	if len(words) == 0 {
		return ""
	}
	upperRun := 0
	for i := 0; i < len(words) && i < 3; i++ {
		if allUpperWordRe.MatchString(words[i]) {
			upperRun++
		} else {
			break
		}
	}
	if upperRun > 0 {
		var sb strings.Builder
		for i := 0; i < upperRun; i++ {
			sb.WriteString(words[i])
		}
		return clampChars(sb.String(), n)
	}
	return clampChars(Transliterate(words[0]), n)
}

func clampChars(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
