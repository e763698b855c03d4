package citekey

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var titleCaser = cases.Title(language.Und)

var substitutions = map[rune]string{
	'ä': "ae", 'ö': "oe", 'ü': "ue", 'ß': "ss", 'æ': "ae", 'ø': "o", 'å': "a",
	'Ä': "Ae", 'Ö': "Oe", 'Ü': "Ue", 'Æ': "Ae", 'Ø': "O", 'Å': "A",
}

// Transliterate converts s to ASCII via explicit substitutions for common
// Germanic/Nordic letters, then NFKD decomposition with combining marks
// stripped for everything else.
func Transliterate(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if rep, ok := substitutions[r]; ok {
			sb.WriteString(rep)
			continue
		}
		sb.WriteRune(r)
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, sb.String())
	if err != nil {
		return sb.String()
	}
	return out
}

var validKeyRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
var invalidCharRe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// IsValidKey reports whether key matches the citation-key grammar.
func IsValidKey(key string) bool {
	return validKeyRe.MatchString(key)
}

// Sanitize transliterates, substitutes invalid characters with '_',
// prepends 'k' if the result doesn't start with a letter, and pads or
// truncates to [minLen, maxLen].
func Sanitize(key string, minLen, maxLen int) string {
	s := Transliterate(key)
	s = invalidCharRe.ReplaceAllString(s, "_")
	if s == "" || !unicode.IsLetter(rune(s[0])) {
		s = "k" + s
	}
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	for minLen > 0 && len(s) < minLen {
		s += "x"
	}
	return s
}

// CaseTransform names an assembly-time case transformation.
type CaseTransform string

const (
	CaseLower CaseTransform = "lower"
	CaseUpper CaseTransform = "upper"
	CaseTitle CaseTransform = "title"
	CaseCamel CaseTransform = "camel"
)

// ApplyCase applies t to s.
func ApplyCase(s string, t CaseTransform) string {
	switch t {
	case CaseLower:
		return strings.ToLower(s)
	case CaseUpper:
		return strings.ToUpper(s)
	case CaseTitle:
		return titleCaser.String(s)
	case CaseCamel:
		return toCamel(s)
	default:
		return s
	}
}

func toCamel(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	var sb strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		if i == 0 {
			sb.WriteRune(unicode.ToLower(r[0]))
		} else {
			sb.WriteRune(unicode.ToUpper(r[0]))
		}
		sb.WriteString(string(r[1:]))
	}
	return sb.String()
}

// Clamp right-truncates s to maxLen and pads with no-op (callers needing
// padding should do so before calling Clamp); minLen is advisory only here
// since citekey assembly doesn't pad generated keys, only sanitized ones.
func Clamp(s string, minLen, maxLen int) string {
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
