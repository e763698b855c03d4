// Package validate implements the field-level validators: pure functions
// from a raw field string to an entry.ValidationResult. None of them do
// I/O, and none of them depend on any other entry field.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jschaf/bibmgr/entry"
)

func invalid(field, value, msg string) entry.ValidationResult {
	return entry.ValidationResult{Field: field, Value: value, Valid: false, Severity: entry.SeverityError, Message: msg}
}

func valid(field, value string) entry.ValidationResult {
	return entry.ValidationResult{Field: field, Value: value, Valid: true, Severity: entry.SeverityInfo, Message: "ok"}
}

func warn(field, value, msg, suggestion string) entry.ValidationResult {
	return entry.ValidationResult{Field: field, Value: value, Valid: true, Severity: entry.SeverityWarning, Message: msg, Suggestion: suggestion}
}

// stripAll removes every rune in cut from s.
func stripAll(s, cut string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(cut, r) {
			return -1
		}
		return r
	}, s)
}

// ISBN validates an ISBN-10 or ISBN-13, after stripping hyphens and spaces.
func ISBN(value string) entry.ValidationResult {
	if strings.TrimSpace(value) == "" {
		return invalid(string(entry.FieldISBN), value, "isbn is empty")
	}
	digits := stripAll(value, "- ")
	switch len(digits) {
	case 10:
		if isbn10Checksum(digits) {
			return valid(string(entry.FieldISBN), value)
		}
		return invalid(string(entry.FieldISBN), value, "isbn-10 checksum mismatch")
	case 13:
		if !strings.HasPrefix(digits, "978") && !strings.HasPrefix(digits, "979") {
			return invalid(string(entry.FieldISBN), value, "isbn-13 must start with 978 or 979")
		}
		if isbn13Checksum(digits) {
			return valid(string(entry.FieldISBN), value)
		}
		return invalid(string(entry.FieldISBN), value, "isbn-13 checksum mismatch")
	default:
		return invalid(string(entry.FieldISBN), value, "isbn must be 10 or 13 characters")
	}
}

func isbn10Checksum(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		var d int
		if i == 9 && (s[i] == 'X' || s[i] == 'x') {
			d = 10
		} else if s[i] >= '0' && s[i] <= '9' {
			d = int(s[i] - '0')
		} else {
			return false
		}
		sum += (10 - i) * d
	}
	return sum%11 == 0
}

func isbn13Checksum(s string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		d := int(s[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	return sum%10 == 0
}

// ISSN validates an 8-character ISSN, with an optional single hyphen
// separating the two 4-digit halves.
func ISSN(value string) entry.ValidationResult {
	if strings.TrimSpace(value) == "" {
		return invalid(string(entry.FieldISSN), value, "issn is empty")
	}
	s := value
	if strings.Count(s, "-") == 1 {
		s = strings.Replace(s, "-", "", 1)
	}
	if len(s) != 8 {
		return invalid(string(entry.FieldISSN), value, "issn must be 8 characters")
	}
	sum := 0
	for i := 0; i < 8; i++ {
		var d int
		if i == 7 && (s[i] == 'X' || s[i] == 'x') {
			d = 10
		} else if s[i] >= '0' && s[i] <= '9' {
			d = int(s[i] - '0')
		} else {
			return invalid(string(entry.FieldISSN), value, "issn contains non-digit")
		}
		sum += (8 - i) * d
	}
	if sum%11 != 0 {
		return invalid(string(entry.FieldISSN), value, "issn checksum mismatch")
	}
	return valid(string(entry.FieldISSN), value)
}

var doiRe = regexp.MustCompile(`^10\.\d{4,}/\S+$`)

// DOI validates a DOI after stripping a "doi:" or doi.org URL prefix.
func DOI(value string) entry.ValidationResult {
	if strings.TrimSpace(value) == "" {
		return invalid(string(entry.FieldDOI), value, "doi is empty")
	}
	s := stripDOIPrefix(value)
	if doiRe.MatchString(s) {
		return valid(string(entry.FieldDOI), value)
	}
	return invalid(string(entry.FieldDOI), value, "doi does not match 10.NNNN/suffix")
}

var doiPrefixRe = regexp.MustCompile(`(?i)^(doi:|https?://(dx\.)?doi\.org/)`)

func stripDOIPrefix(s string) string {
	return doiPrefixRe.ReplaceAllString(strings.TrimSpace(s), "")
}

var orcidPrefixRe = regexp.MustCompile(`(?i)^https?://orcid\.org/`)
var orcidRe = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

// ORCID validates an ORCID iD: 16 digits in 4 hyphen-separated groups,
// mod-11 checksum, last character may be 'X'.
func ORCID(value string) entry.ValidationResult {
	if strings.TrimSpace(value) == "" {
		return invalid("orcid", value, "orcid is empty")
	}
	s := orcidPrefixRe.ReplaceAllString(strings.TrimSpace(value), "")
	if !orcidRe.MatchString(s) {
		return invalid("orcid", value, "orcid must be NNNN-NNNN-NNNN-NNN(N|X)")
	}
	digits := strings.ReplaceAll(s, "-", "")
	total := 0
	for i := 0; i < 15; i++ {
		total = (total + int(digits[i]-'0')) * 2
	}
	remainder := total % 11
	result := (12 - remainder) % 11
	want := byte('0' + byte(result))
	if result == 10 {
		want = 'X'
	}
	if digits[15] != want {
		return invalid("orcid", value, "orcid checksum mismatch")
	}
	return valid("orcid", value)
}

var (
	arxivPrefixRe = regexp.MustCompile(`(?i)^(arxiv:|https?://arxiv\.org/abs/)`)
	arxivNewRe    = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)
	arxivOldRe    = regexp.MustCompile(`^[a-z-]+(\.[A-Za-z]{2})?/\d{7}(v\d+)?$`)
)

// ArXivID validates a new-style (YYMM.NNNNN) or old-style
// (category/YYMMNNN) arXiv identifier.
func ArXivID(value string) entry.ValidationResult {
	if strings.TrimSpace(value) == "" {
		return invalid(string(entry.FieldEprint), value, "arxiv id is empty")
	}
	s := arxivPrefixRe.ReplaceAllString(strings.TrimSpace(value), "")
	if arxivNewRe.MatchString(s) {
		month := s[2:4]
		if m, err := strconv.Atoi(month); err != nil || m < 1 || m > 12 {
			return invalid(string(entry.FieldEprint), value, "arxiv id has invalid month")
		}
		return valid(string(entry.FieldEprint), value)
	}
	if arxivOldRe.MatchString(s) {
		return valid(string(entry.FieldEprint), value)
	}
	return invalid(string(entry.FieldEprint), value, "arxiv id matches neither new nor old form")
}

var allowedSchemes = map[string]bool{"http": true, "https": true, "ftp": true, "ftps": true}
var rejectedSchemes = map[string]bool{"javascript": true, "file": true, "data": true}

// URL validates a field value as a URL, requiring an allowed scheme and
// warning (with an https suggestion) for plain http.
func URL(value string) entry.ValidationResult {
	s := strings.TrimSpace(value)
	if s == "" {
		return invalid(string(entry.FieldURL), value, "url is empty")
	}
	idx := strings.Index(s, "://")
	if idx < 0 {
		return invalid(string(entry.FieldURL), value, "url has no scheme")
	}
	scheme := strings.ToLower(s[:idx])
	if rejectedSchemes[scheme] {
		return invalid(string(entry.FieldURL), value, "url scheme "+scheme+" is not allowed")
	}
	if !allowedSchemes[scheme] {
		return invalid(string(entry.FieldURL), value, "url scheme "+scheme+" is not recognized")
	}
	if scheme == "http" {
		return warn(string(entry.FieldURL), value, "url uses plain http", strings.Replace(s, "http://", "https://", 1))
	}
	return valid(string(entry.FieldURL), value)
}

// DateFutureYearThreshold bounds how many years past the current year a
// date may be before it is treated as an error rather than a warning.
var DateFutureYearThreshold = 2

var (
	dateYRe   = regexp.MustCompile(`^\d{1,4}$`)
	dateYMRe  = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	dateYMDRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// Date validates a year, "YYYY-MM", or "YYYY-MM-DD" field value.
func Date(value string) entry.ValidationResult {
	s := strings.TrimSpace(value)
	if s == "" {
		return invalid("date", value, "date is empty")
	}
	var year int
	switch {
	case dateYRe.MatchString(s):
		year, _ = strconv.Atoi(s)
	case dateYMRe.MatchString(s):
		m := dateYMRe.FindStringSubmatch(s)
		year, _ = strconv.Atoi(m[1])
		if mo, _ := strconv.Atoi(m[2]); mo < 1 || mo > 12 {
			return invalid("date", value, "month out of range")
		}
	case dateYMDRe.MatchString(s):
		m := dateYMDRe.FindStringSubmatch(s)
		year, _ = strconv.Atoi(m[1])
		if mo, _ := strconv.Atoi(m[2]); mo < 1 || mo > 12 {
			return invalid("date", value, "month out of range")
		}
		if d, _ := strconv.Atoi(m[3]); d < 1 || d > 31 {
			return invalid("date", value, "day out of range")
		}
	default:
		return invalid("date", value, "date must be YYYY, YYYY-MM, or YYYY-MM-DD")
	}
	if year < 1000 {
		return invalid("date", value, "year before 1000")
	}
	now := time.Now().Year()
	if year > now+DateFutureYearThreshold {
		return invalid("date", value, "year too far in the future")
	}
	if year > now {
		return warn("date", value, "year is in the future", "")
	}
	return valid("date", value)
}

// Author validates an author field: segments separated by " and "
// (respecting the escape "\&"), each ideally in "Last, First" form.
// Braced organizational names pass through unchecked.
func Author(value string) entry.ValidationResult {
	s := strings.TrimSpace(value)
	if s == "" {
		return invalid(string(entry.FieldAuthor), value, "author is empty")
	}
	// Padding keeps a leading or trailing "and" as a separator, so the empty
	// segment beside it is seen.
	segments := splitAuthorAnd(" " + s + " ")
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			return invalid(string(entry.FieldAuthor), value, "empty author segment")
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			continue
		}
		if !strings.Contains(seg, ",") && !strings.Contains(seg, " ") {
			return warn(string(entry.FieldAuthor), value, "single-word author name "+seg, "Last, First")
		}
	}
	return valid(string(entry.FieldAuthor), value)
}

func splitAuthorAnd(s string) []string {
	const sep = " and "
	placeholder := "\x00AMP\x00"
	escaped := strings.ReplaceAll(s, `\&`, placeholder)
	parts := strings.Split(escaped, sep)
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, placeholder, `\&`)
	}
	return parts
}

var (
	pageSingleRe = regexp.MustCompile(`^\d+$`)
	pageDDashRe  = regexp.MustCompile(`^(\d+)--(\d+)$`)
	pageSDashRe  = regexp.MustCompile(`^(\d+)-(\d+)$`)
	pageRomanRe  = regexp.MustCompile(`(?i)^[ivxlcdm]+$`)
	pageElecRe   = regexp.MustCompile(`^e\d+$`)
)

// PageRange validates a pages field value: a single number, a BibTeX
// "N--M" range, an "N-M" range (suggesting double-dash), Roman numerals,
// or an "eNNNNN" electronic-article identifier.
func PageRange(value string) entry.ValidationResult {
	s := strings.TrimSpace(value)
	if s == "" {
		return invalid(string(entry.FieldPages), value, "pages is empty")
	}
	if pageSingleRe.MatchString(s) || pageRomanRe.MatchString(s) || pageElecRe.MatchString(s) {
		return valid(string(entry.FieldPages), value)
	}
	if m := pageDDashRe.FindStringSubmatch(s); m != nil {
		return checkPageOrder(value, m[1], m[2])
	}
	if m := pageSDashRe.FindStringSubmatch(s); m != nil {
		r := checkPageOrder(value, m[1], m[2])
		if r.Valid {
			return warn(string(entry.FieldPages), value, "single-dash page range", strings.Replace(s, "-", "--", 1))
		}
		return r
	}
	return invalid(string(entry.FieldPages), value, "unrecognized page range format")
}

func checkPageOrder(value, a, b string) entry.ValidationResult {
	n1, _ := strconv.Atoi(a)
	n2, _ := strconv.Atoi(b)
	if n1 > n2 {
		return invalid(string(entry.FieldPages), value, "page range is reversed")
	}
	return valid(string(entry.FieldPages), value)
}
