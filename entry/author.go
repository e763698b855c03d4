package entry

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jschaf/bibmgr/ast"
	"github.com/jschaf/bibmgr/internal/bibtexrender"
)

const authorSep = "and"

// extractAuthors splits the parsed text of an author or editor field into
// individual ast.Author names. Names are separated by the literal word
// "and"; within a name, the BibTeX name grammar distinguishes
// "First von Last" from comma-separated "von Last, First" and
// "von Last, Suffix, First" forms by whether a word starts with an
// uppercase letter.
func extractAuthors(txt *ast.ParsedText) (ast.Authors, error) {
	if txt == nil {
		return nil, nil
	}
	authors := make(ast.Authors, 0, 4)
	run := make([]ast.Expr, 0, 8)
	for _, v := range txt.Values {
		if t, ok := v.(*ast.Text); ok && t.Value == authorSep {
			a := extractAuthor(run)
			if a.IsEmpty() {
				return nil, fmt.Errorf("found an empty author before %q separator", authorSep)
			}
			authors = append(authors, a)
			run = run[:0]
			continue
		}
		run = append(run, v)
	}
	final := extractAuthor(run)
	if final.IsEmpty() {
		return nil, fmt.Errorf("found an empty author")
	}
	authors = append(authors, final)
	return authors, nil
}

func trimSpaces(xs []ast.Expr) []ast.Expr {
	lo, hi := 0, len(xs)
	for lo < hi {
		if _, ok := xs[lo].(*ast.TextSpace); !ok {
			break
		}
		lo++
	}
	for hi > lo {
		if _, ok := xs[hi-1].(*ast.TextSpace); !ok {
			break
		}
		hi--
	}
	return xs[lo:hi]
}

func extractAuthor(xs []ast.Expr) *ast.Author {
	xs = trimSpaces(xs)
	commas := findCommas(xs)
	if len(commas) == 0 {
		return splitFirstVonLast(xs)
	}
	return splitVonLastFirst(xs, commas)
}

type nameAction int

const (
	nameContinue nameAction = iota
	nameNextPart
)

func hasUpperPrefix(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// parseFirstNameWord reports whether xs[idx] still belongs to the "First"
// part: it stops at the first lowercase word, which starts the "von" part.
func parseFirstNameWord(idx int, xs []ast.Expr) (string, nameAction) {
	x := xs[idx]
	if _, ok := x.(*ast.TextSpace); ok && idx < len(xs)-1 {
		if t, ok := xs[idx+1].(*ast.Text); ok && !hasUpperPrefix(t.Value) {
			return "", nameNextPart
		}
	}
	if t, ok := x.(*ast.Text); ok {
		return t.Value, nameContinue
	}
	return renderWord(idx, xs), nameContinue
}

// parseVonWord reports whether xs[idx] still belongs to the "von" part: it
// stops at the first uppercase word, which starts the "Last" part.
func parseVonWord(idx int, xs []ast.Expr) (string, nameAction) {
	x := xs[idx]
	if t, ok := x.(*ast.Text); ok {
		if hasUpperPrefix(t.Value) {
			return "", nameNextPart
		}
		return t.Value, nameContinue
	}
	return renderWord(idx, xs), nameContinue
}

func parseLastWord(idx int, xs []ast.Expr) (string, nameAction) {
	return renderWord(idx, xs), nameContinue
}

// renderWord renders a single non-plain-text node (comma, escape, accent,
// math span, hyphen, nested parsed text) into its plain-string form.
func renderWord(idx int, xs []ast.Expr) string {
	switch t := xs[idx].(type) {
	case *ast.ParsedText:
		sb := strings.Builder{}
		for i := range t.Values {
			sb.WriteString(renderWord(i, t.Values))
		}
		return sb.String()
	case *ast.TextComma:
		return ","
	case *ast.TextNBSP:
		return " "
	case *ast.TextSpace:
		return " "
	case *ast.TextHyphen:
		return t.Value
	case *ast.TextMath:
		return "$" + t.Value + "$"
	case *ast.TextEscaped:
		return `\` + t.Value
	case *ast.TextAccent:
		return bibtexrender.String(t)
	case *ast.Text:
		return t.Value
	default:
		return bibtexrender.String(xs[idx])
	}
}

// splitFirstVonLast resolves an author with no commas, e.g. "First von Last".
func splitFirstVonLast(xs []ast.Expr) *ast.Author {
	first := strings.Builder{}
	idx := 0
	for ; idx < len(xs); idx++ {
		if idx == len(xs)-1 {
			break
		}
		val, action := parseFirstNameWord(idx, xs)
		if action == nameNextPart {
			break
		}
		first.WriteString(val)
	}

	prefix := strings.Builder{}
	for ; idx < len(xs); idx++ {
		if idx == len(xs)-1 {
			break
		}
		val, action := parseVonWord(idx, xs)
		if action == nameNextPart {
			break
		}
		prefix.WriteString(val)
	}

	last := strings.Builder{}
	for ; idx < len(xs); idx++ {
		val, action := parseLastWord(idx, xs)
		if action == nameNextPart {
			break
		}
		last.WriteString(val)
	}

	return &ast.Author{
		First:  &ast.Text{Value: strings.TrimSpace(first.String())},
		Prefix: &ast.Text{Value: strings.TrimSpace(prefix.String())},
		Last:   &ast.Text{Value: strings.TrimSpace(last.String())},
		Suffix: &ast.Text{Value: ""},
	}
}

// splitVonLastFirst resolves an author with one or more commas:
//
//	1 comma:  last, first             => {first, "",  last, ""}
//	1 comma:  von last, first         => {first, von, last, ""}
//	2 commas: last, suffix, first     => {first, "",  last, suffix}
//	2 commas: von last, suffix, first => {first, von, last, suffix}
func splitVonLastFirst(xs []ast.Expr, commas []int) *ast.Author {
	part1 := xs[:commas[0]]
	idx1 := 0
	prefix := strings.Builder{}
	for ; idx1 < len(part1); idx1++ {
		if idx1 == len(part1)-1 {
			break
		}
		val, action := parseVonWord(idx1, part1)
		if action == nameNextPart {
			break
		}
		prefix.WriteString(val)
	}

	last := strings.Builder{}
	for ; idx1 < len(part1); idx1++ {
		val, _ := parseLastWord(idx1, part1)
		last.WriteString(val)
	}

	part2 := xs[commas[0]+1:]
	suffix := strings.Builder{}
	if len(commas) > 1 {
		for i := range xs[commas[0]+1 : commas[1]] {
			suffix.WriteString(renderWord(i, xs[commas[0]+1:commas[1]]))
		}
		part2 = xs[commas[1]+1:]
	}

	idx2 := 0
	first := strings.Builder{}
	for ; idx2 < len(part2); idx2++ {
		val, action := parseFirstNameWord(idx2, part2)
		if action == nameNextPart {
			break
		}
		first.WriteString(val)
	}

	return &ast.Author{
		First:  &ast.Text{Value: strings.TrimSpace(first.String())},
		Prefix: &ast.Text{Value: strings.TrimSpace(prefix.String())},
		Last:   &ast.Text{Value: strings.TrimSpace(last.String())},
		Suffix: &ast.Text{Value: strings.TrimSpace(suffix.String())},
	}
}

// findCommas returns the indexes of top-level commas in xs.
func findCommas(xs []ast.Expr) []int {
	idxs := make([]int, 0, 2)
	for i, x := range xs {
		if _, ok := x.(*ast.TextComma); ok {
			idxs = append(idxs, i)
		}
	}
	return idxs
}
