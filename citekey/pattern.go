// Package citekey implements the citation-key generator: a pattern
// language over an Entry, case transforms, length clamping,
// auto-disambiguation, collision resolution, and sanitization.
package citekey

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind names a recognized pattern token.
type TokenKind string

const (
	TokenAuthor     TokenKind = "author"
	TokenAuthors    TokenKind = "authors"
	TokenYear       TokenKind = "year"
	TokenTitle      TokenKind = "title"
	TokenWord       TokenKind = "word"
	TokenJournal    TokenKind = "journal"
	TokenCustomName TokenKind = "custom-name"
)

// Segment is one piece of a parsed Pattern: either literal text or a token
// reference with an optional parameter.
type Segment struct {
	Literal string // set when Token == ""
	Token   TokenKind
	Param   string // e.g. "3" for {author:3}, "2" for {word:2}
}

// Pattern is a parsed citation-key template, e.g. "{author}{year}".
type Pattern struct {
	Segments []Segment
}

// Parse parses a template string over `{token[:param]}` tokens interleaved
// with literal text.
func Parse(template string) (Pattern, error) {
	var segs []Segment
	i := 0
	for i < len(template) {
		if template[i] == '{' {
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return Pattern{}, fmt.Errorf("citekey: unterminated token starting at %d", i)
			}
			body := template[i+1 : i+end]
			i += end + 1
			token, param, _ := strings.Cut(body, ":")
			kind := TokenKind(token)
			if !validToken(kind) {
				return Pattern{}, fmt.Errorf("citekey: unrecognized token %q", token)
			}
			segs = append(segs, Segment{Token: kind, Param: param})
			continue
		}
		start := i
		for i < len(template) && template[i] != '{' {
			i++
		}
		segs = append(segs, Segment{Literal: template[start:i]})
	}
	return Pattern{Segments: segs}, nil
}

func validToken(k TokenKind) bool {
	switch k {
	case TokenAuthor, TokenAuthors, TokenYear, TokenTitle, TokenWord, TokenJournal, TokenCustomName:
		return true
	}
	return false
}

// Stopwords are skipped when extracting "significant" title words.
var Stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "by": true,
	"for": true, "from": true, "in": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "with": true, "about": true, "after": true,
	"before": true, "between": true, "during": true, "through": true,
	"under": true, "over": true, "into": true, "onto": true,
}

// MinTitleChars is the minimum length a word must have to count as
// "significant" for {title} and {word} extraction.
const MinTitleChars = 3

func paramInt(param string, def int) int {
	if param == "" {
		return def
	}
	n, err := strconv.Atoi(param)
	if err != nil {
		return def
	}
	return n
}
