package citekey

import (
	"fmt"
	"strconv"

	"github.com/jschaf/bibmgr/entry"
)

// CollisionStrategy names a key-collision resolution policy.
type CollisionStrategy string

const (
	CollisionAppendLetter CollisionStrategy = "append-letter"
	CollisionAppendNumber CollisionStrategy = "append-number"
	CollisionAppendWord   CollisionStrategy = "append-word"
	CollisionInteractive  CollisionStrategy = "interactive"
	CollisionFail         CollisionStrategy = "fail"
)

// MaxAppendNumber bounds the append-number strategy's search, per the
// spec's note that this cap is arbitrary and implementation-defined.
const MaxAppendNumber = 999

// Config configures a Generator.
type Config struct {
	Pattern           Pattern
	Separator         string
	Case              CaseTransform
	MinLength         int
	MaxLength         int
	AutoDisambiguate  bool
	CollisionStrategy CollisionStrategy
	// Prompt is invoked by CollisionInteractive with the candidate key; it
	// returns the caller's replacement key.
	Prompt func(baseKey string, e entry.Entry) string
	// CustomName implements the {custom-name} token, if used.
	CustomName func(e entry.Entry) string
}

// Generator produces citation keys from entries according to a Config. It
// is not safe for concurrent use; build one Generator per goroutine, or
// serialize calls, since auto-disambiguation tracks per-base-key counts
// across the generator's lifetime.
type Generator struct {
	cfg  Config
	seen map[string]int // base key -> occurrence count, for auto-disambiguation

	totalGenerated int
	collisions     int
	disambiguated  int
}

// New builds a Generator from cfg.
func New(cfg Config) *Generator {
	return &Generator{cfg: cfg, seen: make(map[string]int)}
}

// Statistics summarizes a Generator's Generate calls since construction, for
// an import pipeline's summary log line.
type Statistics struct {
	TotalGenerated int // number of Generate calls
	Collisions     int // calls that found exists(key) true and ran collision resolution
	Disambiguated  int // calls that applied an auto-disambiguation suffix
}

// Statistics reports g's running totals.
func (g *Generator) Statistics() Statistics {
	return Statistics{
		TotalGenerated: g.totalGenerated,
		Collisions:     g.collisions,
		Disambiguated:  g.disambiguated,
	}
}

// assemble renders the pattern against e, without case transform, length
// clamping, or disambiguation.
func (g *Generator) assemble(e entry.Entry) (string, error) {
	var out string
	for _, seg := range g.cfg.Pattern.Segments {
		if seg.Literal != "" {
			out += seg.Literal
			continue
		}
		var piece string
		switch seg.Token {
		case TokenAuthor:
			piece = extractAuthor(e, paramInt(seg.Param, 0))
		case TokenAuthors:
			piece = extractAuthors(e, paramInt(seg.Param, 0))
		case TokenYear:
			piece = extractYear(e, seg.Param)
		case TokenTitle:
			piece = extractTitle(e, paramInt(seg.Param, 0))
		case TokenWord:
			piece = extractWord(e, paramInt(seg.Param, 1))
		case TokenJournal:
			piece = extractJournal(e, paramInt(seg.Param, 0))
		case TokenCustomName:
			if g.cfg.CustomName != nil {
				piece = g.cfg.CustomName(e)
			}
		default:
			return "", fmt.Errorf("citekey: unhandled token %q", seg.Token)
		}
		if out != "" && g.cfg.Separator != "" && piece != "" {
			out += g.cfg.Separator
		}
		out += piece
	}
	return out, nil
}

// Base generates the base key for e: assembly, case transform, and length
// clamping, but no disambiguation or collision resolution.
func (g *Generator) Base(e entry.Entry) (string, error) {
	raw, err := g.assemble(e)
	if err != nil {
		return "", err
	}
	raw = ApplyCase(raw, g.cfg.Case)
	raw = Clamp(raw, g.cfg.MinLength, g.cfg.MaxLength)
	if !IsValidKey(raw) {
		raw = Sanitize(raw, g.cfg.MinLength, g.cfg.MaxLength)
	}
	return raw, nil
}

// Generate produces the final key for e, applying auto-disambiguation (if
// enabled) and then collision resolution against exists.
func (g *Generator) Generate(e entry.Entry, exists func(key string) bool) (string, error) {
	g.totalGenerated++
	base, err := g.Base(e)
	if err != nil {
		return "", err
	}
	key := base
	if g.cfg.AutoDisambiguate {
		n := g.seen[base]
		g.seen[base] = n + 1
		if n > 0 {
			key = base + disambigSuffix(n)
			g.disambiguated++
		}
	}
	if exists == nil || !exists(key) {
		return key, nil
	}
	g.collisions++
	return g.resolveCollision(base, key, e, exists)
}

// disambigSuffix renders occurrence n (1-indexed: the 2nd occurrence is
// "a", 3rd is "b", ...) as a letter suffix, wrapping to two letters past z.
func disambigSuffix(n int) string {
	// n=1 -> "a", n=26 -> "z", n=27 -> "aa"
	s := ""
	n-- // 0-indexed
	for {
		s = string(rune('a'+n%26)) + s
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return s
}

func (g *Generator) resolveCollision(base, key string, e entry.Entry, exists func(string) bool) (string, error) {
	switch g.cfg.CollisionStrategy {
	case CollisionFail:
		return "", fmt.Errorf("citekey: key %q already exists", key)
	case CollisionAppendNumber:
		return appendNumber(base, exists)
	case CollisionAppendWord:
		return g.appendWord(base, e, exists)
	case CollisionInteractive:
		if g.cfg.Prompt == nil {
			return appendLetter(base, exists)
		}
		return g.cfg.Prompt(base, e), nil
	default: // CollisionAppendLetter
		return appendLetter(base, exists)
	}
}

func appendLetter(base string, exists func(string) bool) (string, error) {
	for c := 'a'; c <= 'z'; c++ {
		candidate := base + string(c)
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return appendNumber(base, exists)
}

func appendNumber(base string, exists func(string) bool) (string, error) {
	for n := 1; n <= MaxAppendNumber; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("citekey: exhausted %d append-number attempts for base %q", MaxAppendNumber, base)
}

func (g *Generator) appendWord(base string, e entry.Entry, exists func(string) bool) (string, error) {
	words := significantTitleWords(e.Title)
	for _, w := range words {
		candidate := base + ApplyCase(Transliterate(w), g.cfg.Case)
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return appendNumber(base, exists)
}
