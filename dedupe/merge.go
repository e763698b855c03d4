package dedupe

import (
	"strings"
	"time"

	"github.com/jschaf/bibmgr/entry"
)

// Strategy names a merge-conflict resolution policy.
type Strategy string

const (
	StrategyUnion        Strategy = "union"
	StrategyIntersection Strategy = "intersection"
	StrategyPreferFirst  Strategy = "prefer-first"
	StrategyPreferNewest Strategy = "prefer-newest"
	StrategyCustom       Strategy = "custom"
)

// CustomResolver resolves a conflict on one field given every input entry's
// value for it (in input order; "" means absent).
type CustomResolver func(field string, values []string) string

// Merge combines group according to strategy, taking key and type from the
// first entry (custom is only consulted for fields, never for key or type).
// group must be non-empty.
func Merge(group []entry.Entry, strategy Strategy, custom CustomResolver, now time.Time) entry.Entry {
	if len(group) == 1 {
		return group[0]
	}
	first := group[0]
	result := entry.New(first.Key, first.Type, now)

	for _, name := range allFieldNames(group) {
		f := entry.Field(name)
		values := make([]string, len(group))
		for i, e := range group {
			v, _ := e.FieldValue(f)
			values[i] = v
		}
		var resolved string
		switch strategy {
		case StrategyIntersection:
			resolved = intersectionValue(values)
		case StrategyPreferFirst:
			resolved = firstNonEmpty(values)
		case StrategyPreferNewest:
			resolved = preferNewestValue(group, values)
		case StrategyCustom:
			if custom != nil {
				resolved = custom(name, values)
			} else {
				resolved = firstNonEmpty(values)
			}
		default: // StrategyUnion
			resolved = unionValue(name, values)
		}
		if resolved != "" {
			result = result.WithField(f, resolved, now)
		}
	}
	return result
}

func allFieldNames(group []entry.Entry) []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range group {
		for _, n := range e.AllFieldNames() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intersectionValue(values []string) string {
	first := ""
	seenAny := false
	for _, v := range values {
		if v == "" {
			continue
		}
		if !seenAny {
			first = v
			seenAny = true
			continue
		}
		if v != first {
			return ""
		}
	}
	return first
}

func preferNewestValue(group []entry.Entry, values []string) string {
	best := -1
	bestYear := -1
	for i, e := range group {
		if values[i] == "" {
			continue
		}
		if e.Year > bestYear {
			bestYear = e.Year
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return values[best]
}

// unionValue implements the per-field union preference rules: longest value
// for author, page-range form for pages, deduplicated joined tokens for
// keywords/tags, and first non-null otherwise.
func unionValue(field string, values []string) string {
	switch field {
	case string(entry.FieldAuthor):
		return longest(values)
	case string(entry.FieldPages):
		for _, v := range values {
			if strings.Contains(v, "-") {
				return v
			}
		}
		return firstNonEmpty(values)
	case string(entry.FieldKeywords):
		return dedupJoin(values)
	default:
		return firstNonEmpty(values)
	}
}

func longest(values []string) string {
	best := ""
	for _, v := range values {
		if len(v) > len(best) {
			best = v
		}
	}
	return best
}

func dedupJoin(values []string) string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		for _, tok := range entry.SplitKeywords(v) {
			if !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	return strings.Join(out, ", ")
}
