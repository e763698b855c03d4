// Package quality implements the read-only quality engine: a composable set
// of rules evaluated against entries (and, for consistency rules, against
// the whole entry set) to produce a Report.
package quality

import (
	"github.com/jschaf/bibmgr/entry"
)

// Kind tags the shape of a Rule's evaluation signature.
type Kind string

const (
	KindRequiredField Kind = "required-field"
	KindFormat        Kind = "format"
	KindCorrelation   Kind = "correlation"
	KindConsistency   Kind = "consistency"
	KindIntegrity     Kind = "integrity"
	KindCustom        Kind = "custom"
)

// ConsistencyIssue is one finding from a whole-set consistency rule, not
// tied to evaluating a single field.
type ConsistencyIssue struct {
	Rule     string
	Severity entry.Severity
	Message  string
	Keys     []string // entries implicated in the issue
}

// Rule is a tagged variant over the rule shapes the engine supports. Exactly
// one of Check (entry-scoped) or CheckSet (whole-set-scoped) is set,
// matching Kind: KindConsistency rules set CheckSet; every other kind sets
// Check. The engine dispatches on Kind rather than on which func is nil, so
// a rule author's intent is explicit even if a payload is left nil by
// mistake.
type Rule struct {
	Name    string
	Kind    Kind
	Applies func(entry.Entry) bool
	Check   func(entry.Entry) *entry.ValidationResult
	// CheckSet evaluates a KindConsistency rule against the whole set.
	CheckSet func(entries []entry.Entry) []ConsistencyIssue
}

// Evaluate runs an entry-scoped rule, returning nil if the rule doesn't
// apply or produced no finding.
func (r Rule) Evaluate(e entry.Entry) *entry.ValidationResult {
	if r.Kind == KindConsistency {
		return nil
	}
	if r.Applies != nil && !r.Applies(e) {
		return nil
	}
	if r.Check == nil {
		return nil
	}
	return r.Check(e)
}

// RuleSet is a named, independently toggleable group of rules.
type RuleSet struct {
	Name    string
	Enabled bool
	Rules   []Rule
}

// EntryRules returns the non-consistency rules in rs, or nil if rs is
// disabled.
func (rs RuleSet) EntryRules() []Rule {
	if !rs.Enabled {
		return nil
	}
	out := make([]Rule, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		if r.Kind != KindConsistency {
			out = append(out, r)
		}
	}
	return out
}

// ConsistencyRules returns the consistency rules in rs, or nil if rs is
// disabled.
func (rs RuleSet) ConsistencyRules() []Rule {
	if !rs.Enabled {
		return nil
	}
	out := make([]Rule, 0)
	for _, r := range rs.Rules {
		if r.Kind == KindConsistency {
			out = append(out, r)
		}
	}
	return out
}
