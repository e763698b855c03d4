package quality

import (
	"github.com/jschaf/bibmgr/entry"
)

// EntryReport is the per-entry outcome of evaluating every enabled
// entry-scoped rule against one Entry.
type EntryReport struct {
	Key     string
	Results []entry.ValidationResult
}

// HasErrors reports whether rpt contains any error-severity result.
func (rpt EntryReport) HasErrors() bool {
	for _, r := range rpt.Results {
		if !r.Valid && r.Severity == entry.SeverityError {
			return true
		}
	}
	return false
}

// Engine evaluates rule sets against entries. It never mutates the entries
// it is given.
type Engine struct {
	RuleSets []RuleSet
	Cache    *Cache
}

// NewEngine builds an Engine from the given rule sets, with an optional
// cache (nil disables caching).
func NewEngine(ruleSets []RuleSet, cache *Cache) *Engine {
	return &Engine{RuleSets: ruleSets, Cache: cache}
}

// EvaluateEntry runs every enabled entry-scoped rule against e, consulting
// and populating the cache if one is configured.
func (eng *Engine) EvaluateEntry(e entry.Entry) EntryReport {
	var hash string
	if eng.Cache != nil {
		hash = ContentHash(e)
		if rpt, ok := eng.Cache.Get(hash); ok {
			return rpt
		}
	}
	rpt := EntryReport{Key: e.Key}
	for _, rs := range eng.RuleSets {
		for _, r := range rs.EntryRules() {
			if res := r.Evaluate(e); res != nil {
				rpt.Results = append(rpt.Results, *res)
			}
		}
	}
	if eng.Cache != nil {
		eng.Cache.Put(hash, rpt)
	}
	return rpt
}

// EvaluateConsistency runs every enabled consistency rule against the whole
// entry set.
func (eng *Engine) EvaluateConsistency(entries []entry.Entry) []ConsistencyIssue {
	var issues []ConsistencyIssue
	for _, rs := range eng.RuleSets {
		for _, r := range rs.ConsistencyRules() {
			if r.CheckSet != nil {
				issues = append(issues, r.CheckSet(entries)...)
			}
		}
	}
	return issues
}

// Evaluate runs both entry-scoped and consistency rules against entries and
// builds the aggregate Report.
func (eng *Engine) Evaluate(entries []entry.Entry) Report {
	reports := make([]EntryReport, 0, len(entries))
	for _, e := range entries {
		reports = append(reports, eng.EvaluateEntry(e))
	}
	issues := eng.EvaluateConsistency(entries)
	rpt := BuildReport(entries, reports, issues)
	if eng.Cache != nil {
		stats := eng.Cache.Stats()
		rpt.CacheStats = &stats
	}
	return rpt
}
