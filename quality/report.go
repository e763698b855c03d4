package quality

import (
	"sort"

	"github.com/jschaf/bibmgr/entry"
)

// Metrics summarizes a Report's per-entry results across the whole set.
type Metrics struct {
	Total             int
	Valid             int
	ErrorCount        int
	WarningCount      int
	FieldCompleteness map[string]float64 // field name -> fraction of entries where it's present
	CommonIssues      map[string]int     // validation message -> occurrence count
	QualityScore      float64            // 100 * valid / total
}

// Report aggregates per-entry validation results, whole-set consistency
// issues, and summary metrics.
type Report struct {
	EntryReports      []EntryReport
	ConsistencyIssues []ConsistencyIssue
	Metrics           Metrics
	CacheStats        *CacheStats
}

// BuildReport assembles a Report from per-entry outcomes and consistency
// issues.
func BuildReport(entries []entry.Entry, reports []EntryReport, issues []ConsistencyIssue) Report {
	m := Metrics{
		Total:             len(entries),
		FieldCompleteness: make(map[string]float64),
		CommonIssues:      make(map[string]int),
	}
	fieldCounts := make(map[string]int)
	for i, rpt := range reports {
		hasError := false
		for _, r := range rpt.Results {
			if !r.Valid && r.Severity == entry.SeverityError {
				hasError = true
				m.ErrorCount++
			}
			if r.Severity == entry.SeverityWarning {
				m.WarningCount++
			}
			m.CommonIssues[r.Message]++
		}
		if !hasError {
			m.Valid++
		}
		if i < len(entries) {
			for _, name := range entries[i].AllFieldNames() {
				if v, ok := entries[i].FieldValue(entry.Field(name)); ok && v != "" {
					fieldCounts[name]++
				}
			}
		}
	}
	allFieldNames := make(map[string]bool)
	for _, e := range entries {
		for _, n := range e.AllFieldNames() {
			allFieldNames[n] = true
		}
	}
	for name := range allFieldNames {
		if m.Total > 0 {
			m.FieldCompleteness[name] = float64(fieldCounts[name]) / float64(m.Total)
		}
	}
	if m.Total > 0 {
		m.QualityScore = 100 * float64(m.Valid) / float64(m.Total)
	}
	return Report{EntryReports: reports, ConsistencyIssues: issues, Metrics: m}
}

// TopIssues returns the n most common validation messages, descending by
// count, for display in a summary.
func (r Report) TopIssues(n int) []string {
	type kv struct {
		msg   string
		count int
	}
	kvs := make([]kv, 0, len(r.Metrics.CommonIssues))
	for m, c := range r.Metrics.CommonIssues {
		kvs = append(kvs, kv{m, c})
	}
	sort.Slice(kvs, func(i, j int) bool {
		if kvs[i].count != kvs[j].count {
			return kvs[i].count > kvs[j].count
		}
		return kvs[i].msg < kvs[j].msg
	})
	if n > len(kvs) {
		n = len(kvs)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = kvs[i].msg
	}
	return out
}
