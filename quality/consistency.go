package quality

import (
	"fmt"
	"sort"

	"github.com/jschaf/bibmgr/entry"
)

// Context supplies the whole-set information consistency rules need beyond
// the entry list itself: which keys belong to a collection or a caller's
// citation set, and a pluggable duplicate matcher (the duplicate engine).
type Context struct {
	CollectionMembers map[string]bool
	CitedKeys         map[string]bool
	FindDuplicates    func(entries []entry.Entry) []entry.DuplicateMatch
}

// ConsistencyRules builds the whole-set rules: crossref resolution, cycle
// detection, duplicate detection (delegated to ctx.FindDuplicates), and
// orphan detection.
func ConsistencyRules(ctx Context) []Rule {
	return []Rule{
		{Name: "crossref-resolution", Kind: KindConsistency, CheckSet: crossrefResolution},
		{Name: "crossref-cycles", Kind: KindConsistency, CheckSet: crossrefCycles},
		{Name: "duplicates", Kind: KindConsistency, CheckSet: func(es []entry.Entry) []ConsistencyIssue {
			return duplicateIssues(es, ctx)
		}},
		{Name: "orphans", Kind: KindConsistency, CheckSet: func(es []entry.Entry) []ConsistencyIssue {
			return orphanIssues(es, ctx)
		}},
	}
}

func crossrefResolution(entries []entry.Entry) []ConsistencyIssue {
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.Key] = true
	}
	var issues []ConsistencyIssue
	for _, e := range entries {
		if e.Crossref == "" {
			continue
		}
		if !known[e.Crossref] {
			issues = append(issues, ConsistencyIssue{
				Rule: "crossref-resolution", Severity: entry.SeverityError,
				Message: fmt.Sprintf("crossref %q on %q does not resolve to an existing key", e.Crossref, e.Key),
				Keys:    []string{e.Key},
			})
		}
	}
	return issues
}

// crossrefCycles runs a three-color DFS over the crossref adjacency map and
// reports every cycle found, each with its full member set.
func crossrefCycles(entries []entry.Entry) []ConsistencyIssue {
	adj := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Crossref != "" {
			adj[e.Key] = e.Crossref
		}
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(adj))
	var issues []ConsistencyIssue
	seenCycles := make(map[string]bool)

	var visit func(start string)
	visit = func(start string) {
		path := []string{}
		node := start
		for {
			c := color[node]
			if c == black {
				return
			}
			if c == gray {
				// Found a cycle: the portion of path from node's first
				// occurrence to the end.
				idx := indexOf(path, node)
				members := append([]string(nil), path[idx:]...)
				sort.Strings(members)
				key := fmt.Sprint(members)
				if !seenCycles[key] {
					seenCycles[key] = true
					issues = append(issues, ConsistencyIssue{
						Rule: "crossref-cycles", Severity: entry.SeverityError,
						Message: "cycle detected in crossref graph",
						Keys:    members,
					})
				}
				for _, p := range path {
					color[p] = black
				}
				return
			}
			color[node] = gray
			path = append(path, node)
			next, ok := adj[node]
			if !ok {
				for _, p := range path {
					color[p] = black
				}
				return
			}
			node = next
		}
	}

	for _, e := range entries {
		if color[e.Key] == white {
			visit(e.Key)
		}
	}
	return issues
}

func indexOf(xs []string, x string) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}

func duplicateIssues(entries []entry.Entry, ctx Context) []ConsistencyIssue {
	if ctx.FindDuplicates == nil {
		return nil
	}
	matches := ctx.FindDuplicates(entries)
	issues := make([]ConsistencyIssue, 0, len(matches))
	for _, m := range matches {
		issues = append(issues, ConsistencyIssue{
			Rule: "duplicates", Severity: entry.SeverityWarning,
			Message: fmt.Sprintf("possible duplicate (score %.2f): %s", m.Score, m.MatchingFields),
			Keys:    []string{m.KeyA, m.KeyB},
		})
	}
	return issues
}

func orphanIssues(entries []entry.Entry, ctx Context) []ConsistencyIssue {
	referenced := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Crossref != "" {
			referenced[e.Crossref] = true
		}
	}
	var issues []ConsistencyIssue
	for _, e := range entries {
		if referenced[e.Key] {
			continue
		}
		if ctx.CollectionMembers != nil && ctx.CollectionMembers[e.Key] {
			continue
		}
		if ctx.CitedKeys != nil && ctx.CitedKeys[e.Key] {
			continue
		}
		issues = append(issues, ConsistencyIssue{
			Rule: "orphans", Severity: entry.SeverityInfo,
			Message: fmt.Sprintf("entry %q is not referenced by crossref, collection, or citation set", e.Key),
			Keys:    []string{e.Key},
		})
	}
	return issues
}
