package dedupe

import "github.com/jschaf/bibmgr/entry"

// Cluster is a connected component of 2 or more mutually-or-transitively
// matching entries.
type Cluster struct {
	Keys    []string
	Matches []entry.DuplicateMatch
}

// FindClusters builds an undirected graph where any matching pair is an
// edge, then returns its connected components of size >= 2. When idx is
// non-nil, candidate pairs are drawn from its DOI/title buckets; otherwise
// every pair is scanned (O(n^2)).
func FindClusters(entries []entry.Entry, matcher *Matcher, idx *Index) []Cluster {
	adj := make(map[string]map[string]bool)
	var allMatches []entry.DuplicateMatch
	addEdge := func(m entry.DuplicateMatch) {
		if adj[m.KeyA] == nil {
			adj[m.KeyA] = make(map[string]bool)
		}
		if adj[m.KeyB] == nil {
			adj[m.KeyB] = make(map[string]bool)
		}
		adj[m.KeyA][m.KeyB] = true
		adj[m.KeyB][m.KeyA] = true
		allMatches = append(allMatches, m)
	}

	if idx != nil {
		for _, pair := range idx.CandidatePairs() {
			if m, ok := matcher.Match(pair[0], pair[1]); ok {
				addEdge(m)
			}
		}
	} else {
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				if m, ok := matcher.Match(entries[i], entries[j]); ok {
					addEdge(m)
				}
			}
		}
	}

	matchesByPair := make(map[[2]string][]entry.DuplicateMatch)
	for _, m := range allMatches {
		a, b := m.KeyA, m.KeyB
		if a > b {
			a, b = b, a
		}
		matchesByPair[[2]string{a, b}] = append(matchesByPair[[2]string{a, b}], m)
	}

	visited := make(map[string]bool)
	var clusters []Cluster
	for key := range adj {
		if visited[key] {
			continue
		}
		component := bfs(key, adj, visited)
		if len(component) < 2 {
			continue
		}
		var matches []entry.DuplicateMatch
		for i := 0; i < len(component); i++ {
			for j := i + 1; j < len(component); j++ {
				a, b := component[i], component[j]
				if a > b {
					a, b = b, a
				}
				matches = append(matches, matchesByPair[[2]string{a, b}]...)
			}
		}
		clusters = append(clusters, Cluster{Keys: component, Matches: matches})
	}
	return clusters
}

func bfs(start string, adj map[string]map[string]bool, visited map[string]bool) []string {
	queue := []string{start}
	visited[start] = true
	var component []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		component = append(component, node)
		for neighbor := range adj[node] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}
	return component
}
