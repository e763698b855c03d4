package dedupe

import "github.com/jschaf/bibmgr/entry"

// Index is an inverted index over entries by normalized DOI, normalized
// title, and key, maintained incrementally so lookups stay O(1) average.
type Index struct {
	byDOI   map[string][]entry.Entry
	byTitle map[string][]entry.Entry
	byKey   map[string]entry.Entry
}

// NewIndex builds an empty Index.
func NewIndex() *Index {
	return &Index{
		byDOI:   make(map[string][]entry.Entry),
		byTitle: make(map[string][]entry.Entry),
		byKey:   make(map[string]entry.Entry),
	}
}

// Add inserts e into every applicable bucket.
func (idx *Index) Add(e entry.Entry) {
	idx.byKey[e.Key] = e
	if e.DOI != "" {
		d := NormalizeDOI(e.DOI)
		idx.byDOI[d] = append(idx.byDOI[d], e)
	}
	if e.Title != "" {
		t := NormalizeTitle(e.Title)
		idx.byTitle[t] = append(idx.byTitle[t], e)
	}
}

// Remove deletes e from every bucket it was added to.
func (idx *Index) Remove(e entry.Entry) {
	delete(idx.byKey, e.Key)
	if e.DOI != "" {
		d := NormalizeDOI(e.DOI)
		idx.byDOI[d] = removeByKey(idx.byDOI[d], e.Key)
		if len(idx.byDOI[d]) == 0 {
			delete(idx.byDOI, d)
		}
	}
	if e.Title != "" {
		t := NormalizeTitle(e.Title)
		idx.byTitle[t] = removeByKey(idx.byTitle[t], e.Key)
		if len(idx.byTitle[t]) == 0 {
			delete(idx.byTitle, t)
		}
	}
}

func removeByKey(es []entry.Entry, key string) []entry.Entry {
	out := es[:0]
	for _, e := range es {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return out
}

// ByKey returns the entry stored under key, if any.
func (idx *Index) ByKey(key string) (entry.Entry, bool) {
	e, ok := idx.byKey[key]
	return e, ok
}

// ByDOI returns every entry sharing normalized DOI d.
func (idx *Index) ByDOI(doi string) []entry.Entry {
	return idx.byDOI[NormalizeDOI(doi)]
}

// ByTitle returns every entry sharing normalized title t.
func (idx *Index) ByTitle(title string) []entry.Entry {
	return idx.byTitle[NormalizeTitle(title)]
}

// CandidatePairs returns every distinct pair of entries that share a DOI or
// title bucket, used by the cluster builder to avoid an O(n^2) scan.
func (idx *Index) CandidatePairs() [][2]entry.Entry {
	seen := make(map[[2]string]bool)
	var pairs [][2]entry.Entry
	addBucket := func(es []entry.Entry) {
		for i := 0; i < len(es); i++ {
			for j := i + 1; j < len(es); j++ {
				a, b := es[i].Key, es[j].Key
				if a > b {
					a, b = b, a
				}
				p := [2]string{a, b}
				if seen[p] {
					continue
				}
				seen[p] = true
				pairs = append(pairs, [2]entry.Entry{es[i], es[j]})
			}
		}
	}
	for _, es := range idx.byDOI {
		addBucket(es)
	}
	for _, es := range idx.byTitle {
		addBucket(es)
	}
	return pairs
}
