package repository

import (
	"sort"
	"strings"

	"github.com/jschaf/bibmgr/entry"
)

// Operator is a comparison a query clause applies to one field.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpIn           Operator = "in"
	OpContains     Operator = "contains"
)

type clause struct {
	field string
	op    Operator
	value any
}

type orderTerm struct {
	field string
	desc  bool
}

// Query is a fluent, in-memory filter over a loaded entry set: execution
// loads every entry, filters in memory, stably sorts by the requested
// fields (ties broken by key, descending, to keep pagination deterministic),
// then applies offset and limit.
type Query struct {
	clauses []clause
	order   []orderTerm
	offset  int
	limit   int // 0 means unlimited
}

// NewQuery starts an empty query.
func NewQuery() *Query { return &Query{} }

// Where adds an equality/comparison clause.
func (q *Query) Where(field string, op Operator, value any) *Query {
	q.clauses = append(q.clauses, clause{field: field, op: op, value: value})
	return q
}

// WhereIn adds an "is one of" clause.
func (q *Query) WhereIn(field string, values ...any) *Query {
	q.clauses = append(q.clauses, clause{field: field, op: OpIn, value: values})
	return q
}

// OrderBy appends a sort term; the first call is the primary sort key.
func (q *Query) OrderBy(field string, desc bool) *Query {
	q.order = append(q.order, orderTerm{field: field, desc: desc})
	return q
}

// Offset sets how many matching results to skip.
func (q *Query) Offset(n int) *Query { q.offset = n; return q }

// Limit caps the number of results returned; 0 means unlimited.
func (q *Query) Limit(n int) *Query { q.limit = n; return q }

// Run filters entries against q's clauses, sorts, and paginates.
func (q *Query) Run(entries []entry.Entry) []entry.Entry {
	matched := make([]entry.Entry, 0, len(entries))
	for _, e := range entries {
		if q.matches(e) {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		for _, term := range q.order {
			cmp := compareField(matched[i], matched[j], term.field)
			if cmp == 0 {
				continue
			}
			if term.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		// Deterministic fallback so repeated queries paginate consistently.
		return matched[i].Key > matched[j].Key
	})

	start := q.offset
	if start > len(matched) {
		start = len(matched)
	}
	matched = matched[start:]
	if q.limit > 0 && q.limit < len(matched) {
		matched = matched[:q.limit]
	}
	return matched
}

func (q *Query) matches(e entry.Entry) bool {
	for _, c := range q.clauses {
		if !matchClause(e, c) {
			return false
		}
	}
	return true
}

func matchClause(e entry.Entry, c clause) bool {
	fv, numeric := fieldValue(e, c.field)
	switch c.op {
	case OpEqual:
		return compareAny(fv, numeric, c.value) == 0
	case OpNotEqual:
		return compareAny(fv, numeric, c.value) != 0
	case OpLess:
		return compareAny(fv, numeric, c.value) < 0
	case OpLessEqual:
		return compareAny(fv, numeric, c.value) <= 0
	case OpGreater:
		return compareAny(fv, numeric, c.value) > 0
	case OpGreaterEqual:
		return compareAny(fv, numeric, c.value) >= 0
	case OpIn:
		values, _ := c.value.([]any)
		for _, v := range values {
			if compareAny(fv, numeric, v) == 0 {
				return true
			}
		}
		return false
	case OpContains:
		needle, _ := c.value.(string)
		return strings.Contains(strings.ToLower(fv.text), strings.ToLower(needle)) ||
			containsAny(fieldSlice(e, c.field), needle)
	default:
		return false
	}
}

type scalar struct {
	text string
	num  float64
}

func fieldValue(e entry.Entry, field string) (scalar, bool) {
	switch strings.ToLower(field) {
	case "key":
		return scalar{text: e.Key}, false
	case "type":
		return scalar{text: string(e.Type)}, false
	case "title":
		return scalar{text: e.Title}, false
	case "journal":
		return scalar{text: e.Journal}, false
	case "year":
		return scalar{text: "", num: float64(e.Year)}, true
	case "doi":
		return scalar{text: e.DOI}, false
	case "publisher":
		return scalar{text: e.Publisher}, false
	case "createdat":
		return scalar{num: float64(e.CreatedAt.Unix())}, true
	case "modifiedat":
		return scalar{num: float64(e.ModifiedAt.Unix())}, true
	default:
		return scalar{}, false
	}
}

// fieldSlice returns the list-valued representation of fields that are
// naturally multi-valued (author names, keywords), for Contains matching.
func fieldSlice(e entry.Entry, field string) []string {
	switch strings.ToLower(field) {
	case "author":
		return e.AuthorNames()
	case "keywords":
		return e.Keywords
	default:
		return nil
	}
}

func containsAny(values []string, needle string) bool {
	needle = strings.ToLower(needle)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func compareAny(fv scalar, numeric bool, want any) int {
	if numeric {
		w, ok := toFloat(want)
		if !ok {
			return 1
		}
		switch {
		case fv.num < w:
			return -1
		case fv.num > w:
			return 1
		default:
			return 0
		}
	}
	w := toString(want)
	return strings.Compare(fv.text, w)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func compareField(a, b entry.Entry, field string) int {
	fa, numeric := fieldValue(a, field)
	fb, _ := fieldValue(b, field)
	if numeric {
		switch {
		case fa.num < fb.num:
			return -1
		case fa.num > fb.num:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fa.text, fb.text)
}
