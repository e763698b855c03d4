package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jschaf/bibmgr/entry"
)

func queryFixture() []entry.Entry {
	now := time.Now()
	mk := func(key string, year int, typ entry.Type, title string, authors ...string) entry.Entry {
		e := entry.New(key, typ, now)
		e.Year = year
		e.Title = title
		for _, a := range authors {
			e.Author = append(e.Author, entry.Person{Family: a})
		}
		return e
	}
	return []entry.Entry{
		mk("turing1936", 1936, entry.TypeArticle, "On Computable Numbers", "Turing"),
		mk("shannon1948", 1948, entry.TypeArticle, "A Mathematical Theory of Communication", "Shannon"),
		mk("knuth1968", 1968, entry.TypeBook, "The Art of Computer Programming", "Knuth"),
	}
}

func TestQuery_WhereEqual(t *testing.T) {
	got := NewQuery().Where("type", OpEqual, "article").Run(queryFixture())
	assert.Len(t, got, 2)
}

func TestQuery_WhereYearComparison(t *testing.T) {
	got := NewQuery().Where("year", OpGreater, 1940).Run(queryFixture())
	assert.Len(t, got, 2)
}

func TestQuery_WhereIn(t *testing.T) {
	got := NewQuery().WhereIn("key", "turing1936", "knuth1968").Run(queryFixture())
	assert.Len(t, got, 2)
}

func TestQuery_Contains_MatchesAuthorSlice(t *testing.T) {
	got := NewQuery().Where("author", OpContains, "hannon").Run(queryFixture())
	require := assert.New(t)
	require.Len(got, 1)
	require.Equal("shannon1948", got[0].Key)
}

func TestQuery_OrderByYearDescending(t *testing.T) {
	got := NewQuery().OrderBy("year", true).Run(queryFixture())
	assert.Equal(t, []string{"knuth1968", "shannon1948", "turing1936"}, keysOf(got))
}

func TestQuery_OffsetAndLimit(t *testing.T) {
	got := NewQuery().OrderBy("year", false).Offset(1).Limit(1).Run(queryFixture())
	assert.Equal(t, []string{"shannon1948"}, keysOf(got))
}

func TestQuery_OffsetBeyondLengthReturnsEmpty(t *testing.T) {
	got := NewQuery().Offset(100).Run(queryFixture())
	assert.Empty(t, got)
}

func TestQuery_DeterministicTieBreakOnKey(t *testing.T) {
	now := time.Now()
	a := entry.New("bbb", entry.TypeMisc, now)
	b := entry.New("aaa", entry.TypeMisc, now)
	got := NewQuery().Run([]entry.Entry{a, b})
	assert.Equal(t, []string{"bbb", "aaa"}, keysOf(got), "default tie-break should sort by key descending")
}

func keysOf(entries []entry.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}
