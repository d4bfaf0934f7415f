package filter

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiboard/internal/models"
)

func records(pos, neu, neg int) []models.CommentRecord {
	var out []models.CommentRecord
	line := 2
	add := func(n int, s models.Sentiment) {
		for i := 0; i < n; i++ {
			out = append(out, models.CommentRecord{Line: line, Content: s.String(), Code: int(s), Sentiment: s})
			line++
		}
	}
	add(pos, models.Positive)
	add(neu, models.Neutral)
	add(neg, models.Negative)
	return out
}

func TestInitialState(t *testing.T) {
	e := NewEngine(0)
	assert.Equal(t, DefaultPageSize, e.PageSize())
	assert.Equal(t, models.AllSelected, e.State().Selected)
	assert.Equal(t, 1, e.State().Page)
}

func TestPositiveOnlyPagination(t *testing.T) {
	recs := records(10, 3, 2)
	e := NewEngine(7)

	require.True(t, e.Toggle(models.Neutral))
	require.True(t, e.Toggle(models.Negative))
	assert.Equal(t, models.SelectionOf(models.Positive), e.State().Selected)

	v := e.Visible(recs)
	assert.Equal(t, 2, v.TotalPages)
	assert.Equal(t, 10, v.TotalItems)
	assert.Len(t, v.Items, 7)

	assert.Equal(t, 2, e.Next(recs))
	v = e.Visible(recs)
	assert.Len(t, v.Items, 3)
	for _, r := range v.Items {
		assert.Equal(t, models.Positive, r.Sentiment)
	}

	assert.Equal(t, 2, e.Next(recs), "next on last page is a no-op")
	assert.Equal(t, 1, e.Prev(recs))
	assert.Equal(t, 1, e.Prev(recs), "prev on first page is a no-op")
}

func TestToggleRefusesEmptySelection(t *testing.T) {
	e := NewEngine(7)
	require.True(t, e.Toggle(models.Positive))
	require.True(t, e.Toggle(models.Neutral))
	assert.False(t, e.Toggle(models.Negative))
	assert.Equal(t, models.SelectionOf(models.Negative), e.State().Selected)

	assert.False(t, e.Toggle(models.Unknown))
	assert.True(t, e.Toggle(models.Positive))
	assert.Equal(t, 2, e.State().Selected.Len())
}

func TestToggleResetsPage(t *testing.T) {
	recs := records(20, 0, 0)
	e := NewEngine(7)
	e.SetPage(3, recs)
	require.Equal(t, 3, e.State().Page)

	e.Toggle(models.Neutral)
	assert.Equal(t, 1, e.State().Page)
}

func TestSetPageClamps(t *testing.T) {
	recs := records(10, 0, 0)
	e := NewEngine(7)
	assert.Equal(t, 2, e.SetPage(99, recs))
	assert.Equal(t, 1, e.SetPage(-4, recs))
	assert.Equal(t, 1, e.SetPage(5, nil), "empty data still has page 1")
}

func TestDeriveEmpty(t *testing.T) {
	v := Derive(nil, Initial(), 7)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 0, v.TotalPages)
	assert.Empty(t, v.Items)
}

func TestReset(t *testing.T) {
	recs := records(30, 0, 0)
	e := NewEngine(7)
	e.Toggle(models.Negative)
	e.SetPage(4, recs)
	e.Reset()
	assert.Equal(t, Initial(), e.State())
}

// Random toggle/page sequences must keep the selection non-empty, the page
// in range and Derive idempotent.
func TestRandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	recs := records(23, 9, 14)
	e := NewEngine(7)

	for i := 0; i < 2000; i++ {
		switch rng.Intn(5) {
		case 0, 1:
			e.Toggle(models.Sentiment(rng.Intn(4)))
		case 2:
			e.SetPage(rng.Intn(12)-3, recs)
		case 3:
			e.Next(recs)
		case 4:
			e.Prev(recs)
		}

		st := e.State()
		require.NotZero(t, st.Selected.Len())

		v1 := Derive(recs, st, 7)
		v2 := Derive(recs, st, 7)
		require.Equal(t, v1, v2)
		require.GreaterOrEqual(t, v1.Page, 1)
		require.LessOrEqual(t, v1.Page, max(1, v1.TotalPages))
		require.LessOrEqual(t, len(v1.Items), 7)
		for _, r := range v1.Items {
			require.True(t, st.Selected.Has(r.Sentiment))
		}
	}
}
