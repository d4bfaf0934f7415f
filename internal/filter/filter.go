// Package filter holds the comment table's sentiment selection and page.
package filter

import (
	"sentiboard/internal/models"
)

const DefaultPageSize = 7

// Engine owns a FilterState. It is not safe for concurrent use; the
// dashboard session serializes access.
type Engine struct {
	pageSize int
	state    models.FilterState
}

func NewEngine(pageSize int) *Engine {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Engine{pageSize: pageSize, state: Initial()}
}

// Initial is every label selected, page 1.
func Initial() models.FilterState {
	return models.FilterState{Selected: models.AllSelected, Page: 1}
}

func (e *Engine) PageSize() int { return e.pageSize }

func (e *Engine) State() models.FilterState { return e.state }

// Reset restores the initial state. Called whenever new comment data
// replaces the old.
func (e *Engine) Reset() { e.state = Initial() }

// Toggle flips label's membership and returns whether the selection
// changed. Removing the last selected label is refused. A successful toggle
// sends the table back to page 1.
func (e *Engine) Toggle(label models.Sentiment) bool {
	if !label.Valid() {
		return false
	}
	sel := e.state.Selected
	if sel.Has(label) {
		if sel.Len() == 1 {
			return false
		}
		sel = sel.Without(label)
	} else {
		sel = sel.With(label)
	}
	e.state = models.FilterState{Selected: sel, Page: 1}
	return true
}

// SetPage moves to page n, clamped to the pages records currently fill.
// It returns the page actually set.
func (e *Engine) SetPage(n int, records []models.CommentRecord) int {
	total := TotalPages(countSelected(records, e.state.Selected), e.pageSize)
	e.state.Page = clamp(n, total)
	return e.state.Page
}

// Next advances one page; it is a no-op on the last page.
func (e *Engine) Next(records []models.CommentRecord) int {
	return e.SetPage(e.state.Page+1, records)
}

// Prev goes back one page; it is a no-op on page 1.
func (e *Engine) Prev(records []models.CommentRecord) int {
	return e.SetPage(e.state.Page-1, records)
}

// Visible derives the current page from records.
func (e *Engine) Visible(records []models.CommentRecord) models.VisibleSlice {
	return Derive(records, e.state, e.pageSize)
}

// Derive filters records by state.Selected and cuts out state.Page. The
// page is clamped into range, so a stale state never yields an
// out-of-range slice. Derive has no side effects.
func Derive(records []models.CommentRecord, state models.FilterState, pageSize int) models.VisibleSlice {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	filtered := make([]models.CommentRecord, 0, len(records))
	for _, r := range records {
		if state.Selected.Has(r.Sentiment) {
			filtered = append(filtered, r)
		}
	}

	total := TotalPages(len(filtered), pageSize)
	page := clamp(state.Page, total)
	start := min((page-1)*pageSize, len(filtered))
	end := min(start+pageSize, len(filtered))

	return models.VisibleSlice{
		Items:      filtered[start:end],
		Page:       page,
		TotalPages: total,
		TotalItems: len(filtered),
	}
}

// TotalPages is ceil(n/pageSize).
func TotalPages(n, pageSize int) int {
	if n <= 0 || pageSize < 1 {
		return 0
	}
	return (n + pageSize - 1) / pageSize
}

func clamp(page, totalPages int) int {
	return max(1, min(page, max(1, totalPages)))
}

func countSelected(records []models.CommentRecord, sel models.Selection) int {
	n := 0
	for _, r := range records {
		if sel.Has(r.Sentiment) {
			n++
		}
	}
	return n
}
