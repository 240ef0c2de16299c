package dataview

import (
	"maps"
	"strings"
)

// Defaults seeds a fresh ViewState.
type Defaults struct {
	SortField     string
	SortDirection Direction
	PageSize      int
}

// ViewState is the per-screen list state. Changing filters, the committed
// search term or the page size moves back to page 1; changing the sort keeps
// the current page.
type ViewState struct {
	Filters             map[string]string `json:"filters,omitempty"`
	SearchTerm          string            `json:"search_term,omitempty"`
	DebouncedSearchTerm string            `json:"debounced_search_term,omitempty"`
	SortField           string            `json:"sort_field,omitempty"`
	SortDirection       Direction         `json:"sort_direction,omitempty"`
	CurrentPage         int               `json:"current_page"`
	PageSize            int               `json:"page_size"`
}

// NewViewState returns the initial state for a screen.
func NewViewState(d Defaults) ViewState {
	dir := d.SortDirection
	if dir == "" {
		dir = Asc
	}
	size := d.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	return ViewState{
		Filters:       map[string]string{},
		SortField:     d.SortField,
		SortDirection: dir,
		CurrentPage:   1,
		PageSize:      size,
	}
}

// Clone returns a deep copy.
func (v ViewState) Clone() ViewState {
	out := v
	out.Filters = maps.Clone(v.Filters)
	if out.Filters == nil {
		out.Filters = map[string]string{}
	}
	return out
}

// Filter returns the raw value of a filter control.
func (v ViewState) Filter(key string) string {
	return v.Filters[key]
}

// SetFilter stores a filter value; an empty value clears it. It reports
// whether the state changed.
func (v *ViewState) SetFilter(key, raw string) bool {
	if v.Filters == nil {
		v.Filters = map[string]string{}
	}
	raw = strings.TrimSpace(raw)
	if v.Filters[key] == raw {
		return false
	}
	if raw == "" {
		delete(v.Filters, key)
	} else {
		v.Filters[key] = raw
	}
	v.CurrentPage = 1
	return true
}

// ClearFilters removes every filter value.
func (v *ViewState) ClearFilters() {
	if len(v.Filters) == 0 {
		return
	}
	v.Filters = map[string]string{}
	v.CurrentPage = 1
}

// CommitSearch sets the debounced search term used for filtering.
func (v *ViewState) CommitSearch(term string) bool {
	if v.DebouncedSearchTerm == term {
		return false
	}
	v.DebouncedSearchTerm = term
	v.CurrentPage = 1
	return true
}

// SortBy sorts by field. Choosing the active field again flips the
// direction; a new field starts ascending.
func (v *ViewState) SortBy(field string) {
	if v.SortField == field {
		v.SortDirection = v.SortDirection.Toggle()
		return
	}
	v.SortField = field
	v.SortDirection = Asc
}

// SetSort sets field and direction explicitly.
func (v *ViewState) SetSort(field string, dir Direction) {
	v.SortField = field
	if dir == "" {
		dir = Asc
	}
	v.SortDirection = dir
}

// SetPageSize changes the page size and returns to page 1.
func (v *ViewState) SetPageSize(n int) {
	if n < 1 {
		n = DefaultPageSize
	}
	v.PageSize = n
	v.CurrentPage = 1
}

// GoTo moves to page, clamped to [1, pageCount].
func (v *ViewState) GoTo(page, pageCount int) {
	v.CurrentPage = ClampPage(page, pageCount)
}

func (v *ViewState) First() { v.CurrentPage = 1 }

func (v *ViewState) Prev(pageCount int) {
	v.GoTo(ClampPage(v.CurrentPage, pageCount)-1, pageCount)
}

func (v *ViewState) Next(pageCount int) {
	v.GoTo(ClampPage(v.CurrentPage, pageCount)+1, pageCount)
}

func (v *ViewState) Last(pageCount int) { v.GoTo(pageCount, pageCount) }
