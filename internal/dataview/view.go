package dataview

import "strings"

// View binds a record schema to a screen's filter controls and search
// fields. It is the single parameterized list pipeline used by every
// resource.
type View[T any] struct {
	Schema       *Schema[T]
	Filters      []FilterDef
	SearchFields []string
	Defaults     Defaults
}

// FilterDef returns the filter control with the given key.
func (v View[T]) FilterDef(key string) (FilterDef, bool) {
	for _, d := range v.Filters {
		if d.Key == key {
			return d, true
		}
	}
	return FilterDef{}, false
}

// Sortable reports whether field can be sorted on.
func (v View[T]) Sortable(field string) bool {
	_, ok := v.Schema.Lookup(field)
	return ok
}

// NewState returns the initial ViewState for this view.
func (v View[T]) NewState() ViewState {
	return NewViewState(v.Defaults)
}

// FilterSet builds the predicates for st: the committed search term first,
// then each declared filter in order. Filter keys with no declaration are
// ignored.
func (v View[T]) FilterSet(st ViewState) FilterSet {
	set := make(FilterSet, 0, len(v.Filters)+1)
	if term := strings.TrimSpace(st.DebouncedSearchTerm); term != "" && len(v.SearchFields) > 0 {
		set = append(set, ContainsAny(term, v.SearchFields...))
	}
	for _, d := range v.Filters {
		if raw, ok := st.Filters[d.Key]; ok {
			set = append(set, d.Predicate(raw))
		}
	}
	return set
}

// Select filters and sorts records without paginating.
func (v View[T]) Select(records []T, st ViewState) []T {
	filtered := Filter(v.Schema, records, v.FilterSet(st))
	if st.SortField == "" {
		return filtered
	}
	return Sort(v.Schema, filtered, st.SortField, st.SortDirection)
}

// Apply runs filter, sort and paginate over records for st.
func (v View[T]) Apply(records []T, st ViewState) Page[T] {
	return Paginate(v.Select(records, st), st.CurrentPage, st.PageSize)
}
