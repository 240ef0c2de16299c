package dataview

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Query parameter names shared by the list endpoints and their clients.
// Any other parameter is treated as a filter value.
const (
	ParamPage     = "page"
	ParamPageSize = "page_size"
	ParamSort     = "sort"
	ParamSearch   = "search"
	ParamAll      = "all"
)

var reservedParams = map[string]bool{
	ParamPage:     true,
	ParamPageSize: true,
	ParamSort:     true,
	ParamSearch:   true,
	ParamAll:      true,
}

// Reserved reports whether name is a list parameter rather than a filter.
func Reserved(name string) bool {
	return reservedParams[name]
}

// ParseQuery builds a ViewState from query parameters. Missing or invalid
// values fall back to d; page sizes above maxPageSize are capped when
// maxPageSize > 0. The search term arrives already debounced, so it is
// committed directly.
func ParseQuery(q url.Values, d Defaults, maxPageSize int) ViewState {
	st := NewViewState(d)

	if n, err := strconv.Atoi(q.Get(ParamPageSize)); err == nil && n > 0 {
		if maxPageSize > 0 && n > maxPageSize {
			n = maxPageSize
		}
		st.PageSize = n
	}
	if n, err := strconv.Atoi(q.Get(ParamPage)); err == nil && n > 0 {
		st.CurrentPage = n
	}

	if raw := strings.TrimSpace(q.Get(ParamSort)); raw != "" {
		field, dirRaw, _ := strings.Cut(raw, ":")
		field = strings.TrimSpace(field)
		dir, ok := ParseDirection(dirRaw)
		if !ok {
			dir = Asc
		}
		if field != "" {
			st.SetSort(field, dir)
		}
	}

	term := strings.TrimSpace(q.Get(ParamSearch))
	st.SearchTerm = term
	st.DebouncedSearchTerm = term

	for key, values := range q {
		if Reserved(key) || len(values) == 0 {
			continue
		}
		if v := strings.TrimSpace(values[0]); v != "" {
			st.Filters[key] = v
		}
	}
	return st
}

// Values encodes st as query parameters understood by ParseQuery.
func (v ViewState) Values() url.Values {
	q := url.Values{}
	if v.CurrentPage > 0 {
		q.Set(ParamPage, strconv.Itoa(v.CurrentPage))
	}
	if v.PageSize > 0 {
		q.Set(ParamPageSize, strconv.Itoa(v.PageSize))
	}
	if v.SortField != "" {
		dir := v.SortDirection
		if dir == "" {
			dir = Asc
		}
		q.Set(ParamSort, v.SortField+":"+string(dir))
	}
	if v.DebouncedSearchTerm != "" {
		q.Set(ParamSearch, v.DebouncedSearchTerm)
	}
	keys := make([]string, 0, len(v.Filters))
	for k := range v.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, v.Filters[k])
	}
	return q
}
