package pkg

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/pressdesk/internal/dataview"
)

const maxPageSize = 100

// Pagination is the metadata block of a list response.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
	// Pages is the window of page numbers around Page offered for direct
	// navigation.
	Pages []int `json:"pages,omitempty"`
}

// ListResult is the data payload of a list response.
type ListResult[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// ParseViewState extracts filters, search, sort and pagination from the
// query string. limit caps page_size; zero means the package default.
func ParseViewState(c *gin.Context, d dataview.Defaults, limit int) dataview.ViewState {
	if limit <= 0 {
		limit = maxPageSize
	}
	if d.PageSize > limit {
		d.PageSize = limit
	}
	return dataview.ParseQuery(c.Request.URL.Query(), d, limit)
}

// WantsAll reports whether the caller asked for the unpaginated collection.
func WantsAll(c *gin.Context) bool {
	all, _ := strconv.ParseBool(c.Query(dataview.ParamAll))
	return all
}

// NewListResult converts a computed page into the response payload.
func NewListResult[T any](p dataview.Page[T]) ListResult[T] {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{
		Items: items,
		Pagination: Pagination{
			Page:       p.Page,
			PageSize:   p.PageSize,
			Total:      p.Total,
			TotalPages: p.PageCount,
			Pages:      p.Pages,
		},
	}
}

// AllResult wraps a complete collection as a single page.
func AllResult[T any](items []T) ListResult[T] {
	size := len(items)
	if size == 0 {
		size = 1
	}
	return NewListResult(dataview.Paginate(items, 1, size))
}
