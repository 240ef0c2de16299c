package dataview

import (
	"context"
	"fmt"

	"github.com/simp-lee/pagination"
)

// DefaultPageSize is used when no positive page size is given.
const DefaultPageSize = 25

// PageSizes are the page size options offered by list screens.
var PageSizes = []int{10, 25, 50, 100}

// pageWindow is how many page numbers the navigation shows at once.
const pageWindow = 5

// Page is one page of a filtered and sorted record list.
type Page[T any] struct {
	Items     []T   `json:"items"`
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int   `json:"total"`
	PageCount int   `json:"total_pages"`
	Pages     []int `json:"pages"`
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Page[T]) HasNext() bool { return p.Page < p.PageCount }

// PageCount returns max(1, ceil(total/pageSize)).
func PageCount(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage limits page to [1, pageCount].
func ClampPage(page, pageCount int) int {
	if pageCount < 1 {
		pageCount = 1
	}
	return min(max(page, 1), pageCount)
}

// Paginate returns the requested page of records. Out-of-range pages are
// clamped so a page is always renderable. The returned items never alias
// records.
func Paginate[T any](records []T, page, pageSize int) Page[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	p := pagination.NewPaginator(
		pagination.WithItemsPerPage[T](pageSize),
		pagination.WithPagesInRange[T](pageWindow),
		pagination.WithKnownTotal[T](int64(len(records))),
		pagination.WithSliceCallback(func(_ context.Context, offset, limit int) ([]T, error) {
			end := min(offset+limit, len(records))
			if offset >= end {
				return []T{}, nil
			}
			return append(make([]T, 0, end-offset), records[offset:end]...), nil
		}),
	)

	// the paginator rejects pages below 1 and clamps pages past the end
	result, err := p.Paginate(context.Background(), max(page, 1))
	if err != nil {
		// only reachable with invalid options, which are normalized above
		panic(fmt.Sprintf("dataview: paginate: %v", err))
	}

	return Page[T]{
		Items:     result.Items,
		Page:      result.CurrentPage,
		PageSize:  result.ItemsPerPage,
		Total:     int(result.TotalItems),
		PageCount: result.TotalPages,
		Pages:     result.Pages,
	}
}
