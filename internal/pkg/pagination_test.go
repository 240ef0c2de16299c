package pkg

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/pressdesk/internal/dataview"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(queryParams url.Values) *gin.Context {
	req := httptest.NewRequest(http.MethodGet, "/?"+queryParams.Encode(), nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}

var testDefaults = dataview.Defaults{SortField: "created_at", SortDirection: dataview.Desc, PageSize: 25}

func TestParseViewState_Defaults(t *testing.T) {
	c := newTestContext(url.Values{})
	st := ParseViewState(c, testDefaults, 0)

	if st.CurrentPage != 1 {
		t.Errorf("expected CurrentPage=1, got %d", st.CurrentPage)
	}
	if st.PageSize != 25 {
		t.Errorf("expected PageSize=25, got %d", st.PageSize)
	}
	if st.SortField != "created_at" || st.SortDirection != dataview.Desc {
		t.Errorf("expected sort created_at:desc, got %s:%s", st.SortField, st.SortDirection)
	}
	if len(st.Filters) != 0 {
		t.Errorf("expected empty Filters, got %v", st.Filters)
	}
}

func TestParseViewState_CustomValues(t *testing.T) {
	c := newTestContext(url.Values{
		"page":      {"3"},
		"page_size": {"50"},
		"sort":      {"media_name:asc"},
		"search":    {"gulf"},
		"status":    {"approved"},
	})
	st := ParseViewState(c, testDefaults, 0)

	if st.CurrentPage != 3 {
		t.Errorf("expected CurrentPage=3, got %d", st.CurrentPage)
	}
	if st.PageSize != 50 {
		t.Errorf("expected PageSize=50, got %d", st.PageSize)
	}
	if st.SortField != "media_name" || st.SortDirection != dataview.Asc {
		t.Errorf("expected sort media_name:asc, got %s:%s", st.SortField, st.SortDirection)
	}
	if st.DebouncedSearchTerm != "gulf" {
		t.Errorf("expected search gulf, got %q", st.DebouncedSearchTerm)
	}
	if st.Filters["status"] != "approved" {
		t.Errorf("expected Filters[status]=approved, got %s", st.Filters["status"])
	}
}

func TestParseViewState_Clamping(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		limit    int
		wantPage int
		wantSize int
	}{
		{"page below minimum", url.Values{"page": {"0"}}, 0, 1, 25},
		{"negative page", url.Values{"page": {"-5"}}, 0, 1, 25},
		{"page_size below minimum", url.Values{"page_size": {"0"}}, 0, 1, 25},
		{"page_size above default maximum", url.Values{"page_size": {"200"}}, 0, 1, 100},
		{"page_size above configured maximum", url.Values{"page_size": {"60"}}, 50, 1, 50},
		{"invalid page_size defaults", url.Values{"page_size": {"abc"}}, 0, 1, 25},
		{"default above limit", url.Values{}, 10, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := ParseViewState(newTestContext(tt.query), testDefaults, tt.limit)
			if st.CurrentPage != tt.wantPage {
				t.Errorf("expected CurrentPage=%d, got %d", tt.wantPage, st.CurrentPage)
			}
			if st.PageSize != tt.wantSize {
				t.Errorf("expected PageSize=%d, got %d", tt.wantSize, st.PageSize)
			}
		})
	}
}

func TestParseViewState_EmptyFilterValuesIgnored(t *testing.T) {
	c := newTestContext(url.Values{
		"status": {""},
		"region": {"UAE"},
	})
	st := ParseViewState(c, testDefaults, 0)

	if _, ok := st.Filters["status"]; ok {
		t.Error("expected empty filter value to be excluded")
	}
	if st.Filters["region"] != "UAE" {
		t.Errorf("expected Filters[region]=UAE, got %s", st.Filters["region"])
	}
}

func TestWantsAll(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", false},
		{"1", true},
		{"true", true},
		{"no", false},
	}
	for _, tt := range tests {
		c := newTestContext(url.Values{"all": {tt.raw}})
		if got := WantsAll(c); got != tt.want {
			t.Errorf("WantsAll(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNewListResult(t *testing.T) {
	page := dataview.Paginate([]int{1, 2, 3, 4, 5}, 2, 2)
	res := NewListResult(page)

	if len(res.Items) != 2 || res.Items[0] != 3 {
		t.Errorf("expected items [3 4], got %v", res.Items)
	}
	want := Pagination{Page: 2, PageSize: 2, Total: 5, TotalPages: 3, Pages: []int{1, 2, 3}}
	if !reflect.DeepEqual(res.Pagination, want) {
		t.Errorf("expected pagination %+v, got %+v", want, res.Pagination)
	}
}

func TestNewListResult_NilItemsBecomesEmptySlice(t *testing.T) {
	res := NewListResult(dataview.Page[string]{Page: 1, PageSize: 10, PageCount: 1})
	if res.Items == nil {
		t.Fatal("expected non-nil Items")
	}
}

func TestAllResult(t *testing.T) {
	res := AllResult([]string{"a", "b", "c"})
	if res.Pagination.TotalPages != 1 || res.Pagination.Total != 3 || len(res.Items) != 3 {
		t.Errorf("unexpected result %+v", res)
	}

	empty := AllResult([]string{})
	if empty.Pagination.TotalPages != 1 || len(empty.Items) != 0 {
		t.Errorf("unexpected empty result %+v", empty)
	}
}
