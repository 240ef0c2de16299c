package dataview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var filterFixture = []pack{
	{Name: "Gulf Reach", Region: "UAE", Industry: "Finance", Indexed: true, Status: "approved"},
	{Name: "Asia Wire", Region: "Singapore", Industry: "Tech", Indexed: false, Status: "pending"},
	{Name: "Dubai Daily", Region: "UAE", Industry: "Real Estate", Indexed: false, Status: "approved"},
}

func TestFilter_RegionContainsIsCaseInsensitive(t *testing.T) {
	got := Filter(packSchema, filterFixture, FilterSet{Contains("region", "uae")})
	assert.Equal(t, []string{"Gulf Reach", "Dubai Daily"}, names(got))
}

func TestFilter_Conjunction(t *testing.T) {
	got := Filter(packSchema, filterFixture, FilterSet{
		Contains("region", "UAE"),
		BoolEquals("indexed", True),
	})
	assert.Equal(t, []string{"Gulf Reach"}, names(got))
}

func TestFilter_EmptySetReturnsAll(t *testing.T) {
	got := Filter(packSchema, filterFixture, nil)
	assert.Equal(t, names(filterFixture), names(got))

	got = Filter(packSchema, filterFixture, FilterSet{Contains("region", "  "), BoolEquals("indexed", Unset)})
	assert.Len(t, got, 3)
}

func TestFilter_NoMatch(t *testing.T) {
	got := Filter(packSchema, filterFixture, FilterSet{Contains("region", "Mars")})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilter_Equals(t *testing.T) {
	got := Filter(packSchema, filterFixture, FilterSet{Equals("status", "pending")})
	assert.Equal(t, []string{"Asia Wire"}, names(got))

	got = Filter(packSchema, filterFixture, FilterSet{Equals("status", "Pending")})
	assert.Empty(t, got)
}

func TestFilter_BoolFalse(t *testing.T) {
	got := Filter(packSchema, filterFixture, FilterSet{BoolEquals("indexed", False)})
	assert.Equal(t, []string{"Asia Wire", "Dubai Daily"}, names(got))
}

func TestFilter_ContainsAnyField(t *testing.T) {
	got := Filter(packSchema, filterFixture, FilterSet{ContainsAny("tech", "name", "industry")})
	assert.Equal(t, []string{"Asia Wire"}, names(got))
}

func TestFilter_MissingFieldDoesNotMatch(t *testing.T) {
	got := Filter(packSchema, filterFixture, FilterSet{Contains("nope", "x")})
	assert.Empty(t, got)
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	in := append([]pack(nil), filterFixture...)
	_ = Filter(packSchema, in, FilterSet{Contains("region", "uae")})
	assert.Equal(t, filterFixture, in)
}

func TestFilterDef_Predicate(t *testing.T) {
	d := FilterDef{Key: "indexed", Field: "indexed", Kind: KindBoolEquals}
	assert.Equal(t, BoolEquals("indexed", True), d.Predicate("true"))
	assert.False(t, d.Predicate("").Active())

	d = FilterDef{Key: "status", Field: "status", Kind: KindEquals}
	assert.Equal(t, Equals("status", "approved"), d.Predicate(" approved "))

	d = FilterDef{Key: "region", Field: "region"}
	assert.Equal(t, Contains("region", "uae"), d.Predicate("uae"))
}
