package dataview

import (
	"cmp"
	"slices"
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc" or "desc" in any case.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	default:
		return "", false
	}
}

// Toggle flips the direction.
func (d Direction) Toggle() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// Sort returns a sorted copy of records. The sort is stable and the input
// slice is never reordered. An unknown field returns the records unchanged.
func Sort[T any](s *Schema[T], records []T, field string, dir Direction) []T {
	out := make([]T, len(records))
	copy(out, records)

	f, ok := s.Lookup(field)
	if !ok {
		return out
	}

	compare := func(a, b T) int {
		return Compare(f.Type, f.Get(a), f.Get(b))
	}
	if dir == Desc {
		slices.SortStableFunc(out, func(a, b T) int { return compare(b, a) })
	} else {
		slices.SortStableFunc(out, compare)
	}
	return out
}

// Compare orders two values of the given field type ascending.
func Compare(t FieldType, a, b any) int {
	switch t {
	case Number:
		return cmp.Compare(NumberOf(a), NumberOf(b))
	case Date:
		ta, okA := DateOf(a)
		tb, okB := DateOf(b)
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return -1
		case !okB:
			return 1
		}
		return ta.Compare(tb)
	case Bool:
		ba, bb := Truthy(a), Truthy(b)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	default:
		return strings.Compare(strings.ToLower(TextOf(a)), strings.ToLower(TextOf(b)))
	}
}
