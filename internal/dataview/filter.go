package dataview

import "strings"

// PredicateKind selects how a Predicate tests a record.
type PredicateKind int

const (
	// KindContains is a case-insensitive substring match.
	KindContains PredicateKind = iota
	// KindEquals is an exact text match, used for enums.
	KindEquals
	// KindBoolEquals compares field truthiness against a TriState.
	KindBoolEquals
)

// TriState is the value of a boolean filter: unset, true or false.
type TriState int

const (
	Unset TriState = iota
	True
	False
)

// ParseTriState maps form values to a TriState. Anything unrecognised is Unset.
func ParseTriState(s string) TriState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return True
	case "false", "0", "no", "off":
		return False
	default:
		return Unset
	}
}

// String returns "true", "false" or "".
func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return ""
	}
}

// Predicate is a single filter condition. A contains predicate over several
// fields matches when any of them contains the value.
type Predicate struct {
	Fields []string
	Kind   PredicateKind
	Value  string
	Bool   TriState
}

// Contains builds a case-insensitive substring predicate on one field.
func Contains(field, value string) Predicate {
	return Predicate{Fields: []string{field}, Kind: KindContains, Value: value}
}

// ContainsAny builds a substring predicate that matches if any field contains value.
func ContainsAny(value string, fields ...string) Predicate {
	return Predicate{Fields: fields, Kind: KindContains, Value: value}
}

// Equals builds an exact-match predicate.
func Equals(field, value string) Predicate {
	return Predicate{Fields: []string{field}, Kind: KindEquals, Value: value}
}

// BoolEquals builds a truthiness predicate.
func BoolEquals(field string, want TriState) Predicate {
	return Predicate{Fields: []string{field}, Kind: KindBoolEquals, Bool: want}
}

// Active reports whether the predicate constrains anything. Inactive
// predicates are skipped by Filter.
func (p Predicate) Active() bool {
	if len(p.Fields) == 0 {
		return false
	}
	if p.Kind == KindBoolEquals {
		return p.Bool != Unset
	}
	return strings.TrimSpace(p.Value) != ""
}

// FilterSet is an ordered conjunction of predicates.
type FilterSet []Predicate

// Filter returns the records that satisfy every active predicate, in their
// original order. The input slice is not modified.
func Filter[T any](s *Schema[T], records []T, set FilterSet) []T {
	active := make([]Predicate, 0, len(set))
	for _, p := range set {
		if p.Active() {
			active = append(active, p)
		}
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		if matchesAll(s, active, rec) {
			out = append(out, rec)
		}
	}
	return out
}

func matchesAll[T any](s *Schema[T], preds []Predicate, rec T) bool {
	for _, p := range preds {
		if !matches(s, p, rec) {
			return false
		}
	}
	return true
}

func matches[T any](s *Schema[T], p Predicate, rec T) bool {
	switch p.Kind {
	case KindContains:
		needle := strings.ToLower(strings.TrimSpace(p.Value))
		for _, f := range p.Fields {
			if strings.Contains(strings.ToLower(s.Text(rec, f)), needle) {
				return true
			}
		}
		return false
	case KindEquals:
		for _, f := range p.Fields {
			if s.Text(rec, f) == p.Value {
				return true
			}
		}
		return false
	case KindBoolEquals:
		want := p.Bool == True
		for _, f := range p.Fields {
			if Truthy(s.Value(rec, f)) == want {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// FilterDef declares a named filter control of a screen and how its raw
// input maps to a Predicate.
type FilterDef struct {
	Key     string
	Label   string
	Field   string
	Kind    PredicateKind
	Options []string
}

// Predicate converts raw input for this filter into a Predicate.
func (d FilterDef) Predicate(raw string) Predicate {
	switch d.Kind {
	case KindBoolEquals:
		return BoolEquals(d.Field, ParseTriState(raw))
	case KindEquals:
		return Equals(d.Field, strings.TrimSpace(raw))
	default:
		return Contains(d.Field, raw)
	}
}
