// Package dataview implements the list screen pipeline shared by every
// management table: a typed field-accessor schema, conjunctive filtering,
// type-aware stable sorting, pagination, debounced search, and the per-screen
// view state that ties them together.
package dataview

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FieldType declares how a field's values are compared when sorting.
type FieldType int

const (
	// Text fields compare as case-insensitive strings.
	Text FieldType = iota
	// Number fields parse as float64; unparsable values count as 0.
	Number
	// Date fields parse as timestamps; unparsable values sort first.
	Date
	// Bool fields order false before true.
	Bool
)

// Field declares one named, readable attribute of a record type.
type Field[T any] struct {
	Name string
	Type FieldType
	Get  func(T) any
}

// Schema is the declared field-accessor map for a record type. Filtering and
// sorting only ever reach record values through it.
type Schema[T any] struct {
	fields map[string]Field[T]
	names  []string
}

// NewSchema builds a Schema from the given fields, preserving their order.
// It panics on an empty or duplicate field name, or a nil accessor.
func NewSchema[T any](fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{
		fields: make(map[string]Field[T], len(fields)),
		names:  make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			panic("dataview.NewSchema: field name must not be empty")
		}
		if f.Get == nil {
			panic(fmt.Sprintf("dataview.NewSchema: field %q has no accessor", f.Name))
		}
		if _, dup := s.fields[f.Name]; dup {
			panic(fmt.Sprintf("dataview.NewSchema: duplicate field %q", f.Name))
		}
		s.fields[f.Name] = f
		s.names = append(s.names, f.Name)
	}
	return s
}

// Lookup returns the named field.
func (s *Schema[T]) Lookup(name string) (Field[T], bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Names returns the field names in declaration order.
func (s *Schema[T]) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Value returns the raw value of the named field, or nil for unknown fields.
func (s *Schema[T]) Value(rec T, name string) any {
	f, ok := s.fields[name]
	if !ok {
		return nil
	}
	return f.Get(rec)
}

// Text returns the display text of the named field. Missing, unknown and nil
// values yield "".
func (s *Schema[T]) Text(rec T, name string) string {
	return TextOf(s.Value(rec, name))
}

// TextOf renders a scalar or list value as text.
func TextOf(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(time.RFC3339)
	case *time.Time:
		if v == nil || v.IsZero() {
			return ""
		}
		return v.Format(time.RFC3339)
	case []string:
		return strings.Join(v, ", ")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// NumberOf converts v to a float64. Non-numeric and NaN values yield 0.
func NumberOf(v any) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(TextOf(v)), 64)
		if err != nil {
			return 0
		}
		f = parsed
	}
	if math.IsNaN(f) {
		return 0
	}
	return f
}

// dateLayouts are tried in order when a date field holds a string.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DateOf converts v to a timestamp. ok is false for zero or unparsable values.
func DateOf(v any) (t time.Time, ok bool) {
	switch d := v.(type) {
	case time.Time:
		return d, !d.IsZero()
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return *d, !d.IsZero()
	}
	s := strings.TrimSpace(TextOf(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Truthy reports whether v counts as set for a boolean filter.
func Truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case *bool:
		return b != nil && *b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "", "0", "false", "no", "off":
			return false
		}
		return true
	case int, int64, int32, uint, uint64, uint32, float64, float32:
		return NumberOf(b) != 0
	}
	return Truthy(TextOf(v))
}
