// Package catalog declares the managed resources: for every record type, the
// field accessors, table columns, filter controls, search fields and form
// rules that drive its list screen, API and import/export.
package catalog

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simp-lee/pressdesk/internal/dataview"
	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/form"
)

// Input is the form control used to edit an attribute.
type Input string

const (
	InputText     Input = "text"
	InputNumber   Input = "number"
	InputEmail    Input = "email"
	InputURL      Input = "url"
	InputTextarea Input = "textarea"
	InputCheckbox Input = "checkbox"
	InputSelect   Input = "select"
	InputList     Input = "list"
	InputImage    Input = "image"
	InputPassword Input = "password"
)

// Attr is one declared attribute of a record type.
type Attr[T any] struct {
	Name    string
	Label   string
	Type    dataview.FieldType
	Input   Input
	Options []string
	Default string
	Rules   []form.Rule

	// Column shows the attribute in the list table.
	Column bool
	// ReadOnly attributes are never decoded from input.
	ReadOnly bool
	// Secret attributes are write-only: never encoded, exported or listed.
	Secret bool

	Get func(T) any
	Set func(*T, string) error
}

// Required adds the required rule.
func (a Attr[T]) Required() Attr[T] {
	return a.With(form.Required())
}

// With appends rules.
func (a Attr[T]) With(rules ...form.Rule) Attr[T] {
	a.Rules = append(slices.Clone(a.Rules), rules...)
	return a
}

// InTable marks the attribute as a list column.
func (a Attr[T]) InTable() Attr[T] {
	a.Column = true
	return a
}

// Textarea renders the attribute as a multi-line input.
func (a Attr[T]) Textarea() Attr[T] {
	a.Input = InputTextarea
	return a
}

// Image renders the attribute as an image upload.
func (a Attr[T]) Image() Attr[T] {
	a.Input = InputImage
	return a
}

// Defaults sets the value a create form starts with.
func (a Attr[T]) Defaults(v string) Attr[T] {
	a.Default = v
	return a
}

func (a Attr[T]) writable() bool { return !a.ReadOnly && a.Set != nil }

// Text declares a free text attribute.
func Text[T any](name, label string, field func(*T) *string) Attr[T] {
	return Attr[T]{
		Name:  name,
		Label: label,
		Type:  dataview.Text,
		Input: InputText,
		Get:   func(t T) any { return *field(&t) },
		Set: func(t *T, v string) error {
			*field(t) = strings.TrimSpace(v)
			return nil
		},
	}
}

// Email declares an email address attribute.
func Email[T any](name, label string, field func(*T) *string) Attr[T] {
	a := Text(name, label, field).With(form.Email())
	a.Input = InputEmail
	return a
}

// URL declares a web address attribute.
func URL[T any](name, label string, field func(*T) *string) Attr[T] {
	a := Text(name, label, field).With(form.URL())
	a.Input = InputURL
	return a
}

// Enum declares a text attribute restricted to options.
func Enum[T any](name, label string, field func(*T) *string, options ...string) Attr[T] {
	a := Text(name, label, field).With(form.OneOf(options...))
	a.Input = InputSelect
	a.Options = options
	return a
}

// Int declares a non-negative whole number attribute.
func Int[T any](name, label string, field func(*T) *int) Attr[T] {
	return Attr[T]{
		Name:  name,
		Label: label,
		Type:  dataview.Number,
		Input: InputNumber,
		Rules: []form.Rule{form.Integer(), form.Min(0)},
		Get:   func(t T) any { return *field(&t) },
		Set: func(t *T, v string) error {
			v = strings.TrimSpace(v)
			if v == "" {
				*field(t) = 0
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.New("must be a whole number")
			}
			*field(t) = n
			return nil
		},
	}
}

// Money declares a non-negative decimal amount.
func Money[T any](name, label string, field func(*T) *decimal.Decimal) Attr[T] {
	return Attr[T]{
		Name:  name,
		Label: label,
		Type:  dataview.Number,
		Input: InputNumber,
		Rules: []form.Rule{form.Min(0)},
		Get:   func(t T) any { return *field(&t) },
		Set: func(t *T, v string) error {
			v = strings.TrimSpace(v)
			if v == "" {
				*field(t) = decimal.Zero
				return nil
			}
			d, err := decimal.NewFromString(v)
			if err != nil {
				return errors.New("must be a number")
			}
			if d.IsNegative() {
				return errors.New("must be at least 0")
			}
			*field(t) = d
			return nil
		},
	}
}

// Bool declares a flag attribute.
func Bool[T any](name, label string, field func(*T) *bool) Attr[T] {
	return Attr[T]{
		Name:  name,
		Label: label,
		Type:  dataview.Bool,
		Input: InputCheckbox,
		Get:   func(t T) any { return *field(&t) },
		Set: func(t *T, v string) error {
			*field(t) = dataview.ParseTriState(v) == dataview.True
			return nil
		},
	}
}

// List declares a multi-value attribute entered as a comma separated list
// or a JSON array.
func List[T any](name, label string, field func(*T) *domain.StringList) Attr[T] {
	return Attr[T]{
		Name:  name,
		Label: label,
		Type:  dataview.Text,
		Input: InputList,
		Get:   func(t T) any { return *field(&t) },
		Set: func(t *T, v string) error {
			*field(t) = domain.ParseStringList(v)
			return nil
		},
	}
}

// Timestamp declares a read-only date attribute.
func Timestamp[T any](name, label string, get func(T) time.Time) Attr[T] {
	return Attr[T]{
		Name:     name,
		Label:    label,
		Type:     dataview.Date,
		Input:    InputText,
		ReadOnly: true,
		Get:      func(t T) any { return get(t) },
	}
}

// ID declares the read-only primary key attribute.
func ID[T any](get func(T) uint) Attr[T] {
	return Attr[T]{
		Name:     "id",
		Label:    "ID",
		Type:     dataview.Number,
		Input:    InputNumber,
		ReadOnly: true,
		Get:      func(t T) any { return get(t) },
	}
}

// Status declares the moderation status of a reviewed record.
func Status[T any](mod func(*T) *domain.Moderation) Attr[T] {
	options := make([]string, len(domain.Statuses))
	for i, s := range domain.Statuses {
		options[i] = string(s)
	}
	return Attr[T]{
		Name:    "status",
		Label:   "Status",
		Type:    dataview.Text,
		Input:   InputSelect,
		Options: options,
		Default: string(domain.StatusPending),
		Rules:   []form.Rule{form.OneOf(options...)},
		Get:     func(t T) any { return string(mod(&t).Status) },
		Set: func(t *T, v string) error {
			v = strings.TrimSpace(v)
			if v == "" {
				v = string(domain.StatusPending)
			}
			mod(t).Status = domain.SubmissionStatus(v)
			return nil
		},
	}
}
