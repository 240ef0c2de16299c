// Package form holds the create/edit form state machine and the local
// validation rules shared by the server and the operator CLI.
package form

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Values holds raw form input by field name.
type Values map[string]string

// Clone returns a copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Get returns the trimmed value of field.
func (v Values) Get(field string) string {
	return strings.TrimSpace(v[field])
}

// Errors maps field names to a single message each.
type Errors map[string]string

// Fields returns the field names with errors in sorted order.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Rule checks one field. It returns "" when the value is acceptable.
type Rule interface {
	Check(field string, values Values) string
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(field string, values Values) string

func (f RuleFunc) Check(field string, values Values) string { return f(field, values) }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("weburl", isWebURL); err != nil {
		panic(err)
	}
	return v
}

// isWebURL accepts absolute http(s) URLs with a host.
func isWebURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Required rejects empty or whitespace-only values.
func Required() Rule {
	return RuleFunc(func(field string, values Values) string {
		if values.Get(field) == "" {
			return "is required"
		}
		return ""
	})
}

// Email accepts empty values or a valid address.
func Email() Rule {
	return tagRule("email", "must be a valid email address")
}

// URL accepts empty values or an absolute http(s) URL.
func URL() Rule {
	return tagRule("weburl", "must be a valid URL")
}

func tagRule(tag, msg string) Rule {
	return RuleFunc(func(field string, values Values) string {
		v := values.Get(field)
		if v == "" {
			return ""
		}
		if err := validate.Var(v, tag); err != nil {
			return msg
		}
		return ""
	})
}

// Number accepts empty values or anything parsable as a finite float.
func Number() Rule {
	return RuleFunc(func(field string, values Values) string {
		if _, ok, bad := number(values, field); ok || !bad {
			return ""
		}
		return "must be a number"
	})
}

// Integer accepts empty values or a whole number.
func Integer() Rule {
	return RuleFunc(func(field string, values Values) string {
		v := values.Get(field)
		if v == "" {
			return ""
		}
		if _, err := strconv.Atoi(v); err != nil {
			return "must be a whole number"
		}
		return ""
	})
}

// Min accepts empty values or numbers >= lo.
func Min(lo float64) Rule {
	return RuleFunc(func(field string, values Values) string {
		n, ok, bad := number(values, field)
		switch {
		case bad:
			return "must be a number"
		case ok && n < lo:
			return fmt.Sprintf("must be at least %s", formatNumber(lo))
		}
		return ""
	})
}

// Range accepts empty values or numbers within [lo, hi].
func Range(lo, hi float64) Rule {
	return RuleFunc(func(field string, values Values) string {
		n, ok, bad := number(values, field)
		switch {
		case bad:
			return "must be a number"
		case ok && (n < lo || n > hi):
			return fmt.Sprintf("must be between %s and %s", formatNumber(lo), formatNumber(hi))
		}
		return ""
	})
}

// MaxLen accepts values of at most n characters.
func MaxLen(n int) Rule {
	return RuleFunc(func(field string, values Values) string {
		if len([]rune(values.Get(field))) > n {
			return fmt.Sprintf("must be at most %d characters", n)
		}
		return ""
	})
}

// OneOf accepts empty values or one of options.
func OneOf(options ...string) Rule {
	return RuleFunc(func(field string, values Values) string {
		v := values.Get(field)
		if v == "" {
			return ""
		}
		for _, o := range options {
			if v == o {
				return ""
			}
		}
		return "must be one of: " + strings.Join(options, ", ")
	})
}

// RequiredIf requires field when other equals want.
func RequiredIf(other, want string) Rule {
	return RuleFunc(func(field string, values Values) string {
		if values.Get(other) == want && values.Get(field) == "" {
			return fmt.Sprintf("is required when %s is %s", other, want)
		}
		return ""
	})
}

// number parses field. ok is true for a parsed value; bad is true for
// non-empty input that is not a finite number.
func number(values Values, field string) (n float64, ok, bad bool) {
	v := values.Get(field)
	if v == "" {
		return 0, false, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false, true
	}
	return n, true, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Schema describes a form: its fields in display order, their defaults and
// rules.
type Schema struct {
	Fields   []string
	Defaults Values
	Rules    map[string][]Rule
}

// Blank returns the default values for a create form.
func (s Schema) Blank() Values {
	out := make(Values, len(s.Fields))
	for _, f := range s.Fields {
		out[f] = s.Defaults[f]
	}
	return out
}

// Validate checks every field and reports all violations, one message per
// field (the first failing rule).
func (s Schema) Validate(values Values) Errors {
	errs := Errors{}
	for field, rules := range s.Rules {
		for _, r := range rules {
			if msg := r.Check(field, values); msg != "" {
				errs[field] = msg
				break
			}
		}
	}
	return errs
}
