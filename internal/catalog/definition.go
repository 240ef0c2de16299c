package catalog

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/simp-lee/pressdesk/internal/dataview"
	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/form"
)

// Definition declares one managed resource. A single Definition drives the
// list pipeline, the create/edit form, the API payload and import/export for
// its record type.
type Definition[T any] struct {
	// Name is the URL segment, e.g. "press-packs".
	Name  string
	Title string
	// Singular is used in notices, e.g. "press pack".
	Singular string

	Attrs        []Attr[T]
	Filters      []dataview.FilterDef
	SearchFields []string
	Sort         dataview.Defaults

	// CrossRules are form rules that read more than one field.
	CrossRules map[string][]form.Rule
	// CreateRules only apply when creating.
	CreateRules map[string][]form.Rule

	// Moderation exposes the review state of records that have one.
	Moderation func(*T) *domain.Moderation
	// Public resources accept anonymous submissions.
	Public bool
	// ImageField names the attribute that receives an uploaded image.
	ImageField string

	once   sync.Once
	schema *dataview.Schema[T]
}

// Attr returns the named attribute.
func (d *Definition[T]) Attr(name string) (Attr[T], bool) {
	for _, a := range d.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr[T]{}, false
}

// Schema returns the field-accessor map for T.
func (d *Definition[T]) Schema() *dataview.Schema[T] {
	d.once.Do(func() {
		fields := make([]dataview.Field[T], 0, len(d.Attrs))
		for _, a := range d.Attrs {
			if a.Secret || a.Get == nil {
				continue
			}
			fields = append(fields, dataview.Field[T]{Name: a.Name, Type: a.Type, Get: a.Get})
		}
		d.schema = dataview.NewSchema(fields...)
	})
	return d.schema
}

// View returns the list pipeline for this resource.
func (d *Definition[T]) View() dataview.View[T] {
	return dataview.View[T]{
		Schema:       d.Schema(),
		Filters:      d.Filters,
		SearchFields: d.SearchFields,
		Defaults:     d.Sort,
	}
}

// Moderated reports whether records carry a review status.
func (d *Definition[T]) Moderated() bool { return d.Moderation != nil }

// Columns returns the list table attributes.
func (d *Definition[T]) Columns() []Attr[T] {
	out := make([]Attr[T], 0, len(d.Attrs))
	for _, a := range d.Attrs {
		if a.Column && !a.Secret {
			out = append(out, a)
		}
	}
	return out
}

// Inputs returns the attributes shown on the create/edit form.
func (d *Definition[T]) Inputs() []Attr[T] {
	out := make([]Attr[T], 0, len(d.Attrs))
	for _, a := range d.Attrs {
		if a.writable() {
			out = append(out, a)
		}
	}
	return out
}

// Form returns the form schema for mode.
func (d *Definition[T]) Form(mode form.Mode) form.Schema {
	s := form.Schema{
		Defaults: form.Values{},
		Rules:    map[string][]form.Rule{},
	}
	for _, a := range d.Inputs() {
		s.Fields = append(s.Fields, a.Name)
		if a.Default != "" {
			s.Defaults[a.Name] = a.Default
		}
		if len(a.Rules) > 0 {
			s.Rules[a.Name] = slices.Clone(a.Rules)
		}
	}
	merge := func(extra map[string][]form.Rule) {
		for f, rules := range extra {
			s.Rules[f] = append(s.Rules[f], rules...)
		}
	}
	merge(d.CrossRules)
	if mode == form.ModeCreate {
		merge(d.CreateRules)
	}
	return s
}

// Encode renders rec as form values. Secret attributes are omitted.
func (d *Definition[T]) Encode(rec T) form.Values {
	out := make(form.Values, len(d.Attrs))
	for _, a := range d.Attrs {
		if a.Secret || a.Get == nil {
			continue
		}
		out[a.Name] = FormatValue(a.Get(rec))
	}
	return out
}

// Decode applies the values present in v to rec. Keys absent from v leave
// the record untouched. Conversion failures for all fields are reported
// together.
func (d *Definition[T]) Decode(rec *T, v form.Values) error {
	errs := map[string]string{}
	for _, a := range d.Attrs {
		if !a.writable() {
			continue
		}
		raw, ok := v[a.Name]
		if !ok {
			continue
		}
		if err := a.Set(rec, raw); err != nil {
			errs[a.Name] = err.Error()
		}
	}
	if len(errs) > 0 {
		return domain.NewFieldErrors(errs)
	}
	return nil
}

// Validate checks v against the form rules for mode.
func (d *Definition[T]) Validate(mode form.Mode, v form.Values) error {
	if errs := d.Form(mode).Validate(v); len(errs) > 0 {
		return domain.NewFieldErrors(errs)
	}
	return nil
}

// ExportHeader returns the export column names.
func (d *Definition[T]) ExportHeader() []string {
	out := make([]string, 0, len(d.Attrs))
	for _, a := range d.Attrs {
		if !a.Secret && a.Get != nil {
			out = append(out, a.Name)
		}
	}
	return out
}

// ExportRow renders rec in ExportHeader order.
func (d *Definition[T]) ExportRow(rec T) []string {
	out := make([]string, 0, len(d.Attrs))
	for _, a := range d.Attrs {
		if !a.Secret && a.Get != nil {
			out = append(out, FormatValue(a.Get(rec)))
		}
	}
	return out
}

// ImportHeader returns the columns accepted by bulk upload, which is also
// the header of the downloadable template.
func (d *Definition[T]) ImportHeader() []string {
	out := make([]string, 0, len(d.Attrs))
	for _, a := range d.Inputs() {
		if !a.Secret && a.Input != InputImage {
			out = append(out, a.Name)
		}
	}
	return out
}

// ImportSample returns an example row for the template.
func (d *Definition[T]) ImportSample() []string {
	header := d.ImportHeader()
	out := make([]string, len(header))
	for i, name := range header {
		a, _ := d.Attr(name)
		switch {
		case a.Default != "":
			out[i] = a.Default
		case len(a.Options) > 0:
			out[i] = a.Options[0]
		case a.Input == InputCheckbox:
			out[i] = "false"
		case a.Input == InputNumber:
			out[i] = "0"
		case a.Input == InputURL:
			out[i] = "https://example.com"
		case a.Input == InputEmail:
			out[i] = "name@example.com"
		case a.Input == InputList:
			out[i] = "English, Arabic"
		default:
			out[i] = "Sample " + a.Label
		}
	}
	return out
}

// FormatValue renders an attribute value for forms and exports.
func FormatValue(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04:05")
	case bool:
		return strconv.FormatBool(t)
	default:
		return dataview.TextOf(v)
	}
}

// IDOf returns the primary key of rec.
func IDOf[T any](rec T) uint {
	if k, ok := any(rec).(interface{ Key() uint }); ok {
		return k.Key()
	}
	if k, ok := any(&rec).(interface{ Key() uint }); ok {
		return k.Key()
	}
	return 0
}
