package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/simp-lee/pressdesk/internal/catalog"
	"github.com/simp-lee/pressdesk/internal/client"
	"github.com/simp-lee/pressdesk/internal/dataview"
	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/form"
)

// resourceOps is the type-erased view of one resource used by the commands.
type resourceOps interface {
	Meta() catalog.Meta
	Endpoint() endpoint
	NewState() dataview.ViewState
	FilterKeys() []string
	List(ctx context.Context, st dataview.ViewState, p printer) error
	Browse(ctx context.Context, in io.Reader, p printer, debounce time.Duration) error
	Create(ctx context.Context, set form.Values) (form.State, error)
	Edit(ctx context.Context, id string, set form.Values) (form.State, error)
}

// endpoint holds the calls that do not depend on the record type.
type endpoint interface {
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id, status, reason string) error
	Export(ctx context.Context, st dataview.ViewState, format string, w io.Writer) (string, error)
	Template(ctx context.Context, format string, w io.Writer) (string, error)
	BulkUpload(ctx context.Context, filename string, src io.Reader) (client.ImportResult, error)
}

func lookupResource(c *client.Client, name string) (resourceOps, error) {
	switch name {
	case catalog.PressPacks.Name:
		return bind(c, catalog.PressPacks), nil
	case catalog.Websites.Name:
		return bind(c, catalog.Websites), nil
	case catalog.PowerlistNominations.Name:
		return bind(c, catalog.PowerlistNominations), nil
	case catalog.RealEstateProfessionals.Name:
		return bind(c, catalog.RealEstateProfessionals), nil
	case catalog.PaparazziCreations.Name:
		return bind(c, catalog.PaparazziCreations), nil
	case catalog.Users.Name:
		return bind(c, catalog.Users), nil
	}
	names := make([]string, 0, len(catalog.All()))
	for _, m := range catalog.All() {
		names = append(names, m.Name)
	}
	return nil, withCode(exitUsage, fmt.Errorf("unknown resource %q (one of %s)", name, strings.Join(names, ", ")))
}

type typed[T any] struct {
	def *catalog.Definition[T]
	res *client.Resource[T]
}

func bind[T any](c *client.Client, def *catalog.Definition[T]) *typed[T] {
	return &typed[T]{def: def, res: client.For[T](c, def.Name)}
}

func (t *typed[T]) Meta() catalog.Meta { return t.def.Meta() }

func (t *typed[T]) Endpoint() endpoint { return t.res }

func (t *typed[T]) NewState() dataview.ViewState { return t.def.View().NewState() }

func (t *typed[T]) FilterKeys() []string {
	out := make([]string, 0, len(t.def.Filters))
	for _, f := range t.def.Filters {
		out = append(out, f.Key)
	}
	return out
}

// List fetches the whole collection and computes the page locally.
func (t *typed[T]) List(ctx context.Context, st dataview.ViewState, p printer) error {
	records, err := t.res.Fetch(ctx)
	if err != nil {
		return err
	}
	page := t.def.View().Apply(records, st)
	return t.print(p, st, page)
}

func (t *typed[T]) print(p printer, st dataview.ViewState, page dataview.Page[T]) error {
	if p.json {
		for _, rec := range page.Items {
			if err := p.writeJSON(rec); err != nil {
				return err
			}
		}
		return nil
	}

	cols := t.def.Columns()
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	labels := make([]string, len(cols))
	for i, a := range cols {
		labels[i] = strings.ToUpper(a.Label)
	}
	fmt.Fprintln(tw, strings.Join(labels, "\t"))
	for _, rec := range page.Items {
		cells := make([]string, len(cols))
		for i, a := range cols {
			cells[i] = truncate(catalog.FormatValue(a.Get(rec)), 40)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(p.w, footer(st, page))
	return nil
}

func footer[T any](st dataview.ViewState, page dataview.Page[T]) string {
	if page.Total == 0 {
		return "No records found."
	}
	from := (page.Page-1)*page.PageSize + 1
	to := from + len(page.Items) - 1
	line := fmt.Sprintf("Showing %d-%d of %d (page %d/%d)", from, to, page.Total, page.Page, page.PageCount)
	if st.SortField != "" {
		line += fmt.Sprintf(", sorted by %s %s", st.SortField, st.SortDirection)
	}
	return line
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Create opens a create form, applies set and submits it.
func (t *typed[T]) Create(ctx context.Context, set form.Values) (form.State, error) {
	m := form.NewModal(t.def.Form(form.ModeCreate), t.res)
	m.OpenCreate()
	return submit(ctx, m, set)
}

// Edit seeds an edit form from the stored record, applies set and submits.
func (t *typed[T]) Edit(ctx context.Context, id string, set form.Values) (form.State, error) {
	rec, err := t.res.Get(ctx, id)
	if err != nil {
		return form.State{}, err
	}
	schema := t.def.Form(form.ModeEdit)
	encoded := t.def.Encode(rec)
	seed := make(form.Values, len(schema.Fields))
	for _, f := range schema.Fields {
		if v, ok := encoded[f]; ok {
			seed[f] = v
		}
	}

	m := form.NewModal(schema, t.res)
	m.OpenEdit(id, seed)
	return submit(ctx, m, set)
}

func submit(ctx context.Context, m *form.Modal, set form.Values) (form.State, error) {
	for k, v := range set {
		m.Set(k, v)
	}
	err := m.Submit(ctx)
	return m.State(), err
}

// printer writes command output as a table or JSON lines.
type printer struct {
	w    io.Writer
	json bool
}

func (p printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

// formFailure renders the outcome of a failed submit.
func formFailure(st form.State, err error) error {
	var verr *form.ValidationError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &verr):
		return withCode(exitValidation, fmt.Errorf("invalid input:\n%s", fieldList(verr.Errors)))
	case errors.As(err, &apiErr) && len(st.Errors) > 0:
		return withCode(exitValidation, fmt.Errorf("rejected by server:\n%s", fieldList(st.Errors)))
	}
	return apiFailure(err)
}

func fieldList(errs form.Errors) string {
	var b strings.Builder
	for _, f := range errs.Fields() {
		fmt.Fprintf(&b, "  %s: %s\n", f, errs[f])
	}
	return strings.TrimRight(b.String(), "\n")
}

func validStatus(s string) bool {
	return domain.SubmissionStatus(s).Valid()
}
