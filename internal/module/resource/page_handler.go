package resource

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/pressdesk/internal/catalog"
	"github.com/simp-lee/pressdesk/internal/dataview"
	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/form"
	"github.com/simp-lee/pressdesk/internal/middleware"
	"github.com/simp-lee/pressdesk/internal/pkg"
)

const (
	listTemplate  = "resource/list.html"
	tableTemplate = "resource/table.html"
	formTemplate  = "resource/form.html"

	// refreshEvent tells the list table to reload with its current state.
	refreshEvent = "refreshList"
)

// Column is one header cell of the list table.
type Column struct {
	Name     string
	Label    string
	Sortable bool
	Active   bool
	Dir      dataview.Direction
	// SortURL requests the table sorted by this column.
	SortURL string
}

// Cell is one rendered value of the list table.
type Cell struct {
	Text  string
	Image bool
	Bool  bool
	Yes   bool
}

// Row is one record of the list table.
type Row struct {
	ID     uint
	Status string
	Cells  []Cell
}

// FilterControl is one filter input above the list table.
type FilterControl struct {
	Key     string
	Label   string
	Value   string
	Options []string
	Bool    bool
}

// PageLinks holds the pagination controls of the list table.
type PageLinks struct {
	First, Prev, Next, Last string
	Numbers                 []PageLink
}

// PageLink is one numbered page in the navigation window.
type PageLink struct {
	Number  int
	URL     string
	Current bool
}

// ListView is the data of the list page and table partial.
type ListView struct {
	Meta        catalog.Meta
	BasePath    string
	APIPath     string
	Columns     []Column
	Rows        []Row
	Filters     []FilterControl
	State       dataview.ViewState
	Pagination  pkg.Pagination
	Links       PageLinks
	HasPrev     bool
	HasNext     bool
	PageSizes   []int
	SearchDelay string
	Statuses    []string
	CanWrite    bool
	CanDelete   bool
	CSRFToken   string
}

// FormField is one input of the create/edit form.
type FormField struct {
	Name     string
	Label    string
	Input    catalog.Input
	Options  []string
	Value    string
	Error    string
	Required bool
}

// FormView is the data of the create/edit modal.
type FormView struct {
	Meta      catalog.Meta
	Edit      bool
	ID        uint
	Action    string
	Fields    []FormField
	Error     string
	Multipart bool
	CSRFToken string
}

// PageHandler serves the htmx admin screens of one resource.
type PageHandler[T any] struct {
	svc         *Service[T]
	maxPageSize int
	debounce    time.Duration
}

// NewPageHandler creates a PageHandler. debounce is the search input delay
// rendered into the list page.
func NewPageHandler[T any](svc *Service[T], maxPageSize int, debounce time.Duration) *PageHandler[T] {
	return &PageHandler[T]{svc: svc, maxPageSize: maxPageSize, debounce: debounce}
}

func (h *PageHandler[T]) basePath() string {
	return "/admin/" + h.svc.Definition().Name
}

// ListPage renders the list screen. htmx requests get the table partial only.
// GET /admin/<resource>
func (h *PageHandler[T]) ListPage(c *gin.Context) {
	st := pkg.ParseViewState(c, h.svc.Defaults(), h.maxPageSize)

	page, err := h.svc.List(c.Request.Context(), st)
	if err != nil {
		slog.Error("list page: load records", "resource", h.svc.Definition().Name, "error", err)
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
		return
	}

	view := h.listView(c, st, page)
	if c.GetHeader("HX-Request") == "true" && c.GetHeader("HX-Target") != "body" {
		c.HTML(http.StatusOK, tableTemplate, view)
		return
	}
	c.HTML(http.StatusOK, listTemplate, view)
}

// NewPage renders an empty create form.
// GET /admin/<resource>/new
func (h *PageHandler[T]) NewPage(c *gin.Context) {
	c.HTML(http.StatusOK, formTemplate, h.formView(c, form.ModeCreate, 0, h.svc.Definition().Form(form.ModeCreate).Blank(), nil, ""))
}

// EditPage renders the edit form seeded from the stored record.
// GET /admin/<resource>/:id/edit
func (h *PageHandler[T]) EditPage(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Abort(c, http.StatusBadRequest, "Invalid record ID")
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if domain.IsNotFound(err) {
			pkg.Abort(c, http.StatusNotFound, capitalize(h.svc.Definition().Singular)+" not found")
			return
		}
		slog.ErrorContext(c.Request.Context(), "load record failed", "resource", h.svc.Definition().Name, "id", id, "error", err)
		pkg.Abort(c, http.StatusInternalServerError, "Could not load the record")
		return
	}

	c.HTML(http.StatusOK, formTemplate, h.formView(c, form.ModeEdit, id, h.svc.Definition().Encode(*rec), nil, ""))
}

// CreateHTMX handles the create form submission.
// POST /admin/<resource>
func (h *PageHandler[T]) CreateHTMX(c *gin.Context) {
	values, err := bindValues(c, h.svc)
	if err == nil {
		_, err = h.svc.Create(c.Request.Context(), values)
	}
	if err != nil {
		slog.Debug("create record failed", "resource", h.svc.Definition().Name, "error", err)
		h.renderFormError(c, form.ModeCreate, 0, values, err)
		return
	}

	pkg.Toast(c, pkg.ToastSuccess, capitalize(h.svc.Definition().Singular)+" created", "closeModal", refreshEvent)
	c.Status(http.StatusOK)
}

// UpdateHTMX handles the edit form submission.
// PUT /admin/<resource>/:id
func (h *PageHandler[T]) UpdateHTMX(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Abort(c, http.StatusBadRequest, "Invalid record ID")
		return
	}

	values, err := bindValues(c, h.svc)
	if err == nil {
		_, err = h.svc.Update(c.Request.Context(), id, values)
	}
	if err != nil {
		if domain.IsNotFound(err) {
			pkg.RejectHTMX(c, http.StatusOK, capitalize(h.svc.Definition().Singular)+" no longer exists")
			return
		}
		slog.Debug("update record failed", "resource", h.svc.Definition().Name, "id", id, "error", err)
		h.renderFormError(c, form.ModeEdit, id, values, err)
		return
	}

	pkg.Toast(c, pkg.ToastSuccess, capitalize(h.svc.Definition().Singular)+" updated", "closeModal", refreshEvent)
	c.Status(http.StatusOK)
}

// DeleteHTMX removes a record. The browser asks for confirmation first.
// DELETE /admin/<resource>/:id
func (h *PageHandler[T]) DeleteHTMX(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.RejectHTMX(c, http.StatusOK, "Invalid record ID")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		msg := "Delete failed, please try again"
		if domain.IsNotFound(err) {
			msg = capitalize(h.svc.Definition().Singular) + " not found or already deleted"
		}
		pkg.RejectHTMX(c, http.StatusOK, msg)
		return
	}

	pkg.Toast(c, pkg.ToastSuccess, capitalize(h.svc.Definition().Singular)+" deleted", "closeModal", refreshEvent)
	c.Status(http.StatusOK)
}

// StatusHTMX moderates a record from the list table.
// PATCH /admin/<resource>/:id/status
func (h *PageHandler[T]) StatusHTMX(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.RejectHTMX(c, http.StatusOK, "Invalid record ID")
		return
	}

	status := domain.SubmissionStatus(c.PostForm("status"))
	if _, err := h.svc.SetStatus(c.Request.Context(), id, status, c.PostForm("reason")); err != nil {
		pkg.RejectHTMX(c, http.StatusOK, statusErrorMessage(err))
		return
	}

	pkg.Toast(c, pkg.ToastSuccess, capitalize(h.svc.Definition().Singular)+" marked "+string(status), "closeModal", refreshEvent)
	c.Status(http.StatusOK)
}

func (h *PageHandler[T]) renderFormError(c *gin.Context, mode form.Mode, id uint, values form.Values, err error) {
	fields := map[string]string{}
	for _, d := range domain.FieldDetails(err) {
		fields[d.Path] = d.Msg
	}
	msg := ""
	if len(fields) == 0 {
		msg = safePageErrorMessage(err, "Could not save the "+h.svc.Definition().Singular+", please try again")
	} else {
		msg = "Please fix the highlighted fields"
	}

	seed := h.svc.Definition().Form(mode).Blank()
	if mode == form.ModeEdit {
		if rec, getErr := h.svc.Get(c.Request.Context(), id); getErr == nil {
			seed = h.svc.Definition().Encode(*rec)
		}
	}
	for k, v := range values {
		seed[k] = v
	}

	// keep the modal open and swap the form in place
	c.Header("HX-Retarget", "#modal-body")
	c.Header("HX-Reswap", "innerHTML")
	c.HTML(http.StatusOK, formTemplate, h.formView(c, mode, id, seed, fields, msg))
}

func (h *PageHandler[T]) listView(c *gin.Context, st dataview.ViewState, page dataview.Page[T]) ListView {
	def := h.svc.Definition()
	base := h.basePath()
	view := def.View()
	st.CurrentPage = page.Page

	cols := def.Columns()
	columns := make([]Column, len(cols))
	for i, a := range cols {
		col := Column{Name: a.Name, Label: a.Label, Sortable: view.Sortable(a.Name)}
		if col.Sortable {
			next := st.Clone()
			next.SortBy(a.Name)
			col.SortURL = listURL(base, next)
			col.Active = st.SortField == a.Name
			col.Dir = st.SortDirection
		}
		columns[i] = col
	}

	rows := make([]Row, len(page.Items))
	for i, rec := range page.Items {
		row := Row{ID: catalog.IDOf(rec), Cells: make([]Cell, len(cols))}
		for j, a := range cols {
			v := a.Get(rec)
			cell := Cell{Text: catalog.FormatValue(v), Image: a.Input == catalog.InputImage}
			if b, ok := v.(bool); ok {
				cell.Bool, cell.Yes = true, b
			}
			row.Cells[j] = cell
		}
		if def.Moderated() {
			row.Status = dataview.TextOf(def.Schema().Value(rec, "status"))
		}
		rows[i] = row
	}

	filters := make([]FilterControl, len(def.Filters))
	for i, f := range def.Filters {
		filters[i] = FilterControl{
			Key:     f.Key,
			Label:   f.Label,
			Value:   st.Filter(f.Key),
			Options: f.Options,
			Bool:    f.Kind == dataview.KindBoolEquals,
		}
	}

	goTo := func(n int) string {
		next := st.Clone()
		next.GoTo(n, page.PageCount)
		return listURL(base, next)
	}

	var statuses []string
	if def.Moderated() {
		for _, s := range domain.Statuses {
			statuses = append(statuses, string(s))
		}
	}

	numbers := make([]PageLink, len(page.Pages))
	for i, n := range page.Pages {
		numbers[i] = PageLink{Number: n, URL: goTo(n), Current: n == page.Page}
	}

	result := pkg.NewListResult(page)
	return ListView{
		Meta:       def.Meta(),
		BasePath:   base,
		APIPath:    "/api/v1/" + def.Name,
		Columns:    columns,
		Rows:       rows,
		Filters:    filters,
		State:      st,
		Pagination: result.Pagination,
		Links: PageLinks{
			First:   goTo(1),
			Prev:    goTo(page.Page - 1),
			Next:    goTo(page.Page + 1),
			Last:    goTo(page.PageCount),
			Numbers: numbers,
		},
		HasPrev:     page.HasPrev(),
		HasNext:     page.HasNext(),
		PageSizes:   dataview.PageSizes,
		SearchDelay: strconv.FormatInt(h.debounce.Milliseconds(), 10) + "ms",
		Statuses:    statuses,
		CanWrite:    middleware.Can(c, http.MethodPost, base),
		CanDelete:   middleware.Can(c, http.MethodDelete, base+"/0"),
		CSRFToken:   middleware.GetCSRFToken(c),
	}
}

func (h *PageHandler[T]) formView(c *gin.Context, mode form.Mode, id uint, values form.Values, errs map[string]string, msg string) FormView {
	def := h.svc.Definition()
	schema := def.Form(mode)
	action := h.basePath()
	if mode == form.ModeEdit {
		action = fmt.Sprintf("%s/%d", action, id)
	}

	fv := FormView{
		Meta:      def.Meta(),
		Edit:      mode == form.ModeEdit,
		ID:        id,
		Action:    action,
		Error:     msg,
		CSRFToken: middleware.GetCSRFToken(c),
	}
	for _, a := range def.Inputs() {
		field := FormField{
			Name:     a.Name,
			Label:    a.Label,
			Input:    a.Input,
			Options:  a.Options,
			Value:    values.Get(a.Name),
			Error:    errs[a.Name],
			Required: hasRequired(schema.Rules[a.Name], a.Name),
		}
		if a.Secret {
			field.Value = ""
		}
		if a.Input == catalog.InputImage {
			fv.Multipart = true
		}
		fv.Fields = append(fv.Fields, field)
	}
	return fv
}

// hasRequired reports whether rules reject an empty value.
func hasRequired(rules []form.Rule, field string) bool {
	empty := form.Values{}
	for _, r := range rules {
		if r.Check(field, empty) != "" {
			return true
		}
	}
	return false
}

// safePageErrorMessage extracts a user-safe error message from an AppError.
// Internal or unknown error codes always return the fallback.
func safePageErrorMessage(err error, fallback string) string {
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		switch appErr.Code {
		case domain.CodeNotFound, domain.CodeAlreadyExists, domain.CodeValidation:
			return appErr.Message
		}
	}
	return fallback
}

func statusErrorMessage(err error) string {
	if details := domain.FieldDetails(err); len(details) > 0 {
		return capitalize(details[0].Path+" "+details[0].Msg)
	}
	return safePageErrorMessage(err, "Status change failed, please try again")
}

// listURL rebuilds the list URL for the given state.
func listURL(base string, st dataview.ViewState) string {
	return base + "?" + st.Values().Encode()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
