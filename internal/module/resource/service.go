package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/simp-lee/pressdesk/internal/catalog"
	"github.com/simp-lee/pressdesk/internal/dataview"
	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/form"
	"github.com/simp-lee/pressdesk/internal/storage"
	"github.com/simp-lee/pressdesk/internal/transfer"
)

// TermsField is the consent flag required on public submissions.
const TermsField = "terms_accepted"

// RowError reports why one imported row was rejected.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult summarises a bulk upload.
type ImportResult struct {
	Message string     `json:"message"`
	Created int        `json:"created"`
	Errors  []RowError `json:"errors,omitempty"`
}

// Summary is the dashboard tile of a resource.
type Summary struct {
	catalog.Meta
	Total   int
	Pending int
}

// Service implements the record operations of one resource.
type Service[T any] struct {
	def    *catalog.Definition[T]
	repo   *Repository[T]
	store  storage.Store
	logger *slog.Logger

	pageSize int
}

// NewService creates a Service. store may be nil for resources without
// image attachments.
func NewService[T any](def *catalog.Definition[T], repo *Repository[T], store storage.Store, logger *slog.Logger) *Service[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service[T]{def: def, repo: repo, store: store, logger: logger.With(slog.String("resource", def.Name))}
}

// Definition returns the resource definition.
func (s *Service[T]) Definition() *catalog.Definition[T] { return s.def }

// Defaults returns the list defaults of the resource, with the configured
// page size when one was set.
func (s *Service[T]) Defaults() dataview.Defaults {
	d := s.def.Sort
	if s.pageSize > 0 {
		d.PageSize = s.pageSize
	}
	return d
}

// All returns the full collection.
func (s *Service[T]) All(ctx context.Context) ([]T, error) {
	return s.repo.All(ctx)
}

// List returns one page of the filtered and sorted collection.
func (s *Service[T]) List(ctx context.Context, st dataview.ViewState) (dataview.Page[T], error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return dataview.Page[T]{}, err
	}
	return s.def.View().Apply(all, st), nil
}

// Summary counts the records, and for moderated resources those still
// awaiting review.
func (s *Service[T]) Summary(ctx context.Context) (Summary, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Meta: s.def.Meta(), Total: len(all)}
	if !s.def.Moderated() {
		return sum, nil
	}
	for i := range all {
		if s.def.Moderation(&all[i]).Status == domain.StatusPending {
			sum.Pending++
		}
	}
	return sum, nil
}

// Select returns the filtered and sorted collection without paginating.
func (s *Service[T]) Select(ctx context.Context, st dataview.ViewState) ([]T, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.def.View().Select(all, st), nil
}

// Get retrieves a record by ID.
func (s *Service[T]) Get(ctx context.Context, id uint) (*T, error) {
	return s.repo.Get(ctx, id)
}

// Create validates v, applies form defaults for absent fields and stores
// the new record. Every violated field is reported.
func (s *Service[T]) Create(ctx context.Context, v form.Values) (*T, error) {
	values := s.withDefaults(v)
	if err := s.def.Validate(form.ModeCreate, values); err != nil {
		return nil, err
	}
	return s.insert(ctx, values)
}

func (s *Service[T]) insert(ctx context.Context, values form.Values) (*T, error) {
	var rec T
	if err := s.def.Decode(&rec, values); err != nil {
		return nil, err
	}
	if err := s.normalize(&rec); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update applies the fields present in v to the stored record. Validation
// runs against the record as it would be saved.
func (s *Service[T]) Update(ctx context.Context, id uint, v form.Values) (*T, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldImage := s.image(*rec)
	merged := s.def.Encode(*rec)
	for k, val := range v {
		merged[k] = val
	}
	if err := s.def.Validate(form.ModeEdit, merged); err != nil {
		return nil, err
	}
	if err := s.def.Decode(rec, v); err != nil {
		return nil, err
	}
	if err := s.normalize(rec); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}

	if newImage := s.image(*rec); oldImage != "" && oldImage != newImage {
		s.removeImage(ctx, oldImage)
	}
	return rec, nil
}

// Delete removes a record and its stored image.
func (s *Service[T]) Delete(ctx context.Context, id uint) error {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if img := s.image(*rec); img != "" {
		s.removeImage(ctx, img)
	}
	return nil
}

// SaveImage stores an uploaded image and returns its URL.
func (s *Service[T]) SaveImage(ctx context.Context, r io.Reader) (string, error) {
	if s.store == nil || s.def.ImageField == "" {
		return "", domain.NewAppError(domain.CodeValidation, s.def.Singular+" does not accept images", nil)
	}
	url, err := s.store.Save(ctx, r)
	switch {
	case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrUnsupportedType):
		return "", domain.NewFieldErrors(map[string]string{s.def.ImageField: err.Error()})
	case err != nil:
		return "", domain.NewAppError(domain.CodeInternal, "failed to store image", err)
	}
	return url, nil
}

// SetStatus moderates one record.
func (s *Service[T]) SetStatus(ctx context.Context, id uint, status domain.SubmissionStatus, reason string) (*T, error) {
	if !s.def.Moderated() {
		return nil, s.notModerated()
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.def.Moderation(rec).Apply(status, strings.TrimSpace(reason)); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SetStatusBulk moderates several records at once. Either all of them
// change or none does.
func (s *Service[T]) SetStatusBulk(ctx context.Context, ids []uint, status domain.SubmissionStatus, reason string) (int, error) {
	if !s.def.Moderated() {
		return 0, s.notModerated()
	}
	if len(ids) == 0 {
		return 0, domain.NewFieldErrors(map[string]string{"ids": "is required"})
	}
	reason = strings.TrimSpace(reason)
	// validate once up front so an invalid request never opens a transaction
	if err := (&domain.Moderation{}).Apply(status, reason); err != nil {
		return 0, err
	}
	err := s.repo.UpdateEach(ctx, ids, func(rec *T) error {
		return s.def.Moderation(rec).Apply(status, reason)
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Submit stores an anonymous public submission. Submissions always start
// pending and active, and must accept the terms.
func (s *Service[T]) Submit(ctx context.Context, v form.Values) (*T, error) {
	if !s.def.Public {
		return nil, domain.NewAppError(domain.CodeForbidden, s.def.Singular+" does not accept public submissions", nil)
	}

	values := s.withDefaults(v)
	delete(values, TermsField)
	delete(values, "rejection_reason")
	delete(values, "admin_comments")
	if s.def.Moderated() {
		values["status"] = string(domain.StatusPending)
		values["is_active"] = "true"
	}

	errs := s.def.Form(form.ModeCreate).Validate(values)
	if dataview.ParseTriState(v[TermsField]) != dataview.True {
		errs[TermsField] = "must be accepted"
	}
	if len(errs) > 0 {
		return nil, domain.NewFieldErrors(errs)
	}
	return s.insert(ctx, values)
}

// Import creates one record per row. Rows are independent: a rejected row
// is reported and the rest are still imported.
func (s *Service[T]) Import(ctx context.Context, rows []transfer.Row) (ImportResult, error) {
	if len(rows) == 0 {
		return ImportResult{}, domain.NewAppError(domain.CodeValidation, "file has no data rows", nil)
	}

	accepted := s.def.ImportHeader()
	res := ImportResult{}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		v := form.Values{}
		for _, name := range accepted {
			if val, ok := row.Values[name]; ok {
				v[name] = val
			}
		}
		if _, err := s.Create(ctx, v); err != nil {
			res.Errors = append(res.Errors, RowError{Row: row.Line, Error: rowMessage(err)})
			continue
		}
		res.Created++
	}

	res.Message = fmt.Sprintf("Imported %d of %d rows", res.Created, len(rows))
	s.logger.InfoContext(ctx, "bulk upload finished",
		slog.Int("rows", len(rows)),
		slog.Int("created", res.Created),
		slog.Int("rejected", len(res.Errors)),
	)
	return res, nil
}

// Export returns the header and rows of the filtered and sorted collection.
func (s *Service[T]) Export(ctx context.Context, st dataview.ViewState) ([]string, [][]string, error) {
	recs, err := s.Select(ctx, st)
	if err != nil {
		return nil, nil, err
	}
	rows := make([][]string, len(recs))
	for i, rec := range recs {
		rows[i] = s.def.ExportRow(rec)
	}
	return s.def.ExportHeader(), rows, nil
}

func (s *Service[T]) withDefaults(v form.Values) form.Values {
	out := v.Clone()
	if out == nil {
		out = form.Values{}
	}
	for k, d := range s.def.Form(form.ModeCreate).Defaults {
		if _, ok := out[k]; !ok {
			out[k] = d
		}
	}
	return out
}

// normalize keeps the rejection reason consistent with the status.
func (s *Service[T]) normalize(rec *T) error {
	if !s.def.Moderated() {
		return nil
	}
	m := s.def.Moderation(rec)
	return m.Apply(m.Status, strings.TrimSpace(m.RejectionReason))
}

func (s *Service[T]) image(rec T) string {
	if s.def.ImageField == "" {
		return ""
	}
	a, ok := s.def.Attr(s.def.ImageField)
	if !ok || a.Get == nil {
		return ""
	}
	return dataview.TextOf(a.Get(rec))
}

func (s *Service[T]) removeImage(ctx context.Context, url string) {
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, url); err != nil {
		s.logger.WarnContext(ctx, "failed to remove image", slog.String("url", url), slog.Any("error", err))
	}
}

func (s *Service[T]) notModerated() error {
	return domain.NewAppError(domain.CodeValidation, s.def.Singular+" records have no review status", nil)
}

// rowMessage flattens an error into a single line for the upload report.
func rowMessage(err error) string {
	if details := domain.FieldDetails(err); len(details) > 0 {
		parts := make([]string, len(details))
		for i, d := range details {
			parts[i] = d.Path + " " + d.Msg
		}
		return strings.Join(parts, "; ")
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Code != domain.CodeInternal {
		return appErr.Message
	}
	return "failed to save row"
}
