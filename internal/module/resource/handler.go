package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/form"
	"github.com/simp-lee/pressdesk/internal/pkg"
	"github.com/simp-lee/pressdesk/internal/transfer"
)

// maxFormMemory bounds the in-memory part of multipart parsing.
const maxFormMemory = 8 << 20

// StatusRequest moves one record to a review status.
type StatusRequest struct {
	Status string `json:"status" form:"status" binding:"required"`
	Reason string `json:"reason" form:"reason"`
}

// BulkStatusRequest moves several records to a review status.
type BulkStatusRequest struct {
	IDs    []uint `json:"ids" binding:"required,min=1"`
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// Handler serves the REST API of one resource.
type Handler[T any] struct {
	svc         *Service[T]
	maxPageSize int
}

// NewHandler creates a Handler. maxPageSize caps the page_size parameter.
func NewHandler[T any](svc *Service[T], maxPageSize int) *Handler[T] {
	return &Handler[T]{svc: svc, maxPageSize: maxPageSize}
}

// List handles GET /api/v1/<resource>.
func (h *Handler[T]) List(c *gin.Context) {
	st := pkg.ParseViewState(c, h.svc.Defaults(), h.maxPageSize)

	if pkg.WantsAll(c) {
		items, err := h.svc.Select(c.Request.Context(), st)
		if err != nil {
			pkg.Error(c, err)
			return
		}
		pkg.List(c, pkg.AllResult(items))
		return
	}

	page, err := h.svc.List(c.Request.Context(), st)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, pkg.NewListResult(page))
}

// Get handles GET /api/v1/<resource>/:id.
func (h *Handler[T]) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, rec)
}

// Create handles POST /api/v1/<resource>.
func (h *Handler[T]) Create(c *gin.Context) {
	values, err := bindValues(c, h.svc)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	rec, err := h.svc.Create(c.Request.Context(), values)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, rec)
}

// Update handles PUT /api/v1/<resource>/:id.
func (h *Handler[T]) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	values, err := bindValues(c, h.svc)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	rec, err := h.svc.Update(c.Request.Context(), id, values)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, rec)
}

// Delete handles DELETE /api/v1/<resource>/:id.
func (h *Handler[T]) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}

// SetStatus handles PATCH /api/v1/<resource>/:id/status.
func (h *Handler[T]) SetStatus(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	var req StatusRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	rec, err := h.svc.SetStatus(c.Request.Context(), id, domain.SubmissionStatus(req.Status), req.Reason)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, rec)
}

// BulkStatus handles POST /api/v1/<resource>/status.
func (h *Handler[T]) BulkStatus(c *gin.Context) {
	var req BulkStatusRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	n, err := h.svc.SetStatusBulk(c.Request.Context(), req.IDs, domain.SubmissionStatus(req.Status), req.Reason)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, gin.H{"updated": n})
}

// Export handles GET /api/v1/<resource>/export. The current filters, search
// and sort apply; pagination does not.
func (h *Handler[T]) Export(c *gin.Context) {
	format, err := transfer.ParseFormat(c.Query("format"))
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	st := pkg.ParseViewState(c, h.svc.Defaults(), h.maxPageSize)
	header, rows, err := h.svc.Export(c.Request.Context(), st)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	name := fmt.Sprintf("%s_export_%s%s", h.svc.Definition().Name, time.Now().Format("2006-01-02"), format.Ext())
	h.sendFile(c, format, name, header, rows)
}

// Template handles GET /api/v1/<resource>/template.
func (h *Handler[T]) Template(c *gin.Context) {
	format, err := transfer.ParseFormat(c.Query("format"))
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	def := h.svc.Definition()
	h.sendFile(c, format, def.Name+"_template"+format.Ext(), def.ImportHeader(), [][]string{def.ImportSample()})
}

func (h *Handler[T]) sendFile(c *gin.Context, format transfer.Format, filename string, header []string, rows [][]string) {
	var buf bytes.Buffer
	if err := transfer.Write(&buf, format, h.svc.Definition().Name, header, rows); err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeInternal, "failed to build file", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// BulkUpload handles POST /api/v1/<resource>/bulk-upload with a CSV or
// XLSX file in the "file" field.
func (h *Handler[T]) BulkUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		pkg.Error(c, domain.NewFieldErrors(map[string]string{"file": "is required"}))
		return
	}
	f, err := fh.Open()
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeInternal, "failed to read upload", err))
		return
	}
	defer f.Close()

	_, rows, err := transfer.Read(f, fh.Filename)
	if err != nil {
		pkg.Error(c, domain.NewFieldErrors(map[string]string{"file": err.Error()}))
		return
	}

	res, err := h.svc.Import(c.Request.Context(), rows)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, res)
}

// Submit handles POST /api/v1/public/<resource>. It needs no session.
func (h *Handler[T]) Submit(c *gin.Context) {
	values, err := bindValues(c, h.svc)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	rec, err := h.svc.Submit(c.Request.Context(), values)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, rec)
}

// bindValues reads the submitted fields from a JSON object or a form body.
// A multipart body may carry the record image, which is stored first and
// replaced by its URL.
func bindValues[T any](c *gin.Context, svc *Service[T]) (form.Values, error) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		return decodeJSONValues(c.Request)
	}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, domain.NewAppError(domain.CodeValidation, "invalid form body", err)
		}
	} else if err := c.Request.ParseForm(); err != nil {
		return nil, domain.NewAppError(domain.CodeValidation, "invalid form body", err)
	}

	values := form.Values{}
	for k, vs := range c.Request.PostForm {
		if len(vs) == 0 || strings.HasPrefix(k, "_") {
			continue
		}
		// checkboxes post a hidden "false" followed by the checked value
		values[k] = vs[len(vs)-1]
	}

	field := svc.Definition().ImageField
	if field == "" || c.Request.MultipartForm == nil {
		return values, nil
	}
	files := c.Request.MultipartForm.File[field]
	if len(files) == 0 || files[0].Size == 0 {
		return values, nil
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to read upload", err)
	}
	defer f.Close()

	url, err := svc.SaveImage(c.Request.Context(), f)
	if err != nil {
		return nil, err
	}
	values[field] = url
	return values, nil
}

func decodeJSONValues(r *http.Request) (form.Values, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, domain.NewAppError(domain.CodeValidation, "request body must be a JSON object", err)
	}

	values := make(form.Values, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			values[k] = ""
		case string:
			values[k] = t
		case json.Number:
			values[k] = t.String()
		case bool:
			values[k] = strconv.FormatBool(t)
		default:
			// arrays and objects keep their JSON text
			b, err := json.Marshal(t)
			if err != nil {
				return nil, domain.NewAppError(domain.CodeValidation, "invalid value for "+k, err)
			}
			values[k] = string(b)
		}
	}
	return values, nil
}

// parseID extracts and validates the "id" URL parameter.
func parseID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id: %s", idStr)
	}
	if id > uint64(^uint(0)) {
		return 0, fmt.Errorf("invalid id: %s", idStr)
	}
	return uint(id), nil
}
