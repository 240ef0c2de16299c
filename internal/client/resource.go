package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/simp-lee/pressdesk/internal/dataview"
	"github.com/simp-lee/pressdesk/internal/form"
	"github.com/simp-lee/pressdesk/internal/pkg"
)

// ImportResult is the outcome of a bulk upload.
type ImportResult struct {
	Message string `json:"message"`
	Created int    `json:"created"`
	Errors  []struct {
		Row   int    `json:"row"`
		Error string `json:"error"`
	} `json:"errors"`
}

// Resource is the typed endpoint set of one resource. It is the Fetcher of
// a list screen and the Submitter of a form modal.
type Resource[T any] struct {
	c    *Client
	name string
}

var (
	_ dataview.Fetcher[struct{}] = (*Resource[struct{}])(nil)
	_ form.Submitter             = (*Resource[struct{}])(nil)
)

// For binds c to the resource named name, e.g. "websites".
func For[T any](c *Client, name string) *Resource[T] {
	return &Resource[T]{c: c, name: name}
}

// Name returns the resource URL segment.
func (r *Resource[T]) Name() string { return r.name }

func (r *Resource[T]) path(parts ...string) string {
	p := "/" + r.name
	for _, s := range parts {
		p += "/" + url.PathEscape(s)
	}
	return p
}

// Fetch retrieves the whole collection. Filtering, sorting and paging
// happen locally.
func (r *Resource[T]) Fetch(ctx context.Context) ([]T, error) {
	var out pkg.ListResult[T]
	q := url.Values{dataview.ParamAll: {"true"}}
	if err := r.c.call(ctx, request{method: http.MethodGet, path: r.path(), query: q}, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		return []T{}, nil
	}
	return out.Items, nil
}

// List asks the server for one page computed from st.
func (r *Resource[T]) List(ctx context.Context, st dataview.ViewState) (pkg.ListResult[T], error) {
	var out pkg.ListResult[T]
	err := r.c.call(ctx, request{method: http.MethodGet, path: r.path(), query: st.Values()}, &out)
	return out, err
}

// Get returns one record.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.c.call(ctx, request{method: http.MethodGet, path: r.path(id)}, &out)
	return out, err
}

// Create posts a new record.
func (r *Resource[T]) Create(ctx context.Context, values form.Values) error {
	return r.c.call(ctx, request{method: http.MethodPost, path: r.path(), json: values}, nil)
}

// Update replaces the fields present in values on record id.
func (r *Resource[T]) Update(ctx context.Context, id string, values form.Values) error {
	return r.c.call(ctx, request{method: http.MethodPut, path: r.path(id), json: values}, nil)
}

// Delete removes record id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.call(ctx, request{method: http.MethodDelete, path: r.path(id)}, nil)
}

// SetStatus moderates record id. reason is required when rejecting.
func (r *Resource[T]) SetStatus(ctx context.Context, id, status, reason string) error {
	body := map[string]string{"status": status, "reason": reason}
	return r.c.call(ctx, request{method: http.MethodPatch, path: r.path(id, "status"), json: body}, nil)
}

// SetStatusBulk moderates several records at once and returns how many
// changed.
func (r *Resource[T]) SetStatusBulk(ctx context.Context, ids []uint, status, reason string) (int, error) {
	var out struct {
		Updated int `json:"updated"`
	}
	body := map[string]any{"ids": ids, "status": status, "reason": reason}
	err := r.c.call(ctx, request{method: http.MethodPost, path: r.path("status"), json: body}, &out)
	return out.Updated, err
}

// Export writes the records matching st, unpaginated, to w in format
// ("csv" or "xlsx"). It returns the server's file name.
func (r *Resource[T]) Export(ctx context.Context, st dataview.ViewState, format string, w io.Writer) (string, error) {
	q := st.Values()
	q.Del(dataview.ParamPage)
	q.Del(dataview.ParamPageSize)
	q.Set("format", format)
	return r.download(ctx, r.path("export"), q, w)
}

// Template writes the bulk-upload template to w.
func (r *Resource[T]) Template(ctx context.Context, format string, w io.Writer) (string, error) {
	return r.download(ctx, r.path("template"), url.Values{"format": {format}}, w)
}

func (r *Resource[T]) download(ctx context.Context, path string, q url.Values, w io.Writer) (string, error) {
	resp, err := r.c.do(ctx, request{method: http.MethodGet, path: path, query: q})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("download %s: %w", path, err)
	}
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return "", nil
	}
	return params["filename"], nil
}

// BulkUpload sends a CSV or XLSX file. filename decides how the server
// parses it.
func (r *Resource[T]) BulkUpload(ctx context.Context, filename string, src io.Reader) (ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return ImportResult{}, err
	}
	if _, err := io.Copy(part, src); err != nil {
		return ImportResult{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return ImportResult{}, err
	}

	var out ImportResult
	err = r.c.call(ctx, request{
		method:      http.MethodPost,
		path:        r.path("bulk-upload"),
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	return out, err
}

// ID formats a numeric id for the path-based methods.
func ID(id uint) string { return strconv.FormatUint(uint64(id), 10) }
