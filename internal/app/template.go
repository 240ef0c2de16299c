package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin/render"

	"github.com/simp-lee/pressdesk/internal/catalog"
)

const htmlContentType = "text/html; charset=utf-8"

// sharedTemplateDirs hold the layout and partials every page is parsed on
// top of. Everything else under templates/ is a page, named by its path
// below templates/ ("resource/list.html").
var sharedTemplateDirs = []string{"templates/layouts", "templates/partials"}

// TemplateRenderer renders the admin pages for gin. A page calls
// {{ template "base" . }} and overrides the layout's blocks.
//
// In debug mode every render parses the tree again so template edits show
// up on reload; otherwise pages are parsed once by NewTemplateRenderer.
type TemplateRenderer struct {
	fsys  fs.FS
	debug bool
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// NewTemplateRenderer reads templates from fsys, which holds a templates/
// directory: web.EmbeddedFS in release builds or os.DirFS("web") while
// developing.
func NewTemplateRenderer(fsys fs.FS, debug bool) (*TemplateRenderer, error) {
	r := &TemplateRenderer{fsys: fsys, debug: debug}
	if debug {
		return r, nil
	}
	pages, err := parsePages(fsys)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.pages = pages
	return r, nil
}

// Instance implements render.HTMLRender.
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	pages := r.pages
	if r.debug {
		var err error
		if pages, err = parsePages(r.fsys); err != nil {
			return &HTMLInstance{Name: name, err: err}
		}
	}
	return &HTMLInstance{Template: pages[name], Name: name, Data: data}
}

func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	shared := template.New("").Funcs(templateFuncMap())
	for _, dir := range sharedTemplateDirs {
		files, err := fs.Glob(fsys, dir+"/*.html")
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}
		if shared, err = shared.ParseFS(fsys, files...); err != nil {
			return nil, err
		}
	}

	pages := make(map[string]*template.Template)
	err := fs.WalkDir(fsys, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			for _, dir := range sharedTemplateDirs {
				if p == dir {
					return fs.SkipDir
				}
			}
			return nil
		}
		if path.Ext(p) != ".html" {
			return nil
		}

		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		page, err := shared.Clone()
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(p, "templates/")
		if _, err := page.New(name).Parse(string(src)); err != nil {
			return err
		}
		pages[name] = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		// json is for hx-vals attributes.
		"json": func(v any) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return "null"
			}
			return template.JS(b)
		},
		"dict": func(kv ...any) (map[string]any, error) {
			if len(kv)%2 == 1 {
				return nil, errors.New("dict: odd number of arguments")
			}
			m := make(map[string]any, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				k, ok := kv[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
				}
				m[k] = kv[i+1]
			}
			return m, nil
		},
		"add":         func(a, b int) int { return a + b },
		"resources":   catalog.All,
		"statusClass": statusClass,
	}
}

// statusClass picks the badge style for a moderation status.
func statusClass(status string) string {
	switch status {
	case "approved":
		return "badge badge-success"
	case "rejected":
		return "badge badge-danger"
	case "pending":
		return "badge badge-warning"
	}
	return "badge"
}

// HTMLInstance is one page render.
type HTMLInstance struct {
	Template *template.Template
	Name     string
	Data     any
	err      error
}

func (h *HTMLInstance) Render(w http.ResponseWriter) error {
	h.WriteContentType(w)
	switch {
	case h.err != nil:
		return h.err
	case h.Template == nil:
		return fmt.Errorf("template %q not found", h.Name)
	}
	return h.Template.ExecuteTemplate(w, h.Name, h.Data)
}

func (h *HTMLInstance) WriteContentType(w http.ResponseWriter) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", htmlContentType)
	}
}
