package app

import (
	"errors"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/pressdesk/internal/catalog"
	"github.com/simp-lee/pressdesk/web"
)

func miniTemplateFS() fstest.MapFS {
	return fstest.MapFS{
		"templates/layouts/base.html": {Data: []byte(
			`{{ define "base" }}<title>{{ block "title" . }}PressDesk{{ end }}</title>` +
				`{{ template "nav" . }}<main>{{ block "content" . }}{{ end }}</main>{{ end }}`)},
		"templates/partials/nav.html": {Data: []byte(`{{ define "nav" }}<nav>menu</nav>{{ end }}`)},
		"templates/resource/list.html": {Data: []byte(
			`{{ template "base" . }}{{ define "title" }}{{ .Title }}{{ end }}` +
				`{{ define "content" }}<h1>{{ .Title }}</h1>{{ end }}`)},
		"templates/resource/notes.txt": {Data: []byte("not a template")},
	}
}

func renderPage(t *testing.T, r *TemplateRenderer, name string, data any) string {
	t.Helper()
	w := httptest.NewRecorder()
	if err := r.Instance(name, data).Render(w); err != nil {
		t.Fatalf("render %s: %v", name, err)
	}
	if ct := w.Header().Get("Content-Type"); ct != htmlContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	return w.Body.String()
}

func TestTemplateRenderer_ShippedPagesParse(t *testing.T) {
	r, err := NewTemplateRenderer(web.EmbeddedFS, false)
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error = %v", err)
	}

	var names []string
	for name := range r.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, want := range []string{"auth/login.html", "errors/404.html", "home.html", "resource/form.html", "resource/list.html", "resource/table.html"} {
		if _, ok := r.pages[want]; !ok {
			t.Errorf("page %q missing, have %v", want, names)
		}
	}
	for _, name := range names {
		if strings.HasPrefix(name, "layouts/") || strings.HasPrefix(name, "partials/") {
			t.Errorf("shared template %q registered as a page", name)
		}
	}
}

func TestTemplateRenderer_LoginPageHasNoMenu(t *testing.T) {
	r, err := NewTemplateRenderer(web.EmbeddedFS, false)
	if err != nil {
		t.Fatal(err)
	}
	body := renderPage(t, r, "auth/login.html", gin.H{
		"CSRFToken": "tok.sig",
		"Next":      "/admin/websites",
		"Error":     "invalid email or password",
	})

	for _, want := range []string{
		`<meta name="csrf-token" content="tok.sig">`,
		`name="next" value="/admin/websites"`,
		"invalid email or password",
		"Sign in · PressDesk Admin",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("login page missing %q", want)
		}
	}
	if strings.Contains(body, "Sign out") || strings.Contains(body, `href="/admin/`) {
		t.Error("login page should not render the navigation")
	}
	if !strings.Contains(body, `<span class="brand">PressDesk</span>`) {
		t.Error("login page should keep the brand bar")
	}
}

func TestTemplateRenderer_LoginOverrideStaysOnLoginPage(t *testing.T) {
	r, err := NewTemplateRenderer(web.EmbeddedFS, false)
	if err != nil {
		t.Fatal(err)
	}
	renderPage(t, r, "auth/login.html", gin.H{})

	body := renderPage(t, r, "errors/404.html", gin.H{})
	if !strings.Contains(body, "Sign out") {
		t.Error("other pages must keep the full navigation")
	}
}

func TestTemplateRenderer_ErrorPageListsResources(t *testing.T) {
	r, err := NewTemplateRenderer(web.EmbeddedFS, false)
	if err != nil {
		t.Fatal(err)
	}
	body := renderPage(t, r, "errors/404.html", gin.H{})

	if !strings.Contains(body, "Back to dashboard") {
		t.Error("404 page missing the dashboard link")
	}
	for _, m := range catalog.All() {
		if !strings.Contains(body, `href="/admin/`+m.Name+`"`) {
			t.Errorf("menu missing %s", m.Name)
		}
	}
}

func TestTemplateRenderer_DebugReparses(t *testing.T) {
	fsys := miniTemplateFS()
	r, err := NewTemplateRenderer(fsys, true)
	if err != nil {
		t.Fatal(err)
	}
	if r.pages != nil {
		t.Fatal("debug renderer should not cache pages")
	}

	if body := renderPage(t, r, "resource/list.html", gin.H{"Title": "Websites"}); !strings.Contains(body, "<h1>Websites</h1>") {
		t.Fatalf("body = %s", body)
	}

	fsys["templates/partials/nav.html"] = &fstest.MapFile{Data: []byte(`{{ define "nav" }}<nav>edited</nav>{{ end }}`)}
	if body := renderPage(t, r, "resource/list.html", gin.H{"Title": "Websites"}); !strings.Contains(body, "<nav>edited</nav>") {
		t.Errorf("edit not picked up: %s", body)
	}
}

func TestTemplateRenderer_Errors(t *testing.T) {
	broken := miniTemplateFS()
	broken["templates/resource/broken.html"] = &fstest.MapFile{Data: []byte(`{{ if }}`)}

	t.Run("release fails at startup", func(t *testing.T) {
		if _, err := NewTemplateRenderer(broken, false); err == nil {
			t.Fatal("expected a parse error")
		}
	})

	t.Run("debug fails per render", func(t *testing.T) {
		r, err := NewTemplateRenderer(broken, true)
		if err != nil {
			t.Fatalf("debug renderer should defer parsing, got %v", err)
		}
		if err := r.Instance("resource/list.html", nil).Render(httptest.NewRecorder()); err == nil {
			t.Error("expected the parse error on render")
		}
	})

	t.Run("unknown page", func(t *testing.T) {
		r, err := NewTemplateRenderer(miniTemplateFS(), false)
		if err != nil {
			t.Fatal(err)
		}
		err = r.Instance("resource/missing.html", nil).Render(httptest.NewRecorder())
		if err == nil || !strings.Contains(err.Error(), `"resource/missing.html" not found`) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("stored error returned", func(t *testing.T) {
		h := &HTMLInstance{err: errors.New("boom")}
		if err := h.Render(httptest.NewRecorder()); err == nil || err.Error() != "boom" {
			t.Errorf("error = %v", err)
		}
	})
}

func TestHTMLInstance_KeepsExistingContentType(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("Content-Type", "text/plain")
	(&HTMLInstance{}).WriteContentType(w)
	if got := w.Header().Get("Content-Type"); got != "text/plain" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestTemplateFuncs(t *testing.T) {
	fsys := miniTemplateFS()
	fsys["templates/funcs.html"] = &fstest.MapFile{Data: []byte(
		`{{ json (dict "status" .Status) }}|{{ statusClass .Status }}|{{ statusClass "draft" }}|{{ add 2 3 }}|{{ len resources }}`)}
	r, err := NewTemplateRenderer(fsys, false)
	if err != nil {
		t.Fatal(err)
	}
	body := renderPage(t, r, "funcs.html", gin.H{"Status": "approved"})

	want := `{&#34;status&#34;:&#34;approved&#34;}|badge badge-success|badge|5|6`
	if !strings.HasPrefix(body, want) {
		t.Errorf("body = %q, want prefix %q", body, want)
	}

	fsys["templates/odd.html"] = &fstest.MapFile{Data: []byte(`{{ dict "a" }}`)}
	r, err = NewTemplateRenderer(fsys, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Instance("odd.html", nil).Render(httptest.NewRecorder()); err == nil {
		t.Error("dict with an odd argument count should fail")
	}
}
