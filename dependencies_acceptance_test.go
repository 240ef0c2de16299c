package pressdesk_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestModuleDependencies_Present(t *testing.T) {
	for _, module := range []string{
		"github.com/casbin/casbin/v2",
		"github.com/simp-lee/jwt",
		"github.com/simp-lee/pagination",
		"github.com/xuri/excelize/v2",
		"github.com/shopspring/decimal",
		"github.com/spf13/cobra",
		"gopkg.in/yaml.v3",
		"golang.org/x/crypto",
	} {
		t.Run(module, func(t *testing.T) {
			testModulePresence(t, module)
		})
	}
}

func TestModuleDependencies_DroppedModulesAbsent(t *testing.T) {
	goMod, err := os.ReadFile("go.mod")
	if err != nil {
		t.Fatalf("read go.mod: %v", err)
	}
	for _, module := range []string{
		"github.com/simp-lee/rbac",
	} {
		if moduleRequired(string(goMod), module) {
			t.Errorf("module %q should no longer be required", module)
		}
	}
}

func TestTemplates_ReferencedPagesExist(t *testing.T) {
	t.Run("happy_every_rendered_page_is_shipped", func(t *testing.T) {
		names, err := findRenderedTemplates("internal")
		if err != nil {
			t.Fatalf("scan repository: %v", err)
		}
		if len(names) == 0 {
			t.Fatal("expected handlers to render templates")
		}
		for _, name := range names {
			if _, err := os.Stat(filepath.Join("web", "templates", name)); err != nil {
				t.Errorf("template %q is rendered but missing: %v", name, err)
			}
		}
	})

	t.Run("happy_error_pages_are_shipped", func(t *testing.T) {
		for _, code := range []string{"400", "401", "403", "404", "500"} {
			if _, err := os.Stat(filepath.Join("web", "templates", "errors", code+".html")); err != nil {
				t.Errorf("error page %s missing: %v", code, err)
			}
		}
	})

	t.Run("error_fixture_reference_is_detected", func(t *testing.T) {
		fixture := `c.HTML(http.StatusOK, "reports/summary.html", data)`
		got := templateRefs(fixture)
		if len(got) != 1 || got[0] != "reports/summary.html" {
			t.Fatalf("expected the fixture reference to be found, got %v", got)
		}
	})
}

func testModulePresence(t *testing.T, module string) {
	t.Helper()

	t.Run("happy_present_in_real_go_mod", func(t *testing.T) {
		goMod, err := os.ReadFile("go.mod")
		if err != nil {
			t.Fatalf("read go.mod: %v", err)
		}
		if !moduleRequired(string(goMod), module) {
			t.Fatalf("expected module %q to be present in go.mod", module)
		}
	})

	t.Run("error_missing_module_in_fixture", func(t *testing.T) {
		fixture := `module example.com/demo

go 1.25.0

require (
	github.com/gin-gonic/gin v1.11.0
)`
		if moduleRequired(fixture, module) {
			t.Fatalf("expected fixture to not contain module %q", module)
		}
	})
}

func moduleRequired(goModContent, module string) bool {
	re := regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(module) + `\s+v\S+`)
	return re.MatchString(goModContent)
}

var templateRef = regexp.MustCompile(`"([a-z_]+(?:/[a-z_]+)*\.html)"`)

func templateRefs(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		for _, m := range templateRef.FindAllStringSubmatch(line, -1) {
			out = append(out, m[1])
		}
	}
	return out
}

func findRenderedTemplates(root string) ([]string, error) {
	seen := map[string]bool{}
	var names []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		b, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		for _, name := range templateRefs(string(b)) {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
