package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// layers maps a package prefix (relative to internal/) to the internal prefixes it
// must not import. The first matching prefix wins.
var layers = []struct {
	prefix string
	banned []string
}{
	{"domain/", []string{""}},
	{"platform/", []string{"cache", "tasks", "topic", "jobs", "generation", "scheduler", "services", "http", "data", "domain", "app"}},
	{"cache/", []string{"jobs", "generation", "scheduler", "services", "http", "data", "app"}},
	{"tasks/", []string{"jobs", "generation", "scheduler", "services", "http", "data", "app"}},
	{"topic/", []string{"jobs", "generation", "scheduler", "services", "http", "data", "app"}},
	{"jobs/", []string{"cache", "generation", "scheduler", "services", "http", "app"}},
	{"generation/", []string{"services", "http", "app"}},
	{"scheduler/", []string{"services", "http", "app"}},
	{"services/", []string{"http", "app"}},
	{"http/", []string{"data/db", "app"}},
	{"app/", nil},
	{"", []string{"app"}},
}

func TestImportBoundaries(t *testing.T) {
	root, modulePath := moduleRoot(t)
	internal := modulePath + "/internal/"

	imports := internalImports(t, root, internal)
	files := make([]string, 0, len(imports))
	for f := range imports {
		files = append(files, f)
	}
	sort.Strings(files)

	var violations []string
	for _, rel := range files {
		pkg := strings.TrimPrefix(rel, "internal/")
		for _, l := range layers {
			if !strings.HasPrefix(pkg, l.prefix) {
				continue
			}
			for _, imp := range imports[rel] {
				for _, bad := range l.banned {
					if strings.HasPrefix(strings.TrimPrefix(imp, internal), bad) {
						violations = append(violations, fmt.Sprintf("- %s imports %q (banned for %q)", rel, imp, l.prefix))
						break
					}
				}
			}
			break
		}
	}
	require.Empty(t, violations, "import boundary violations:\n%s", strings.Join(violations, "\n"))
}

// internalImports returns, per .go file under internal/, the module-internal imports.
func internalImports(t *testing.T, root, internal string) map[string][]string {
	t.Helper()
	fset := token.NewFileSet()
	out := map[string][]string{}
	err := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, is := range f.Imports {
			imp, err := strconv.Unquote(is.Path.Value)
			if err == nil && strings.HasPrefix(imp, internal) {
				out[rel] = append(out[rel], imp)
			}
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func moduleRoot(t *testing.T) (string, string) {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "go.mod not found")
		dir = parent
	}

	f, err := os.Open(filepath.Join(dir, "go.mod"))
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if mp, ok := strings.CutPrefix(line, "module "); ok {
			return dir, strings.TrimSpace(mp)
		}
	}
	require.NoError(t, scanner.Err())
	t.Fatalf("module path not found in %s/go.mod", dir)
	return "", ""
}
