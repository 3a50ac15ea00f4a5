package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"domain", DomainImportForbidden, "bookclub/pkg/domain", true},
		{"domain version", DomainImportForbidden, "example.com/pkg/domain@v1", true},
		{"domain sub", DomainImportForbidden, "example.com/pkg/domain/sub", false},
		{"internal", InternalImportForbidden, "bookclub/internal/core", true},
		{"internal bare", InternalImportForbidden, "internal", false},
		{"driver sql", DriverImportForbidden, "database/sql", true},
		{"driver sqlite", DriverImportForbidden, "modernc.org/sqlite", true},
		{"driver aws", DriverImportForbidden, "github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"driver lookalike", DriverImportForbidden, "database/sqlx", false},
		{"driver text", DriverImportForbidden, "golang.org/x/text/cases", false},
	}
	for _, c := range cases {
		if got := c.fn(c.in); got != c.want {
			t.Fatalf("%s: predicate(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"database/sql\"\n)\nvar _ = fmt.Sprint\nvar _ sql.DB\n")
	write("a_test.go", "package tmp\nimport \"modernc.org/sqlite\"\n")
	write("notes.txt", "import \"database/sql\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := directImportViolations(dir, DriverImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "database/sql (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
}

func TestDirectImportViolationsMissingDir(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), DriverImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	orig := goListDeps
	t.Cleanup(func() { goListDeps = orig })
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nbookclub/internal/core\n\nbookclub/pkg/domain\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./...", InternalImportForbidden)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(viols) != 1 || viols[0] != "bookclub/internal/core" {
		t.Fatalf("unexpected violations %v", viols)
	}

	goListDeps = func(string) ([]byte, error) { return []byte("boom"), fmt.Errorf("exit 1") }
	if _, out, err := transitiveDependencyViolations(".", InternalImportForbidden); err == nil || string(out) != "boom" {
		t.Fatalf("expected go list failure to surface")
	}
}

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestFailIfViolations(t *testing.T) {
	rec := &recordingFatal{}
	failIfViolations(rec, "direct imports", "reason", nil)
	if rec.msg != "" {
		t.Fatalf("expected no failure without violations")
	}
	failIfViolations(rec, "direct imports", "reason", []string{"x"})
	if rec.msg == "" {
		t.Fatalf("expected failure message")
	}
}
