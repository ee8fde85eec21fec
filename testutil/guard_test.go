package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestImportPredicates(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"ecoresiduos/internal/adapters/reports", true},
		{"ecoresiduos/internal/cli", true},
		{"ecoresiduos/internal/client", false},
		{"net/http", true},
		{"net/http/httptest", true},
		{"net/url", false},
		{"ecoresiduos/internal/report", false},
	}
	for _, c := range cases {
		if got := CoreImportForbidden(c.in); got != c.want {
			t.Fatalf("CoreImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writeSource(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "core.go", "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(1) }\n")
	writeSource(t, dir, "leak.go", "package tmp\nimport _ \"net/http\"\n")
	writeSource(t, dir, "leak_test.go", "package tmp\nimport _ \"ecoresiduos/internal/cli\"\n")
	if err := os.Mkdir(filepath.Join(dir, "sub.go"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := directImportViolations(dir, CoreImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "net/http (in leak.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}

	rec := &recordingFatal{}
	failIfDirectViolations(rec, "core", viols)
	if !strings.Contains(rec.msg, "forbidden direct imports detected (core)") {
		t.Fatalf("unexpected message %q", rec.msg)
	}
	rec = &recordingFatal{}
	failIfDirectViolations(rec, "core", nil)
	if rec.msg != "" {
		t.Fatalf("no violations must not fail")
	}
}

func TestDirectImportViolationsParseError(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "broken.go", "package\n")
	if _, err := directImportViolations(dir, CoreImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := directImportViolations(filepath.Join(dir, "missing"), CoreImportForbidden); err == nil {
		t.Fatalf("expected read error")
	}
}
