package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "eps.config.yaml", "baseURL: /api\noutputDir: ./out\ngenerateCrud: true\ncrudConfigs:\n  - entityName: user\n    basePath: /users\n")

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"validate", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	s := out.String()
	for _, want := range []string{"is valid", "baseURL: /api", "timeout: 30000ms", "outputDir: ./out", "crud: true (1 entities)"} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in output:\n%s", want, s)
		}
	}
}

func TestValidate_ReportsViolations(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "eps.config.json", `{"timeout": 0, "generateCrud": true}`)

	var stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(&stderr)
	root.SetArgs([]string{"validate", path})

	err := root.Execute()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	s := stderr.String()
	for _, want := range []string{"baseURL is required", "outputDir is required", "crudConfigs must not be empty"} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in output:\n%s", want, s)
		}
	}
}

func TestValidate_BadInput(t *testing.T) {
	t.Parallel()
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"validate", filepath.Join(t.TempDir(), "missing.json")})
	if err := root.Execute(); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error for missing file, got %v", err)
	}

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"validate", writeFile(t, "broken.json", "{not json")})
	if err := root.Execute(); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error for broken file, got %v", err)
	}

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"validate"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error without a path argument")
	}
}
