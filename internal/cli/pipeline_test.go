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

const minimalSpecYAML = "" +
	"openapi: 3.0.0\n" +
	"info:\n" +
	"  title: Test API\n" +
	"  version: '1.0.0'\n" +
	"paths:\n" +
	"  /hello:\n" +
	"    get:\n" +
	"      summary: Hello\n" +
	"      tags: [greeting]\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n"

func TestGeneratePipeline_DryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	specPath := filepath.Join(dir, "spec.yaml")
	if err := os.WriteFile(specPath, []byte(minimalSpecYAML), 0o600); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	outDir := filepath.Join(dir, "out")

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--file", specPath, "--output", outDir, "--dry-run"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "dry run, nothing written") {
		t.Fatalf("expected dry-run output, got: %s", s)
	}
	if !strings.Contains(s, "API: Test API 1.0.0\n") {
		t.Fatalf("expected API title in summary, got: %s", s)
	}
	if !strings.Contains(s, filepath.Join(outDir, "services", "greeting-service.ts")) {
		t.Fatalf("expected planned service file, got: %s", s)
	}
	if _, err := os.Stat(outDir); err == nil {
		t.Fatalf("expected no writes on dry-run")
	}
}

func TestGeneratePipeline_MockWritesFiles(t *testing.T) {
	t.Parallel()
	outDir := filepath.Join(t.TempDir(), "auto")
	mock := `{"paths":{"/users":{"get":{"tags":["user"],"responses":{"200":{"description":"ok"}}}}}}`

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--mock", mock, "-o", outDir, "--base-url", "/v1"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "EPS generation succeeded") {
		t.Fatalf("unexpected output: %s", out.String())
	}
	svc, err := os.ReadFile(filepath.Join(outDir, "services", "user-service.ts"))
	if err != nil {
		t.Fatalf("read service: %v", err)
	}
	if !strings.Contains(string(svc), "async getUsers(") {
		t.Fatalf("service missing getUsers:\n%s", svc)
	}
	index, err := os.ReadFile(filepath.Join(outDir, "index.ts"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if !strings.Contains(string(index), "baseURL: '/v1',") {
		t.Fatalf("index missing base url:\n%s", index)
	}
}

func TestGeneratePipeline_Failures(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(&stderr)
	root.SetArgs([]string{"generate", "--file", filepath.Join(dir, "missing.yaml"), "-o", filepath.Join(dir, "out")})
	err := root.Execute()
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if !strings.Contains(stderr.String(), "EPS generation failed") {
		t.Fatalf("unexpected stderr: %s", stderr.String())
	}

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--mock", "{not json", "-o", filepath.Join(dir, "out")})
	if err := root.Execute(); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error for bad mock, got %v", err)
	}
}
