package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureGenerate(t *testing.T) **GenerateOptions {
	t.Helper()
	var captured *GenerateOptions
	generateRunner = func(ctx context.Context, opts *GenerateOptions) error {
		captured = opts
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })
	return &captured
}

func executeRoot(args ...string) error {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	return root.Execute()
}

func TestGenerateOptionsFromFlags(t *testing.T) {
	dir := t.TempDir()
	crudPath := filepath.Join(dir, "cruds.yaml")
	crudContent := "- entityName: order\n  basePath: /orders\n- entityName: user\n  basePath: /users\n  idField: uid\n"
	if err := os.WriteFile(crudPath, []byte(crudContent), 0o600); err != nil {
		t.Fatalf("write crud config: %v", err)
	}
	captured := captureGenerate(t)

	err := executeRoot(
		"--verbose",
		"generate",
		"--file", " spec.yaml ",
		"--output", "./build",
		"--base-url", "https://api.example.com",
		"--timeout", "5000",
		"--no-types",
		"--crud",
		"--crud-config", crudPath,
		"--dry-run",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	opts := *captured
	if opts == nil {
		t.Fatalf("expected options to be captured")
	}
	if opts.File != "spec.yaml" {
		t.Errorf("file mismatch: got %q", opts.File)
	}
	if opts.URL != "" || opts.Mock != "" {
		t.Errorf("unexpected extra sources: url=%q mock=%q", opts.URL, opts.Mock)
	}
	if !opts.DryRun {
		t.Errorf("expected dry-run true")
	}
	if !opts.Verbose {
		t.Errorf("expected verbose true")
	}
	cfg := opts.Config
	if cfg.OutputDir != "./build" {
		t.Errorf("output mismatch: got %q", cfg.OutputDir)
	}
	if cfg.BaseURL != "https://api.example.com" {
		t.Errorf("base url mismatch: got %q", cfg.BaseURL)
	}
	if cfg.Timeout != 5000 {
		t.Errorf("timeout mismatch: got %d", cfg.Timeout)
	}
	if cfg.TypesEnabled() {
		t.Errorf("expected types disabled")
	}
	if !cfg.ServicesEnabled() {
		t.Errorf("expected services enabled by default")
	}
	if !cfg.CrudEnabled() {
		t.Errorf("expected crud enabled")
	}
	if len(cfg.CrudConfigs) != 2 || cfg.CrudConfigs[1].ID() != "uid" {
		t.Errorf("crud configs mismatch: got %+v", cfg.CrudConfigs)
	}
}

func TestGenerateConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "eps.config.yaml")
	configContent := strings.TrimSpace(`baseURL: /from-config
timeout: 1000
outputDir: from-config
withCredentials: true
headers:
  X-App: eps
generateServices: false
`) + "\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("EPS_TIMEOUT", "2000")
	t.Setenv("EPS_OUTPUT_DIR", "from-env")
	t.Setenv("EPS_UNRELATED", "ignored")
	captured := captureGenerate(t)

	err := executeRoot("--config", configPath, "generate", "--mock", `{"paths":{}}`, "--output", "from-flag")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	opts := *captured
	if opts == nil {
		t.Fatalf("expected options to be captured")
	}
	cfg := opts.Config
	if cfg.BaseURL != "/from-config" {
		t.Errorf("base url: want /from-config got %q", cfg.BaseURL)
	}
	if cfg.Timeout != 2000 {
		t.Errorf("timeout: want env value 2000 got %d", cfg.Timeout)
	}
	if cfg.OutputDir != "from-flag" {
		t.Errorf("output: want from-flag got %q", cfg.OutputDir)
	}
	if !cfg.WithCredentials {
		t.Errorf("expected withCredentials from config file")
	}
	if cfg.Headers["X-App"] != "eps" {
		t.Errorf("headers mismatch: got %v", cfg.Headers)
	}
	if cfg.ServicesEnabled() {
		t.Errorf("expected services disabled by config file")
	}
	if !cfg.TypesEnabled() {
		t.Errorf("expected types enabled by default")
	}
	if opts.ConfigPath != configPath {
		t.Errorf("config path mismatch: got %q", opts.ConfigPath)
	}
}

func TestGenerateSourceSelection(t *testing.T) {
	cases := map[string][]string{
		"none":     {"generate"},
		"two":      {"generate", "--file", "a.yaml", "--url", "https://example.com/a.json"},
		"blank":    {"generate", "--file", "   "},
		"all":      {"generate", "--file", "a.yaml", "--url", "u", "--mock", "{}"},
		"extraArg": {"generate", "--file", "a.yaml", "stray"},
	}
	captured := captureGenerate(t)
	for name, args := range cases {
		err := executeRoot(args...)
		if err == nil {
			t.Fatalf("%s: expected an error", name)
		}
		if name != "extraArg" && !errors.Is(err, ErrUsage) {
			t.Fatalf("%s: expected usage error, got %v", name, err)
		}
	}
	if *captured != nil {
		t.Fatalf("runner must not be called on usage errors")
	}
}

func TestGenerateInvalidConfiguration(t *testing.T) {
	captureGenerate(t)

	err := executeRoot("generate", "--file", "spec.yaml", "--timeout=-5", "--base-url", " ")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	for _, want := range []string{"invalid configuration", "baseURL is required", "timeout must be greater than 0"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("missing %q in error: %v", want, err)
		}
	}

	err = executeRoot("generate", "--file", "spec.yaml", "--crud")
	if err == nil || !strings.Contains(err.Error(), "crudConfigs must not be empty") {
		t.Fatalf("expected crud configs violation, got %v", err)
	}

	err = executeRoot("--config", filepath.Join(t.TempDir(), "missing.json"), "generate", "--file", "spec.yaml")
	if err == nil || !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected missing config usage error, got %v", err)
	}
}
