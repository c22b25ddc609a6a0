package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	t.Parallel()
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.True(t, cfg.TypesEnabled())
	assert.True(t, cfg.ServicesEnabled())
	assert.False(t, cfg.CrudEnabled())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "eps.config.yaml", `
baseURL: https://api.example.com
timeout: 5000
headers:
  X-Tenant: acme
generateServices: false
generateCrud: true
crudConfigs:
  - entityName: order
    basePath: /orders
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, 5000, cfg.Timeout)
	assert.Equal(t, map[string]string{"X-Tenant": "acme"}, cfg.Headers)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.True(t, cfg.TypesEnabled())
	assert.False(t, cfg.ServicesEnabled())
	require.Len(t, cfg.CrudConfigs, 1)
	assert.Equal(t, "order", cfg.CrudConfigs[0].EntityName)
	assert.Equal(t, "id", cfg.CrudConfigs[0].ID())
	assert.True(t, cfg.CrudEnabled())
}

func TestLoad_EnvAndOverrides(t *testing.T) {
	path := writeFile(t, "eps.config.json", `{"baseURL": "/from-file", "outputDir": "./file-out"}`)
	t.Setenv("EPS_BASE_URL", "/from-env")
	t.Setenv("EPS_TIMEOUT", "1500")
	t.Setenv("EPS_GENERATE_TYPES", "false")
	t.Setenv("EPS_UNRELATED", "ignored")

	cfg, err := Load(path, map[string]any{"outputDir": "./flag-out"})
	require.NoError(t, err)
	assert.Equal(t, "/from-env", cfg.BaseURL)
	assert.Equal(t, 1500, cfg.Timeout)
	assert.False(t, cfg.TypesEnabled())
	assert.Equal(t, "./flag-out", cfg.OutputDir)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFile_NoDefaults(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "partial.json", `{"timeout": 100}`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.BaseURL)
	assert.Empty(t, cfg.OutputDir)
	assert.Equal(t, 100, cfg.Timeout)
}

func TestDefaultJSON(t *testing.T) {
	t.Parallel()
	data, err := DefaultJSON()
	require.NoError(t, err)

	var back Config
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Default(), back)
	assert.True(t, Validate(&back).Valid)
	assert.Contains(t, string(data), `"baseURL": "/api"`)
}

func TestLoadCrudConfigs(t *testing.T) {
	t.Parallel()
	list := writeFile(t, "cruds.json", `[{"entityName": "order", "basePath": "/orders", "idField": "orderId"}]`)
	got, err := LoadCrudConfigs(list)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "orderId", got[0].ID())

	wrapped := writeFile(t, "cruds.yaml", "crudConfigs:\n  - entityName: user\n    basePath: /users\n")
	got, err = LoadCrudConfigs(wrapped)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/users", got[0].BasePath)

	bad := writeFile(t, "bad.yaml", "entityName: user\n")
	_, err = LoadCrudConfigs(bad)
	assert.Error(t, err)
}
