// Package config holds the generator configuration and the layered loader
// behind it: built-in defaults, an optional JSON or YAML file, EPS_*
// environment variables and finally command-line overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "EPS_"

const (
	DefaultBaseURL   = "/api"
	DefaultTimeout   = 30000
	DefaultOutputDir = "./src/services/auto"
	DefaultIDField   = "id"
)

// Config drives one generation run.
type Config struct {
	BaseURL string `json:"baseURL" koanf:"baseURL" validate:"required"`
	// Timeout is the request timeout baked into generated clients, in
	// milliseconds. Zero means unset.
	Timeout         int               `json:"timeout,omitempty" koanf:"timeout" validate:"omitempty,gt=0"`
	Headers         map[string]string `json:"headers,omitempty" koanf:"headers"`
	WithCredentials bool              `json:"withCredentials,omitempty" koanf:"withCredentials"`
	OutputDir       string            `json:"outputDir" koanf:"outputDir" validate:"required"`
	// GenerateTypes and GenerateServices default to enabled when absent.
	GenerateTypes    *bool        `json:"generateTypes,omitempty" koanf:"generateTypes"`
	GenerateServices *bool        `json:"generateServices,omitempty" koanf:"generateServices"`
	GenerateCrud     bool         `json:"generateCrud" koanf:"generateCrud"`
	CrudConfigs      []CrudConfig `json:"crudConfigs,omitempty" koanf:"crudConfigs" validate:"dive"`
}

// CrudConfig describes one entity for which a CRUD client is generated.
type CrudConfig struct {
	EntityName string `json:"entityName" koanf:"entityName" mapstructure:"entityName" validate:"required"`
	BasePath   string `json:"basePath" koanf:"basePath" mapstructure:"basePath" validate:"required"`
	IDField    string `json:"idField,omitempty" koanf:"idField" mapstructure:"idField"`

	// Optional per-operation paths. When empty the operation uses BasePath.
	ListEndpoint   string `json:"listEndpoint,omitempty" koanf:"listEndpoint" mapstructure:"listEndpoint"`
	CreateEndpoint string `json:"createEndpoint,omitempty" koanf:"createEndpoint" mapstructure:"createEndpoint"`
	UpdateEndpoint string `json:"updateEndpoint,omitempty" koanf:"updateEndpoint" mapstructure:"updateEndpoint"`
	DeleteEndpoint string `json:"deleteEndpoint,omitempty" koanf:"deleteEndpoint" mapstructure:"deleteEndpoint"`
	DetailEndpoint string `json:"detailEndpoint,omitempty" koanf:"detailEndpoint" mapstructure:"detailEndpoint"`
}

// ID returns the identifier field name, defaulting to "id".
func (c CrudConfig) ID() string {
	if strings.TrimSpace(c.IDField) == "" {
		return DefaultIDField
	}
	return c.IDField
}

func (c *Config) TypesEnabled() bool {
	return c.GenerateTypes == nil || *c.GenerateTypes
}

func (c *Config) ServicesEnabled() bool {
	return c.GenerateServices == nil || *c.GenerateServices
}

// CrudEnabled reports whether CRUD generation is on and has work to do.
func (c *Config) CrudEnabled() bool {
	return c.GenerateCrud && len(c.CrudConfigs) > 0
}

// Bool returns a pointer to b, for the optional switches.
func Bool(b bool) *bool { return &b }

// Default returns the configuration written by `init`.
func Default() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		Timeout:          DefaultTimeout,
		OutputDir:        DefaultOutputDir,
		GenerateTypes:    Bool(true),
		GenerateServices: Bool(true),
		GenerateCrud:     false,
		CrudConfigs: []CrudConfig{
			{EntityName: "user", BasePath: "/users", IDField: DefaultIDField},
		},
	}
}

// DefaultJSON renders Default as indented JSON with a trailing newline.
func DefaultJSON() ([]byte, error) {
	out, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func defaults() map[string]any {
	return map[string]any{
		"baseURL":          DefaultBaseURL,
		"timeout":          DefaultTimeout,
		"outputDir":        DefaultOutputDir,
		"generateTypes":    true,
		"generateServices": true,
		"generateCrud":     false,
	}
}

// envKeys maps EPS_* variables (prefix stripped, lower case) to config keys.
var envKeys = map[string]string{
	"base_url":          "baseURL",
	"timeout":           "timeout",
	"output_dir":        "outputDir",
	"with_credentials":  "withCredentials",
	"generate_types":    "generateTypes",
	"generate_services": "generateServices",
	"generate_crud":     "generateCrud",
}

// Load builds a Config from defaults, the file at path (skipped when path is
// empty), EPS_* environment variables and overrides, later sources winning.
// Override keys use the JSON field names, e.g. "baseURL".
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		// Unknown variables are ignored.
		return envKeys[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	return unmarshal(k)
}

// LoadFile reads a single config file without applying defaults, so that
// missing fields surface during validation.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")
	if err := loadFile(k, path); err != nil {
		return nil, err
	}
	return unmarshal(k)
}

func loadFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s not found: %w", path, err)
		}
		return fmt.Errorf("failed to access config file %s: %w", path, err)
	}
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return kyaml.Parser()
	default:
		return kjson.Parser()
	}
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			WeaklyTypedInput: true,
			Result:           cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadCrudConfigs reads CRUD entity definitions from a JSON or YAML file.
// The file holds either a list of entries or an object with a crudConfigs
// key.
func LoadCrudConfigs(path string) ([]CrudConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read crud config %s: %w", path, err)
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse crud config %s: %w", path, err)
	}
	if obj, ok := raw.(map[string]any); ok {
		list, found := obj["crudConfigs"]
		if !found {
			return nil, fmt.Errorf("crud config %s: object has no crudConfigs key", path)
		}
		raw = list
	}

	var out []CrudConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode crud config %s: %w", path, err)
	}
	return out, nil
}
