// Package crudgen renders convention-based CRUD clients from explicit entity
// configuration. Generation never consults the parsed endpoints; CrossCheck
// compares the two separately and only produces warnings.
package crudgen

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/btcsaas/eps-generator/internal/config"
	"github.com/btcsaas/eps-generator/internal/generator/typegen"
	"github.com/btcsaas/eps-generator/internal/naming"
	"github.com/btcsaas/eps-generator/internal/spec"
	"github.com/btcsaas/eps-generator/internal/tsformat"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"trimExt": func(name string) string { return strings.TrimSuffix(name, path.Ext(name)) },
}).ParseFS(templateFS, "templates/*.tmpl"))

// Methods is the fixed method set of every generated CRUD class.
var Methods = []string{
	"list", "create", "update", "delete", "detail",
	"batchDelete", "batchUpdate", "export", "import", "getStats",
}

// Defaults are the client settings baked into every CRUD constructor.
type Defaults struct {
	BaseURL         string
	Timeout         int
	Headers         map[string]string
	WithCredentials bool
}

// Crud is one generated CRUD class file.
type Crud struct {
	Name     string
	FileName string
	Content  string
	Methods  []string
}

type Generator struct {
	logger *zap.Logger
}

type Option func(*Generator)

func WithLogger(l *zap.Logger) Option { return func(g *Generator) { g.logger = l } }

func New(opts ...Option) *Generator {
	g := &Generator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("crudgen")
	return g
}

// Generate renders one class per config, in config order. Configs whose
// class or file name is already taken, or that fail to render, are reported
// in the joined error and skipped.
func (g *Generator) Generate(cfgs []config.CrudConfig, d Defaults) ([]Crud, error) {
	classes := naming.NewRegistry("crud")
	files := naming.NewRegistry("crud file")
	_ = files.Claim("index", "cruds index")

	var errs []error
	var out []Crud
	for _, cfg := range cfgs {
		crud, err := g.GenerateOne(cfg, d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		origin := "entity " + cfg.EntityName
		if err := classes.Claim(crud.Name, origin); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := files.Claim(strings.TrimSuffix(crud.FileName, ".ts"), origin); err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, crud)
	}
	return out, errors.Join(errs...)
}

type crudData struct {
	Name            string
	Entity          string
	BasePathComment string
	IDComment       string
	IDKey           string
	IDQuoted        string
	BasePath        string
	ListPath        string
	CreatePath      string
	UpdatePath      string
	DeletePath      string
	DetailPath      string
	BaseURL         string
	Timeout         int
	Headers         string
	WithCredentials bool
}

// GenerateOne renders the CRUD class for a single entity.
func (g *Generator) GenerateOne(cfg config.CrudConfig, d Defaults) (Crud, error) {
	entity := naming.Pascal(cfg.EntityName)
	if !naming.IsIdentifier(entity) {
		return Crud{}, fmt.Errorf("crud %q: entity name does not form a valid class name", cfg.EntityName)
	}
	if strings.TrimSpace(cfg.BasePath) == "" {
		return Crud{}, fmt.Errorf("crud %q: base path is required", cfg.EntityName)
	}
	name := entity + "Crud"

	headers := d.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	hdrJSON, err := json.Marshal(headers)
	if err != nil {
		return Crud{}, fmt.Errorf("crud %s: encode headers: %w", name, err)
	}

	id := cfg.ID()
	idAccess := "params." + id
	if !naming.IsIdentifier(id) {
		idAccess = "params[" + tsformat.Quote(id) + "]"
	}
	base := strings.TrimRight(cfg.BasePath, "/")

	data := crudData{
		Name:            name,
		Entity:          entity,
		BasePathComment: oneLine(cfg.BasePath),
		IDComment:       oneLine(id),
		IDKey:           typegen.PropKey(id),
		IDQuoted:        tsformat.Quote(id),
		BasePath:        templateEscaper.Replace(base),
		ListPath:        collectionPath(cfg.ListEndpoint, base),
		CreatePath:      collectionPath(cfg.CreateEndpoint, base),
		UpdatePath:      itemPath(cfg.UpdateEndpoint, base, id, idAccess),
		DeletePath:      itemPath(cfg.DeleteEndpoint, base, id, idAccess),
		DetailPath:      itemPath(cfg.DetailEndpoint, base, id, idAccess),
		BaseURL:         tsformat.Quote(d.BaseURL),
		Timeout:         d.Timeout,
		Headers:         string(hdrJSON),
		WithCredentials: d.WithCredentials,
	}

	content, err := render("crud.ts.tmpl", data)
	if err != nil {
		return Crud{}, fmt.Errorf("crud %s: %w", name, err)
	}
	g.logger.Debug("rendered crud", zap.String("class", name), zap.String("basePath", cfg.BasePath))
	return Crud{
		Name:     name,
		FileName: naming.Kebab(name) + ".ts",
		Content:  content,
		Methods:  append([]string(nil), Methods...),
	}, nil
}

var templateEscaper = strings.NewReplacer("`", "\\`", `\`, `\\`, "${", "\\${")

func collectionPath(override, base string) string {
	if override != "" {
		return templateEscaper.Replace(override)
	}
	if base == "" {
		return "/"
	}
	return templateEscaper.Replace(base)
}

// itemPath addresses a single record. An override containing {id} has the
// placeholder substituted; otherwise the id is appended as a path segment.
func itemPath(override, base, id, idAccess string) string {
	p := base
	if override != "" {
		p = override
	}
	p = templateEscaper.Replace(p)
	placeholder := "{" + id + "}"
	if strings.Contains(p, placeholder) {
		return strings.ReplaceAll(p, placeholder, "${"+idAccess+"}")
	}
	return strings.TrimRight(p, "/") + "/${" + idAccess + "}"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return tsformat.Format(strings.TrimLeft(buf.String(), "\n")), nil
}

// GenerateIndex renders cruds/index.ts with named exports and a cruds
// registry object.
func (g *Generator) GenerateIndex(cruds []Crud) (string, error) {
	sorted := append([]Crud(nil), cruds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return render("index.ts.tmpl", sorted)
}

// CrossCheck reports when no discovered endpoint lives under the entity's
// base path. The result is advisory and never blocks generation.
func CrossCheck(endpoints []spec.Endpoint, cfg config.CrudConfig) []string {
	base := strings.TrimRight(cfg.BasePath, "/")
	for _, ep := range endpoints {
		p := strings.TrimRight(ep.Path, "/")
		if p == base || strings.HasPrefix(p, base+"/") {
			return nil
		}
	}
	return []string{fmt.Sprintf("crud %s: no endpoint found under %s", cfg.EntityName, cfg.BasePath)}
}
