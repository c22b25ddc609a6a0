// Package servicegen renders one axios-based service class per API tag.
package servicegen

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

	"github.com/btcsaas/eps-generator/internal/generator/typegen"
	"github.com/btcsaas/eps-generator/internal/naming"
	"github.com/btcsaas/eps-generator/internal/spec"
	"github.com/btcsaas/eps-generator/internal/tsformat"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"camel":   naming.Camel,
	"trimExt": func(name string) string { return strings.TrimSuffix(name, path.Ext(name)) },
}).ParseFS(templateFS, "templates/*.tmpl"))

// Config carries the client defaults baked into every service constructor.
type Config struct {
	BaseURL         string
	Timeout         int
	Headers         map[string]string
	WithCredentials bool
	// Types lists the schema type names exported from ../types. Parameters
	// that refer to anything else are typed as any.
	Types []string
	// OperationTypes reports whether ../types exports the <Op>Response types.
	OperationTypes bool
}

// Service is one generated service class file.
type Service struct {
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
	g.logger = g.logger.Named("servicegen")
	return g
}

// Generate groups endpoints by tag and renders one service per tag, in tag
// order. Name collisions and render failures are reported in the joined
// error; the services that did render are still returned.
func (g *Generator) Generate(endpoints []spec.Endpoint, cfg Config) ([]Service, error) {
	groups := spec.GroupEndpointsByTag(endpoints)
	tags := make([]string, 0, len(groups))
	for tag := range groups {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	known := make(map[string]bool, len(cfg.Types))
	for _, t := range cfg.Types {
		known[t] = true
	}

	classes := naming.NewRegistry("service")
	files := naming.NewRegistry("service file")
	_ = files.Claim("index", "services index")

	var errs []error
	var services []Service
	for _, tag := range tags {
		name := naming.Pascal(tag) + "Service"
		if !naming.IsIdentifier(name) {
			errs = append(errs, fmt.Errorf("tag %q does not form a valid class name; skipped", tag))
			continue
		}
		fileName := naming.Kebab(name)
		if err := classes.Claim(name, "tag "+tag); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := files.Claim(fileName, "tag "+tag); err != nil {
			errs = append(errs, err)
			continue
		}
		svc, err := g.service(name, fileName+".ts", groups[tag], cfg, known)
		if err != nil {
			errs = append(errs, fmt.Errorf("service %s: %w", name, err))
		}
		if svc.Content != "" {
			services = append(services, svc)
		}
	}
	return services, errors.Join(errs...)
}

type serviceData struct {
	Name            string
	Imports         []string
	BaseURL         string
	Timeout         int
	Headers         string
	WithCredentials bool
	Methods         []methodData
}

type methodData struct {
	Operation     string
	Summary       string
	Signature     string
	ResponseType  string
	HTTPMethod    string
	URL           string
	Data          string
	QueryAsParams bool
}

func (g *Generator) service(name, fileName string, endpoints []spec.Endpoint, cfg Config, known map[string]bool) (Service, error) {
	headers := cfg.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	hdrJSON, err := json.Marshal(headers)
	if err != nil {
		return Service{}, fmt.Errorf("encode headers: %w", err)
	}
	data := serviceData{
		Name:            name,
		BaseURL:         tsformat.Quote(cfg.BaseURL),
		Timeout:         cfg.Timeout,
		Headers:         string(hdrJSON),
		WithCredentials: cfg.WithCredentials,
	}

	var errs []error
	methods := naming.NewRegistry("method in " + name)
	imports := map[string]bool{}
	var methodNames []string
	for _, ep := range endpoints {
		op := naming.OperationName(ep)
		methodName := naming.Camel(op)
		if !naming.IsIdentifier(methodName) {
			errs = append(errs, fmt.Errorf("%s %s: %q does not form a valid method name; skipped", ep.Method, ep.Path, methodName))
			continue
		}
		if err := methods.Claim(methodName, string(ep.Method)+" "+ep.Path); err != nil {
			g.logger.Warn("skipping duplicate method", zap.String("service", name), zap.String("method", methodName))
			errs = append(errs, err)
			continue
		}
		m := buildMethod(op, ep, cfg, known, imports)
		data.Methods = append(data.Methods, m)
		methodNames = append(methodNames, methodName)
	}
	for t := range imports {
		data.Imports = append(data.Imports, t)
	}
	sort.Strings(data.Imports)

	content, err := render("service.ts.tmpl", data)
	if err != nil {
		return Service{}, errors.Join(append(errs, err)...)
	}
	return Service{Name: name, FileName: fileName, Content: content, Methods: methodNames}, errors.Join(errs...)
}

type arg struct {
	name     string
	typ      string
	optional bool
}

func buildMethod(op string, ep spec.Endpoint, cfg Config, known, imports map[string]bool) methodData {
	pathParams := ep.ParametersIn(spec.InPath)
	queryParams := ep.ParametersIn(spec.InQuery)
	bodyParams := ep.ParametersIn(spec.InBody)

	var args []arg
	if len(pathParams) > 0 {
		args = append(args, arg{name: "pathParams", typ: objectType(pathParams, true, known, imports)})
	}
	if len(queryParams) > 0 {
		allRequired := true
		for _, p := range queryParams {
			allRequired = allRequired && p.Required
		}
		args = append(args, arg{name: "queryParams", typ: objectType(queryParams, false, known, imports), optional: !allRequired})
	}
	if len(bodyParams) > 0 {
		args = append(args, arg{name: "body", typ: paramType(bodyParams[0], known, imports), optional: !bodyParams[0].Required})
	}
	args = append(args, arg{name: "config", typ: "AxiosRequestConfig", optional: true})

	m := methodData{
		Operation:    op,
		Summary:      summary(ep),
		Signature:    signature(args),
		ResponseType: "any",
		HTTPMethod:   string(ep.Method),
		URL:          urlTemplate(ep.Path, pathParams),
		Data:         "undefined",
	}
	if cfg.OperationTypes {
		if base, ok := typegen.OperationTypeBase(op, known); ok {
			m.ResponseType = base + "Response"
			imports[m.ResponseType] = true
		}
	}
	switch {
	case ep.Method == spec.GET && len(queryParams) > 0:
		m.Data = "queryParams"
	case ep.Method != spec.GET && len(bodyParams) > 0:
		m.Data = "body"
	}
	m.QueryAsParams = ep.Method != spec.GET && len(queryParams) > 0
	return m
}

// signature renders the argument list. An optional argument followed by a
// required one is emitted as `T | undefined`.
func signature(args []arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		laterRequired := false
		for _, b := range args[i+1:] {
			laterRequired = laterRequired || !b.optional
		}
		switch {
		case a.optional && laterRequired:
			parts[i] = fmt.Sprintf("%s: %s | undefined", a.name, a.typ)
		case a.optional:
			parts[i] = fmt.Sprintf("%s?: %s", a.name, a.typ)
		default:
			parts[i] = fmt.Sprintf("%s: %s", a.name, a.typ)
		}
	}
	return strings.Join(parts, ", ")
}

func objectType(params []spec.Parameter, forceRequired bool, known, imports map[string]bool) string {
	fields := make([]string, 0, len(params))
	for _, p := range params {
		opt := "?"
		if p.Required || forceRequired {
			opt = ""
		}
		fields = append(fields, fmt.Sprintf("%s%s: %s", typegen.PropKey(p.Name), opt, paramType(p, known, imports)))
	}
	return "{ " + strings.Join(fields, "; ") + " }"
}

// paramType renders a parameter type, falling back to any when it refers to
// a type that ../types does not export.
func paramType(p spec.Parameter, known, imports map[string]bool) string {
	expr, refs := typegen.ParamExpr(p)
	for _, r := range refs {
		if !known[r] {
			return "any"
		}
	}
	for _, r := range refs {
		imports[r] = true
	}
	return expr
}

var templateEscaper = strings.NewReplacer("`", "\\`", `\`, `\\`, "${", "\\${")

// urlTemplate turns /users/{id} into the body of a template literal,
// /users/${pathParams.id}.
func urlTemplate(p string, params []spec.Parameter) string {
	out := templateEscaper.Replace(p)
	for _, param := range params {
		access := "pathParams." + param.Name
		if !naming.IsIdentifier(param.Name) {
			access = "pathParams[" + tsformat.Quote(param.Name) + "]"
		}
		out = strings.ReplaceAll(out, "{"+param.Name+"}", "${"+access+"}")
	}
	return out
}

func summary(ep spec.Endpoint) string {
	s := ep.Summary
	if s == "" {
		s = ep.Description
	}
	if s == "" {
		s = string(ep.Method) + " " + ep.Path
	}
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "*/", `*\/`)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return tsformat.Format(strings.TrimLeft(buf.String(), "\n")), nil
}

// GenerateIndex renders services/index.ts with named exports and a services
// registry object.
func (g *Generator) GenerateIndex(services []Service) (string, error) {
	sorted := append([]Service(nil), services...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return render("index.ts.tmpl", sorted)
}
