// Package eps drives a full generation run: parse the API document, render
// types, services and CRUD clients, then write them with an aggregating
// index.ts.
package eps

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/btcsaas/eps-generator/internal/config"
	"github.com/btcsaas/eps-generator/internal/emitter"
	"github.com/btcsaas/eps-generator/internal/generator/crudgen"
	"github.com/btcsaas/eps-generator/internal/generator/servicegen"
	"github.com/btcsaas/eps-generator/internal/generator/typegen"
	"github.com/btcsaas/eps-generator/internal/spec"
	"github.com/btcsaas/eps-generator/internal/tsformat"
)

// Version is stamped into every generated index.ts.
const Version = "1.0.0"

const generatedAtLayout = "2006-01-02T15:04:05.000Z"

//go:embed templates/index.ts.tmpl
var indexTemplateText string

var indexTemplate = template.Must(template.New("index").Parse(indexTemplateText))

// Stats counts what a run produced.
type Stats struct {
	Endpoints int
	Types     int
	Services  int
	Cruds     int
}

// Result summarises a run. Errors is only populated when the document could
// not be used at all; stage problems end up in Warnings.
type Result struct {
	Success  bool
	API      string // document title and version
	Files    []string
	Errors   []string
	Warnings []string
	Stats    Stats
	DryRun   bool
}

func newResult() *Result {
	return &Result{Files: []string{}, Errors: []string{}, Warnings: []string{}}
}

// Generator owns one parser and one instance of each stage generator.
type Generator struct {
	parser   *spec.Parser
	types    *typegen.Generator
	services *servicegen.Generator
	cruds    *crudgen.Generator

	logger     *zap.Logger
	clock      func() time.Time
	dryRun     bool
	parserOpts []spec.Option
}

type Option func(*Generator)

// WithClock replaces time.Now for the generation timestamp.
func WithClock(clock func() time.Time) Option { return func(g *Generator) { g.clock = clock } }

func WithLogger(l *zap.Logger) Option { return func(g *Generator) { g.logger = l } }

// WithDryRun makes runs report the files they would write without writing.
func WithDryRun(dryRun bool) Option { return func(g *Generator) { g.dryRun = dryRun } }

// WithParserOptions forwards options to the document parser.
func WithParserOptions(opts ...spec.Option) Option {
	return func(g *Generator) { g.parserOpts = append(g.parserOpts, opts...) }
}

func New(opts ...Option) *Generator {
	g := &Generator{logger: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	g.parser = spec.NewParser(append([]spec.Option{spec.WithLogger(g.logger)}, g.parserOpts...)...)
	g.types = typegen.New(typegen.WithLogger(g.logger))
	g.services = servicegen.New(servicegen.WithLogger(g.logger))
	g.cruds = crudgen.New(crudgen.WithLogger(g.logger))
	g.logger = g.logger.Named("eps")
	return g
}

// ValidateConfig reports every rule cfg breaks.
func ValidateConfig(cfg *config.Config) config.ValidationResult {
	return config.Validate(cfg)
}

// GenerateFromURL fetches the document at url and generates from it.
func (g *Generator) GenerateFromURL(ctx context.Context, url string, cfg *config.Config) (*Result, error) {
	g.logger.Info("generating from url", zap.String("url", url))
	doc, err := g.parser.ParseFromURL(ctx, url)
	return g.run(doc, err, cfg)
}

// GenerateFromFile loads a local document and generates from it.
func (g *Generator) GenerateFromFile(ctx context.Context, path string, cfg *config.Config) (*Result, error) {
	g.logger.Info("generating from file", zap.String("file", path))
	doc, err := g.parser.ParseFromFile(ctx, path)
	return g.run(doc, err, cfg)
}

// GenerateFromMock generates from an in-memory document.
func (g *Generator) GenerateFromMock(_ context.Context, mock map[string]any, cfg *config.Config) (*Result, error) {
	g.logger.Info("generating from mock document")
	doc, err := g.parser.ParseFromMock(mock)
	return g.run(doc, err, cfg)
}

// run turns a parse outcome into a Result. The returned error is reserved
// for failures writing the output.
func (g *Generator) run(doc *spec.Document, parseErr error, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, errors.New("eps: config is required")
	}
	if parseErr != nil {
		g.logger.Error("parse failed", zap.Error(parseErr))
		return failed(describe(parseErr)), nil
	}
	if len(doc.Endpoints) == 0 {
		g.logger.Error("no endpoints", zap.String("location", doc.Location))
		return failed("no API endpoints found in " + doc.Location), nil
	}
	return g.generate(doc, cfg)
}

// describe renders a parse error with the document location and JSON
// pointer when the parser supplied them.
func describe(err error) string {
	var se *spec.SpecError
	if !errors.As(err, &se) {
		return err.Error()
	}
	msg := se.Message
	if se.Location != "" && !strings.Contains(msg, se.Location) {
		msg += "\nLocation: " + se.Location
	}
	if se.JSONPointer != "" {
		msg += "\nPointer: " + se.JSONPointer
	}
	switch {
	case spec.IsCode(err, spec.FileNotFoundError):
		msg += "\nHint: check the --file path."
	case spec.IsCode(err, spec.FetchError):
		msg += "\nHint: check that the URL is reachable and serves JSON or YAML."
	}
	return msg
}

func failed(msg string) *Result {
	res := newResult()
	res.Errors = append(res.Errors, msg)
	return res
}

type session struct {
	res *Result
	w   *emitter.Writer
}

func (r *session) write(rel, content string) error {
	_, err := r.w.Write(rel, []byte(content))
	return err
}

// warn records each error joined into err as its own warning.
func (r *session) warn(stage string, err error) {
	if err == nil {
		return
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		r.res.Warnings = append(r.res.Warnings, fmt.Sprintf("%s: %v", stage, e))
	}
}

func (g *Generator) generate(doc *spec.Document, cfg *config.Config) (*Result, error) {
	w, err := emitter.New(cfg.OutputDir, emitter.WithDryRun(g.dryRun), emitter.WithLogger(g.logger))
	if err != nil {
		return nil, err
	}
	r := &session{res: newResult(), w: w}
	r.res.Success = true
	r.res.DryRun = w.DryRun()
	r.res.API = apiName(doc.Info())
	r.res.Stats.Endpoints = len(doc.Endpoints)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	var typeNames []string
	if cfg.TypesEnabled() {
		types, err := g.types.Generate(doc.Schemas())
		r.warn("types", err)
		ops, err := g.types.GenerateOperationTypes(doc.Endpoints, types)
		r.warn("operation types", err)

		for _, t := range types {
			if err := r.write("types/"+t.FileName, t.Content); err != nil {
				return nil, err
			}
			typeNames = append(typeNames, t.Name)
		}
		if err := r.write("types/"+ops.FileName, ops.Content); err != nil {
			return nil, err
		}
		if err := r.write("types/index.ts", g.types.GenerateIndex(append(types, ops))); err != nil {
			return nil, err
		}
		r.res.Stats.Types = len(types)
	}

	if cfg.ServicesEnabled() {
		services, err := g.services.Generate(doc.Endpoints, servicegen.Config{
			BaseURL:         cfg.BaseURL,
			Timeout:         timeout,
			Headers:         cfg.Headers,
			WithCredentials: cfg.WithCredentials,
			Types:           typeNames,
			OperationTypes:  cfg.TypesEnabled(),
		})
		r.warn("services", err)
		for _, s := range services {
			if err := r.write("services/"+s.FileName, s.Content); err != nil {
				return nil, err
			}
		}
		idx, err := g.services.GenerateIndex(services)
		if err != nil {
			r.warn("services index", err)
		} else if err := r.write("services/index.ts", idx); err != nil {
			return nil, err
		}
		r.res.Stats.Services = len(services)
	}

	if cfg.CrudEnabled() {
		for _, c := range cfg.CrudConfigs {
			r.res.Warnings = append(r.res.Warnings, crudgen.CrossCheck(doc.Endpoints, c)...)
		}
		cruds, err := g.cruds.Generate(cfg.CrudConfigs, crudgen.Defaults{
			BaseURL:         cfg.BaseURL,
			Timeout:         timeout,
			Headers:         cfg.Headers,
			WithCredentials: cfg.WithCredentials,
		})
		r.warn("cruds", err)
		for _, c := range cruds {
			if err := r.write("cruds/"+c.FileName, c.Content); err != nil {
				return nil, err
			}
		}
		idx, err := g.cruds.GenerateIndex(cruds)
		if err != nil {
			r.warn("cruds index", err)
		} else if err := r.write("cruds/index.ts", idx); err != nil {
			return nil, err
		}
		r.res.Stats.Cruds = len(cruds)
	}

	index, err := g.indexFile(cfg, timeout)
	if err != nil {
		r.warn("index", err)
	} else if err := r.write("index.ts", index); err != nil {
		return nil, err
	}

	for _, f := range w.Planned() {
		r.res.Files = append(r.res.Files, f.Path)
	}

	g.logger.Info("generation complete",
		zap.String("api", r.res.API),
		zap.String("output", w.Root()),
		zap.Int("securitySchemes", len(doc.SecuritySchemes())),
		zap.Int("files", len(r.res.Files)),
		zap.Int("endpoints", r.res.Stats.Endpoints),
		zap.Int("types", r.res.Stats.Types),
		zap.Int("services", r.res.Stats.Services),
		zap.Int("cruds", r.res.Stats.Cruds),
		zap.Int("warnings", len(r.res.Warnings)),
		zap.Bool("dryRun", r.res.DryRun))
	return r.res, nil
}

func apiName(info *spec.Info) string {
	if info == nil {
		return ""
	}
	return strings.TrimSpace(oneLine(info.Title) + " " + oneLine(info.Version))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type indexData struct {
	BaseURLComment  string
	Types           bool
	Services        bool
	Cruds           bool
	BaseURL         string
	Timeout         int
	Headers         string
	WithCredentials bool
	Version         string
	GeneratedAt     string
}

func (g *Generator) indexFile(cfg *config.Config, timeout int) (string, error) {
	headers := cfg.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	hdrJSON, err := json.Marshal(headers)
	if err != nil {
		return "", fmt.Errorf("encode headers: %w", err)
	}
	data := indexData{
		BaseURLComment:  oneLine(cfg.BaseURL),
		Types:           cfg.TypesEnabled(),
		Services:        cfg.ServicesEnabled(),
		Cruds:           cfg.CrudEnabled(),
		BaseURL:         tsformat.Quote(cfg.BaseURL),
		Timeout:         timeout,
		Headers:         string(hdrJSON),
		WithCredentials: cfg.WithCredentials,
		Version:         tsformat.Quote(Version),
		GeneratedAt:     tsformat.Quote(g.clock().UTC().Format(generatedAtLayout)),
	}
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render index: %w", err)
	}
	return tsformat.Format(buf.String()), nil
}
