package spec

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Settings configures parser behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	Logger      *zap.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{HTTPTimeout: 30 * time.Second}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithLogger(l *zap.Logger) Option { return func(s *Settings) { s.Logger = l } }

// Parser turns API description documents into Documents. It holds no
// per-document state and may be reused.
type Parser struct {
	client *resty.Client
	logger *zap.Logger
}

func NewParser(opts ...Option) *Parser {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	client := resty.New()
	if settings.HTTPTimeout > 0 {
		client.SetTimeout(settings.HTTPTimeout)
	}
	logger := settings.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{client: client, logger: logger.Named("spec")}
}

// ParseFromMock parses an in-memory document. Values may be any mix of Go
// maps, slices and scalars; they are normalised through YAML first.
func (p *Parser) ParseFromMock(doc map[string]any) (*Document, error) {
	if doc == nil {
		return nil, &SpecError{Code: ParseError, Message: "spec: mock document is nil", Location: "mock"}
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: "spec: encode mock document: " + err.Error(), Location: "mock", Cause: err}
	}
	raw, err := decodeRaw(data)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: "mock", Cause: err}
	}
	return p.newDocument(raw, "mock")
}

func (p *Parser) newDocument(raw map[string]any, location string) (*Document, error) {
	d := &decoder{root: raw, logger: p.logger}
	def, err := d.definition()
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: "spec: " + err.Error(), Location: location, JSONPointer: "#/paths", Cause: err}
	}
	doc := &Document{Definition: def, Location: location, Endpoints: d.endpoints(def)}
	p.logger.Debug("parsed document",
		zap.String("location", location),
		zap.Int("endpoints", len(doc.Endpoints)),
		zap.Int("schemas", len(doc.Schemas())))
	return doc, nil
}

// Document is the immutable result of one parse.
type Document struct {
	Definition *Definition
	Endpoints  []Endpoint
	// Location is the file path, URL or "mock" the document came from.
	Location string
}

// Schemas returns components.schemas when present, else definitions, else
// an empty map.
func (d *Document) Schemas() map[string]*Schema {
	if d == nil || d.Definition == nil {
		return map[string]*Schema{}
	}
	if c := d.Definition.Components; c != nil && c.Schemas != nil {
		return c.Schemas
	}
	if d.Definition.Definitions != nil {
		return d.Definition.Definitions
	}
	return map[string]*Schema{}
}

func (d *Document) Info() *Info {
	if d == nil || d.Definition == nil {
		return nil
	}
	return d.Definition.Info
}

func (d *Document) SecuritySchemes() map[string]any {
	if d == nil || d.Definition == nil || d.Definition.Components == nil {
		return nil
	}
	return d.Definition.Components.SecuritySchemes
}

// Validate reports whether the root declares both info and paths.
func (d *Document) Validate() bool {
	return d != nil && d.Definition != nil && d.Definition.hasInfo && d.Definition.hasPaths
}

// GroupEndpointsByTag groups endpoints by each of their tags. Untagged
// endpoints go under DefaultTag. An endpoint appears at most once per group.
func GroupEndpointsByTag(endpoints []Endpoint) map[string][]Endpoint {
	groups := make(map[string][]Endpoint)
	for _, ep := range endpoints {
		tags := ep.Tags
		if len(tags) == 0 {
			tags = []string{DefaultTag}
		}
		seen := make(map[string]bool, len(tags))
		for _, tag := range tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			groups[tag] = append(groups[tag], ep)
		}
	}
	return groups
}
