package spec

// Parsed API model shared by the generators.

type HttpMethod string

const (
	GET    HttpMethod = "GET"
	POST   HttpMethod = "POST"
	PUT    HttpMethod = "PUT"
	DELETE HttpMethod = "DELETE"
	PATCH  HttpMethod = "PATCH"
)

// supportedMethods lists the operation keys read from a path item, in emit order.
var supportedMethods = []HttpMethod{GET, POST, PUT, DELETE, PATCH}

// Parameter locations.
const (
	InPath     = "path"
	InQuery    = "query"
	InHeader   = "header"
	InBody     = "body"
	InFormData = "formData"
	InCookie   = "cookie"
)

// DefaultTag groups endpoints that declare no tags.
const DefaultTag = "default"

type Endpoint struct {
	Path        string
	Method      HttpMethod
	Summary     string
	Description string
	Parameters  []Parameter
	Responses   []Response
	Tags        []string
	OperationID string
	Security    []string
}

// ParametersIn returns the endpoint parameters declared in the given location,
// preserving document order.
func (e Endpoint) ParametersIn(in string) []Parameter {
	var out []Parameter
	for _, p := range e.Parameters {
		if p.In == in {
			out = append(out, p)
		}
	}
	return out
}

type Parameter struct {
	Name        string
	In          string
	Required    bool
	Type        string
	Schema      *Schema
	Description string
	Format      string
}

type Response struct {
	Code        string
	Description string
	Schema      *Schema
	Headers     map[string]any
}

// Schema is the structural type description found under definitions,
// components.schemas, parameter schemas and response schemas.
type Schema struct {
	Type        string             `mapstructure:"type"`
	Format      string             `mapstructure:"format"`
	Description string             `mapstructure:"description"`
	Properties  map[string]*Schema `mapstructure:"properties"`
	Required    []string           `mapstructure:"required"`
	Items       *Schema            `mapstructure:"items"`
	Ref         string             `mapstructure:"$ref"`
	Enum        []any              `mapstructure:"enum"`
	Default     any                `mapstructure:"default"`
	AllOf       []*Schema          `mapstructure:"allOf"`
	AnyOf       []*Schema          `mapstructure:"anyOf"`
	OneOf       []*Schema          `mapstructure:"oneOf"`
}

// IsRequired reports whether prop is listed in the schema's required list.
func (s *Schema) IsRequired(prop string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == prop {
			return true
		}
	}
	return false
}

type Info struct {
	Title       string `mapstructure:"title"`
	Version     string `mapstructure:"version"`
	Description string `mapstructure:"description"`
}

type Components struct {
	Schemas         map[string]*Schema `mapstructure:"schemas"`
	SecuritySchemes map[string]any     `mapstructure:"securitySchemes"`
}

// Definition is the document root. Paths keeps the raw path items so that
// method keys can be matched case-insensitively.
type Definition struct {
	Swagger     string                    `mapstructure:"swagger"`
	OpenAPI     string                    `mapstructure:"openapi"`
	Info        *Info                     `mapstructure:"info"`
	Paths       map[string]map[string]any `mapstructure:"paths"`
	Definitions map[string]*Schema        `mapstructure:"definitions"`
	Components  *Components               `mapstructure:"components"`

	hasInfo  bool
	hasPaths bool
}
