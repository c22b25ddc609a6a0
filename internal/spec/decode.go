package spec

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// decodeRaw decodes a JSON or YAML document into a generic map with string keys.
func decodeRaw(data []byte) (map[string]any, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if root == nil {
		return nil, errors.New("parse document: document is empty")
	}
	m, ok := stringKeys(root).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse document: root is %T, want an object", root)
	}
	return m, nil
}

// stringKeys converts YAML mappings with non-string keys (e.g. unquoted
// response codes) into map[string]any, recursively.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	}
	return v
}

// typeListHook accepts OpenAPI 3.1 style `type: [string, "null"]` by keeping
// the first non-null entry.
func typeListHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || from.Kind() != reflect.Slice {
		return data, nil
	}
	list, ok := data.([]any)
	if !ok {
		return data, nil
	}
	for _, v := range list {
		if s, ok := v.(string); ok && s != "null" {
			return s, nil
		}
	}
	return "", nil
}

func decodeInto(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       typeListHook,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func decodeSchema(v any) (*Schema, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, fmt.Errorf("schema is %T, want an object", v)
	}
	var s Schema
	if err := decodeInto(v, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

type rawOperation struct {
	Summary     string           `mapstructure:"summary"`
	Description string           `mapstructure:"description"`
	OperationID string           `mapstructure:"operationId"`
	Tags        []string         `mapstructure:"tags"`
	Parameters  []any            `mapstructure:"parameters"`
	RequestBody map[string]any   `mapstructure:"requestBody"`
	Responses   map[string]any   `mapstructure:"responses"`
	Security    []map[string]any `mapstructure:"security"`
}

type rawParameter struct {
	Name        string `mapstructure:"name"`
	In          string `mapstructure:"in"`
	Required    bool   `mapstructure:"required"`
	Type        string `mapstructure:"type"`
	Format      string `mapstructure:"format"`
	Description string `mapstructure:"description"`
	Schema      any    `mapstructure:"schema"`
}

// decoder turns a raw document map into the model. Malformed sub-objects are
// skipped and logged at debug level.
type decoder struct {
	root   map[string]any
	logger *zap.Logger
}

func (d *decoder) definition() (*Definition, error) {
	def := &Definition{
		Swagger: scalar(d.root["swagger"]),
		OpenAPI: scalar(d.root["openapi"]),
	}
	var rawPaths any
	_, def.hasInfo = d.root["info"]
	rawPaths, def.hasPaths = d.root["paths"]

	if m, ok := d.root["info"].(map[string]any); ok {
		var info Info
		if err := decodeInto(m, &info); err != nil {
			d.logger.Debug("skip malformed info", zap.Error(err))
		} else {
			def.Info = &info
		}
	}

	if rawPaths != nil {
		pm, ok := rawPaths.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("paths is %T, want an object", rawPaths)
		}
		def.Paths = make(map[string]map[string]any, len(pm))
		for path, v := range pm {
			item, ok := v.(map[string]any)
			if !ok {
				d.logger.Debug("skip malformed path item", zap.String("path", path))
				continue
			}
			def.Paths[path] = item
		}
	}

	if m, ok := d.root["definitions"].(map[string]any); ok {
		def.Definitions = d.schemas(m, "#/definitions")
	}
	if m, ok := d.root["components"].(map[string]any); ok {
		def.Components = &Components{}
		if s, ok := m["schemas"].(map[string]any); ok {
			def.Components.Schemas = d.schemas(s, "#/components/schemas")
		}
		if s, ok := m["securitySchemes"].(map[string]any); ok {
			def.Components.SecuritySchemes = s
		}
	}
	return def, nil
}

func (d *decoder) schemas(m map[string]any, at string) map[string]*Schema {
	out := make(map[string]*Schema, len(m))
	for name, v := range m {
		s, err := decodeSchema(v)
		if err != nil || s == nil {
			d.logger.Debug("skip malformed schema", zap.String("pointer", at+"/"+name), zap.Error(err))
			continue
		}
		out[name] = s
	}
	return out
}

// endpoints walks paths in sorted order and methods in get, post, put,
// delete, patch order.
func (d *decoder) endpoints(def *Definition) []Endpoint {
	paths := make([]string, 0, len(def.Paths))
	for p := range def.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []Endpoint
	for _, path := range paths {
		item := def.Paths[path]
		byMethod := make(map[HttpMethod]map[string]any)
		keys := make([]string, 0, len(item))
		for k := range item {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m := HttpMethod(strings.ToUpper(k))
			if !isSupportedMethod(m) {
				continue
			}
			if _, dup := byMethod[m]; dup {
				continue
			}
			op, ok := item[k].(map[string]any)
			if !ok {
				d.logger.Debug("skip malformed operation", zap.String("path", path), zap.String("method", k))
				continue
			}
			byMethod[m] = op
		}

		shared := d.parameters(item["parameters"], path)
		for _, m := range supportedMethods {
			op, ok := byMethod[m]
			if !ok {
				continue
			}
			ep, err := d.endpoint(path, m, op, shared)
			if err != nil {
				d.logger.Debug("skip malformed operation", zap.String("path", path), zap.String("method", string(m)), zap.Error(err))
				continue
			}
			out = append(out, ep)
		}
	}
	return out
}

func isSupportedMethod(m HttpMethod) bool {
	for _, s := range supportedMethods {
		if s == m {
			return true
		}
	}
	return false
}

func (d *decoder) endpoint(path string, method HttpMethod, raw map[string]any, shared []Parameter) (Endpoint, error) {
	var op rawOperation
	if err := decodeInto(raw, &op); err != nil {
		return Endpoint{}, err
	}
	ep := Endpoint{
		Path:        path,
		Method:      method,
		Summary:     op.Summary,
		Description: op.Description,
		OperationID: op.OperationID,
		Tags:        op.Tags,
	}

	ep.Parameters = mergeParameters(d.parameters(op.Parameters, path), shared)
	if body := d.requestBody(op.RequestBody); body != nil && len(ep.ParametersIn(InBody)) == 0 {
		ep.Parameters = append(ep.Parameters, *body)
	}
	ep.Responses = d.responses(op.Responses)

	security := op.Security
	if _, declared := raw["security"]; !declared {
		if global, ok := d.root["security"].([]any); ok {
			for _, g := range global {
				if m, ok := g.(map[string]any); ok {
					security = append(security, m)
				}
			}
		}
	}
	if len(security) > 0 {
		for name := range security[0] {
			ep.Security = append(ep.Security, name)
		}
		sort.Strings(ep.Security)
	}
	return ep, nil
}

// mergeParameters keeps operation parameters in order and appends path-level
// ones that the operation does not override on in+name.
func mergeParameters(own, shared []Parameter) []Parameter {
	if len(shared) == 0 {
		return own
	}
	seen := make(map[string]bool, len(own))
	for _, p := range own {
		seen[p.In+"|"+p.Name] = true
	}
	out := append([]Parameter(nil), own...)
	for _, p := range shared {
		if !seen[p.In+"|"+p.Name] {
			out = append(out, p)
		}
	}
	return out
}

func (d *decoder) parameters(v any, path string) []Parameter {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Parameter, 0, len(list))
	for i, item := range list {
		m, ok := d.deref(item).(map[string]any)
		if !ok {
			d.logger.Debug("skip malformed parameter", zap.String("path", path), zap.Int("index", i))
			continue
		}
		var rp rawParameter
		if err := decodeInto(m, &rp); err != nil {
			d.logger.Debug("skip malformed parameter", zap.String("path", path), zap.Int("index", i), zap.Error(err))
			continue
		}
		p := Parameter{
			Name:        rp.Name,
			In:          rp.In,
			Required:    rp.Required,
			Type:        rp.Type,
			Format:      rp.Format,
			Description: rp.Description,
		}
		if s, err := decodeSchema(rp.Schema); err != nil {
			d.logger.Debug("ignore malformed parameter schema", zap.String("param", rp.Name), zap.Error(err))
		} else {
			p.Schema = s
		}
		if p.Schema != nil {
			if p.Type == "" {
				p.Type = p.Schema.Type
			}
			if p.Format == "" {
				p.Format = p.Schema.Format
			}
		}
		if p.Type == "" {
			p.Type = "object"
		}
		out = append(out, p)
	}
	return out
}

// requestBody converts an OpenAPI 3 requestBody into a synthetic body parameter.
func (d *decoder) requestBody(rb map[string]any) *Parameter {
	if rb == nil {
		return nil
	}
	if m, ok := d.deref(rb).(map[string]any); ok {
		rb = m
	}
	p := &Parameter{Name: "body", In: InBody, Type: "object", Description: scalar(rb["description"])}
	p.Required, _ = rb["required"].(bool)
	if media := pickMedia(rb["content"]); media != nil {
		s, err := decodeSchema(media["schema"])
		if err != nil {
			d.logger.Debug("ignore malformed request body schema", zap.Error(err))
		}
		p.Schema = s
		if s != nil && s.Type != "" {
			p.Type = s.Type
		}
	}
	return p
}

func (d *decoder) responses(m map[string]any) []Response {
	codes := make([]string, 0, len(m))
	for c := range m {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	out := make([]Response, 0, len(codes))
	for _, code := range codes {
		rm, ok := d.deref(m[code]).(map[string]any)
		if !ok {
			d.logger.Debug("skip malformed response", zap.String("code", code))
			continue
		}
		r := Response{Code: code, Description: scalar(rm["description"])}
		schema := rm["schema"]
		if media := pickMedia(rm["content"]); media != nil {
			schema = media["schema"]
		}
		s, err := decodeSchema(schema)
		if err != nil {
			d.logger.Debug("ignore malformed response schema", zap.String("code", code), zap.Error(err))
		}
		r.Schema = s
		if h, ok := rm["headers"].(map[string]any); ok {
			r.Headers = h
		}
		out = append(out, r)
	}
	return out
}

// pickMedia selects application/json, then any JSON media type, then the first
// media type in sorted order.
func pickMedia(v any) map[string]any {
	content, ok := v.(map[string]any)
	if !ok || len(content) == 0 {
		return nil
	}
	types := make([]string, 0, len(content))
	for t := range content {
		types = append(types, t)
	}
	sort.Strings(types)
	chosen := types[0]
	if _, ok := content["application/json"]; ok {
		chosen = "application/json"
	} else {
		for _, t := range types {
			if strings.Contains(t, "json") {
				chosen = t
				break
			}
		}
	}
	media, _ := content[chosen].(map[string]any)
	return media
}

// deref follows a local "$ref" on parameter, request body and response
// objects. Schema refs are kept as references.
func (d *decoder) deref(v any) any {
	for i := 0; i < 8; i++ {
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		ref, ok := m["$ref"].(string)
		if !ok {
			return v
		}
		target, found := lookupPointer(d.root, ref)
		if !found {
			d.logger.Debug("unresolved reference", zap.String("ref", ref))
			return nil
		}
		v = target
	}
	return nil
}

func lookupPointer(root map[string]any, ref string) (any, bool) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, false
	}
	var cur any = root
	for _, part := range strings.Split(ref[2:], "/") {
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
