package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// fixV2BodyParams rewrites Swagger 2.0 operations that openapi2conv rejects:
//   - several body parameters are merged into one object-typed body named "body";
//   - body parameters mixed with formData are turned into formData fields and
//     the operation consumes multipart/form-data.
//
// The original bytes are returned unchanged when nothing was rewritten or the
// document could not be decoded.
func fixV2BodyParams(data []byte) ([]byte, bool, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return data, false, err
	}
	paths, ok := root["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		return data, false, nil
	}

	changed := false
	for _, item := range paths {
		pathItem, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for method, raw := range pathItem {
			if !isOperationKey(method) {
				continue
			}
			op, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if rewriteBodyParams(op) {
				changed = true
			}
		}
	}

	if !changed {
		return data, false, nil
	}
	out, err := yaml.Marshal(root)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func isOperationKey(key string) bool {
	switch strings.ToLower(key) {
	case "get", "post", "put", "delete", "patch", "options", "head":
		return true
	}
	return false
}

func rewriteBodyParams(op map[string]any) bool {
	params, ok := op["parameters"].([]any)
	if !ok || len(params) == 0 {
		return false
	}

	bodies := 0
	hasForm := false
	for _, p := range params {
		pm, _ := p.(map[string]any)
		switch {
		case pm == nil:
		case strings.EqualFold(asString(pm["in"]), InBody):
			bodies++
		case strings.EqualFold(asString(pm["in"]), InFormData):
			hasForm = true
		}
	}

	switch {
	case bodies == 0:
		return false
	case hasForm:
		out := make([]any, 0, len(params))
		for _, p := range params {
			pm, _ := p.(map[string]any)
			if pm == nil {
				continue
			}
			if strings.EqualFold(asString(pm["in"]), InBody) {
				out = append(out, bodyToFormField(pm))
				continue
			}
			out = append(out, pm)
		}
		op["parameters"] = out
		consumes, _ := op["consumes"].([]any)
		if !containsString(consumes, "multipart/form-data") {
			op["consumes"] = append(consumes, "multipart/form-data")
		}
		return true
	case bodies > 1:
		props := map[string]any{}
		required := []any{}
		rest := make([]any, 0, len(params))
		for _, p := range params {
			pm, _ := p.(map[string]any)
			if pm == nil {
				continue
			}
			if !strings.EqualFold(asString(pm["in"]), InBody) {
				rest = append(rest, p)
				continue
			}
			name := asString(pm["name"])
			if name == "" {
				name = "field"
			}
			schema := schemaOfParam(pm)
			if schema == nil {
				schema = map[string]any{"type": "string"}
			}
			props[name] = schema
			if req, _ := pm["required"].(bool); req {
				required = append(required, name)
			}
		}
		merged := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			merged["required"] = required
		}
		body := map[string]any{"in": InBody, "name": "body", "schema": merged}
		op["parameters"] = append([]any{body}, rest...)
		return true
	}
	return false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func containsString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

// schemaOfParam returns the parameter schema, or one synthesized from its
// type/items/format fields.
func schemaOfParam(pm map[string]any) map[string]any {
	if sch, ok := pm["schema"].(map[string]any); ok {
		return sch
	}
	t := asString(pm["type"])
	if t == "" {
		return nil
	}
	m := map[string]any{"type": t}
	if it, ok := pm["items"].(map[string]any); ok {
		m["items"] = it
	}
	if f := asString(pm["format"]); f != "" {
		m["format"] = f
	}
	return m
}

func bodyToFormField(pm map[string]any) map[string]any {
	name := asString(pm["name"])
	if name == "" {
		name = "field"
	}
	out := map[string]any{"in": InFormData, "name": name}
	if desc := asString(pm["description"]); desc != "" {
		out["description"] = desc
	}
	if req, ok := pm["required"].(bool); ok {
		out["required"] = req
	}

	// formData cannot carry a referenced object; those degrade to string.
	typ, format := "", ""
	var items any
	if sch, ok := pm["schema"].(map[string]any); ok {
		typ, format = asString(sch["type"]), asString(sch["format"])
		if it, ok := sch["items"].(map[string]any); ok {
			items = it
		}
	} else {
		typ, format = asString(pm["type"]), asString(pm["format"])
		if it, ok := pm["items"].(map[string]any); ok {
			items = it
		}
	}
	if typ == "" {
		typ = "string"
	}
	out["type"] = typ
	if items != nil {
		out["items"] = items
	}
	if format != "" {
		out["format"] = format
	}
	return out
}
