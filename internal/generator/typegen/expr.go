package typegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/btcsaas/eps-generator/internal/naming"
	"github.com/btcsaas/eps-generator/internal/spec"
	"github.com/btcsaas/eps-generator/internal/tsformat"
)

// typeMappings maps schema types and string formats to TypeScript types.
var typeMappings = map[string]string{
	"string":    "string",
	"integer":   "number",
	"number":    "number",
	"boolean":   "boolean",
	"array":     "any[]",
	"object":    "Record<string, any>",
	"file":      "File",
	"date":      "string",
	"date-time": "string",
	"email":     "string",
	"password":  "string",
	"uuid":      "string",
}

// MapType returns the TypeScript type for a schema type or format name, or
// "any" when it is unknown.
func MapType(name string) string {
	if t, ok := typeMappings[name]; ok {
		return t
	}
	return "any"
}

// refSet collects the named types an expression refers to.
type refSet map[string]struct{}

func (r refSet) add(name string) { r[name] = struct{}{} }

func (r refSet) sorted() []string {
	out := make([]string, 0, len(r))
	for n := range r {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Expr renders s as a TypeScript type expression. It also returns the named
// types the expression refers to, sorted.
func Expr(s *spec.Schema) (string, []string) {
	refs := refSet{}
	return expr(s, refs), refs.sorted()
}

// ParamExpr renders the type of a parameter: its schema when it has one,
// otherwise the mapped parameter type.
func ParamExpr(p spec.Parameter) (string, []string) {
	if p.Schema != nil {
		return Expr(p.Schema)
	}
	return MapType(p.Type), nil
}

func expr(s *spec.Schema, refs refSet) string {
	if s == nil {
		return "any"
	}
	if s.Ref != "" {
		name := naming.RefName(s.Ref)
		if name == "" {
			return "any"
		}
		refs.add(name)
		return name
	}
	switch {
	case len(s.AllOf) > 0:
		return compose(s.AllOf, " & ", refs)
	case len(s.OneOf) > 0:
		return compose(s.OneOf, " | ", refs)
	case len(s.AnyOf) > 0:
		return compose(s.AnyOf, " | ", refs)
	case len(s.Enum) > 0:
		return enumExpr(s)
	}

	switch s.Type {
	case "object", "":
		if len(s.Properties) > 0 {
			return inlineObject(s, refs)
		}
		if s.Type == "" {
			return "any"
		}
		return MapType("object")
	case "array":
		if s.Items == nil {
			return MapType("array")
		}
		item := expr(s.Items, refs)
		if strings.ContainsAny(item, "|&") && !strings.HasPrefix(item, "{") {
			item = "(" + item + ")"
		}
		return item + "[]"
	case "string":
		if t, ok := typeMappings[s.Format]; ok && s.Format != "" {
			return t
		}
		return "string"
	}
	return MapType(s.Type)
}

func compose(parts []*spec.Schema, op string, refs refSet) string {
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		e := expr(p, refs)
		if op == " & " && strings.Contains(e, " | ") {
			e = "(" + e + ")"
		}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return strings.Join(out, op)
}

// enumExpr renders enum values as a union of literals. Numeric schemas keep
// their values bare; other values are quoted when they are strings.
func enumExpr(s *spec.Schema) string {
	numeric := s.Type == "integer" || s.Type == "number"
	vals := make([]string, 0, len(s.Enum))
	for _, v := range s.Enum {
		switch t := v.(type) {
		case nil:
			vals = append(vals, "null")
		case string:
			if numeric {
				vals = append(vals, t)
			} else {
				vals = append(vals, quote(t))
			}
		default:
			if s.Type == "string" {
				vals = append(vals, quote(fmt.Sprint(t)))
			} else {
				vals = append(vals, fmt.Sprint(t))
			}
		}
	}
	return strings.Join(vals, " | ")
}

func inlineObject(s *spec.Schema, refs refSet) string {
	names := sortedProps(s)
	fields := make([]string, 0, len(names))
	for _, name := range names {
		fields = append(fields, fmt.Sprintf("%s%s: %s", PropKey(name), optionalMark(s, name), expr(s.Properties[name], refs)))
	}
	return "{ " + strings.Join(fields, "; ") + " }"
}

func sortedProps(s *spec.Schema) []string {
	names := make([]string, 0, len(s.Properties))
	for n := range s.Properties {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func optionalMark(s *spec.Schema, prop string) string {
	if s.IsRequired(prop) {
		return ""
	}
	return "?"
}

// PropKey quotes property names that are not valid identifiers.
func PropKey(name string) string {
	if naming.IsIdentifier(name) {
		return name
	}
	return quote(name)
}

func quote(s string) string { return tsformat.Quote(s) }

// comment flattens text into a single-line /** */ comment body.
func comment(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return strings.ReplaceAll(text, "*/", `*\/`)
}
