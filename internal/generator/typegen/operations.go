package typegen

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/btcsaas/eps-generator/internal/naming"
	"github.com/btcsaas/eps-generator/internal/spec"
	"github.com/btcsaas/eps-generator/internal/tsformat"
)

var operationSuffixes = []string{"Request", "Responses", "Response"}

// OperationTypeBase returns the prefix of the Request, Responses and Response
// types generated for op. When one of those names is already a schema type
// the prefix becomes op+"Operation". ok is false when that clashes as well.
func OperationTypeBase(op string, schemaTypes map[string]bool) (base string, ok bool) {
	for _, candidate := range []string{op, op + "Operation"} {
		clash := false
		for _, suffix := range operationSuffixes {
			clash = clash || schemaTypes[candidate+suffix]
		}
		if !clash {
			return candidate, true
		}
	}
	return "", false
}

// GenerateOperationTypes renders <Op>Request, <Op>Responses and <Op>Response
// for every endpoint into a single operations file. types are the schema
// types generated for the same document; references to anything else are
// reported in the returned error. Operation type names never shadow schema
// type names, see OperationTypeBase.
func (g *Generator) GenerateOperationTypes(endpoints []spec.Endpoint, types []Type) (Type, error) {
	known := make(map[string]string, len(types))
	schemaTypes := make(map[string]bool, len(types))
	for _, t := range types {
		known[t.Name] = strings.TrimSuffix(t.FileName, ".ts")
		schemaTypes[t.Name] = true
	}

	ops := naming.NewRegistry("operation")
	refs := refSet{}
	var errs []error
	var decls []string
	for _, ep := range endpoints {
		op := naming.OperationName(ep)
		source := string(ep.Method) + " " + ep.Path
		if !naming.IsIdentifier(op) {
			errs = append(errs, fmt.Errorf("operation %s: %q does not form a valid type name; skipped", source, op))
			continue
		}
		base, ok := OperationTypeBase(op, schemaTypes)
		if !ok {
			errs = append(errs, &naming.CollisionError{Kind: "operation type", Name: op + "Request", Existing: "a schema type", Incoming: source})
			continue
		}
		if err := ops.Claim(op, source); err != nil {
			errs = append(errs, err)
			continue
		}
		if base != op {
			g.logger.Debug("operation types renamed to avoid schema types", zap.String("operation", op), zap.String("base", base))
		}
		decls = append(decls, requestDecl(base, ep, refs), responsesDecl(base, ep, refs))
	}

	var b strings.Builder
	var missing []string
	for _, dep := range refs.sorted() {
		file, ok := known[dep]
		if !ok {
			missing = append(missing, dep)
			continue
		}
		fmt.Fprintf(&b, "import type { %s } from './%s';\n", dep, file)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	if len(decls) == 0 {
		b.WriteString("export {};\n")
	}
	b.WriteString(strings.Join(decls, "\n\n"))
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("operation types reference unknown type(s) %s", strings.Join(missing, ", ")))
	}

	t := Type{
		Name:         OperationsFile,
		FileName:     OperationsFile + ".ts",
		Content:      tsformat.Format(b.String()),
		Dependencies: refs.sorted(),
	}
	return t, errors.Join(errs...)
}

func requestDecl(op string, ep spec.Endpoint, refs refSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "export interface %sRequest {\n", op)
	section := func(title string, params []spec.Parameter) {
		if len(params) == 0 {
			return
		}
		fmt.Fprintf(&b, "  // %s\n", title)
		for _, p := range params {
			fmt.Fprintf(&b, "  %s%s: %s;\n", PropKey(p.Name), optional(p.Required), paramExpr(p, refs))
		}
	}
	section("Path parameters", ep.ParametersIn(spec.InPath))
	section("Query parameters", ep.ParametersIn(spec.InQuery))
	if body := ep.ParametersIn(spec.InBody); len(body) > 0 {
		b.WriteString("  // Request body\n")
		fmt.Fprintf(&b, "  body%s: %s;\n", optional(body[0].Required), paramExpr(body[0], refs))
	}
	return closeInterface(&b)
}

// closeInterface terminates an interface body, collapsing an empty one to {}.
func closeInterface(b *strings.Builder) string {
	s := b.String()
	if strings.HasSuffix(s, "{\n") {
		return strings.TrimSuffix(s, "\n") + "}"
	}
	return s + "}"
}

func responsesDecl(op string, ep spec.Endpoint, refs refSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "export interface %sResponses {\n", op)
	var success, all []string
	for _, r := range ep.Responses {
		e := expr(r.Schema, refs)
		fmt.Fprintf(&b, "  %s: %s;", quote(r.Code), e)
		if r.Description != "" {
			fmt.Fprintf(&b, " /** %s */", comment(r.Description))
		}
		b.WriteString("\n")
		all = appendUnique(all, e)
		if strings.HasPrefix(r.Code, "2") || r.Code == "default" {
			success = appendUnique(success, e)
		}
	}
	decl := closeInterface(&b) + "\n\n"

	union := success
	if len(union) == 0 {
		union = all
	}
	if len(union) == 0 {
		union = []string{"any"}
	}
	return decl + fmt.Sprintf("export type %sResponse = %s;", op, strings.Join(union, " | "))
}

func paramExpr(p spec.Parameter, refs refSet) string {
	if p.Schema != nil {
		return expr(p.Schema, refs)
	}
	return MapType(p.Type)
}

func optional(required bool) string {
	if required {
		return ""
	}
	return "?"
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
