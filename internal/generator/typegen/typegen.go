// Package typegen renders TypeScript declarations for document schemas and
// per-operation request and response types.
package typegen

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/btcsaas/eps-generator/internal/naming"
	"github.com/btcsaas/eps-generator/internal/spec"
	"github.com/btcsaas/eps-generator/internal/tsformat"
)

// Type is one generated declaration file.
type Type struct {
	Name         string
	FileName     string
	Content      string
	Dependencies []string
}

// Reserved file names inside the types directory.
const (
	IndexFile      = "index"
	OperationsFile = "operations"
)

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
	g.logger = g.logger.Named("typegen")
	return g
}

// Generate renders one Type per named schema, in name order. Schemas that
// cannot be rendered are left out and reported in the joined error; the
// returned slice holds everything that succeeded.
func (g *Generator) Generate(schemas map[string]*spec.Schema) ([]Type, error) {
	names := make([]string, 0, len(schemas))
	for n := range schemas {
		names = append(names, n)
	}
	sort.Strings(names)

	typeNames := naming.NewRegistry("type")
	fileNames := naming.NewRegistry("type file")
	_ = fileNames.Claim(IndexFile, "types index")
	_ = fileNames.Claim(OperationsFile, "operation types")

	var errs []error
	known := make(map[string]*spec.Schema, len(names))
	var order []string
	for _, name := range names {
		typeName := naming.Pascal(name)
		if !naming.IsIdentifier(typeName) {
			errs = append(errs, fmt.Errorf("schema %q has no usable type name; skipped", name))
			continue
		}
		if err := typeNames.Claim(typeName, name); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := fileNames.Claim(naming.Kebab(typeName), name); err != nil {
			errs = append(errs, err)
			continue
		}
		known[typeName] = schemas[name]
		order = append(order, typeName)
	}

	types := make([]Type, 0, len(order))
	for _, name := range order {
		t, err := render(name, known[name], known)
		if err != nil {
			g.logger.Debug("type rendered with problems", zap.String("type", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("type %s: %w", name, err))
		}
		if t.Name != "" {
			types = append(types, t)
		}
	}
	return types, errors.Join(errs...)
}

// render builds the declaration for one named schema. A non-nil error with a
// non-empty Type means the type was emitted but references unknown types.
func render(name string, s *spec.Schema, known map[string]*spec.Schema) (Type, error) {
	refs := refSet{}
	var decl string
	switch {
	case s == nil:
		decl = fmt.Sprintf("export type %s = any;", name)
	case s.Ref != "":
		if err := checkAliasChain(name, s.Ref, known); err != nil {
			return Type{}, err
		}
		target := naming.RefName(s.Ref)
		refs.add(target)
		decl = fmt.Sprintf("export type %s = %s;", name, target)
	case (s.Type == "object" || s.Type == "") && len(s.Properties) > 0 && len(s.AllOf)+len(s.OneOf)+len(s.AnyOf) == 0:
		decl = interfaceDecl(name, s, refs)
	default:
		decl = fmt.Sprintf("export type %s = %s;", name, expr(s, refs))
	}
	delete(refs, name)

	deps := refs.sorted()
	var b strings.Builder
	var missing []string
	for _, dep := range deps {
		if _, ok := known[dep]; !ok {
			missing = append(missing, dep)
			continue
		}
		fmt.Fprintf(&b, "import type { %s } from './%s';\n", dep, naming.Kebab(dep))
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	if s != nil && s.Description != "" {
		fmt.Fprintf(&b, "/** %s */\n", comment(s.Description))
	}
	b.WriteString(decl)

	t := Type{
		Name:         name,
		FileName:     naming.Kebab(name) + ".ts",
		Content:      tsformat.Format(b.String()),
		Dependencies: deps,
	}
	if len(missing) > 0 {
		return t, fmt.Errorf("references unknown type(s) %s", strings.Join(missing, ", "))
	}
	return t, nil
}

func interfaceDecl(name string, s *spec.Schema, refs refSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "export interface %s {\n", name)
	for _, prop := range sortedProps(s) {
		ps := s.Properties[prop]
		fmt.Fprintf(&b, "  %s%s: %s;", PropKey(prop), optionalMark(s, prop), expr(ps, refs))
		if ps != nil && ps.Description != "" {
			fmt.Fprintf(&b, " /** %s */", comment(ps.Description))
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// checkAliasChain follows $ref aliases starting at name and fails when the
// chain comes back to a type it already visited.
func checkAliasChain(name, ref string, known map[string]*spec.Schema) error {
	chain := []string{name}
	seen := map[string]bool{name: true}
	cur := naming.RefName(ref)
	for {
		chain = append(chain, cur)
		if seen[cur] {
			return fmt.Errorf("circular schema reference: %s", strings.Join(chain, " -> "))
		}
		seen[cur] = true
		next, ok := known[cur]
		if !ok || next == nil || next.Ref == "" {
			return nil
		}
		cur = naming.RefName(next.Ref)
	}
}

// GenerateIndex re-exports every generated type file, in file name order.
func (g *Generator) GenerateIndex(types []Type) string {
	files := make([]string, 0, len(types))
	for _, t := range types {
		files = append(files, strings.TrimSuffix(t.FileName, ".ts"))
	}
	sort.Strings(files)

	if len(files) == 0 {
		return tsformat.Format("export {};")
	}
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "export * from './%s';\n", f)
	}
	return tsformat.Format(b.String())
}
