// Package naming derives the identifiers and file names used in generated
// TypeScript from names found in API documents.
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/btcsaas/eps-generator/internal/spec"
)

// Pascal converts s to PascalCase.
func Pascal(s string) string { return strcase.ToCamel(strings.TrimSpace(s)) }

// Camel converts s to camelCase.
func Camel(s string) string { return strcase.ToLowerCamel(strings.TrimSpace(s)) }

// Kebab converts s to kebab-case, used for generated file names.
func Kebab(s string) string { return strcase.ToKebab(strings.TrimSpace(s)) }

var (
	nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)
	ident    = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// IsIdentifier reports whether name can be used unquoted as a TypeScript
// property name or after a dot.
func IsIdentifier(name string) bool { return ident.MatchString(name) }

// OperationName is PascalCase(operationId), or the method followed by the
// sanitized path when the operation has no id.
//
//	GET /users/{id} -> GetUsersId
func OperationName(ep spec.Endpoint) string {
	if ep.OperationID != "" {
		return Pascal(ep.OperationID)
	}
	path := strings.NewReplacer("{", "", "}", "").Replace(ep.Path)
	path = strings.Trim(nonAlnum.ReplaceAllString(path, "_"), "_")
	return Pascal(strings.ToLower(string(ep.Method))) + Pascal(path)
}

// RefName returns the PascalCase name a $ref points at.
func RefName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	return Pascal(ref)
}

// CollisionError reports two sources mapping to the same generated name.
type CollisionError struct {
	Kind     string
	Name     string
	Existing string
	Incoming string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s name collision: %q from %s is already taken by %s; skipped", e.Kind, e.Name, e.Incoming, e.Existing)
}

// Registry tracks generated names of one kind. The first claimant of a name
// keeps it.
type Registry struct {
	kind   string
	owners map[string]string
}

func NewRegistry(kind string) *Registry {
	return &Registry{kind: kind, owners: make(map[string]string)}
}

// Claim records source as the owner of name. Claiming a name again from the
// same source is allowed; another source gets a *CollisionError.
func (r *Registry) Claim(name, source string) error {
	if owner, ok := r.owners[name]; ok && owner != source {
		return &CollisionError{Kind: r.kind, Name: name, Existing: owner, Incoming: source}
	}
	r.owners[name] = source
	return nil
}
