// Package tsformat normalises whitespace in generated TypeScript.
package tsformat

import (
	"regexp"
	"strings"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

var (
	blankRuns = rule{regexp.MustCompile(`\n[ \t]*\n\s*\n`), "\n\n"}
	rules     = []rule{
		blankRuns,
		{regexp.MustCompile(`(})\n(class|interface|type|export)`), "$1\n\n$2"},
		{regexp.MustCompile(`(}[ \t]*)\n([ \t]*/\*\*)`), "$1\n\n$2"},
		{regexp.MustCompile(`(?m)[ \t]+$`), ""},
		blankRuns,
	}
)

// Format applies the whitespace rules and guarantees exactly one trailing
// newline. It never changes tokens.
func Format(code string) string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	for _, r := range rules {
		code = r.re.ReplaceAllString(code, r.repl)
	}
	return strings.TrimRight(code, "\n") + "\n"
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)

// Quote renders s as a single-quoted TypeScript string literal.
func Quote(s string) string { return "'" + quoteReplacer.Replace(s) + "'" }
