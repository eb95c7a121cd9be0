// Package tagger implements the server-rendering source transform.
//
// Server-side evaluation of a style source only needs scope tagging, not
// CSS extraction; wrapping the module in setFileScope/endFileScope calls
// is enough for generated class names to resolve, and it avoids a second
// CSS emission path during SSR.
package tagger

import (
	"fmt"
	"regexp"
	"strings"
)

// setFileScopePattern matches an existing setFileScope call so retagging
// can rewrite its arguments.
var setFileScopePattern = regexp.MustCompile(`setFileScope\([^)]*\)`)

// runtimeImport is the module that tracks the active file scope at
// evaluation time.
const runtimeImport = "@vanilla-extract/css/fileScope"

// Input describes one source file to tag.
type Input struct {
	// Source is the raw module source.
	Source string

	// FilePath is the slash-normalized path of the file relative to the
	// package root.
	FilePath string

	// PackageName is the name of the owning package.
	PackageName string
}

// Output carries the tagged source.
type Output struct {
	Source string
}

// AddFileScope wraps a module in file-scope tagging calls.
// It is synchronous and idempotent: tagging already-tagged source
// rewrites the existing scope instead of nesting another one.
func AddFileScope(in Input) Output {
	source := in.Source

	if strings.Contains(source, runtimeImport) {
		// Already tagged; refresh the scope arguments in place so a
		// moved or renamed file does not keep its stale identity.
		source = setFileScopePattern.ReplaceAllString(
			source,
			fmt.Sprintf("setFileScope(%q, %q)", in.FilePath, in.PackageName),
		)
		return Output{Source: source}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "import { setFileScope, endFileScope } from %q;\n", runtimeImport)
	fmt.Fprintf(&b, "setFileScope(%q, %q);\n", in.FilePath, in.PackageName)
	b.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("endFileScope();\n")

	return Output{Source: b.String()}
}
