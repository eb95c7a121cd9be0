package compiler

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	classRe  = regexp.MustCompile(`\.(-?[A-Za-z_][A-Za-z0-9_-]*)`)
	urlRe    = regexp.MustCompile(`url\([^)]*\)`)
	stringRe = regexp.MustCompile(`"[^"]*"|'[^']*'`)
	numberRe = regexp.MustCompile(`\b\d+\.\d+`)
)

// extractClasses lists the class names selected in css, first occurrence
// order, without duplicates. Quoted strings, url() references, and
// decimal numbers are masked out so their dots are not mistaken for
// class selectors.
func extractClasses(css string) []string {
	masked := stringRe.ReplaceAllString(css, "")
	masked = urlRe.ReplaceAllString(masked, "")
	masked = numberRe.ReplaceAllString(masked, "")

	var classes []string
	seen := make(map[string]bool)
	for _, m := range classRe.FindAllStringSubmatch(masked, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		classes = append(classes, name)
	}
	return classes
}

// exportName converts a class name into a JS identifier, camel-casing
// across dashes and underscores.
func exportName(class string) string {
	var b strings.Builder
	upper := false
	for i, r := range class {
		switch {
		case r == '-' || r == '_':
			upper = true
		case i == 0 && unicode.IsDigit(r):
			b.WriteRune('_')
			b.WriteRune(r)
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
