package vanillaextract

import (
	"fmt"
	"hash/fnv"
	"path"
	"strings"
)

// renameClasses applies the identifier policy to one fragment: every
// class the compiler listed is renamed consistently in the CSS text and
// in the fragment's own slice of the generated JS (where class names
// appear as quoted string literals). The caller bounds js to the
// fragment's region so that a class name shared across fragments keeps
// each fragment's distinct rename. Classes not listed by the compiler
// are never touched, so url() tokens and property values pass through
// untouched.
func renameClasses(css, js string, f Fragment, scopeID string, mode IdentMode) (string, string) {
	for _, class := range f.Classes {
		renamed := identFor(class, f, scopeID, mode)
		if renamed == class {
			continue
		}
		css = replaceClassSelector(css, class, renamed)
		js = strings.ReplaceAll(js, `"`+class+`"`, `"`+renamed+`"`)
	}
	return css, js
}

// identFor mints the final class name under the given policy.
func identFor(class string, f Fragment, scopeID string, mode IdentMode) string {
	digest := hashIdent(scopeID + ":" + class)
	if mode == IdentShort {
		return "ve" + digest
	}
	stem := fileStem(f.Scope.FilePath)
	if f.Scope.DebugID != "" {
		stem = stem + "_" + sanitizeIdent(f.Scope.DebugID)
	}
	return fmt.Sprintf("%s_%s__%s", stem, class, digest[:5])
}

// replaceClassSelector rewrites `.old` selector tokens to `.new`,
// leaving longer identifiers that merely share the prefix alone.
func replaceClassSelector(css, old, renamed string) string {
	var b strings.Builder
	needle := "." + old
	for {
		i := strings.Index(css, needle)
		if i < 0 {
			b.WriteString(css)
			break
		}
		end := i + len(needle)
		if end < len(css) && isIdentChar(css[end]) {
			// Prefix of a longer identifier; keep scanning.
			b.WriteString(css[:end])
			css = css[end:]
			continue
		}
		b.WriteString(css[:i])
		b.WriteString("." + renamed)
		css = css[end:]
	}
	return b.String()
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// hashIdent returns a short stable digest for identifier minting.
func hashIdent(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// fileStem returns the base name of a path with style extensions
// stripped, sanitized for use inside a class name.
func fileStem(filePath string) string {
	base := path.Base(filePath)
	base = strings.TrimSuffix(base, ".css.ts")
	base = strings.TrimSuffix(base, ".css")
	return sanitizeIdent(base)
}

// sanitizeIdent replaces everything outside [A-Za-z0-9_-] with '_'.
func sanitizeIdent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if isIdentChar(s[i]) {
			b.WriteByte(s[i])
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
