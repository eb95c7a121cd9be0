// Package filescope converts between the logical identity of a style unit
// and its flat string encoding.
//
// A Scope names one extracted style unit: the originating source file
// (a slash-normalized relative path) plus an optional debug discriminator.
// Encode flattens a Scope into a string usable as a registry key, as the
// payload of a virtual module identifier, and as a hot-update channel name.
// Decode is its exact inverse: Decode(Encode(s)) == s for every valid s,
// and two distinct scopes never share an encoding.
//
//	filescope.Encode(filescope.Scope{FilePath: "src/theme.css.ts"})
//	// "src/theme.css.ts.ts"
package filescope

import (
	"strconv"
	"strings"

	"github.com/Zhangdroid/vanilla-extract/internal/errors"
)

// Scope is the logical identity of one extracted style unit.
type Scope struct {
	// FilePath is the originating source file as a slash-normalized
	// relative path.
	FilePath string

	// DebugID is an optional discriminator for multiple style units
	// extracted from the same file.
	DebugID string
}

// marker terminates every flat id. It doubles as a sanity check on Decode:
// anything without it was not produced by Encode.
const marker = ".ts"

// debugSep separates the escaped file path from the escaped debug id.
// Both segments percent-escape the separator, so at most one unescaped
// occurrence can appear in a well-formed flat id.
const debugSep = "$"

// Encode flattens a scope into its flat string id.
// The scope must carry a non-empty relative slash path.
func Encode(s Scope) (string, error) {
	if err := validate(s.FilePath); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(escape(s.FilePath))
	if s.DebugID != "" {
		b.WriteString(debugSep)
		b.WriteString(escape(s.DebugID))
	}
	b.WriteString(marker)
	return b.String(), nil
}

// Decode recovers the scope from a flat id produced by Encode.
// It fails with a malformed-identifier error (E201) for anything else.
func Decode(id string) (Scope, error) {
	if !strings.HasSuffix(id, marker) {
		return Scope{}, malformed(id, "missing trailing marker")
	}
	body := strings.TrimSuffix(id, marker)
	if body == "" {
		return Scope{}, malformed(id, "empty scope body")
	}

	pathPart := body
	debugPart := ""
	if i := strings.Index(body, debugSep); i >= 0 {
		if strings.Contains(body[i+1:], debugSep) {
			return Scope{}, malformed(id, "multiple debug separators")
		}
		pathPart, debugPart = body[:i], body[i+1:]
		if debugPart == "" {
			return Scope{}, malformed(id, "empty debug id")
		}
	}

	filePath, err := unescape(pathPart)
	if err != nil {
		return Scope{}, malformed(id, err.Error())
	}
	debugID, err := unescape(debugPart)
	if err != nil {
		return Scope{}, malformed(id, err.Error())
	}
	if err := validate(filePath); err != nil {
		return Scope{}, malformed(id, err.Error())
	}

	return Scope{FilePath: filePath, DebugID: debugID}, nil
}

// validate checks that a file path is a usable relative slash path.
func validate(filePath string) error {
	switch {
	case filePath == "":
		return errors.Newf(errors.CategoryResolve, "empty file path")
	case strings.HasPrefix(filePath, "/"):
		return errors.Newf(errors.CategoryResolve, "file path %q is not relative", filePath)
	case strings.Contains(filePath, "\\"):
		return errors.Newf(errors.CategoryResolve, "file path %q is not slash-normalized", filePath)
	}
	return nil
}

func malformed(id, reason string) error {
	return errors.New(errors.CodeMalformedIdentifier).
		WithDetail("flat scope id " + strconv.Quote(id) + ": " + reason)
}

// escape percent-escapes the characters that carry structure in a flat id.
func escape(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, debugSep, "%24")
	return s
}

// unescape reverses escape, rejecting stray escape sequences so that
// Decode only accepts strings Encode can produce.
func unescape(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", errors.Newf(errors.CategoryResolve, "truncated escape sequence")
		}
		switch s[i+1 : i+3] {
		case "25":
			b.WriteByte('%')
		case "24":
			b.WriteString(debugSep)
		default:
			return "", errors.Newf(errors.CategoryResolve, "unknown escape sequence %q", s[i:i+3])
		}
		i += 2
	}
	return b.String(), nil
}
