package vanillaextract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Zhangdroid/vanilla-extract/internal/errors"
	"github.com/Zhangdroid/vanilla-extract/pkg/filescope"
)

// CompileRequest asks the style compiler for one source file.
type CompileRequest struct {
	// FilePath is the absolute path of the style source file.
	FilePath string

	// Cwd is the project root; scope paths are relative to it.
	Cwd string
}

// CompileResult is the compiler's output for one source file.
type CompileResult struct {
	// Source is the generated intermediate JS. CSS fragments are embedded
	// with EmitCSSFragment; the transform pipeline extracts and strips
	// them during finalization.
	Source string

	// WatchFiles are additional files that must be watched for
	// recompilation, in compiler order.
	WatchFiles []string
}

// Compiler turns a style source file into intermediate JS plus extracted
// CSS per logical scope. Implementations may fail with their own errors;
// the pipeline propagates them unchanged.
type Compiler interface {
	Compile(ctx context.Context, req CompileRequest) (CompileResult, error)
}

// ModuleGraph is the bundler's cache of served modules, keyed by module
// id. Invalidate marks a previously cached module stale so the next
// request recomputes it; it reports whether an entry was present.
type ModuleGraph interface {
	Invalidate(id string) bool
}

// Broadcaster pushes a named event with a payload to connected dev
// clients.
type Broadcaster interface {
	Broadcast(event, payload string)
}

// WatchRegistrar registers a file for change watching.
type WatchRegistrar interface {
	WatchFile(path string)
}

// Fragment is one extracted CSS unit: the scope it belongs to, its CSS
// text, and the class names the generated JS exports. The compiler owns
// class extraction; finalization renames exactly the listed classes when
// applying the identifier policy.
type Fragment struct {
	Scope   filescope.Scope
	CSS     string
	Classes []string
}

// cssMarkerPrefix opens an embedded fragment in intermediate JS. The
// fragment body is a single-line JSON object, so the marker never spans
// lines and never nests.
const (
	cssMarkerPrefix = "/*__vanilla_extract_css__"
	cssMarkerSuffix = "*/"

	// placeholderPrefix opens the import specifier that finalization
	// replaces with the scope's virtual module identifier.
	placeholderPrefix = "__vanilla_extract_css_placeholder__:"
)

type fragmentPayload struct {
	FilePath string   `json:"filePath"`
	DebugID  string   `json:"debugId,omitempty"`
	CSS      string   `json:"css"`
	Classes  []string `json:"classes,omitempty"`
}

// EmitCSSFragment renders a fragment into its embedded intermediate
// form: a marker comment carrying the CSS, followed by a placeholder
// import for the scope's virtual module. Compilers append the returned
// text to their generated JS.
func EmitCSSFragment(f Fragment) (string, error) {
	id, err := filescope.Encode(f.Scope)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(fragmentPayload{
		FilePath: f.Scope.FilePath,
		DebugID:  f.Scope.DebugID,
		CSS:      f.CSS,
		Classes:  f.Classes,
	})
	if err != nil {
		return "", err
	}
	// Marker comments must stay single-line; json.Marshal escapes all
	// newlines in the CSS.

	var b strings.Builder
	b.WriteString(cssMarkerPrefix)
	b.Write(payload)
	b.WriteString(cssMarkerSuffix)
	b.WriteString("\n")
	fmt.Fprintf(&b, "import %q;\n", placeholderPrefix+id)
	return b.String(), nil
}

// parsedFragment pairs a fragment with its flat scope id.
type parsedFragment struct {
	id       string
	fragment Fragment
}

// parseFragments extracts every embedded fragment from intermediate JS
// and returns the source with the marker comments stripped. Placeholder
// imports are left in place for finalization to rewrite.
func parseFragments(source string) ([]parsedFragment, string, error) {
	var fragments []parsedFragment
	var stripped strings.Builder

	for _, line := range strings.SplitAfter(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, cssMarkerPrefix) {
			stripped.WriteString(line)
			continue
		}
		if !strings.HasSuffix(trimmed, cssMarkerSuffix) {
			return nil, "", errors.Newf(errors.CategoryTransform,
				"unterminated css fragment marker")
		}

		body := strings.TrimSuffix(strings.TrimPrefix(trimmed, cssMarkerPrefix), cssMarkerSuffix)
		var payload fragmentPayload
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			return nil, "", errors.New("E302").Wrap(err)
		}

		scope := filescope.Scope{FilePath: payload.FilePath, DebugID: payload.DebugID}
		id, err := filescope.Encode(scope)
		if err != nil {
			return nil, "", errors.FromError(err, "E302")
		}

		fragments = append(fragments, parsedFragment{
			id:       id,
			fragment: Fragment{Scope: scope, CSS: payload.CSS, Classes: payload.Classes},
		})
	}

	return fragments, stripped.String(), nil
}

// placeholderImport returns the exact specifier EmitCSSFragment emitted
// for a flat scope id.
func placeholderImport(id string) string {
	return placeholderPrefix + id
}
