// Package compiler implements the style compiler on top of esbuild.
//
// A style entry is bundled with esbuild's CSS loader, which resolves
// @import chains and optionally minifies. The bundled CSS becomes one
// fragment scoped to the entry file; class names found in the CSS are
// exported from the generated JS so application code can import them as
// bindings. Files that participated in the bundle are reported as watch
// targets from esbuild's metafile.
package compiler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	vanillaextract "github.com/Zhangdroid/vanilla-extract"
	"github.com/Zhangdroid/vanilla-extract/internal/errors"
	"github.com/Zhangdroid/vanilla-extract/pkg/filescope"
)

// Options configures the esbuild compiler.
type Options struct {
	// Minify collapses whitespace and shortens syntax in the bundled
	// CSS.
	Minify bool
}

// ESBuild compiles style entries by bundling them with esbuild.
type ESBuild struct {
	opts Options
}

// NewESBuild creates an esbuild-backed style compiler.
func NewESBuild(opts Options) *ESBuild {
	return &ESBuild{opts: opts}
}

// Compile bundles one style entry into intermediate JS.
func (c *ESBuild) Compile(ctx context.Context, req vanillaextract.CompileRequest) (vanillaextract.CompileResult, error) {
	if err := ctx.Err(); err != nil {
		return vanillaextract.CompileResult{}, err
	}

	cwd, err := filepath.Abs(req.Cwd)
	if err != nil {
		return vanillaextract.CompileResult{}, err
	}
	entry := req.FilePath
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(cwd, entry)
	}

	contents, err := os.ReadFile(entry)
	if err != nil {
		return vanillaextract.CompileResult{}, errors.New("E301").
			WithDetail("cannot read style entry " + req.FilePath).Wrap(err)
	}

	// Style entries carry a .css.ts suffix but hold the CSS dialect, so
	// the entry goes through stdin with an explicit CSS loader instead of
	// letting esbuild pick a loader from the extension.
	ret := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   string(contents),
			ResolveDir: filepath.Dir(entry),
			Sourcefile: filepath.Base(entry),
			Loader:     api.LoaderCSS,
		},
		AbsWorkingDir:    cwd,
		Bundle:           true,
		Write:            false,
		Metafile:         true,
		MinifyWhitespace: c.opts.Minify,
		MinifySyntax:     c.opts.Minify,
		LogLevel:         api.LogLevelSilent,
	})
	if len(ret.Errors) > 0 {
		return vanillaextract.CompileResult{}, buildError(ret.Errors[0])
	}
	if len(ret.OutputFiles) == 0 {
		return vanillaextract.CompileResult{}, errors.New("E301").
			WithDetail("esbuild produced no output for " + req.FilePath)
	}

	css := strings.TrimSpace(string(ret.OutputFiles[0].Contents))
	classes := extractClasses(css)

	relPath, err := filepath.Rel(cwd, entry)
	if err != nil || strings.HasPrefix(relPath, "..") {
		relPath = filepath.Base(entry)
	}
	scope := filescope.Scope{FilePath: filepath.ToSlash(relPath)}

	source, err := generateSource(scope, css, classes)
	if err != nil {
		return vanillaextract.CompileResult{}, err
	}

	watchFiles, err := watchFilesFromMetafile(ret.Metafile, cwd, entry)
	if err != nil {
		return vanillaextract.CompileResult{}, err
	}

	return vanillaextract.CompileResult{
		Source:     source,
		WatchFiles: watchFiles,
	}, nil
}

// generateSource emits the intermediate JS: the embedded fragment plus
// one named export per class.
func generateSource(scope filescope.Scope, css string, classes []string) (string, error) {
	embedded, err := vanillaextract.EmitCSSFragment(vanillaextract.Fragment{
		Scope:   scope,
		CSS:     css,
		Classes: classes,
	})
	if err != nil {
		return "", errors.FromError(err, "E301")
	}

	var b strings.Builder
	b.WriteString(embedded)
	for _, class := range classes {
		b.WriteString("export const ")
		b.WriteString(exportName(class))
		b.WriteString(" = \"")
		b.WriteString(class)
		b.WriteString("\";\n")
	}
	return b.String(), nil
}

// buildError converts the first esbuild message into a structured
// compile error with its source location.
func buildError(msg api.Message) error {
	err := errors.New("E301").WithDetail(msg.Text)
	if msg.Location != nil {
		err = err.WithLocation(msg.Location.File, msg.Location.Line, msg.Location.Column)
	}
	return err
}

// watchFilesFromMetafile lists every input that participated in the
// bundle, made deterministic by sorting. The stdin pseudo-input stands
// for the entry itself, so the entry path is always present.
func watchFilesFromMetafile(metafile, cwd, entry string) ([]string, error) {
	var meta struct {
		Inputs map[string]json.RawMessage `json:"inputs"`
	}
	if err := json.Unmarshal([]byte(metafile), &meta); err != nil {
		return nil, errors.New("E301").WithDetail("unreadable metafile").Wrap(err)
	}

	files := []string{entry}
	seen := map[string]bool{entry: true}
	for input := range meta.Inputs {
		// esbuild reports the stdin entry under its sourcefile name.
		if strings.Contains(input, "<stdin>") || input == filepath.Base(entry) {
			continue
		}
		path := input
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
