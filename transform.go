package vanillaextract

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Zhangdroid/vanilla-extract/internal/errors"
	"github.com/Zhangdroid/vanilla-extract/internal/pkginfo"
	"github.com/Zhangdroid/vanilla-extract/internal/tagger"
)

// TransformResult is the output of one style transform.
type TransformResult struct {
	// Code is the finalized JS module.
	Code string

	// WatchFiles are the files registered for recompilation.
	WatchFiles []string
}

// Transform processes one style source file.
//
// With ssr set, the source is only tagged with its file scope; the
// compiler is never invoked and no CSS is emitted. Otherwise the
// compiler runs, every extracted fragment is registered in the CSS
// registry, changed scopes are pushed to dev clients, and the returned
// JS imports each fragment's virtual module instead of embedding CSS
// inline.
//
// A failing transform leaves the registry with whatever fragments were
// already written; there is no rollback.
func (p *Plugin) Transform(ctx context.Context, source, filePath string, ssr bool) (TransformResult, error) {
	root, serve, _, _, watcher, _ := p.snapshot()

	mode := "client"
	if ssr {
		mode = "ssr"
	}

	ctx, span := p.tracer.Start(ctx, "vanillaextract.transform")
	span.SetAttributes(
		attribute.String("file", filePath),
		attribute.String("mode", mode),
	)
	defer span.End()

	start := time.Now()
	result, err := p.transform(ctx, source, filePath, root, serve, ssr, watcher)
	p.m.TransformDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		p.m.TransformErrors.WithLabelValues(mode).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return TransformResult{}, err
	}
	p.m.TransformsTotal.WithLabelValues(mode).Inc()
	return result, nil
}

func (p *Plugin) transform(ctx context.Context, source, filePath, root string, serve, ssr bool, watcher WatchRegistrar) (TransformResult, error) {
	if ssr {
		return p.transformSSR(source, filePath, root)
	}

	if p.compiler == nil {
		return TransformResult{}, errors.Newf(errors.CategoryCompile,
			"no style compiler configured for %s", filePath)
	}

	compiled, err := p.compiler.Compile(ctx, CompileRequest{FilePath: filePath, Cwd: root})
	if err != nil {
		// Compiler failures propagate with their original shape.
		return TransformResult{}, err
	}

	watched := make([]string, 0, len(compiled.WatchFiles))
	for _, wf := range compiled.WatchFiles {
		// A dev server recompiles on the transformed file's own change
		// already; re-registering it would retrigger its own
		// recompilation loop. A build --watch session has no such
		// hazard and watches everything the compiler reports.
		if serve && samePath(wf, filePath) {
			continue
		}
		watched = append(watched, wf)
		if watcher != nil {
			watcher.WatchFile(wf)
		}
	}

	code, err := p.finalize(compiled.Source)
	if err != nil {
		return TransformResult{}, err
	}

	return TransformResult{Code: code, WatchFiles: watched}, nil
}

// transformSSR tags the raw source with its file scope and returns it.
// Server-side evaluation only needs scope tagging, not CSS extraction.
func (p *Plugin) transformSSR(source, filePath, root string) (TransformResult, error) {
	info, err := pkginfo.Lookup(filepath.Dir(filePath))
	if err != nil {
		return TransformResult{}, err
	}

	relPath := relativeScopePath(root, filePath)
	out := tagger.AddFileScope(tagger.Input{
		Source:      source,
		FilePath:    relPath,
		PackageName: info.Name,
	})
	return TransformResult{Code: out.Source}, nil
}

// finalize registers every fragment embedded in the intermediate JS and
// rewrites its placeholder import to the scope's virtual module id.
func (p *Plugin) finalize(source string) (string, error) {
	fragments, code, err := parseFragments(source)
	if err != nil {
		return "", err
	}

	mode := p.identMode()

	for i, pf := range fragments {
		// Two fragments may list the same class name with distinct
		// renames, so the JS rewrite is bounded to this fragment's
		// region: from its placeholder import up to the next
		// fragment's placeholder (or end of module).
		start, end := fragmentRegion(code, fragments, i)
		css, renamedRegion := renameClasses(pf.fragment.CSS, code[start:end], pf.fragment, pf.id, mode)
		code = code[:start] + renamedRegion + code[end:]

		prev, existed := p.registry.Get(pf.id)
		p.registry.Set(pf.id, css)
		if existed && prev != css {
			p.notifyStyleUpdate(pf.id, css)
		}

		virtualID := p.VirtualID(pf.id)
		code = strings.ReplaceAll(code,
			strconv.Quote(placeholderImport(pf.id)),
			strconv.Quote(virtualID.String()))
	}

	return code, nil
}

// fragmentRegion bounds fragment i's slice of the generated module: its
// own placeholder import through the next fragment's placeholder (or
// the end of the module for the last one).
func fragmentRegion(code string, fragments []parsedFragment, i int) (int, int) {
	start := strings.Index(code, strconv.Quote(placeholderImport(fragments[i].id)))
	if start < 0 {
		start = 0
	}
	end := len(code)
	if i+1 < len(fragments) {
		if j := strings.Index(code[start:], strconv.Quote(placeholderImport(fragments[i+1].id))); j >= 0 {
			end = start + j
		}
	}
	return start, end
}

// relativeScopePath converts an absolute source path into the
// slash-normalized relative form scopes are keyed on.
func relativeScopePath(root, filePath string) string {
	if root != "" {
		if rel, err := filepath.Rel(root, filePath); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(filePath)
}

// samePath compares two paths ignoring separator and relative prefix
// differences.
func samePath(a, b string) bool {
	ca := filepath.ToSlash(filepath.Clean(a))
	cb := filepath.ToSlash(filepath.Clean(b))
	return ca == cb
}
