package vanillaextract

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Zhangdroid/vanilla-extract/internal/metrics"
	"github.com/Zhangdroid/vanilla-extract/pkg/cssregistry"
	"github.com/Zhangdroid/vanilla-extract/pkg/filescope"
)

// fakeCompiler returns a canned result and counts invocations.
type fakeCompiler struct {
	result CompileResult
	err    error
	calls  int
}

func (c *fakeCompiler) Compile(_ context.Context, _ CompileRequest) (CompileResult, error) {
	c.calls++
	return c.result, c.err
}

// fakeGraph records invalidations against a set of known module ids.
type fakeGraph struct {
	entries     map[string]bool
	invalidated []string
}

func (g *fakeGraph) Invalidate(id string) bool {
	if !g.entries[id] {
		return false
	}
	g.invalidated = append(g.invalidated, id)
	return true
}

type hubEvent struct {
	event   string
	payload string
}

// fakeHub records broadcast events.
type fakeHub struct {
	events []hubEvent
}

func (h *fakeHub) Broadcast(event, payload string) {
	h.events = append(h.events, hubEvent{event, payload})
}

// fakeWatcher records watch registrations.
type fakeWatcher struct {
	files []string
}

func (w *fakeWatcher) WatchFile(path string) {
	w.files = append(w.files, path)
}

// newTestPlugin builds a plugin with an isolated metrics registry so
// collectors never collide across tests.
func newTestPlugin(t *testing.T, opts Options) *Plugin {
	t.Helper()
	if opts.Registry == nil {
		opts.Registry = cssregistry.New()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(metrics.Config{Registry: prometheus.NewRegistry()})
	}
	return New(opts)
}

// intermediateSource builds compiler output embedding one fragment plus
// a class-name export, the way a real compiler emits it.
func intermediateSource(t *testing.T, f Fragment, exports string) string {
	t.Helper()
	embedded, err := EmitCSSFragment(f)
	if err != nil {
		t.Fatalf("EmitCSSFragment failed: %v", err)
	}
	return embedded + exports
}

func TestIsStyleFile(t *testing.T) {
	p := newTestPlugin(t, Options{})

	tests := []struct {
		path string
		want bool
	}{
		{"src/theme.css.ts", true},
		{"src/theme.css", false},
		{"src/theme.ts", false},
		{"src/app.go", false},
	}

	for _, tt := range tests {
		if got := p.IsStyleFile(tt.path); got != tt.want {
			t.Errorf("IsStyleFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsStyleFile_CustomExtensions(t *testing.T) {
	p := newTestPlugin(t, Options{Extensions: []string{".css"}})

	if !p.IsStyleFile("src/theme.css") {
		t.Error("custom extension should be recognized")
	}
	if p.IsStyleFile("src/theme.css.ts") {
		t.Error("default extension should be replaced, not extended")
	}
}

func TestVirtualID_FixedAtConfigResolution(t *testing.T) {
	build := newTestPlugin(t, Options{})
	build.ConfigResolved(ResolvedConfig{Serve: false})
	if got := build.VirtualID("src/theme.css.ts.ts").String(); !strings.HasSuffix(got, ".css") {
		t.Errorf("build-mode virtual id = %q, want .css extension", got)
	}

	dev := newTestPlugin(t, Options{})
	dev.ConfigResolved(ResolvedConfig{Serve: true})
	if got := dev.VirtualID("src/theme.css.ts.ts").String(); !strings.HasSuffix(got, ".js") {
		t.Errorf("dev-mode virtual id = %q, want .js extension", got)
	}
}

func TestIdentMode(t *testing.T) {
	tests := []struct {
		name       string
		override   IdentMode
		production bool
		want       IdentMode
	}{
		{"default dev", IdentDefault, false, IdentDebug},
		{"default production", IdentDefault, true, IdentShort},
		{"override wins in dev", IdentShort, false, IdentShort},
		{"override wins in production", IdentDebug, true, IdentDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPlugin(t, Options{Identifiers: tt.override})
			p.ConfigResolved(ResolvedConfig{Production: tt.production})
			if got := p.identMode(); got != tt.want {
				t.Errorf("identMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmitCSSFragment_ParseRoundTrip(t *testing.T) {
	f := Fragment{
		Scope:   filescope.Scope{FilePath: "src/theme.css.ts", DebugID: "dark"},
		CSS:     ".a{color:red}\n.b{color:blue}",
		Classes: []string{"a", "b"},
	}

	embedded, err := EmitCSSFragment(f)
	if err != nil {
		t.Fatalf("EmitCSSFragment failed: %v", err)
	}

	source := embedded + `export const a = "a";` + "\n"
	fragments, stripped, err := parseFragments(source)
	if err != nil {
		t.Fatalf("parseFragments failed: %v", err)
	}

	if len(fragments) != 1 {
		t.Fatalf("got %d fragments, want 1", len(fragments))
	}
	got := fragments[0].fragment
	if got.Scope != f.Scope {
		t.Errorf("scope = %+v, want %+v", got.Scope, f.Scope)
	}
	if got.CSS != f.CSS {
		t.Errorf("css = %q, want %q", got.CSS, f.CSS)
	}
	if len(got.Classes) != 2 {
		t.Errorf("classes = %v, want [a b]", got.Classes)
	}

	if strings.Contains(stripped, cssMarkerPrefix) {
		t.Error("stripped source should not contain marker comments")
	}
	if !strings.Contains(stripped, placeholderImport(fragments[0].id)) {
		t.Error("stripped source should keep the placeholder import")
	}
	if !strings.Contains(stripped, `export const a = "a";`) {
		t.Error("stripped source should keep the module body")
	}
}

func TestParseFragments_BadPayload(t *testing.T) {
	source := cssMarkerPrefix + `{"filePath":` + cssMarkerSuffix + "\n"
	if _, _, err := parseFragments(source); err == nil {
		t.Error("malformed marker payload should fail")
	}
}
