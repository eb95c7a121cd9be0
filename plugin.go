package vanillaextract

import (
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhangdroid/vanilla-extract/internal/metrics"
	"github.com/Zhangdroid/vanilla-extract/pkg/cssregistry"
	"github.com/Zhangdroid/vanilla-extract/pkg/virtualmod"
)

// IdentMode selects the identifier-naming policy for generated class
// names.
type IdentMode string

const (
	// IdentDefault picks short names in production builds and debug
	// names otherwise.
	IdentDefault IdentMode = ""

	// IdentShort produces compact hashed class names.
	IdentShort IdentMode = "short"

	// IdentDebug produces verbose names that embed the source file and
	// original class.
	IdentDebug IdentMode = "debug"
)

// DefaultExtensions are the file suffixes recognized as style sources.
var DefaultExtensions = []string{".css.ts"}

// Options configures a Plugin.
type Options struct {
	// Registry is the CSS store shared with the virtual module resolver.
	// Required.
	Registry *cssregistry.Store

	// Compiler turns style sources into intermediate JS. Required for
	// non-SSR transforms.
	Compiler Compiler

	// Identifiers overrides the identifier-naming policy for every
	// transform. Leave empty to derive it from the build mode.
	Identifiers IdentMode

	// Extensions are the file suffixes recognized as style sources.
	// Defaults to DefaultExtensions.
	Extensions []string

	// Metrics receives instrumentation. Defaults to the process-wide
	// instance.
	Metrics *metrics.Metrics
}

// ResolvedConfig is the subset of the host's resolved configuration the
// plugin consumes. It arrives exactly once, after all config merging.
type ResolvedConfig struct {
	// Root is the project root; scope paths are computed relative to it.
	Root string

	// Production selects short hashed class names when no explicit
	// identifier override is configured.
	Production bool

	// Serve is true for a long-lived dev server session and false for a
	// one-shot or --watch build. It fixes the virtual module extension
	// for the lifetime of the plugin.
	Serve bool
}

// Plugin is one style-integration instance: a transform pipeline, a
// virtual module resolver, and an HMR notifier sharing a CSS registry.
type Plugin struct {
	registry      *cssregistry.Store
	compiler      Compiler
	identOverride IdentMode
	extensions    []string
	m             *metrics.Metrics
	tracer        trace.Tracer

	mu         sync.Mutex
	resolved   bool
	root       string
	production bool
	serve      bool
	kind       virtualmod.Kind

	graph   ModuleGraph
	hub     Broadcaster
	watcher WatchRegistrar
}

// New creates a plugin around a shared CSS registry.
func New(opts Options) *Plugin {
	m := opts.Metrics
	if m == nil {
		m = metrics.Default()
	}
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	p := &Plugin{
		registry:      opts.Registry,
		compiler:      opts.Compiler,
		identOverride: opts.Identifiers,
		extensions:    extensions,
		m:             m,
		tracer:        otel.Tracer("vanilla-extract"),
		kind:          virtualmod.KindCSS,
	}

	p.registry.OnResize(func(n int) {
		m.RegistrySize.Set(float64(n))
	})

	return p
}

// ConfigResolved receives the host's resolved configuration. The virtual
// module extension is fixed here and never changes afterward.
func (p *Plugin) ConfigResolved(cfg ResolvedConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resolved = true
	p.root = cfg.Root
	p.production = cfg.Production
	p.serve = cfg.Serve
	if cfg.Serve {
		p.kind = virtualmod.KindJS
	} else {
		p.kind = virtualmod.KindCSS
	}
}

// ConfigureServer attaches the dev server's module graph, broadcast hub,
// and watch registration. Passing nils detaches the corresponding
// collaborator.
func (p *Plugin) ConfigureServer(graph ModuleGraph, hub Broadcaster, watcher WatchRegistrar) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.graph = graph
	p.hub = hub
	p.watcher = watcher
}

// IsStyleFile reports whether a path is recognized as a style source.
func (p *Plugin) IsStyleFile(path string) bool {
	for _, ext := range p.extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// VirtualID returns the virtual module identifier for a flat scope id,
// using the extension fixed at configuration-resolution time.
func (p *Plugin) VirtualID(scopeID string) virtualmod.ID {
	p.mu.Lock()
	kind := p.kind
	p.mu.Unlock()
	return virtualmod.Make(scopeID, kind)
}

// identMode resolves the effective identifier policy for this build.
func (p *Plugin) identMode() IdentMode {
	if p.identOverride != IdentDefault {
		return p.identOverride
	}
	p.mu.Lock()
	production := p.production
	p.mu.Unlock()
	if production {
		return IdentShort
	}
	return IdentDebug
}

// snapshot returns the mutable state a transform needs, read once under
// the lock so a transform sees one consistent configuration.
func (p *Plugin) snapshot() (root string, serve bool, graph ModuleGraph, hub Broadcaster, watcher WatchRegistrar, kind virtualmod.Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root, p.serve, p.graph, p.hub, p.watcher, p.kind
}
