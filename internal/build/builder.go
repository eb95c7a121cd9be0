package build

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/sync/errgroup"

	vanillaextract "github.com/Zhangdroid/vanilla-extract"
	"github.com/Zhangdroid/vanilla-extract/internal/config"
	"github.com/Zhangdroid/vanilla-extract/internal/errors"
	"github.com/Zhangdroid/vanilla-extract/pkg/cssregistry"
	"github.com/Zhangdroid/vanilla-extract/pkg/virtualmod"
)

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// OutputDir is the directory holding the build artifacts.
	OutputDir string

	// Manifest maps entry-relative names to emitted file names.
	Manifest map[string]string

	// Entries is the number of style entries built.
	Entries int
}

// Options configures the builder.
type Options struct {
	// Minify enables minification. Defaults from the config.
	Minify bool

	// Fingerprint appends content hashes to output names. Defaults
	// from the config.
	Fingerprint bool

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder performs production style builds: it transforms every style
// entry through the pipeline, then bundles the generated modules with
// the registry serving virtual CSS imports.
type Builder struct {
	config   *config.Config
	plugin   *vanillaextract.Plugin
	registry *cssregistry.Store
	options  Options
}

// New creates a builder and resolves the plugin for production.
func New(cfg *config.Config, plugin *vanillaextract.Plugin, registry *cssregistry.Store, options Options) *Builder {
	if !options.Minify && cfg.Minify() {
		options.Minify = true
	}
	if !options.Fingerprint && cfg.Fingerprint() {
		options.Fingerprint = true
	}

	plugin.ConfigResolved(vanillaextract.ResolvedConfig{
		Root:       cfg.Dir(),
		Production: true,
		Serve:      false,
	})

	return &Builder{
		config:   cfg,
		plugin:   plugin,
		registry: registry,
		options:  options,
	}
}

// Build performs a production build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	outputDir := b.config.OutputPath()

	b.progress("Discovering style entries...")
	entries, err := b.discoverEntries()
	if err != nil {
		return nil, err
	}

	b.progress("Transforming styles...")
	transformed, err := b.transformAll(ctx, entries)
	if err != nil {
		return nil, err
	}

	b.progress("Cleaning output directory...")
	if err := os.RemoveAll(outputDir); err != nil {
		return nil, errors.New("E401").Wrap(err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.New("E401").Wrap(err)
	}

	b.progress("Bundling...")
	manifest, err := b.bundle(entries, transformed, outputDir)
	if err != nil {
		return nil, err
	}

	b.progress("Writing manifest...")
	if err := b.writeManifest(outputDir, manifest); err != nil {
		return nil, err
	}

	return &Result{
		Duration:  time.Since(start),
		OutputDir: outputDir,
		Manifest:  manifest,
		Entries:   len(entries),
	}, nil
}

// discoverEntries walks the watched directories for style sources.
func (b *Builder) discoverEntries() ([]string, error) {
	var entries []string
	for _, dir := range b.config.WatchPaths() {
		err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				switch info.Name() {
				case "node_modules", ".git", filepath.Base(b.config.Build.Output):
					return filepath.SkipDir
				}
				return nil
			}
			if b.plugin.IsStyleFile(p) {
				entries = append(entries, p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.New("E401").Wrap(err)
		}
	}
	return entries, nil
}

// transformAll runs the pipeline over every entry, bounded by CPU
// count. The registry fills up with each scope's CSS as a side effect.
func (b *Builder) transformAll(ctx context.Context, entries []string) (map[string]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	var mu sync.Mutex
	transformed := make(map[string]string, len(entries))

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			src, err := os.ReadFile(entry)
			if err != nil {
				return errors.New("E401").
					WithDetail("cannot read " + entry).Wrap(err)
			}
			res, err := b.plugin.Transform(ctx, string(src), entry, false)
			if err != nil {
				return err
			}
			mu.Lock()
			transformed[entry] = res.Code
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return transformed, nil
}

// bundle runs esbuild over the transformed modules. Virtual CSS imports
// resolve from the registry, so each entry's bundle carries exactly the
// CSS its scopes produced.
func (b *Builder) bundle(entries []string, transformed map[string]string, outputDir string) (map[string]string, error) {
	if len(entries) == 0 {
		return map[string]string{}, nil
	}

	entryNames := "[dir]/[name]"
	if b.options.Fingerprint {
		entryNames = "[dir]/[name]-[hash]"
	}

	ret := api.Build(api.BuildOptions{
		EntryPoints:       entries,
		AbsWorkingDir:     b.config.Dir(),
		Outdir:            outputDir,
		EntryNames:        entryNames,
		Bundle:            true,
		Write:             false,
		Metafile:          true,
		Format:            api.FormatESModule,
		MinifyWhitespace:  b.options.Minify,
		MinifySyntax:      b.options.Minify,
		MinifyIdentifiers: b.options.Minify,
		LogLevel:          api.LogLevelSilent,
		Plugins:           []api.Plugin{b.modulesPlugin(transformed)},
	})
	if len(ret.Errors) > 0 {
		err := errors.New("E402").WithDetail(ret.Errors[0].Text)
		if loc := ret.Errors[0].Location; loc != nil {
			err = err.WithLocation(loc.File, loc.Line, loc.Column)
		}
		return nil, err
	}

	for _, out := range ret.OutputFiles {
		if err := os.MkdirAll(filepath.Dir(out.Path), 0755); err != nil {
			return nil, errors.New("E401").Wrap(err)
		}
		if err := os.WriteFile(out.Path, out.Contents, 0644); err != nil {
			return nil, errors.New("E401").Wrap(err)
		}
	}

	return b.manifestFromMetafile(ret.Metafile, outputDir)
}

// modulesPlugin serves the in-memory build artifacts to esbuild: the
// transformed JS for style entries and registry CSS for virtual
// imports.
func (b *Builder) modulesPlugin(transformed map[string]string) api.Plugin {
	return api.Plugin{
		Name: "vanilla-extract-modules",
		Setup: func(pb api.PluginBuild) {
			pb.OnResolve(api.OnResolveOptions{Filter: `^virtual:vanilla-extract:`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:      args.Path,
						Namespace: "vanilla-extract",
					}, nil
				})

			pb.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: "vanilla-extract"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					id, ok := virtualmod.Parse(args.Path)
					if !ok {
						return api.OnLoadResult{}, errors.New("E402").
							WithDetail("unparseable virtual import: " + args.Path)
					}
					css, found := b.registry.Get(id.ScopeID)
					if !found {
						return api.OnLoadResult{}, errors.New(errors.CodeUnregisteredScope).
							WithDetail("requested id: " + args.Path)
					}
					loader := api.LoaderCSS
					return api.OnLoadResult{Contents: &css, Loader: loader}, nil
				})

			pb.OnLoad(api.OnLoadOptions{Filter: `.*`},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					code, ok := transformed[args.Path]
					if !ok {
						return api.OnLoadResult{}, nil
					}
					return api.OnLoadResult{Contents: &code, Loader: api.LoaderJS}, nil
				})
		},
	}
}

// manifestFromMetafile maps each entry to its emitted JS and CSS files,
// relative to the output directory.
func (b *Builder) manifestFromMetafile(metafile, outputDir string) (map[string]string, error) {
	var meta struct {
		Outputs map[string]struct {
			EntryPoint string `json:"entryPoint"`
			CSSBundle  string `json:"cssBundle"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal([]byte(metafile), &meta); err != nil {
		return nil, errors.New("E402").WithDetail("unreadable metafile").Wrap(err)
	}

	root := b.config.Dir()
	relOut := func(p string) string {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		rel, err := filepath.Rel(outputDir, p)
		if err != nil {
			return filepath.Base(p)
		}
		return filepath.ToSlash(rel)
	}

	manifest := make(map[string]string)
	for outPath, out := range meta.Outputs {
		if out.EntryPoint == "" {
			continue
		}
		entry := filepath.ToSlash(out.EntryPoint)
		manifest[entry] = relOut(outPath)
		if out.CSSBundle != "" {
			manifest[entry+":css"] = relOut(out.CSSBundle)
		}
	}
	return manifest, nil
}

// writeManifest writes the asset manifest.
func (b *Builder) writeManifest(outputDir string, manifest map[string]string) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.New("E401").Wrap(err)
	}
	data = append(data, '\n')

	path := filepath.Join(outputDir, "manifest.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E401").Wrap(err)
	}
	return nil
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.config.OutputPath())
}
