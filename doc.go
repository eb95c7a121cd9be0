// Package vanillaextract bridges a style-authoring compiler and a module
// bundler's dev/build pipeline.
//
// The plugin intercepts style source files, compiles them into CSS plus
// generated JS bindings, registers the resulting CSS under virtual module
// identifiers the bundler can resolve and serve, and, in development,
// propagates CSS edits to a running page without a full reload.
//
// # Architecture
//
// The core consists of four cooperating pieces:
//
//   - CSS registry (pkg/cssregistry): flat scope id -> current CSS text
//   - Virtual module resolver: claims ids in the virtual:vanilla-extract:
//     namespace and serves raw CSS (build) or an injection shim (dev)
//   - Transform pipeline: dispatches on execution context (SSR, client,
//     static build), invokes the style compiler, and threads the result
//     into the registry and the generated JS
//   - HMR notifier: on recompilation, invalidates stale virtual modules
//     and broadcasts changed CSS to connected dev clients
//
// # Usage
//
//	reg := cssregistry.New()
//	p := vanillaextract.New(vanillaextract.Options{
//	    Registry: reg,
//	    Compiler: compiler.NewESBuild(compiler.Options{}),
//	})
//	p.ConfigResolved(vanillaextract.ResolvedConfig{Production: true})
//
//	out, err := p.Transform(ctx, src, "src/theme.css.ts", false)
//
// In development the dev server attaches itself before configuration is
// resolved, which switches virtual modules to their .js form:
//
//	p.ConfigureServer(graph, hub, watcher)
//
// # Hot update protocol
//
// Each scope has a dedicated event channel named
// "vanilla-extract-style-update:<flat scope id>". The payload is the raw
// CSS text. A client-side runtime re-invokes style injection on every
// event; the served shim performs exactly one initial injection at module
// evaluation time.
package vanillaextract
