// Package build implements production style builds.
//
// A build transforms every discovered style entry through the pipeline,
// filling the CSS registry, then bundles the generated modules with
// esbuild. A plugin resolves virtual CSS imports from the registry, so
// each emitted bundle carries exactly the stylesheets its entry
// produced. Output names are content-fingerprinted and recorded in
// manifest.json.
package build
