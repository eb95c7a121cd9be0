package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	vanillaextract "github.com/Zhangdroid/vanilla-extract"
	"github.com/Zhangdroid/vanilla-extract/internal/compiler"
	"github.com/Zhangdroid/vanilla-extract/internal/config"
	"github.com/Zhangdroid/vanilla-extract/internal/errors"
	"github.com/Zhangdroid/vanilla-extract/internal/metrics"
	"github.com/Zhangdroid/vanilla-extract/pkg/cssregistry"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vanilla-extract",
		Short: "Zero-runtime stylesheets, served and built",
		Long: `vanilla-extract integrates style compilation with a dev
server and production builds.

Style sources compile into plain JS modules that import their CSS
through virtual modules. In development, changed styles are pushed to
connected browsers without reloading; in production, each entry bundles
into fingerprinted JS and CSS assets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		devCmd(),
		buildCmd(),
		deployCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		if ve, ok := err.(*errors.Error); ok {
			errors.PrintError(ve)
		} else {
			fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		}
		os.Exit(1)
	}
}

// newPipeline builds a plugin around a fresh registry, with the
// compiler and naming policy the config asks for.
func newPipeline(cfg *config.Config, minify bool) (*vanillaextract.Plugin, *cssregistry.Store, prometheus.Gatherer) {
	reg := cssregistry.New()
	promReg := prometheus.NewRegistry()

	plugin := vanillaextract.New(vanillaextract.Options{
		Registry:    reg,
		Compiler:    compiler.NewESBuild(compiler.Options{Minify: minify}),
		Identifiers: vanillaextract.IdentMode(cfg.Identifiers),
		Extensions:  cfg.Extensions,
		Metrics:     metrics.New(metrics.Config{Registry: promReg}),
	})
	return plugin, reg, promReg
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
