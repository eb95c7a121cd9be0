package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zhangdroid/vanilla-extract/internal/build"
	"github.com/Zhangdroid/vanilla-extract/internal/config"
)

func buildCmd() *cobra.Command {
	var (
		output string
		minify bool
		watch  bool
		clean  bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build styles for production",
		Long: `Build every style entry for production deployment.

This command:
  • Compiles each style source into JS with hashed class names
  • Bundles per-entry JS and CSS with content fingerprints
  • Generates an asset manifest

Examples:
  vanilla-extract build
  vanilla-extract build --output=dist
  vanilla-extract build --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(output, minify, watch, clean)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from vanilla-extract.json)")
	cmd.Flags().BoolVar(&minify, "minify", true, "Minify output")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild on file changes")
	cmd.Flags().BoolVar(&clean, "clean", false, "Only remove the output directory")

	return cmd
}

func runBuild(output string, minify, watch, clean bool) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Build.Output = output
	}

	plugin, registry, _ := newPipeline(cfg, minify)
	builder := build.New(cfg, plugin, registry, build.Options{
		Minify:     minify,
		OnProgress: func(step string) { info("%s", step) },
	})

	if clean {
		if err := builder.Clean(); err != nil {
			return err
		}
		success("Removed %s", cfg.OutputPath())
		return nil
	}

	if watch {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		info("Watching for changes...")
		return builder.Watch(ctx, reportBuild)
	}

	res, err := builder.Build(context.Background())
	if err != nil {
		return err
	}
	reportBuild(res, nil)
	return nil
}

func reportBuild(res *build.Result, err error) {
	if err != nil {
		errorMsg("Build failed: %s", err)
		return
	}
	success("Built %d entries in %s", res.Entries, res.Duration.Round(time.Millisecond))
	for entry, out := range res.Manifest {
		info("%s -> %s", entry, out)
	}
}
