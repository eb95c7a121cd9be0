package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zhangdroid/vanilla-extract/internal/config"
	"github.com/Zhangdroid/vanilla-extract/internal/dev"
)

func devCmd() *cobra.Command {
	var (
		port    int
		host    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with hot style updates.

Style sources are transformed on request and served as JS modules.
When a watched file changes, affected stylesheets are recompiled and
pushed to connected browsers over a websocket, without reloading the
page or re-evaluating modules.

Examples:
  vanilla-extract dev
  vanilla-extract dev --port=8080
  vanilla-extract dev --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(port, host, verbose)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from vanilla-extract.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from vanilla-extract.json)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every request")

	return cmd
}

func runDev(port int, host string, verbose bool) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Dev.Port = port
	}
	if host != "" {
		cfg.Dev.Host = host
	}

	logCfg := zap.NewDevelopmentConfig()
	if !verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := logCfg.Build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	plugin, _, gatherer := newPipeline(cfg, false)

	server := dev.NewServer(dev.ServerOptions{
		Config:   cfg,
		Plugin:   plugin,
		Logger:   logger,
		Gatherer: gatherer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n  Shutting down...")
		cancel()
		server.Stop()
	}()

	info("Serving %s at %s", cfg.Dir(), cfg.DevURL())
	return server.Start(ctx)
}
