package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/nerve-search-adapter/internal/adapter"
	"github.com/danmuck/nerve-search-adapter/internal/logging"
	"github.com/danmuck/nerve-search-adapter/internal/observability"
	"github.com/danmuck/nerve-search-adapter/internal/search"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "searchadapter: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("searchadapter", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to TOML config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := defaultAppConfig()
	if *configPath != "" {
		loaded, err := loadAppConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logging.ConfigureRuntime()
	if cfg.LogLevel != "" {
		logging.SetLevel(cfg.LogLevel)
	}
	logger := log.Logger.With().Str("component", "searchadapter").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ix, err := search.Open(ctx, cfg.IndexPath)
	if err != nil {
		return err
	}
	defer ix.Close()
	if n, err := ix.Count(ctx); err == nil {
		logger.Info().Str("index", cfg.IndexPath).Int("documents", n).Msg("searchadapter.run index opened")
	}

	client, err := adapter.NewClient(cfg.SocketPath, ix, cfg.Adapter, logger)
	if err != nil {
		return err
	}

	observability.RegisterMetrics()
	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("listen metrics %s: %w", cfg.MetricsAddr, err)
		}
		g.Go(func() error {
			return observability.Serve(gctx, ln, logger)
		})
	}
	g.Go(func() error {
		// ending the session stops the metrics listener
		defer stop()
		return client.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("searchadapter.run stopped")
	return nil
}
