package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/nerve-search-adapter/internal/logging"
	"github.com/danmuck/nerve-search-adapter/internal/search"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(os.Args[1:], os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "searchindex: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader) error {
	fs := flag.NewFlagSet("searchindex", flag.ContinueOnError)
	indexPath := fs.String("index", "search_index/index.db", "path to the sqlite index")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logging.ConfigureRuntime()
	logger := log.Logger.With().Str("component", "searchindex").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ix, err := search.Open(ctx, *indexPath)
	if err != nil {
		return err
	}
	defer ix.Close()

	sources := fs.Args()
	if len(sources) == 0 {
		sources = []string{"-"}
	}
	for _, src := range sources {
		n, err := load(ctx, ix, src, stdin)
		if err != nil {
			return err
		}
		logger.Info().Str("source", src).Int("documents", n).Msg("searchindex.run loaded")
	}

	total, err := ix.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info().Str("index", *indexPath).Int("documents", total).Msg("searchindex.run done")
	return nil
}

func load(ctx context.Context, ix *search.Index, src string, stdin io.Reader) (int, error) {
	r := stdin
	if src != "-" {
		f, err := os.Open(src)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		r = f
	}
	docs, err := search.ReadDocuments(r)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", src, err)
	}
	if err := ix.Add(ctx, docs...); err != nil {
		return 0, fmt.Errorf("%s: %w", src, err)
	}
	return len(docs), nil
}
