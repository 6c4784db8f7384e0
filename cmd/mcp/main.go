package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/meghashyamc/docsearch/api"
	"github.com/meghashyamc/docsearch/api/mcpserver"
	"github.com/meghashyamc/docsearch/config"
	"github.com/meghashyamc/docsearch/logger"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %s\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stdout carries the protocol, so logs stay on stderr
	mcpLogger := logger.New(cfg.GetLogLevel())

	deps, err := api.NewDependencies(ctx, mcpLogger, cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer deps.Close(mcpLogger)

	return mcpserver.New(mcpLogger, deps.Search, deps.Index).Serve(ctx)
}
