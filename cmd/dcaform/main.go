package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/goliatone/go-dcaform/internal/bootstrap"
	"github.com/goliatone/go-dcaform/pkg/config"
)

func main() {
	configPath := flag.String("config", "dcaform.yaml", "configuration file (defaults and DCAFORM_* variables when missing)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dcaform: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logging, os.Stdout)

	app, err := bootstrap.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}
	if err := app.Run(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
