package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/goliatone/go-dcaform/internal/bootstrap"
	"github.com/goliatone/go-dcaform/pkg/config"
	"github.com/goliatone/go-dcaform/pkg/preview"
)

func main() {
	configPath := flag.String("config", "dcaform.yaml", "configuration file")
	schemaDir := flag.String("schema", "", "schema directory (overrides the configuration)")
	output := flag.String("output", "", "write the rendered row to this file")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dcaform-cli: %v\n", err)
		os.Exit(1)
	}
	if *schemaDir != "" {
		cfg.Schema.Dir = *schemaDir
	}
	cfg.Schema.Watch = false
	logger := config.NewLogger(cfg.Logging, os.Stderr)

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}
	defer app.Close()

	session, err := preview.New(app.Renderer,
		preview.WithPromptDriver(preview.NewSurveyDriver(os.Stdout)),
		preview.WithLookup(app.Records),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}

	res, err := session.Run(ctx)
	if errors.Is(err, preview.ErrAborted) {
		return
	}
	if err != nil {
		app.Close()
		logger.Fatal().Err(err).Msg("preview failed")
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(res.Markup), 0o644); err != nil {
			app.Close()
			logger.Fatal().Err(err).Msg("failed to write output")
		}
		fmt.Printf("Row written to %s\n", *output)
	}
}
