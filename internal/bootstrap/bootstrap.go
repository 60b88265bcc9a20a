// Package bootstrap wires the schema store, record storage and renderers
// from configuration and runs the HTTP server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-dcaform/pkg/authz"
	"github.com/goliatone/go-dcaform/pkg/buttons"
	"github.com/goliatone/go-dcaform/pkg/callback"
	"github.com/goliatone/go-dcaform/pkg/config"
	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/editing"
	"github.com/goliatone/go-dcaform/pkg/httpapi"
	"github.com/goliatone/go-dcaform/pkg/icon"
	"github.com/goliatone/go-dcaform/pkg/imaging"
	"github.com/goliatone/go-dcaform/pkg/inserttag"
	"github.com/goliatone/go-dcaform/pkg/labels"
	"github.com/goliatone/go-dcaform/pkg/metrics"
	"github.com/goliatone/go-dcaform/pkg/picker"
	"github.com/goliatone/go-dcaform/pkg/records"
	"github.com/goliatone/go-dcaform/pkg/rules"
	"github.com/goliatone/go-dcaform/pkg/storage/postgres"
	"github.com/goliatone/go-dcaform/pkg/storage/sqlite"
	"github.com/goliatone/go-dcaform/pkg/widgets"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Schema    *dca.Store
	Records   records.Store
	Callbacks *callback.Registry
	Labels    *labels.Table
	Metrics   *metrics.Collector
	Renderer  *editing.Renderer
	Picker    *picker.Picker
	Buttons   *buttons.Generator
	Authz     *authz.Authorizer
	Files     *inserttag.Index

	HTTPServer *http.Server

	registry *prometheus.Registry
	watcher  *dca.Watcher
	closers  []func()
}

// New builds the application from cfg. Callers register custom callbacks on
// App.Callbacks before serving requests.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Callbacks: callback.NewRegistry(),
		Files:     inserttag.NewIndex(),
	}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	schema, err := dca.LoadDir(cfg.Schema.Dir)
	if err != nil {
		return fmt.Errorf("bootstrap: load schema: %w", err)
	}
	a.Schema = schema
	a.Logger.Info().Str("dir", cfg.Schema.Dir).Strs("tables", schema.Names()).Msg("schema loaded")

	if err := a.initRecords(ctx); err != nil {
		return err
	}

	a.Labels = labels.New()
	if cfg.Labels.File != "" {
		table, err := labels.LoadFile(cfg.Labels.File)
		if err != nil {
			return fmt.Errorf("bootstrap: load labels: %w", err)
		}
		a.Labels = table
	}

	mode, err := authz.ParseMode(cfg.Authz.Mode)
	if err != nil {
		return err
	}
	a.Authz, err = authz.New(cfg.Authz.Model, cfg.Authz.Policy, mode)
	if err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.NewWithRegistry(a.registry)

	formats := cfg.Backend.Formats()
	icons := icon.New(cfg.Backend.ThemeConfig())
	widgetRegistry := widgets.NewRegistry(
		widgets.WithLabels(a.Labels),
		widgets.WithFormats(formats),
		widgets.WithRules(rules.NewEngine()),
	)

	a.Renderer, err = editing.New(schema,
		editing.WithLogger(a.Logger.With().Str("component", "editing").Logger()),
		editing.WithMetrics(a.Metrics),
		editing.WithLabels(a.Labels),
		editing.WithCallbacks(a.Callbacks),
		editing.WithWidgets(widgetRegistry),
		editing.WithInsertTags(inserttag.New(a.Files, "")),
		editing.WithImages(imaging.New(os.DirFS(cfg.Backend.FilesRoot), cfg.Backend.Imaging())),
		editing.WithIcons(icons),
		editing.WithSaver(a.Records),
		editing.WithShowHelp(cfg.Backend.ShowHelp),
		editing.WithFormats(formats),
	)
	if err != nil {
		return err
	}

	a.Picker = picker.New(schema, picker.Tables(cfg.Backend.PickerTables),
		picker.WithLookup(a.Records),
		picker.WithCallbacks(a.Callbacks),
		picker.WithWidgets(widgetRegistry),
		picker.WithMetrics(a.Metrics),
		picker.WithLogger(a.Logger.With().Str("component", "picker").Logger()),
	)

	a.Buttons = buttons.New(schema,
		buttons.WithLabels(a.Labels),
		buttons.WithIcons(icons),
		buttons.WithCallbacks(a.Callbacks),
		buttons.WithLogger(a.Logger.With().Str("component", "buttons").Logger()),
	)

	if cfg.Schema.Watch {
		watcher, err := dca.NewWatcher(schema, cfg.Schema.Dir, a.Logger.With().Str("component", "schema").Logger())
		if err != nil {
			return err
		}
		watcher.OnChange(func(*dca.Store) { a.Metrics.SchemaReloaded(nil) })
		if err := watcher.Watch(); err != nil {
			return err
		}
		a.watcher = watcher
		a.closers = append(a.closers, watcher.Stop)
	}
	return nil
}

func (a *App) initRecords(ctx context.Context) error {
	cfg := a.Config.Database
	switch cfg.Driver {
	case "sqlite":
		store, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return err
		}
		a.Records = store
		a.closers = append(a.closers, func() { store.Close() })
	case "postgres":
		pool, store, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return err
		}
		a.Records = store
		a.closers = append(a.closers, pool.Close)
	case "memory":
		a.Records = records.NewMemory()
	default:
		return fmt.Errorf("bootstrap: unsupported database driver %q", cfg.Driver)
	}
	a.Logger.Info().Str("driver", cfg.Driver).Msg("record store ready")
	return nil
}

// Handler returns the HTTP handler serving the backend endpoints.
func (a *App) Handler() http.Handler {
	opts := []httpapi.Option{
		httpapi.WithLookup(a.Records),
		httpapi.WithButtons(a.Buttons),
		httpapi.WithAuthorizer(a.Authz),
		httpapi.WithLogger(a.Logger.With().Str("component", "http").Logger()),
	}
	if a.Config.Metrics.Enabled {
		handler := promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
		opts = append(opts, httpapi.WithMetrics(a.Metrics, a.Config.Metrics.Path, handler))
	}
	return httpapi.New(a.Renderer, a.Picker, opts...).Router()
}

// Run starts the HTTP server and blocks until an interrupt or a server
// error.
func (a *App) Run() error {
	a.HTTPServer = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Close()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}
	return a.Shutdown()
}

// Shutdown stops the HTTP server and releases resources.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	if a.HTTPServer != nil {
		if err = a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}
	a.Close()
	return err
}

// Close stops the schema watcher and closes the record store.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
