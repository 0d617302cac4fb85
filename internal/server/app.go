package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"DialogueRuntime/internal/asset"
	"DialogueRuntime/internal/dialogue"
	"DialogueRuntime/internal/game"
	"DialogueRuntime/internal/store"
)

// App is a configured hub with its ledger store and HTTP surface.
type App struct {
	Hub      *game.Hub
	Store    store.LedgerStore
	Settings Settings

	cfg AppConfig
	log *slog.Logger
}

// ResolveSettings layers the world file named by cfg and then cfg's overrides
// over the built-in defaults. An unusable file falls back to the defaults.
func ResolveSettings(cfg AppConfig, log *slog.Logger) Settings {
	settings, err := loadSettingsFromFile(cfg.WorldPath, DefaultSettings())
	if err != nil {
		log.Warn("world config unusable, using defaults", "err", err)
		settings = DefaultSettings()
	}
	return cfg.Overrides.apply(settings)
}

// LoadLibrary loads the dialogues under dir, or the demo set when dir is empty.
func LoadLibrary(dir string) (*game.Library, error) {
	if dir == "" {
		ds, err := game.SeedDialogues()
		if err != nil {
			return nil, err
		}
		return game.NewLibrary(ds...), nil
	}
	return game.LoadLibrary(dir)
}

func loadDialogues(dir string) ([]*dialogue.Dialogue, error) {
	if dir == "" {
		return game.SeedDialogues()
	}
	return asset.LoadDir(dir, game.Binder{})
}

// Reload swaps the hub's dialogues for a fresh read of the assets and reports
// how many were loaded. A broken asset leaves the current set in place.
func (a *App) Reload() (int, error) {
	ds, err := loadDialogues(a.cfg.AssetsDir)
	if err != nil {
		return 0, err
	}
	a.Hub.Library.Replace(ds)
	a.Hub.Actors.Purge()
	a.log.Info("dialogue library reloaded", "dialogues", len(ds), "assets", a.cfg.AssetsDir)
	return len(ds), nil
}

// NewApp loads dialogues, opens the ledger store and builds the hub.
func NewApp(ctx context.Context, cfg AppConfig, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	settings := ResolveSettings(cfg, log)

	lib, err := LoadLibrary(cfg.AssetsDir)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger store: %w", cfg.Store.Backend, err)
	}

	opts := []game.HubOption{
		game.WithStore(st),
		game.WithLogger(log),
		game.WithDefaults(settings.Presentation),
		game.WithTickRate(settings.TickHz),
	}
	if cfg.Seed != 0 {
		opts = append(opts, game.WithSeed(cfg.Seed))
	}

	log.Info("dialogue library loaded", "dialogues", lib.Len(), "assets", cfg.AssetsDir, "store", cfg.Store.Backend)
	return &App{
		Hub:      game.NewHub(lib, opts...),
		Store:    st,
		Settings: settings,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Defaults returns the presentation config every run starts from.
func (a *App) Defaults() dialogue.ConfigData { return a.Settings.Presentation }

// Run serves HTTP and ticks the hub until ctx ends or either fails.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Hub.Run(ctx)
	})
	g.Go(func() error {
		a.log.Info("starting web server", "addr", a.cfg.Addr, "tick_hz", a.Settings.TickHz, "skin", a.Settings.Presentation.Skin)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() error {
	return a.Store.Close()
}

// StartApp runs the server until ctx is cancelled.
func StartApp(ctx context.Context, cfg AppConfig) error {
	log := NewLogger(cfg.LogLevel)
	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("close ledger store", "err", err)
		}
	}()
	return app.Run(ctx)
}
