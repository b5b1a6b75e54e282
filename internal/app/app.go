// Package app wires configuration, the ephemeris provider, and storage into
// the operations exposed by the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lonwatch/internal/config"
	"lonwatch/internal/ephem"
	"lonwatch/internal/search"
	"lonwatch/internal/storage"
)

// App carries the shared dependencies of every command.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp builds an App from loaded configuration.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger}
}

func (a *App) newProvider() (ephem.Provider, error) {
	switch a.Config.Ephemeris.Provider {
	case "analytic":
		return ephem.NewAnalytic(), nil
	case "horizons":
		return ephem.NewHorizons(ephem.HorizonsOptions{
			BaseURL: a.Config.Ephemeris.HorizonsURL,
			Timeout: a.Config.Ephemeris.RequestTimeout,
		}, a.Logger), nil
	default:
		return nil, fmt.Errorf("unknown ephemeris provider %q", a.Config.Ephemeris.Provider)
	}
}

func (a *App) newFinder() (*search.Finder, error) {
	return search.New(search.Options{
		Step:      a.Config.Search.Step,
		Tolerance: a.Config.Search.ToleranceDeg,
		Precision: a.Config.Search.Precision,
		MaxBisect: a.Config.Search.MaxBisect,
	}, a.Logger)
}

// openStore connects to storage when a DSN is configured. A missing DSN is
// not an error for commands where persistence is optional.
func (a *App) openStore(ctx context.Context) (*storage.Store, error) {
	if a.Config.Database.DSN == "" {
		return nil, nil
	}
	return a.connectStore(ctx)
}

// requireStore connects to storage and fails when no DSN is configured.
func (a *App) requireStore(ctx context.Context) (*storage.Store, error) {
	if a.Config.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required for this command")
	}
	return a.connectStore(ctx)
}

func (a *App) connectStore(ctx context.Context) (*storage.Store, error) {
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, err
	}
	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// timeLayouts accepted for --from/--to, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// parseWindow reads the window bounds in the configured timezone.
func (a *App) parseWindow(fromStr, toStr string) (search.Window, error) {
	loc, err := a.Config.Location()
	if err != nil {
		return search.Window{}, err
	}

	from, err := parseInLocation(fromStr, loc)
	if err != nil {
		return search.Window{}, fmt.Errorf("parse --from: %w", err)
	}
	to, err := parseInLocation(toStr, loc)
	if err != nil {
		return search.Window{}, fmt.Errorf("parse --to: %w", err)
	}
	if !from.Before(to) {
		return search.Window{}, fmt.Errorf("--from %s must precede --to %s", fromStr, toStr)
	}

	return search.Window{Start: from.UTC(), End: to.UTC()}, nil
}

func parseInLocation(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
