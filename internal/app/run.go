package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"lonwatch/internal/scheduler"
	"lonwatch/internal/service"
)

// Run starts the continuous watch loop until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := a.newProvider()
	if err != nil {
		return err
	}
	finder, err := a.newFinder()
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("no database configured; events will only be logged")
	} else {
		defer store.Close()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Watch.Interval,
		AlignToClock: a.Config.Watch.AlignToClock,
		StartupDelay: a.Config.Watch.StartupDelay,
	}, a.Logger)

	svc := service.New(provider, finder, service.Options{
		Store:     store,
		Scheduler: sched,
		LockKey:   a.Config.Watch.AdvisoryLockKey,
	}, a.Logger)

	err = svc.Run(ctx)
	if errors.Is(err, context.Canceled) {
		a.Logger.Info().Msg("watch stopped")
		return nil
	}
	return err
}
