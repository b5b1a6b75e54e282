package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"lonwatch/internal/astro"
	"lonwatch/internal/service"
	"lonwatch/internal/storage"
)

// FindOptions parameterise a one-shot search.
type FindOptions struct {
	From string
	To   string
	Save bool
}

// Find runs the three return searches over the requested window and prints
// the report. With Save set the report is also persisted.
func (a *App) Find(ctx context.Context, out io.Writer, opts FindOptions) error {
	window, err := a.parseWindow(opts.From, opts.To)
	if err != nil {
		return err
	}

	provider, err := a.newProvider()
	if err != nil {
		return err
	}
	finder, err := a.newFinder()
	if err != nil {
		return err
	}

	var store *storage.Store
	if opts.Save {
		store, err = a.requireStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	svc := service.New(provider, finder, service.Options{Store: store}, a.Logger)

	rep, err := svc.Search(ctx, window)
	if err != nil {
		return err
	}

	loc, err := a.Config.Location()
	if err != nil {
		return err
	}
	if err := writeReport(out, rep, loc); err != nil {
		return err
	}

	if store != nil {
		run, err := svc.Persist(ctx, rep, service.RunMeta{
			Step:         a.Config.Search.Step,
			ToleranceDeg: a.Config.Search.ToleranceDeg,
			Timezone:     a.Config.Search.Timezone,
		})
		if err != nil {
			return fmt.Errorf("persist report: %w", err)
		}
		fmt.Fprintf(out, "\nSaved as run %d.\n", run.ID)
	}

	return nil
}

const timeDisplayLayout = "2006-01-02 15:04:05 MST"

// writeReport renders the report as titled sections, one table per search.
func writeReport(out io.Writer, rep service.Report, loc *time.Location) error {
	fmt.Fprintf(out, "Window: %s .. %s (provider %s)\n",
		rep.Window.Start.In(loc).Format(timeDisplayLayout),
		rep.Window.End.In(loc).Format(timeDisplayLayout),
		rep.Provider,
	)

	for _, sec := range rep.Sections {
		fmt.Fprintf(out, "\n%s (%d events)\n", sec.Label, len(sec.Events))

		if len(sec.Events) == 0 {
			fmt.Fprintln(out, "  none")
			continue
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  TIME\tSUN\tMOON\tMOON-SUN")
		for _, ev := range sec.Events {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
				ev.Time.In(loc).Format(timeDisplayLayout),
				astro.FormatDMS(ev.SunLon),
				astro.FormatDMS(ev.MoonLon),
				astro.FormatDMS(ev.Separation),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if sec.Nonconverged > 0 {
			fmt.Fprintf(out, "  warning: %d bracket(s) did not converge; consider a smaller search step\n", sec.Nonconverged)
		}
	}

	return nil
}
