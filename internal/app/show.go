package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
)

// ShowOptions parameterise listing of persisted events.
type ShowOptions struct {
	Limit int
}

// Show lists the most recent persisted return events.
func (a *App) Show(ctx context.Context, out io.Writer, opts ShowOptions) error {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	store, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	total, err := store.CountEvents(ctx)
	if err != nil {
		return err
	}
	events, err := store.ListRecentEvents(ctx, opts.Limit)
	if err != nil {
		return err
	}

	loc, err := a.Config.Location()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Stored events: %d (showing %d)\n\n", total, len(events))
	if len(events) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSECTION\tSUN\tMOON\tMOON-SUN\tRUN")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			ev.EventTS.In(loc).Format(timeDisplayLayout),
			ev.Section,
			ev.SunLon.StringFixed(4),
			ev.MoonLon.StringFixed(4),
			ev.Separation.StringFixed(4),
			ev.RunID,
		)
	}
	return w.Flush()
}
