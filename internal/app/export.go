package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"lonwatch/internal/astro"
	"lonwatch/internal/service"
)

// ExportOptions parameterise an export run.
type ExportOptions struct {
	From      string
	To        string
	CSVPath   string
	PNGPath   string
	MaxPoints int
}

// Export recomputes the searches over the window and writes the requested
// artifacts: a sectioned CSV of the events and/or a PNG chart of the three
// tracked angles.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return fmt.Errorf("export requires --csv and/or --png")
	}

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
	svc := service.New(provider, finder, service.Options{}, a.Logger)

	loc, err := a.Config.Location()
	if err != nil {
		return err
	}

	if opts.CSVPath != "" {
		rep, err := svc.Search(ctx, window)
		if err != nil {
			return err
		}
		if err := writeEventsCSV(opts.CSVPath, rep, loc); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Int("events", rep.TotalEvents()).Msg("csv written")
	}

	if opts.PNGPath != "" {
		trace, err := svc.SampleTrace(ctx, window, a.Config.ResolveMaxPoints(opts.MaxPoints))
		if err != nil {
			return err
		}
		if err := writeTracePNG(opts.PNGPath, trace); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Int("points", len(trace.Times)).Msg("chart written")
	}

	return nil
}

// writeEventsCSV writes one titled block per section: a title row with the
// event count, a header row, then one row per event.
func writeEventsCSV(path string, rep service.Report, loc *time.Location) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for i, sec := range rep.Sections {
		if i > 0 {
			if err := w.Write([]string{""}); err != nil {
				return err
			}
		}
		title := fmt.Sprintf("%s (%d events)", sec.Label, len(sec.Events))
		if err := w.Write([]string{title}); err != nil {
			return err
		}
		if err := w.Write([]string{"time", "sun", "moon", "moon_sun"}); err != nil {
			return err
		}
		for _, ev := range sec.Events {
			rec := []string{
				ev.Time.In(loc).Format("2006-01-02 15:04:05"),
				astro.FormatDMS(ev.SunLon),
				astro.FormatDMS(ev.MoonLon),
				astro.FormatDMS(ev.Separation),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// writeTracePNG renders the sun and moon longitudes on the primary axis and
// the moon-sun separation on the secondary axis.
func writeTracePNG(path string, trace service.Trace) error {
	if len(trace.Times) < 2 {
		return fmt.Errorf("not enough samples to chart: %d", len(trace.Times))
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	graph := chart.Chart{
		Title:  "Ecliptic longitudes",
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name:           "Time (UTC)",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02"),
		},
		YAxis: chart.YAxis{
			Name: "Longitude (deg)",
		},
		YAxisSecondary: chart.YAxis{
			Name: "Separation (deg)",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Sun",
				XValues: trace.Times,
				YValues: trace.Sun,
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("e8a33d"),
					StrokeWidth: 1.5,
				},
			},
			chart.TimeSeries{
				Name:    "Moon",
				XValues: trace.Times,
				YValues: trace.Moon,
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("4a90d9"),
					StrokeWidth: 1.5,
				},
			},
			chart.TimeSeries{
				Name:    "Moon-Sun",
				XValues: trace.Times,
				YValues: trace.Separation,
				YAxis:   chart.YAxisSecondary,
				Style: chart.Style{
					StrokeColor:     drawing.ColorFromHex("7b8a8b"),
					StrokeWidth:     1.0,
					StrokeDashArray: []float64{4, 2},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
