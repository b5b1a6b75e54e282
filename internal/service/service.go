// Package service orchestrates the three return searches over one window and
// drives the continuous watch loop.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"lonwatch/internal/astro"
	"lonwatch/internal/ephem"
	"lonwatch/internal/scheduler"
	"lonwatch/internal/search"
	"lonwatch/internal/storage"
)

// Service runs longitude-return searches against an ephemeris provider.
type Service struct {
	provider ephem.Provider
	finder   *search.Finder
	store    *storage.Store
	sched    *scheduler.Scheduler
	lockKey  int64
	logger   zerolog.Logger

	mu           sync.Mutex
	watchTargets []search.Target
	watchStart   time.Time
	watchRunID   int64
	scanned      time.Time
}

// Options carries the optional collaborators of a Service.
type Options struct {
	// Store enables persistence; nil disables it.
	Store *storage.Store
	// Scheduler drives the watch loop; nil disables watch mode.
	Scheduler *scheduler.Scheduler
	// LockKey is the postgres advisory lock key guarding concurrent watchers.
	LockKey int64
}

// New constructs a Service.
func New(provider ephem.Provider, finder *search.Finder, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		finder:   finder,
		store:    opts.Store,
		sched:    opts.Scheduler,
		lockKey:  opts.LockKey,
		logger:   logger.With().Str("component", "service").Logger(),
	}
}

// Search runs the sun, moon, and moon-sun separation return searches over the
// window concurrently and assembles the report. The three baselines are all
// read at window start.
func (s *Service) Search(ctx context.Context, window search.Window) (Report, error) {
	targets, err := s.buildTargets(ctx, window.Start)
	if err != nil {
		return Report{}, err
	}

	sections, err := s.runTargets(ctx, targets, window)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Window:    window,
		Provider:  s.provider.Name(),
		Generated: time.Now().UTC(),
		Sections:  sections,
	}

	s.logger.Info().
		Time("window_start", window.Start).
		Time("window_end", window.End).
		Int("events", rep.TotalEvents()).
		Msg("search complete")

	return rep, nil
}

func (s *Service) buildTargets(ctx context.Context, t0 time.Time) ([]search.Target, error) {
	sun, err := search.BodyReturn(ctx, s.provider, ephem.Sun, t0)
	if err != nil {
		return nil, err
	}
	moon, err := search.BodyReturn(ctx, s.provider, ephem.Moon, t0)
	if err != nil {
		return nil, err
	}
	sep, err := search.SeparationReturn(ctx, s.provider, ephem.Moon, ephem.Sun, t0)
	if err != nil {
		return nil, err
	}
	return []search.Target{sun, moon, sep}, nil
}

// runTargets executes the searches in parallel. Section order follows target
// order regardless of completion order.
func (s *Service) runTargets(ctx context.Context, targets []search.Target, window search.Window) ([]Section, error) {
	sections := make([]Section, len(targets))
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, tgt := range targets {
		wg.Add(1)
		go func(i int, tgt search.Target) {
			defer wg.Done()
			sections[i], errs[i] = s.runTarget(ctx, tgt, window)
		}(i, tgt)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return sections, nil
}

func (s *Service) runTarget(ctx context.Context, tgt search.Target, window search.Window) (Section, error) {
	res, err := s.finder.FindCrossings(ctx, tgt, window)
	if err != nil {
		return Section{}, fmt.Errorf("search %s: %w", tgt.Name, err)
	}

	events := make([]EventRecord, 0, len(res.Times))
	for _, t := range res.Times {
		rec, err := s.recordAt(ctx, t)
		if err != nil {
			return Section{}, err
		}
		events = append(events, rec)
	}

	return Section{
		Name:         tgt.Name,
		Label:        sectionLabel(tgt.Name),
		Baseline:     tgt.Target,
		Events:       events,
		Rejected:     res.Rejected,
		Nonconverged: res.Nonconverged,
	}, nil
}

// recordAt reads both longitudes at the event instant so every section shows
// the full sky state, not just its own tracked angle.
func (s *Service) recordAt(ctx context.Context, t time.Time) (EventRecord, error) {
	sun, err := s.provider.EclipticLongitude(ctx, ephem.Sun, t)
	if err != nil {
		return EventRecord{}, fmt.Errorf("sun longitude at %s: %w", t.Format(time.RFC3339), err)
	}
	moon, err := s.provider.EclipticLongitude(ctx, ephem.Moon, t)
	if err != nil {
		return EventRecord{}, fmt.Errorf("moon longitude at %s: %w", t.Format(time.RFC3339), err)
	}
	return EventRecord{
		Time:       t,
		SunLon:     sun,
		MoonLon:    moon,
		Separation: astro.Normalize(moon - sun),
	}, nil
}

// SampleTrace samples the three tracked angles over the window at an even
// interval, capped at maxPoints samples.
func (s *Service) SampleTrace(ctx context.Context, window search.Window, maxPoints int) (Trace, error) {
	if window.Start.After(window.End) {
		return Trace{}, search.ErrInvalidWindow
	}
	if maxPoints < 2 {
		maxPoints = 2
	}

	span := window.End.Sub(window.Start)
	step := span / time.Duration(maxPoints-1)
	if step < s.finder.Step() {
		step = s.finder.Step()
	}
	if step <= 0 {
		step = time.Second
	}

	var tr Trace
	for t := window.Start; !t.After(window.End); t = t.Add(step) {
		rec, err := s.recordAt(ctx, t)
		if err != nil {
			return Trace{}, err
		}
		tr.Times = append(tr.Times, t)
		tr.Sun = append(tr.Sun, rec.SunLon)
		tr.Moon = append(tr.Moon, rec.MoonLon)
		tr.Separation = append(tr.Separation, rec.Separation)
	}
	return tr, nil
}

// RunMeta carries the search parameters persisted alongside a run.
type RunMeta struct {
	Step         time.Duration
	ToleranceDeg float64
	Timezone     string
}

// Persist writes a completed report to storage and returns the stored run.
func (s *Service) Persist(ctx context.Context, rep Report, meta RunMeta) (storage.SearchRun, error) {
	if s.store == nil {
		return storage.SearchRun{}, storage.ErrNotConfigured
	}

	run, err := s.store.InsertRun(ctx, storage.SearchRun{
		WindowStart:  rep.Window.Start,
		WindowEnd:    rep.Window.End,
		Step:         meta.Step,
		ToleranceDeg: decimal.NewFromFloat(meta.ToleranceDeg),
		Provider:     rep.Provider,
		Timezone:     meta.Timezone,
	})
	if err != nil {
		return storage.SearchRun{}, err
	}

	events := reportEvents(rep, run.ID)
	if len(events) > 0 {
		if err := s.store.InsertEvents(ctx, events); err != nil {
			return storage.SearchRun{}, err
		}
	}

	s.logger.Info().
		Int64("run_id", run.ID).
		Int("events", len(events)).
		Msg("report persisted")
	return run, nil
}

func reportEvents(rep Report, runID int64) []storage.ReturnEvent {
	var events []storage.ReturnEvent
	for _, sec := range rep.Sections {
		for _, ev := range sec.Events {
			events = append(events, storage.ReturnEvent{
				RunID:      runID,
				Section:    sec.Name,
				EventTS:    ev.Time.UTC(),
				SunLon:     decimal.NewFromFloat(ev.SunLon).Round(6),
				MoonLon:    decimal.NewFromFloat(ev.MoonLon).Round(6),
				Separation: decimal.NewFromFloat(ev.Separation).Round(6),
			})
		}
	}
	return events
}

// Run starts the watch loop. Baselines are fixed at loop start, so every tick
// extends the same three searches rather than re-anchoring them.
func (s *Service) Run(ctx context.Context) error {
	if s.sched == nil {
		return fmt.Errorf("service: watch mode requires a scheduler")
	}

	now := time.Now().UTC()
	targets, err := s.buildTargets(ctx, now)
	if err != nil {
		return fmt.Errorf("fix watch baselines: %w", err)
	}

	s.mu.Lock()
	s.watchTargets = targets
	s.watchStart = now
	s.scanned = now
	s.mu.Unlock()

	if s.store != nil {
		run, err := s.store.InsertRun(ctx, storage.SearchRun{
			WindowStart:  now,
			WindowEnd:    now,
			Step:         s.finder.Step(),
			ToleranceDeg: decimal.NewFromFloat(s.finder.Tolerance()),
			Provider:     s.provider.Name(),
			Timezone:     "UTC",
		})
		if err != nil {
			return fmt.Errorf("register watch run: %w", err)
		}
		s.mu.Lock()
		s.watchRunID = run.ID
		s.mu.Unlock()
	}

	s.logger.Info().
		Time("baseline", now).
		Str("provider", s.provider.Name()).
		Msg("watch started")

	return s.sched.Run(ctx, s.ProcessTick)
}

// ProcessTick advances the watch frontier to now, re-scanning one step of
// overlap so a crossing on the previous frontier is not missed.
func (s *Service) ProcessTick(ctx context.Context, now time.Time) error {
	now = now.UTC()

	s.mu.Lock()
	targets := s.watchTargets
	start := s.watchStart
	scanned := s.scanned
	runID := s.watchRunID
	s.mu.Unlock()

	if len(targets) == 0 || !now.After(scanned) {
		return nil
	}

	if s.store != nil {
		unlock, acquired, err := s.store.TryAdvisoryLock(ctx, s.lockKey)
		if err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		if !acquired {
			s.logger.Info().Msg("another watcher holds the lock; skipping tick")
			return nil
		}
		defer unlock()
	}

	winStart := scanned.Add(-s.finder.Step())
	if winStart.Before(start) {
		winStart = start
	}
	window := search.Window{Start: winStart, End: now}

	sections, err := s.runTargets(ctx, targets, window)
	if err != nil {
		return err
	}

	fresh := 0
	for _, sec := range sections {
		for _, ev := range sec.Events {
			if !ev.Time.After(scanned) {
				continue
			}
			fresh++
			s.logger.Info().
				Str("section", sec.Name).
				Time("event", ev.Time).
				Float64("sun_lon", ev.SunLon).
				Float64("moon_lon", ev.MoonLon).
				Float64("separation", ev.Separation).
				Msg("return event detected")
		}
	}

	if s.store != nil {
		events := newEventsSince(sections, scanned, runID)
		if len(events) > 0 {
			if err := s.store.InsertEvents(ctx, events); err != nil {
				return fmt.Errorf("persist watch events: %w", err)
			}
		}
	}

	s.mu.Lock()
	s.scanned = now
	s.mu.Unlock()

	s.logger.Debug().
		Time("frontier", now).
		Int("new_events", fresh).
		Msg("tick processed")
	return nil
}

func newEventsSince(sections []Section, scanned time.Time, runID int64) []storage.ReturnEvent {
	var events []storage.ReturnEvent
	for _, sec := range sections {
		for _, ev := range sec.Events {
			if !ev.Time.After(scanned) {
				continue
			}
			events = append(events, storage.ReturnEvent{
				RunID:      runID,
				Section:    sec.Name,
				EventTS:    ev.Time.UTC(),
				SunLon:     decimal.NewFromFloat(ev.SunLon).Round(6),
				MoonLon:    decimal.NewFromFloat(ev.MoonLon).Round(6),
				Separation: decimal.NewFromFloat(ev.Separation).Round(6),
			})
		}
	}
	return events
}
