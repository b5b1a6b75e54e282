package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertRunSQL = `INSERT INTO search_runs (
        window_start,
        window_end,
        step_seconds,
        tolerance_deg,
        provider,
        timezone
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    RETURNING id, created_at;`

	insertEventSQL = `INSERT INTO return_events (
        run_id,
        section,
        event_ts,
        sun_lon,
        moon_lon,
        separation
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (section, event_ts) DO UPDATE
    SET run_id     = EXCLUDED.run_id,
        sun_lon    = EXCLUDED.sun_lon,
        moon_lon   = EXCLUDED.moon_lon,
        separation = EXCLUDED.separation;`

	listRecentEventsSQL = `SELECT
        id,
        run_id,
        section,
        event_ts,
        sun_lon,
        moon_lon,
        separation,
        created_at
    FROM return_events
    ORDER BY event_ts DESC
    LIMIT $1;`

	countEventsSQL = `SELECT COUNT(*) FROM return_events;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// Store aggregates access to runs and events.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// InsertRun persists a search run and returns it with id and created_at set.
func (s *Store) InsertRun(ctx context.Context, run SearchRun) (SearchRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return SearchRun{}, err
	}

	row := pool.QueryRow(ctx, insertRunSQL,
		run.WindowStart,
		run.WindowEnd,
		int64(run.Step/time.Second),
		run.ToleranceDeg.String(),
		run.Provider,
		run.Timezone,
	)
	if err := row.Scan(&run.ID, &run.CreatedAt); err != nil {
		return SearchRun{}, fmt.Errorf("insert search run: %w", err)
	}
	return run, nil
}

// InsertEvents persists accepted events, upserting on (section, event_ts).
func (s *Store) InsertEvents(ctx context.Context, events []ReturnEvent) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(insertEventSQL,
			ev.RunID,
			ev.Section,
			ev.EventTS,
			ev.SunLon.String(),
			ev.MoonLon.String(),
			ev.Separation.String(),
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert return event: %w", err)
		}
	}
	return nil
}

// ListRecentEvents lists the most recent events ordered by descending time.
func (s *Store) ListRecentEvents(ctx context.Context, limit int) ([]ReturnEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent events: %w", queryErr)
	}
	defer rows.Close()

	return collectEvents(rows, limit)
}

// CountEvents counts stored events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countEventsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count events: %w", scanErr)
	}
	return count, nil
}

func collectEvents(rows pgx.Rows, sizeHint int) ([]ReturnEvent, error) {
	events := make([]ReturnEvent, 0, sizeHint)
	for rows.Next() {
		ev, err := scanReturnEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

func scanReturnEvent(rows pgx.Rows) (ReturnEvent, error) {
	var (
		ev            ReturnEvent
		sunStr        string
		moonStr       string
		separationStr string
	)

	if err := rows.Scan(
		&ev.ID,
		&ev.RunID,
		&ev.Section,
		&ev.EventTS,
		&sunStr,
		&moonStr,
		&separationStr,
		&ev.CreatedAt,
	); err != nil {
		return ReturnEvent{}, err
	}

	var err error
	ev.SunLon, err = decimal.NewFromString(sunStr)
	if err != nil {
		return ReturnEvent{}, fmt.Errorf("parse sun longitude: %w", err)
	}
	ev.MoonLon, err = decimal.NewFromString(moonStr)
	if err != nil {
		return ReturnEvent{}, fmt.Errorf("parse moon longitude: %w", err)
	}
	ev.Separation, err = decimal.NewFromString(separationStr)
	if err != nil {
		return ReturnEvent{}, fmt.Errorf("parse separation: %w", err)
	}

	return ev, nil
}
