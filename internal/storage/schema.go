package storage

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS search_runs (
    id            BIGSERIAL PRIMARY KEY,
    window_start  TIMESTAMPTZ NOT NULL,
    window_end    TIMESTAMPTZ NOT NULL,
    step_seconds  BIGINT      NOT NULL,
    tolerance_deg NUMERIC     NOT NULL,
    provider      TEXT        NOT NULL,
    timezone      TEXT        NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS return_events (
    id         BIGSERIAL PRIMARY KEY,
    run_id     BIGINT      NOT NULL REFERENCES search_runs(id),
    section    TEXT        NOT NULL,
    event_ts   TIMESTAMPTZ NOT NULL,
    sun_lon    NUMERIC     NOT NULL,
    moon_lon   NUMERIC     NOT NULL,
    separation NUMERIC     NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (section, event_ts)
);

CREATE INDEX IF NOT EXISTS idx_return_events_ts ON return_events (event_ts DESC);
`

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
