package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lonwatch/internal/config"
)

func testApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return NewApp(cfg, testLogger())
}

func TestParseWindowUsesConfiguredTimezone(t *testing.T) {
	a := testApp(t)

	w, err := a.parseWindow("2024-01-01 00:00:00", "2024-02-01 00:00:00")
	require.NoError(t, err)

	// Asia/Shanghai midnight is 16:00 UTC the previous day.
	assert.Equal(t, time.Date(2023, 12, 31, 16, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 1, 31, 16, 0, 0, 0, time.UTC), w.End)
}

func TestParseWindowAcceptsDateOnly(t *testing.T) {
	a := testApp(t)

	w, err := a.parseWindow("2024-01-01", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, w.End.Sub(w.Start))
}

func TestParseWindowRejectsInvertedBounds(t *testing.T) {
	a := testApp(t)

	_, err := a.parseWindow("2024-02-01", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must precede")
}

func TestParseWindowRejectsGarbage(t *testing.T) {
	a := testApp(t)

	_, err := a.parseWindow("not-a-time", "2024-01-01")
	require.Error(t, err)
}
