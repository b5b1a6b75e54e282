package search

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lonwatch/internal/astro"
	"lonwatch/internal/ephem"
)

// linearProvider drives each body along the ecliptic at a constant rate.
// It is the synthetic oracle for the acceptance scenarios: pure, cheap, and
// exactly periodic.
type linearProvider struct {
	epoch  time.Time
	bases  map[ephem.Body]float64
	rates  map[ephem.Body]float64 // degrees per day
	failAt *time.Time
}

func (p *linearProvider) Name() string { return "linear" }

func (p *linearProvider) EclipticLongitude(ctx context.Context, body ephem.Body, t time.Time) (float64, error) {
	if p.failAt != nil && !t.Before(*p.failAt) {
		return 0, ephem.ErrOutOfRange
	}
	days := t.Sub(p.epoch).Hours() / 24
	return astro.Normalize(p.bases[body] + p.rates[body]*days), nil
}

func newLinearSun(epoch time.Time, base, ratePerDay float64) *linearProvider {
	return &linearProvider{
		epoch: epoch,
		bases: map[ephem.Body]float64{ephem.Sun: base},
		rates: map[ephem.Body]float64{ephem.Sun: ratePerDay},
	}
}

func day(epoch time.Time, d float64) time.Time {
	return epoch.Add(time.Duration(d * 24 * float64(time.Hour)))
}

func newTestFinder(t *testing.T, opts Options) *Finder {
	t.Helper()
	f, err := New(opts, zerolog.Nop())
	require.NoError(t, err)
	return f
}

func TestFindCrossingsLinearOneCycle(t *testing.T) {
	// 1°/day from 0°, 400-day window, 1-day step: exactly one return at day
	// 360. The ±180° branch cut near day 180 and the window-start echo must
	// both be rejected by the re-check, not reported.
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newLinearSun(epoch, 0, 1)

	f := newTestFinder(t, Options{Step: 24 * time.Hour, Tolerance: 0.01, Precision: time.Second})

	tgt, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	require.NoError(t, err)

	res, err := f.FindCrossings(context.Background(), tgt, Window{Start: epoch, End: day(epoch, 400)})
	require.NoError(t, err)

	require.Len(t, res.Times, 1)
	assert.WithinDuration(t, day(epoch, 360), res.Times[0], 2*time.Second)
	// Branch-cut artifact near day 180 plus the start echo.
	assert.Equal(t, 2, res.Rejected)
	assert.Zero(t, res.Nonconverged)
}

func TestFindCrossingsDecreasingSignal(t *testing.T) {
	// Retrograde motion: exact target equality at a sample boundary (day 360
	// lands exactly on a step) must still count as one crossing.
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newLinearSun(epoch, 90, -1)

	f := newTestFinder(t, Options{Step: 24 * time.Hour, Tolerance: 0.01, Precision: time.Second})

	tgt, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	require.NoError(t, err)

	res, err := f.FindCrossings(context.Background(), tgt, Window{Start: epoch, End: day(epoch, 400)})
	require.NoError(t, err)

	require.Len(t, res.Times, 1)
	assert.WithinDuration(t, day(epoch, 360), res.Times[0], 2*time.Second)
	assert.Equal(t, 1, res.Rejected) // branch cut only; no start echo going negative
}

func TestFindCrossingsMultipleReturns(t *testing.T) {
	epoch := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	p := newLinearSun(epoch, 123.4, 2)

	f := newTestFinder(t, Options{Step: 24 * time.Hour, Tolerance: 0.01, Precision: time.Second})

	tgt, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	require.NoError(t, err)

	res, err := f.FindCrossings(context.Background(), tgt, Window{Start: epoch, End: day(epoch, 400)})
	require.NoError(t, err)

	require.Len(t, res.Times, 2)
	assert.WithinDuration(t, day(epoch, 180), res.Times[0], 2*time.Second)
	assert.WithinDuration(t, day(epoch, 360), res.Times[1], 2*time.Second)
	for i := 1; i < len(res.Times); i++ {
		assert.True(t, res.Times[i].After(res.Times[i-1]), "results must be strictly increasing")
	}
}

func TestFindCrossingsPartialFinalInterval(t *testing.T) {
	// The return sits inside the final partial step; it must still be found.
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newLinearSun(epoch, 0, 1)

	f := newTestFinder(t, Options{Step: 24 * time.Hour, Tolerance: 0.01, Precision: time.Second})

	tgt, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	require.NoError(t, err)

	res, err := f.FindCrossings(context.Background(), tgt, Window{Start: epoch, End: day(epoch, 360.5)})
	require.NoError(t, err)

	require.Len(t, res.Times, 1)
	assert.WithinDuration(t, day(epoch, 360), res.Times[0], 2*time.Second)
}

func TestFindCrossingsNoReturnsInWindow(t *testing.T) {
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newLinearSun(epoch, 10, 1)

	f := newTestFinder(t, Options{Step: time.Hour, Tolerance: 0.01, Precision: time.Second})

	tgt, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	require.NoError(t, err)

	res, err := f.FindCrossings(context.Background(), tgt, Window{Start: epoch, End: day(epoch, 10)})
	require.NoError(t, err)
	assert.Empty(t, res.Times)
}

func TestFindCrossingsDegenerateWindow(t *testing.T) {
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newLinearSun(epoch, 0, 1)

	f := newTestFinder(t, Options{})

	tgt, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	require.NoError(t, err)

	res, err := f.FindCrossings(context.Background(), tgt, Window{Start: epoch, End: epoch})
	require.NoError(t, err)
	assert.Empty(t, res.Times)
}

func TestFindCrossingsInvalidWindow(t *testing.T) {
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newLinearSun(epoch, 0, 1)

	f := newTestFinder(t, Options{})

	tgt, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	require.NoError(t, err)

	_, err = f.FindCrossings(context.Background(), tgt, Window{Start: epoch, End: epoch.Add(-time.Hour)})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestFindCrossingsIdempotent(t *testing.T) {
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newLinearSun(epoch, 45, 3)

	f := newTestFinder(t, Options{Step: 12 * time.Hour, Tolerance: 0.01, Precision: time.Second})

	tgt, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	require.NoError(t, err)

	w := Window{Start: epoch, End: day(epoch, 250)}
	first, err := f.FindCrossings(context.Background(), tgt, w)
	require.NoError(t, err)
	second, err := f.FindCrossings(context.Background(), tgt, w)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFindCrossingsNonconvergence(t *testing.T) {
	// A bisection budget too small for step/precision must report the
	// bracket and carry on, not abort or fabricate a result.
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newLinearSun(epoch, 0, 1)

	f := newTestFinder(t, Options{Step: 24 * time.Hour, Tolerance: 0.01, Precision: time.Second, MaxBisect: 2})

	tgt, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	require.NoError(t, err)

	res, err := f.FindCrossings(context.Background(), tgt, Window{Start: epoch, End: day(epoch, 400)})
	require.NoError(t, err)
	assert.Empty(t, res.Times)
	assert.Equal(t, 3, res.Nonconverged) // start echo, branch cut, true return
}

func TestFindCrossingsOracleErrorPropagates(t *testing.T) {
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	fail := day(epoch, 5)
	p := newLinearSun(epoch, 0, 1)
	p.failAt = &fail

	f := newTestFinder(t, Options{Step: 24 * time.Hour, Tolerance: 0.01, Precision: time.Second})

	tgt, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	require.NoError(t, err)

	_, err = f.FindCrossings(context.Background(), tgt, Window{Start: epoch, End: day(epoch, 10)})
	assert.ErrorIs(t, err, ephem.ErrOutOfRange)
}

func TestNewRejectsNegativeOptions(t *testing.T) {
	_, err := New(Options{Step: -time.Hour}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = New(Options{Tolerance: -1}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
