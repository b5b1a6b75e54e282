package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lonwatch/internal/ephem"
)

func newTwoBodyProvider(epoch time.Time, sunBase, sunRate, moonBase, moonRate float64) *linearProvider {
	return &linearProvider{
		epoch: epoch,
		bases: map[ephem.Body]float64{ephem.Sun: sunBase, ephem.Moon: moonBase},
		rates: map[ephem.Body]float64{ephem.Sun: sunRate, ephem.Moon: moonRate},
	}
}

func TestSeparationReturnTracksDifference(t *testing.T) {
	// Moon at 13.2°/day, sun at 1°/day: the separation advances at
	// 12.2°/day and returns every 360/12.2 ≈ 29.51 days.
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newTwoBodyProvider(epoch, 10, 1, 40, 13.2)

	tgt, err := SeparationReturn(context.Background(), p, ephem.Moon, ephem.Sun, epoch)
	require.NoError(t, err)
	assert.Equal(t, "moon-sun", tgt.Name)
	assert.InDelta(t, 30.0, tgt.Target, 1e-9)

	f := newTestFinder(t, Options{Step: time.Hour, Tolerance: 0.01, Precision: time.Second})

	res, err := f.FindCrossings(context.Background(), tgt, Window{Start: epoch, End: day(epoch, 60)})
	require.NoError(t, err)

	require.Len(t, res.Times, 2)
	period := 360.0 / 12.2
	assert.WithinDuration(t, day(epoch, period), res.Times[0], 2*time.Second)
	assert.WithinDuration(t, day(epoch, 2*period), res.Times[1], 2*time.Second)
}

func TestSeparationReturnUnaffectedByBodyBranchCuts(t *testing.T) {
	// The underlying moon signal wraps 0°/360° and crosses its own ±180°
	// branch cut inside the window; the composite target must still report
	// exactly its own true returns.
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newTwoBodyProvider(epoch, 170, 1, 350, 13.2)

	ctx := context.Background()
	f := newTestFinder(t, Options{Step: time.Hour, Tolerance: 0.01, Precision: time.Second})

	sep, err := SeparationReturn(ctx, p, ephem.Moon, ephem.Sun, epoch)
	require.NoError(t, err)

	res, err := f.FindCrossings(ctx, sep, Window{Start: epoch, End: day(epoch, 32)})
	require.NoError(t, err)
	require.Len(t, res.Times, 1)
	assert.WithinDuration(t, day(epoch, 360.0/12.2), res.Times[0], 2*time.Second)

	// The single-body moon search over the same window returns once (a full
	// lap at 13.2°/day takes about 27.3 days) and must reject the branch-cut
	// flip roughly half a lap earlier.
	moon, err := BodyReturn(ctx, p, ephem.Moon, epoch)
	require.NoError(t, err)

	moonRes, err := f.FindCrossings(ctx, moon, Window{Start: epoch, End: day(epoch, 32)})
	require.NoError(t, err)
	require.Len(t, moonRes.Times, 1)
	assert.WithinDuration(t, day(epoch, 360.0/13.2), moonRes.Times[0], 2*time.Second)
	assert.GreaterOrEqual(t, moonRes.Rejected, 1)
}

func TestBodyReturnBaselineValue(t *testing.T) {
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newTwoBodyProvider(epoch, 123.456, 1, 0, 13.2)

	tgt, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	require.NoError(t, err)
	assert.Equal(t, "sun", tgt.Name)
	assert.InDelta(t, 123.456, tgt.Target, 1e-9)

	v, err := tgt.Value(context.Background(), day(epoch, 10))
	require.NoError(t, err)
	assert.InDelta(t, 133.456, v, 1e-9)
}

func TestBodyReturnBaselineErrorPropagates(t *testing.T) {
	epoch := time.Date(500, time.January, 1, 0, 0, 0, 0, time.UTC)
	p := ephem.NewAnalytic()

	_, err := BodyReturn(context.Background(), p, ephem.Sun, epoch)
	assert.ErrorIs(t, err, ephem.ErrOutOfRange)

	_, err = SeparationReturn(context.Background(), p, ephem.Moon, ephem.Sun, epoch)
	assert.ErrorIs(t, err, ephem.ErrOutOfRange)
}

func TestTargetsShareOneFinderContract(t *testing.T) {
	// The finder is body-agnostic: the same instance handles single and
	// composite targets without reconfiguration.
	epoch := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	p := newTwoBodyProvider(epoch, 0, 1, 0, 13.2)

	ctx := context.Background()
	f := newTestFinder(t, Options{Step: time.Hour, Tolerance: 0.01, Precision: time.Second})

	for _, build := range []func() (Target, error){
		func() (Target, error) { return BodyReturn(ctx, p, ephem.Moon, epoch) },
		func() (Target, error) { return SeparationReturn(ctx, p, ephem.Moon, ephem.Sun, epoch) },
	} {
		tgt, err := build()
		require.NoError(t, err)
		res, err := f.FindCrossings(ctx, tgt, Window{Start: epoch, End: day(epoch, 30)})
		require.NoError(t, err)
		require.Len(t, res.Times, 1, "target %s", tgt.Name)
	}
}
