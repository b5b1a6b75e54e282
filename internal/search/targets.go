package search

import (
	"context"
	"fmt"
	"time"

	"lonwatch/internal/astro"
	"lonwatch/internal/ephem"
)

// Target bundles the reference value and the sign/value functions for one
// search. The Finder never knows which bodies a Target combines; composite
// and single-body searches share the same contract.
type Target struct {
	// Name labels the search in logs and reports.
	Name string
	// Target is the normalized reference angle in degrees.
	Target float64
	// Sign reports the side of the tracked difference at an instant.
	Sign SignFunc
	// Value returns the raw tracked angle for the tolerance re-check.
	Value ValueFunc
}

// BodyReturn builds a Target for "body's longitude returns to its value at
// t0". The baseline is read once from the provider; the closures carry only
// that immutable value and the body identifier.
func BodyReturn(ctx context.Context, p ephem.Provider, body ephem.Body, t0 time.Time) (Target, error) {
	base, err := p.EclipticLongitude(ctx, body, t0)
	if err != nil {
		return Target{}, fmt.Errorf("baseline longitude of %s: %w", body, err)
	}

	value := func(ctx context.Context, t time.Time) (float64, error) {
		return p.EclipticLongitude(ctx, body, t)
	}
	sign := func(ctx context.Context, t time.Time) (bool, error) {
		v, err := value(ctx, t)
		if err != nil {
			return false, err
		}
		return astro.ShortestDiff(v, base) > 0, nil
	}

	return Target{
		Name:   string(body),
		Target: base,
		Sign:   sign,
		Value:  value,
	}, nil
}

// SeparationReturn builds a Target for "the normalized longitude difference
// primary minus secondary returns to its value at t0" (e.g. the moon-sun
// elongation).
func SeparationReturn(ctx context.Context, p ephem.Provider, primary, secondary ephem.Body, t0 time.Time) (Target, error) {
	lp, err := p.EclipticLongitude(ctx, primary, t0)
	if err != nil {
		return Target{}, fmt.Errorf("baseline longitude of %s: %w", primary, err)
	}
	ls, err := p.EclipticLongitude(ctx, secondary, t0)
	if err != nil {
		return Target{}, fmt.Errorf("baseline longitude of %s: %w", secondary, err)
	}
	base := astro.Normalize(lp - ls)

	value := func(ctx context.Context, t time.Time) (float64, error) {
		a, err := p.EclipticLongitude(ctx, primary, t)
		if err != nil {
			return 0, err
		}
		b, err := p.EclipticLongitude(ctx, secondary, t)
		if err != nil {
			return 0, err
		}
		return astro.Normalize(a - b), nil
	}
	sign := func(ctx context.Context, t time.Time) (bool, error) {
		v, err := value(ctx, t)
		if err != nil {
			return false, err
		}
		return astro.ShortestDiff(v, base) > 0, nil
	}

	return Target{
		Name:   fmt.Sprintf("%s-%s", primary, secondary),
		Target: base,
		Sign:   sign,
		Value:  value,
	}, nil
}
