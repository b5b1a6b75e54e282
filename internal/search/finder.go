// Package search implements the crossing finder: it converts a continuous
// angular signal into the discrete instants at which the signal returns to a
// reference value, robust to 0°/360° wraparound and to the false roots the
// ±180° branch cut of the shortest-arc difference introduces.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lonwatch/internal/astro"
)

// SignFunc reports whether the tracked angular difference reads as positive
// at t. Exact zero belongs to the non-positive side (strict > 0 convention),
// so an exact hit of the target flips the sign in the following interval and
// is attributed to exactly one bracket.
type SignFunc func(ctx context.Context, t time.Time) (bool, error)

// ValueFunc returns the raw tracked angle at t, normalized to [0, 360).
type ValueFunc func(ctx context.Context, t time.Time) (float64, error)

// Window is a half-open search span. Start must not be after End; an empty
// window (Start == End) yields an empty result, not an error.
type Window struct {
	Start time.Time
	End   time.Time
}

// Options tune a Finder.
type Options struct {
	// Step is the coarse sampling interval. It must be small against the
	// shortest expected period of the motion: two crossings inside one step
	// alias into zero or one detected event. There is no adaptive shrinking.
	Step time.Duration
	// Tolerance is the maximum |shortest-arc(value, target)| in degrees for
	// an accepted root. Candidates beyond it are branch-cut artifacts.
	Tolerance float64
	// Precision is the bisection bracket width at which refinement stops.
	// It bounds timing accuracy, independent of the angular Tolerance.
	Precision time.Duration
	// MaxBisect caps refinement iterations per bracket.
	MaxBisect int
}

// Defaults applied by New for zero-valued options.
const (
	DefaultStep      = time.Hour
	DefaultTolerance = 0.01
	DefaultPrecision = time.Second
	DefaultMaxBisect = 48
)

var (
	// ErrInvalidWindow indicates window start after end.
	ErrInvalidWindow = errors.New("search: window start must precede end")
	// ErrInvalidOptions indicates a non-positive step, tolerance, or precision.
	ErrInvalidOptions = errors.New("search: step, tolerance, and precision must be positive")
)

// Finder locates sign-change crossings of an angular difference.
type Finder struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Finder, applying defaults for zero options.
func New(opts Options, logger zerolog.Logger) (*Finder, error) {
	if opts.Step == 0 {
		opts.Step = DefaultStep
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.Precision == 0 {
		opts.Precision = DefaultPrecision
	}
	if opts.MaxBisect == 0 {
		opts.MaxBisect = DefaultMaxBisect
	}
	if opts.Step < 0 || opts.Tolerance < 0 || opts.Precision < 0 || opts.MaxBisect < 0 {
		return nil, ErrInvalidOptions
	}
	return &Finder{opts: opts, logger: logger.With().Str("component", "finder").Logger()}, nil
}

// Step returns the coarse sampling interval in effect.
func (f *Finder) Step() time.Duration {
	return f.opts.Step
}

// Tolerance returns the angular acceptance tolerance in degrees.
func (f *Finder) Tolerance() float64 {
	return f.opts.Tolerance
}

// Result carries accepted crossing instants plus diagnostics.
type Result struct {
	// Times holds accepted instants, strictly increasing.
	Times []time.Time
	// Rejected counts candidates discarded by the tolerance re-check
	// (branch-cut artifacts and window-start echoes). Expected, not errors.
	Rejected int
	// Nonconverged counts brackets whose refinement failed to shrink below
	// Precision within MaxBisect iterations. Reported, never fatal for the
	// remaining brackets.
	Nonconverged int
}

// FindCrossings scans the window at Step resolution for sign changes of
// tgt.Sign, refines each bracketed change by bisection to Precision, and
// accepts a candidate only when tgt.Value is within Tolerance of tgt.Target
// on the shortest arc. Oracle errors abort the search immediately.
func (f *Finder) FindCrossings(ctx context.Context, tgt Target, window Window) (Result, error) {
	if window.Start.After(window.End) {
		return Result{}, ErrInvalidWindow
	}
	if window.Start.Equal(window.End) {
		return Result{}, nil
	}

	var res Result

	prevT := window.Start
	prevSign, err := tgt.Sign(ctx, prevT)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate sign at %s: %w", prevT.Format(time.RFC3339), err)
	}

	for t := prevT.Add(f.opts.Step); ; t = t.Add(f.opts.Step) {
		// The final partial interval is still scanned.
		if t.After(window.End) {
			t = window.End
		}
		if !t.After(prevT) {
			break
		}

		sign, err := tgt.Sign(ctx, t)
		if err != nil {
			return Result{}, fmt.Errorf("evaluate sign at %s: %w", t.Format(time.RFC3339), err)
		}

		if sign != prevSign {
			if err := f.resolveBracket(ctx, tgt, window, prevT, t, prevSign, &res); err != nil {
				return Result{}, err
			}
		}

		prevT, prevSign = t, sign
		if t.Equal(window.End) {
			break
		}
	}

	return res, nil
}

// resolveBracket refines one sign-change interval and applies the acceptance
// policy to the refined candidate.
func (f *Finder) resolveBracket(ctx context.Context, tgt Target, window Window, lo, hi time.Time, loSign bool, res *Result) error {
	cand, converged, err := f.bisect(ctx, tgt, lo, hi, loSign)
	if err != nil {
		return err
	}
	if !converged {
		res.Nonconverged++
		f.logger.Warn().
			Str("target", tgt.Name).
			Time("bracket_start", lo).
			Time("bracket_end", hi).
			Msg("bisection did not converge; sign function may cross more than once per step")
		return nil
	}

	value, err := tgt.Value(ctx, cand)
	if err != nil {
		return fmt.Errorf("evaluate value at %s: %w", cand.Format(time.RFC3339), err)
	}

	diff := astro.ShortestDiff(value, tgt.Target)
	if diff < 0 {
		diff = -diff
	}
	if diff >= f.opts.Tolerance {
		// Branch-cut artifact: the shortest-arc sign flipped at ±180°, not
		// at the target.
		res.Rejected++
		f.logger.Debug().
			Str("target", tgt.Name).
			Time("candidate", cand).
			Float64("residual_deg", diff).
			Msg("candidate rejected by tolerance re-check")
		return nil
	}

	// The reference reading at window start is itself a zero of the
	// difference; a crossing refining onto it is not a return event.
	if cand.Sub(window.Start) <= f.opts.Precision {
		res.Rejected++
		f.logger.Debug().
			Str("target", tgt.Name).
			Time("candidate", cand).
			Msg("candidate coincides with window start; skipped")
		return nil
	}

	// Defensive de-duplication within timing precision.
	if n := len(res.Times); n > 0 && cand.Sub(res.Times[n-1]) <= f.opts.Precision {
		return nil
	}

	res.Times = append(res.Times, cand)
	return nil
}

// bisect shrinks [lo, hi] around the sign change until the bracket is within
// Precision, keeping the invariant sign(lo) == loSign != sign(hi). Returns
// the first instant on the new side of the bracket.
func (f *Finder) bisect(ctx context.Context, tgt Target, lo, hi time.Time, loSign bool) (time.Time, bool, error) {
	for i := 0; i < f.opts.MaxBisect && hi.Sub(lo) > f.opts.Precision; i++ {
		mid := lo.Add(hi.Sub(lo) / 2)
		if !mid.After(lo) {
			// Bracket narrower than time resolution.
			break
		}
		sign, err := tgt.Sign(ctx, mid)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("evaluate sign at %s: %w", mid.Format(time.RFC3339), err)
		}
		if sign == loSign {
			lo = mid
		} else {
			hi = mid
		}
	}
	if hi.Sub(lo) > f.opts.Precision {
		return time.Time{}, false, nil
	}
	return hi, true, nil
}
