// Package ephem provides ecliptic longitudes for solar-system bodies.
package ephem

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Body identifies a tracked solar-system body.
type Body string

const (
	Sun  Body = "sun"
	Moon Body = "moon"
)

// ParseBody parses a body name.
func ParseBody(s string) (Body, error) {
	switch s {
	case "sun":
		return Sun, nil
	case "moon":
		return Moon, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBody, s)
	}
}

var (
	// ErrUnknownBody indicates a body the provider cannot resolve.
	ErrUnknownBody = errors.New("ephem: unknown body")
	// ErrOutOfRange indicates an instant outside the provider's supported span.
	// Callers must treat this as fatal configuration, never clamp.
	ErrOutOfRange = errors.New("ephem: instant outside supported range")
)

// Provider supplies geocentric ecliptic longitudes.
//
// Implementations must be deterministic: repeated calls for the same body and
// instant return identical values. The search core relies on that to
// re-evaluate freely during refinement, and runs independent searches
// concurrently, so implementations must also be safe for concurrent reads.
type Provider interface {
	// Name returns the provider name for display/logging.
	Name() string

	// EclipticLongitude returns the body's geocentric ecliptic longitude of
	// date in degrees, normalized to [0, 360).
	EclipticLongitude(ctx context.Context, body Body, t time.Time) (float64, error)
}
