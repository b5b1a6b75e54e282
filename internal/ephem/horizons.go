package ephem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lonwatch/internal/astro"
)

const (
	// DefaultHorizonsURL is the JPL Horizons JSON API endpoint.
	DefaultHorizonsURL = "https://ssd.jpl.nasa.gov/api/horizons.api"

	// defaultHorizonsTimeout bounds a single API request.
	defaultHorizonsTimeout = 30 * time.Second
)

// NAIF IDs for the bodies the finder tracks.
var horizonsCommands = map[Body]string{
	Sun:  "10",
	Moon: "301",
}

// HorizonsOptions parameterise the Horizons client.
type HorizonsOptions struct {
	BaseURL string
	Timeout time.Duration
}

// Horizons queries the JPL Horizons API for geocentric ecliptic longitudes
// (observer-table quantity 31, ObsEcLon). Results are cached per body and
// instant because refinement revisits nearby instants repeatedly.
type Horizons struct {
	opts   HorizonsOptions
	client *http.Client
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]float64
}

// NewHorizons builds a Horizons-backed provider.
func NewHorizons(opts HorizonsOptions, logger zerolog.Logger) *Horizons {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultHorizonsURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHorizonsTimeout
	}
	return &Horizons{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With().Str("component", "horizons").Logger(),
		cache:  make(map[string]float64),
	}
}

// Name implements Provider.
func (h *Horizons) Name() string {
	return "horizons"
}

// EclipticLongitude implements Provider.
func (h *Horizons) EclipticLongitude(ctx context.Context, body Body, t time.Time) (float64, error) {
	command, ok := horizonsCommands[body]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownBody, body)
	}

	key := string(body) + "@" + strconv.FormatInt(t.UnixNano(), 10)
	h.mu.RLock()
	lon, hit := h.cache[key]
	h.mu.RUnlock()
	if hit {
		return lon, nil
	}

	lon, err := h.query(ctx, command, t)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	h.cache[key] = lon
	h.mu.Unlock()

	return lon, nil
}

// query requests a single ephemeris point from the API.
func (h *Horizons) query(ctx context.Context, command string, t time.Time) (float64, error) {
	// Values must be quoted with single quotes.
	params := url.Values{}
	params.Set("format", "json")
	params.Set("COMMAND", fmt.Sprintf("'%s'", command))
	params.Set("OBJ_DATA", "NO")
	params.Set("MAKE_EPHEM", "YES")
	params.Set("EPHEM_TYPE", "OBSERVER")
	params.Set("CENTER", "'500@399'") // geocentric
	params.Set("REF_SYSTEM", "ICRF")
	params.Set("START_TIME", fmt.Sprintf("'%s'", formatHorizonsTime(t)))
	params.Set("STOP_TIME", fmt.Sprintf("'%s'", formatHorizonsTime(t.Add(time.Minute))))
	params.Set("STEP_SIZE", "'1 m'")
	params.Set("QUANTITIES", "'31'") // 31=ObsEcLon/ObsEcLat

	reqURL := h.opts.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create horizons request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("horizons request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("horizons returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read horizons response: %w", err)
	}

	lon, err := parseHorizonsLongitude(body)
	if err != nil {
		return 0, err
	}

	h.logger.Debug().Time("t", t).Str("command", command).Float64("lon", lon).Msg("horizons point fetched")
	return lon, nil
}

// horizonsResponse represents the JSON API envelope.
type horizonsResponse struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// parseHorizonsLongitude extracts the first ObsEcLon value from the text
// table embedded in the JSON response.
func parseHorizonsLongitude(body []byte) (float64, error) {
	var resp horizonsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parse horizons JSON: %w", err)
	}
	if resp.Error != "" {
		if strings.Contains(resp.Error, "No ephemeris") || strings.Contains(resp.Error, "prior to") {
			return 0, fmt.Errorf("%w: %s", ErrOutOfRange, resp.Error)
		}
		return 0, fmt.Errorf("horizons error: %s", resp.Error)
	}

	// Data rows sit between the $$SOE and $$EOE markers.
	soeIdx := strings.Index(resp.Result, "$$SOE")
	eoeIdx := strings.Index(resp.Result, "$$EOE")
	if soeIdx == -1 || eoeIdx == -1 || soeIdx >= eoeIdx {
		if strings.Contains(resp.Result, "No ephemeris for target") {
			return 0, fmt.Errorf("%w: %s", ErrOutOfRange, firstLine(resp.Result))
		}
		return 0, fmt.Errorf("could not find ephemeris data markers")
	}

	for _, line := range strings.Split(resp.Result[soeIdx+5:eoeIdx], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Format: 2025-Apr-01 00:00 [flags] <ObsEcLon> <ObsEcLat>
		// Flag fields (*, *m, Cm, ...) are not numeric; the first numeric
		// field after date and time is the longitude.
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		for i := 2; i < len(fields); i++ {
			if v, err := strconv.ParseFloat(fields[i], 64); err == nil {
				return astro.Normalize(v), nil
			}
		}
	}

	return 0, fmt.Errorf("no parseable ephemeris rows in horizons response")
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// formatHorizonsTime formats a time for the Horizons API.
func formatHorizonsTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

var _ Provider = (*Horizons)(nil)
