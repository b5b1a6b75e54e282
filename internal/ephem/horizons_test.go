package ephem

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const horizonsTable = `Some header text
$$SOE
 2025-Apr-01 00:00:00.000 *m  191.123456   0.000213
 2025-Apr-01 00:01:00.000 *m  191.124001   0.000214
$$EOE
Some footer`

func TestHorizonsFetchSuccess(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		q := r.URL.Query()
		if q.Get("COMMAND") != "'301'" {
			t.Errorf("COMMAND = %q, want '301'", q.Get("COMMAND"))
		}
		if q.Get("QUANTITIES") != "'31'" {
			t.Errorf("QUANTITIES = %q, want '31'", q.Get("QUANTITIES"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"result": horizonsTable})
	}))
	defer srv.Close()

	h := NewHorizons(HorizonsOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	at := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	lon, err := h.EclipticLongitude(context.Background(), Moon, at)
	if err != nil {
		t.Fatalf("EclipticLongitude: %v", err)
	}
	if math.Abs(lon-191.123456) > 1e-9 {
		t.Errorf("lon = %v, want 191.123456", lon)
	}

	// Second call for the same instant must come from cache.
	if _, err := h.EclipticLongitude(context.Background(), Moon, at); err != nil {
		t.Fatalf("cached EclipticLongitude: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected 1 upstream request, got %d", got)
	}
}

func TestHorizonsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := NewHorizons(HorizonsOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := h.EclipticLongitude(context.Background(), Sun, time.Now()); err == nil {
		t.Fatal("HTTP 503 should surface as an error")
	}
}

func TestHorizonsOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "No ephemeris for target \"Moon\" prior to A.D. 1599-DEC-08",
		})
	}))
	defer srv.Close()

	h := NewHorizons(HorizonsOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	_, err := h.EclipticLongitude(context.Background(), Moon, time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestHorizonsUnknownBody(t *testing.T) {
	h := NewHorizons(HorizonsOptions{BaseURL: "http://invalid.test"}, zerolog.Nop())
	if _, err := h.EclipticLongitude(context.Background(), Body("x"), time.Now()); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("expected ErrUnknownBody, got %v", err)
	}
}

func TestParseHorizonsLongitudeNoMarkers(t *testing.T) {
	body, _ := json.Marshal(map[string]string{"result": "garbage without markers"})
	if _, err := parseHorizonsLongitude(body); err == nil {
		t.Fatal("missing markers should fail")
	}
}
