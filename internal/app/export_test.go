package app

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lonwatch/internal/search"
	"lonwatch/internal/service"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func sampleReport() service.Report {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return service.Report{
		Window:   search.Window{Start: start, End: start.AddDate(1, 0, 0)},
		Provider: "analytic",
		Sections: []service.Section{
			{
				Name:  service.SectionSun,
				Label: "Sun longitude returns",
			},
			{
				Name:  service.SectionMoon,
				Label: "Moon longitude returns",
				Events: []service.EventRecord{
					{
						Time:       start.AddDate(0, 0, 27).Add(13 * time.Hour),
						SunLon:     307.25,
						MoonLon:    100.5,
						Separation: 153.25,
					},
				},
			},
			{
				Name:  service.SectionSeparation,
				Label: "Moon-sun separation returns",
				Events: []service.EventRecord{
					{
						Time:       start.AddDate(0, 0, 29).Add(12 * time.Hour),
						SunLon:     309.7,
						MoonLon:    129.2,
						Separation: 179.5,
					},
				},
			},
		},
	}
}

func TestWriteEventsCSVSectionLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")

	require.NoError(t, writeEventsCSV(path, sampleReport(), time.UTC))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)

	// The reader drops the blank separator lines between blocks.
	require.Len(t, rows, 8)

	assert.Equal(t, []string{"Sun longitude returns (0 events)"}, rows[0])
	assert.Equal(t, []string{"time", "sun", "moon", "moon_sun"}, rows[1])

	assert.Equal(t, []string{"Moon longitude returns (1 events)"}, rows[2])
	assert.Equal(t, []string{"time", "sun", "moon", "moon_sun"}, rows[3])
	moonRow := rows[4]
	require.Len(t, moonRow, 4)
	assert.Equal(t, "2024-01-28 13:00:00", moonRow[0])
	assert.Contains(t, moonRow[2], "100°30′")

	assert.Equal(t, []string{"Moon-sun separation returns (1 events)"}, rows[5])
}

func TestWriteEventsCSVCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "events.csv")

	require.NoError(t, writeEventsCSV(path, sampleReport(), time.UTC))

	_, err := os.Stat(path)
	require.NoError(t, err)
}
