package service

import (
	"time"

	"lonwatch/internal/search"
)

// Section names used in reports and persistence.
const (
	SectionSun        = "sun"
	SectionMoon       = "moon"
	SectionSeparation = "moon-sun"
)

// EventRecord is one accepted return event, enriched with the sun and moon
// longitudes and their separation at that instant.
type EventRecord struct {
	Time       time.Time
	SunLon     float64
	MoonLon    float64
	Separation float64
}

// Section groups the events of one search together with its diagnostics.
type Section struct {
	Name         string
	Label        string
	Baseline     float64
	Events       []EventRecord
	Rejected     int
	Nonconverged int
}

// Report is the outcome of a full three-target search over one window.
type Report struct {
	Window    search.Window
	Provider  string
	Generated time.Time
	Sections  []Section
}

// TotalEvents sums accepted events across all sections.
func (r Report) TotalEvents() int {
	total := 0
	for _, s := range r.Sections {
		total += len(s.Events)
	}
	return total
}

// Trace is a sampled time series of the three tracked angles, used for
// chart rendering.
type Trace struct {
	Times      []time.Time
	Sun        []float64
	Moon       []float64
	Separation []float64
}

func sectionLabel(name string) string {
	switch name {
	case SectionSun:
		return "Sun longitude returns"
	case SectionMoon:
		return "Moon longitude returns"
	case SectionSeparation:
		return "Moon-sun separation returns"
	default:
		return name
	}
}
