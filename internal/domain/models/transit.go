package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Transit is one body pair in aspect on one day.
type Transit struct {
	Date              time.Time  `json:"date"`
	TransitBody       string     `json:"transit_body"`
	NatalBody         string     `json:"natal_body"`
	Aspect            string     `json:"aspect"`
	Orb               float64    `json:"orb"`
	TransitLongitude  float64    `json:"transit_longitude"`
	NatalLongitude    float64    `json:"natal_longitude"`
	TransitRetrograde Retrograde `json:"transit_retrograde"`
	NatalRetrograde   Retrograde `json:"natal_retrograde"`
	TransitSign       string     `json:"transit_sign"`
	NatalSign         string     `json:"natal_sign"`
	TransitHouse      int        `json:"transit_house,omitempty"`
	NatalHouse        int        `json:"natal_house,omitempty"`
}

// Pair identifies the body pair independently of the day.
func (t Transit) Pair() PairKey { return PairKey{Transit: t.TransitBody, Natal: t.NatalBody} }

// PairKey is the aspect-state map key.
type PairKey struct {
	Transit string
	Natal   string
}

// DailyTransits is the per-day aggregate.
type DailyTransits struct {
	Date              time.Time  `json:"date"`
	Transits          []Transit  `json:"transits"`
	AspectChanges     []Transit  `json:"aspect_changes"`
	Ended             []Transit  `json:"ended,omitempty"`
	Positions         []Position `json:"positions,omitempty"`
	MoonPhase         string     `json:"moon_phase,omitempty"`
	Retrogrades       []string   `json:"retrogrades,omitempty"`
	RetrogradeUnknown []string   `json:"retrograde_unknown,omitempty"`
}

// RetrogradeSummary renders the retrograde line. Bodies with unknown motion
// are named so that "none" is only printed when every body is known direct.
func RetrogradeSummary(retro, unknown []string) string {
	known := "none"
	if len(retro) > 0 {
		known = strings.Join(retro, ", ")
	}
	if len(unknown) == 0 {
		return known
	}
	if len(retro) == 0 {
		known = "none known"
	}
	return fmt.Sprintf("%s (unknown: %s)", known, strings.Join(unknown, ", "))
}

// Notable reports whether the day belongs in a report.
func (d DailyTransits) Notable() bool {
	return len(d.Transits) > 0 || len(d.AspectChanges) > 0 || len(d.Ended) > 0
}

// Report is a generated range report.
type Report struct {
	ID          uuid.UUID       `json:"id"`
	Mode        ReportMode      `json:"mode"`
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	Bodies      []string        `json:"bodies"`
	Days        []DailyTransits `json:"days"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ReportMode selects which two position streams feed the matcher.
type ReportMode string

const (
	ModeNatal  ReportMode = "natal"
	ModeWeekly ReportMode = "weekly"
)

// ReportFormat selects the rendered output.
type ReportFormat string

const (
	FormatText     ReportFormat = "text"
	FormatMarkdown ReportFormat = "markdown"
	FormatJSON     ReportFormat = "json"
)

// StoredTransit is a persisted transit row.
type StoredTransit struct {
	ReportID uuid.UUID `json:"report_id"`
	IsChange bool      `json:"is_change"`
	Transit
}
