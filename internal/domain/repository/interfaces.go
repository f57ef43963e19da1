package repository

import (
	"context"
	"time"

	"AstroTransit/internal/domain/models"

	"github.com/google/uuid"
)

// PositionResolver returns a body's ecliptic position at an instant.
// Bodies the provider cannot serve yield an error matching models.ErrPositionUnavailable.
type PositionResolver interface {
	Resolve(ctx context.Context, at time.Time, body string) (models.Position, error)
}

// HouseResolver computes house cusps for a place and instant.
type HouseResolver interface {
	Houses(ctx context.Context, at time.Time, latitude, longitude float64) (models.Houses, error)
}

// Ephemeris is a provider that can do both.
type Ephemeris interface {
	PositionResolver
	HouseResolver
}

// ReportStore persists generated reports.
type ReportStore interface {
	SaveReport(ctx context.Context, r *models.Report) error
	Transits(ctx context.Context, reportID uuid.UUID) ([]models.StoredTransit, error)
	Health(ctx context.Context) error
}

// EventPublisher emits aspect-change events.
type EventPublisher interface {
	PublishChanges(ctx context.Context, reportID uuid.UUID, changes []models.Transit) error
	Close() error
}

type Metrics interface {
	RecordReport(mode string, days int)
	RecordDaysScanned(mode string, n int)
	RecordUnavailable(body string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
