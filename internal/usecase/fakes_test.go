package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"AstroTransit/internal/domain/models"
	"AstroTransit/internal/services/aspects"
	"AstroTransit/internal/services/transits"

	"github.com/google/uuid"
)

// scriptResolver serves longitudes per calendar day (UTC) with a fallback table.
type scriptResolver struct {
	byDay map[string]map[string]float64
	fixed map[string]float64
	retro map[string]bool
	// noMotion makes every body report RetrogradeUnknown.
	noMotion bool
	err      error
}

func (s *scriptResolver) Resolve(ctx context.Context, at time.Time, body string) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, err
	}
	if s.err != nil {
		return models.Position{}, s.err
	}
	lon, ok := s.byDay[at.UTC().Format(dateLayout)][body]
	if !ok {
		lon, ok = s.fixed[body]
	}
	if !ok {
		return models.Position{}, models.Unavailable(body, at, errors.New("not scripted"))
	}
	r := models.Direct
	switch {
	case s.noMotion:
		r = models.RetrogradeUnknown
	case s.retro[body]:
		r = models.Retro
	}
	return models.Position{Body: body, Longitude: lon, Retrograde: r}, nil
}

type fixedHouses struct{ asc float64 }

func (f fixedHouses) Houses(context.Context, time.Time, float64, float64) (models.Houses, error) {
	return models.Houses{Cusps: models.EqualHouses(f.asc), Ascendant: f.asc, Midheaven: models.NormalizeDegrees(f.asc - 90)}, nil
}

type memStore struct {
	mu      sync.Mutex
	reports []*models.Report
	err     error
}

func (m *memStore) SaveReport(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, r)
	return nil
}

func (m *memStore) Transits(context.Context, uuid.UUID) ([]models.StoredTransit, error) {
	return nil, nil
}

func (m *memStore) Health(context.Context) error { return nil }

func (m *memStore) saved() []*models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Report(nil), m.reports...)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []models.Transit
	err     error
}

func (p *recordingPublisher) PublishChanges(_ context.Context, _ uuid.UUID, changes []models.Transit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, changes...)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newScanner(r *scriptResolver, bodies []string, opts ...transits.Option) *transits.Scanner {
	opts = append([]transits.Option{
		transits.WithBodies(bodies),
		transits.WithMundaneMatcher(aspects.MustMatcher(aspects.MundaneTable)),
	}, opts...)
	return transits.NewScanner(r, aspects.MustMatcher(aspects.NatalTable), opts...)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sunChart(lon float64) *models.NatalChart {
	c, err := models.NewNatalChart(
		[]models.Position{{Body: models.Sun, Longitude: lon, Retrograde: models.Direct}},
		models.Houses{Cusps: models.EqualHouses(0)},
		models.BirthData{Time: date(1990, 1, 1)},
	)
	if err != nil {
		panic(err)
	}
	return c
}
