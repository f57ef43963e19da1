package usecase

import (
	"context"
	"fmt"
	"time"

	"AstroTransit/internal/domain/models"
	drepo "AstroTransit/internal/domain/repository"
	"AstroTransit/internal/services/transits"
	"AstroTransit/pkg/logger"
)

// ChartService builds natal charts and compares them.
type ChartService struct {
	scanner *transits.Scanner
	houses  drepo.HouseResolver
	log     *logger.Logger
}

// NewChartService creates a chart service. The scanner's body list is the
// set of natal planets resolved for a birth moment.
func NewChartService(scanner *transits.Scanner, houses drepo.HouseResolver, log *logger.Logger) *ChartService {
	if log == nil {
		log = logger.Nop()
	}
	return &ChartService{scanner: scanner, houses: houses, log: log}
}

// BuildChart resolves planets and houses for a birth moment. Bodies the
// ephemeris cannot place are left out of the chart.
func (s *ChartService) BuildChart(ctx context.Context, birth models.BirthData) (*models.NatalChart, error) {
	planets, err := s.scanner.Positions(ctx, birth.Time)
	if err != nil {
		return nil, fmt.Errorf("resolve natal planets: %w", err)
	}
	houses, err := s.houses.Houses(ctx, birth.Time, birth.Latitude, birth.Longitude)
	if err != nil {
		return nil, fmt.Errorf("resolve natal houses: %w", err)
	}
	chart, err := models.NewNatalChart(planets, houses, birth)
	if err != nil {
		return nil, err
	}
	s.log.Debug("natal chart built",
		logger.Time("birth", birth.Time),
		logger.Int("planets", len(planets)),
		logger.Float64("ascendant", houses.Ascendant),
	)
	return chart, nil
}

// BirthFromRequest parses the request form of birth data.
func BirthFromRequest(r models.BirthRequest) (models.BirthData, error) {
	t, err := time.Parse(time.RFC3339, r.Time)
	if err != nil {
		return models.BirthData{}, fmt.Errorf("%w: birth time %q: %v", models.ErrInvalidChart, r.Time, err)
	}
	return models.BirthData{Time: t, Latitude: r.Latitude, Longitude: r.Longitude}, nil
}

// ResolveChart returns the supplied chart, or builds one from birth data.
func (s *ChartService) ResolveChart(ctx context.Context, dto *models.ChartDTO, birth *models.BirthRequest) (*models.NatalChart, error) {
	switch {
	case dto != nil:
		return dto.Chart()
	case birth != nil:
		bd, err := BirthFromRequest(*birth)
		if err != nil {
			return nil, err
		}
		return s.BuildChart(ctx, bd)
	default:
		return nil, fmt.Errorf("%w: chart or birth data required", models.ErrInvalidChart)
	}
}

// SynastryResult lists the aspects between two charts.
type SynastryResult struct {
	Aspects []models.Transit `json:"aspects"`
}

// Synastry matches every planet of a against every planet of b. A's bodies
// are placed in b's houses and b's bodies in a's.
func (s *ChartService) Synastry(a, b *models.NatalChart) SynastryResult {
	if a == nil || b == nil {
		return SynastryResult{Aspects: []models.Transit{}}
	}
	aHouses, bHouses := a.Houses(), b.Houses()
	found := s.scanner.ScanPairs(a.ReferenceDate(), a.Planets(), b.Planets(), transits.PairOptions{
		LeftHouses:  &bHouses,
		RightHouses: &aHouses,
	})
	return SynastryResult{Aspects: nonNil(found)}
}
