package transits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AstroTransit/internal/domain/models"
	drepo "AstroTransit/internal/domain/repository"
	domsvc "AstroTransit/internal/domain/service"
	"AstroTransit/internal/services/aspects"
	"AstroTransit/pkg/logger"
	"AstroTransit/pkg/metrics"
)

// Option configures a Scanner.
type Option func(*Scanner)

// WithBodies sets the tracked transiting bodies.
func WithBodies(bodies []string) Option {
	return func(s *Scanner) {
		if len(bodies) > 0 {
			s.bodies = append([]string(nil), bodies...)
		}
	}
}

// WithMundaneMatcher sets the matcher used for planet-to-planet scans.
func WithMundaneMatcher(m domsvc.AspectMatcher) Option {
	return func(s *Scanner) {
		s.mundane = m
	}
}

// WithScanHour sets the local hour at which each day is sampled.
func WithScanHour(hour int) Option {
	return func(s *Scanner) {
		if hour >= 0 && hour < 24 {
			s.scanHour = hour
		}
	}
}

// WithLocation sets the calendar used to interpret dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Scanner) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m drepo.Metrics) Option {
	return func(s *Scanner) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

// Scanner resolves the tracked bodies for a day and matches them against a
// second position stream: a natal chart, or the same sky for mundane scans.
type Scanner struct {
	resolver drepo.PositionResolver
	natal    domsvc.AspectMatcher
	mundane  domsvc.AspectMatcher
	bodies   []string
	scanHour int
	loc      *time.Location
	metrics  drepo.Metrics
	log      *logger.Logger
}

// NewScanner creates a scanner. The natal matcher is also used for mundane
// scans unless WithMundaneMatcher is given.
func NewScanner(resolver drepo.PositionResolver, natal domsvc.AspectMatcher, opts ...Option) *Scanner {
	s := &Scanner{
		resolver: resolver,
		natal:    natal,
		bodies:   append([]string(nil), models.DefaultBodies...),
		scanHour: 12,
		loc:      time.UTC,
		metrics:  metrics.Nop{},
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mundane == nil {
		s.mundane = s.natal
	}
	return s
}

// Bodies returns the tracked body list.
func (s *Scanner) Bodies() []string {
	return append([]string(nil), s.bodies...)
}

// ForBodies returns a copy of the scanner tracking a different body list.
func (s *Scanner) ForBodies(bodies []string) *Scanner {
	c := *s
	c.bodies = append([]string(nil), bodies...)
	return &c
}

// Location returns the calendar used for dates.
func (s *Scanner) Location() *time.Location { return s.loc }

// Instant is the moment at which date is sampled.
func (s *Scanner) Instant(date time.Time) time.Time {
	y, m, d := date.In(s.loc).Date()
	return time.Date(y, m, d, s.scanHour, 0, 0, 0, s.loc)
}

// Positions resolves every tracked body at the instant. Unavailable bodies
// are skipped; any other resolver failure aborts.
func (s *Scanner) Positions(ctx context.Context, at time.Time) ([]models.Position, error) {
	return s.resolve(ctx, at, s.bodies)
}

func (s *Scanner) resolve(ctx context.Context, at time.Time, bodies []string) ([]models.Position, error) {
	out := make([]models.Position, 0, len(bodies))
	for _, body := range bodies {
		pos, err := s.resolver.Resolve(ctx, at, body)
		if err != nil {
			if errors.Is(err, models.ErrPositionUnavailable) {
				s.metrics.RecordUnavailable(body)
				s.log.Debug("position unavailable, skipping body",
					logger.String("body", body),
					logger.Time("at", at),
					logger.Error(err),
				)
				continue
			}
			return nil, fmt.Errorf("resolve %s: %w", body, err)
		}
		pos.Body = body
		pos.Longitude = models.NormalizeDegrees(pos.Longitude)
		out = append(out, pos)
	}
	return out, nil
}

// PairOptions controls how two position streams are paired.
type PairOptions struct {
	// LeftHouses places left-side bodies; nil leaves house 0.
	LeftHouses *models.HouseCusps
	// RightHouses places right-side bodies.
	RightHouses *models.HouseCusps
	// Distinct pairs each unordered body pair once and skips self pairs,
	// for when both sides are the same stream.
	Distinct bool
	// Matcher overrides the scanner's natal matcher.
	Matcher domsvc.AspectMatcher
}

// ScanPairs matches every left position against every right position in
// input order and returns a Transit for each pair in aspect.
func (s *Scanner) ScanPairs(date time.Time, left, right []models.Position, opts PairOptions) []models.Transit {
	matcher := opts.Matcher
	if matcher == nil {
		matcher = s.natal
	}
	var out []models.Transit
	for i, l := range left {
		for j, r := range right {
			if opts.Distinct && (j <= i || l.Body == r.Body) {
				continue
			}
			m, ok := matcher.Match(l.Longitude, r.Longitude)
			if !ok {
				continue
			}
			tr := models.Transit{
				Date:              date,
				TransitBody:       l.Body,
				NatalBody:         r.Body,
				Aspect:            m.Aspect,
				Orb:               m.Orb,
				TransitLongitude:  l.Longitude,
				NatalLongitude:    r.Longitude,
				TransitRetrograde: l.Retrograde,
				NatalRetrograde:   r.Retrograde,
				TransitSign:       models.SignOf(l.Longitude),
				NatalSign:         models.SignOf(r.Longitude),
			}
			if opts.LeftHouses != nil {
				tr.TransitHouse = aspects.HouseOf(l.Longitude, *opts.LeftHouses)
			}
			if opts.RightHouses != nil {
				tr.NatalHouse = aspects.HouseOf(r.Longitude, *opts.RightHouses)
			}
			out = append(out, tr)
		}
	}
	return out
}

// DayScan is the matcher output for one date before change tracking.
type DayScan struct {
	Date      time.Time
	Positions []models.Position
	Transits  []models.Transit
}

// ScanDay scans one date. With a chart it matches the sky against the natal
// planets and places both sides in the natal houses; without one it matches
// the sky against itself using the mundane matcher.
func (s *Scanner) ScanDay(ctx context.Context, date time.Time, chart *models.NatalChart) (DayScan, error) {
	day := models.Date(date, s.loc)
	positions, err := s.Positions(ctx, s.Instant(day))
	if err != nil {
		return DayScan{}, err
	}
	scan := DayScan{Date: day, Positions: positions}
	if chart == nil {
		scan.Transits = s.ScanPairs(day, positions, positions, PairOptions{Distinct: true, Matcher: s.mundane})
		return scan, nil
	}
	cusps := chart.Houses()
	scan.Transits = s.ScanPairs(day, positions, chart.Planets(), PairOptions{
		LeftHouses:  &cusps,
		RightHouses: &cusps,
	})
	return scan, nil
}

// ScanNatal returns only the transits to chart on date.
func (s *Scanner) ScanNatal(ctx context.Context, date time.Time, chart *models.NatalChart) ([]models.Transit, error) {
	if chart == nil {
		return nil, models.ErrInvalidChart
	}
	scan, err := s.ScanDay(ctx, date, chart)
	if err != nil {
		return nil, err
	}
	return scan.Transits, nil
}

// ScanMundane returns the planet-to-planet aspects on date.
func (s *Scanner) ScanMundane(ctx context.Context, date time.Time) ([]models.Transit, error) {
	scan, err := s.ScanDay(ctx, date, nil)
	if err != nil {
		return nil, err
	}
	return scan.Transits, nil
}

// ResolveBodies resolves an explicit body list at an instant, skipping unavailable ones.
func (s *Scanner) ResolveBodies(ctx context.Context, at time.Time, bodies []string) ([]models.Position, error) {
	return s.resolve(ctx, at, bodies)
}
