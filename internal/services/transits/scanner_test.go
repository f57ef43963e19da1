package transits

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"AstroTransit/internal/domain/models"
	"AstroTransit/internal/services/aspects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	longitudes  map[string]float64
	unavailable map[string]bool
	failWith    error
}

func (f *fakeResolver) Resolve(_ context.Context, at time.Time, body string) (models.Position, error) {
	if f.failWith != nil {
		return models.Position{}, f.failWith
	}
	if f.unavailable[body] {
		return models.Position{}, models.Unavailable(body, at, errors.New("not modelled"))
	}
	lon, ok := f.longitudes[body]
	if !ok {
		return models.Position{}, models.Unavailable(body, at, nil)
	}
	return models.Position{Body: body, Longitude: lon, Retrograde: models.Direct}, nil
}

type countingMetrics struct {
	mu          sync.Mutex
	unavailable map[string]int
}

func (c *countingMetrics) RecordReport(string, int)      {}
func (c *countingMetrics) RecordDaysScanned(string, int) {}
func (c *countingMetrics) RecordError(string)            {}
func (c *countingMetrics) RecordLatency(string, float64) {}
func (c *countingMetrics) RecordUnavailable(body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable == nil {
		c.unavailable = map[string]int{}
	}
	c.unavailable[body]++
}

func natalChart(t *testing.T, cusps models.HouseCusps, planets ...models.Position) *models.NatalChart {
	t.Helper()
	c, err := models.NewNatalChart(planets, models.Houses{Cusps: cusps, Ascendant: cusps[0]}, models.BirthData{
		Time: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return c
}

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestScanNatal_SunConjunctSun(t *testing.T) {
	r := &fakeResolver{longitudes: map[string]float64{models.Sun: 13}}
	s := NewScanner(r, aspects.MustMatcher(aspects.NatalTable), WithBodies([]string{models.Sun}))
	chart := natalChart(t, models.EqualHouses(0), models.Position{Body: models.Sun, Longitude: 10})

	got, err := s.ScanNatal(context.Background(), day, chart)
	require.NoError(t, err)
	require.Len(t, got, 1)

	tr := got[0]
	assert.Equal(t, models.Conjunction, tr.Aspect)
	assert.InDelta(t, 3, tr.Orb, 1e-9)
	assert.Equal(t, "Aries", tr.TransitSign)
	assert.Equal(t, "Aries", tr.NatalSign)
	assert.Equal(t, 1, tr.TransitHouse)
	assert.Equal(t, 1, tr.NatalHouse)
	assert.Equal(t, day, tr.Date)
}

func TestScanNatal_HouseWrap(t *testing.T) {
	cusps := models.HouseCusps{80, 110, 140, 170, 200, 230, 260, 290, 320, 350, 20, 50}
	r := &fakeResolver{longitudes: map[string]float64{models.Mars: 5}}
	s := NewScanner(r, aspects.MustMatcher(aspects.NatalTable), WithBodies([]string{models.Mars}))
	chart := natalChart(t, cusps, models.Position{Body: models.Venus, Longitude: 2})

	got, err := s.ScanNatal(context.Background(), day, chart)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].TransitHouse)
	assert.Equal(t, 10, got[0].NatalHouse)
}

func TestScanDay_SkipsUnavailableBodies(t *testing.T) {
	m := &countingMetrics{}
	r := &fakeResolver{
		longitudes:  map[string]float64{models.Sun: 100},
		unavailable: map[string]bool{models.Chiron: true},
	}
	s := NewScanner(r, aspects.MustMatcher(aspects.NatalTable),
		WithBodies([]string{models.Chiron, models.Sun}),
		WithMetrics(m),
	)
	chart := natalChart(t, models.EqualHouses(0), models.Position{Body: models.Moon, Longitude: 220})

	scan, err := s.ScanDay(context.Background(), day, chart)
	require.NoError(t, err)
	require.Len(t, scan.Positions, 1)
	assert.Equal(t, models.Sun, scan.Positions[0].Body)
	require.Len(t, scan.Transits, 1)
	assert.Equal(t, models.Trine, scan.Transits[0].Aspect)
	assert.Equal(t, 1, m.unavailable[models.Chiron])
}

func TestScanDay_ResolverFailureAborts(t *testing.T) {
	boom := errors.New("boom")
	s := NewScanner(&fakeResolver{failWith: boom}, aspects.MustMatcher(aspects.NatalTable))

	_, err := s.ScanMundane(context.Background(), day)
	assert.ErrorIs(t, err, boom)
}

func TestScanMundane_UniquePairs(t *testing.T) {
	r := &fakeResolver{longitudes: map[string]float64{
		models.Sun:  0,
		models.Moon: 2,
		models.Mars: 92,
	}}
	s := NewScanner(r, aspects.MustMatcher(aspects.NatalTable),
		WithMundaneMatcher(aspects.MustMatcher(aspects.MundaneTable)),
		WithBodies([]string{models.Sun, models.Moon, models.Mars}),
	)

	got, err := s.ScanMundane(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, models.PairKey{Transit: models.Sun, Natal: models.Moon}, got[0].Pair())
	assert.Equal(t, models.Conjunction, got[0].Aspect)
	assert.Equal(t, models.PairKey{Transit: models.Sun, Natal: models.Mars}, got[1].Pair())
	assert.Equal(t, models.Square, got[1].Aspect)
	assert.Equal(t, models.PairKey{Transit: models.Moon, Natal: models.Mars}, got[2].Pair())
	assert.Equal(t, models.Square, got[2].Aspect)
	for _, tr := range got {
		assert.Zero(t, tr.TransitHouse)
		assert.Zero(t, tr.NatalHouse)
	}
}

func TestScanPairs_Deterministic(t *testing.T) {
	s := NewScanner(&fakeResolver{}, aspects.MustMatcher(aspects.NatalTable))
	left := []models.Position{{Body: "A", Longitude: 0}, {Body: "B", Longitude: 120}}
	right := []models.Position{{Body: "C", Longitude: 60}, {Body: "D", Longitude: 180}}

	first := s.ScanPairs(day, left, right, PairOptions{})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.ScanPairs(day, left, right, PairOptions{}))
	}
	require.Len(t, first, 4)
}

func TestScanner_Instant(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	s := NewScanner(&fakeResolver{}, aspects.MustMatcher(aspects.NatalTable), WithLocation(loc), WithScanHour(6))

	at := s.Instant(time.Date(2024, 3, 1, 0, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC), at.UTC())
}
