package ephemeris

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"AstroTransit/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arcDistance(a, b float64) float64 {
	return math.Abs(angleDiff(a, b))
}

func TestBuiltinResolver_SunReferencePoints(t *testing.T) {
	r := NewBuiltinResolver("equal")
	ctx := context.Background()

	j2000 := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	sun, err := r.Resolve(ctx, j2000, models.Sun)
	require.NoError(t, err)
	assert.InDelta(t, 0, arcDistance(sun.Longitude, 280.37), 0.5)

	equinox := time.Date(2024, 3, 20, 3, 6, 0, 0, time.UTC)
	sun, err = r.Resolve(ctx, equinox, models.Sun)
	require.NoError(t, err)
	assert.InDelta(t, 0, arcDistance(sun.Longitude, 0), 0.5)
	assert.Equal(t, models.Direct, sun.Retrograde)
}

func TestBuiltinResolver_LunationGeometry(t *testing.T) {
	r := NewBuiltinResolver("equal")
	ctx := context.Background()

	cases := []struct {
		name string
		at   time.Time
		sep  float64
	}{
		{"total solar eclipse", time.Date(2024, 4, 8, 18, 21, 0, 0, time.UTC), 0},
		{"penumbral lunar eclipse", time.Date(2024, 3, 25, 7, 0, 0, 0, time.UTC), 180},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sun, err := r.Resolve(ctx, tc.at, models.Sun)
			require.NoError(t, err)
			moon, err := r.Resolve(ctx, tc.at, models.Moon)
			require.NoError(t, err)
			assert.InDelta(t, tc.sep, arcDistance(moon.Longitude, sun.Longitude), 1.5)
			assert.Equal(t, models.Direct, moon.Retrograde)
		})
	}
}

func TestBuiltinResolver_RetrogradeStations(t *testing.T) {
	r := NewBuiltinResolver("equal")
	ctx := context.Background()

	cases := []struct {
		body string
		at   time.Time
		want models.Retrograde
	}{
		{models.Mercury, time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC), models.Retro},
		{models.Jupiter, time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC), models.Retro},
		{models.Saturn, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), models.Direct},
		{models.NorthNode, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), models.Retro},
	}
	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			pos, err := r.Resolve(ctx, tc.at, tc.body)
			require.NoError(t, err)
			assert.Equal(t, tc.want, pos.Retrograde)
			require.NotNil(t, pos.Speed)
			assert.GreaterOrEqual(t, pos.Longitude, 0.0)
			assert.Less(t, pos.Longitude, 360.0)
		})
	}
}

func TestBuiltinResolver_UnsupportedBody(t *testing.T) {
	r := NewBuiltinResolver("equal")
	_, err := r.Resolve(context.Background(), time.Now(), models.Chiron)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrPositionUnavailable))
	assert.True(t, errors.Is(err, ErrUnsupportedBody))
	assert.False(t, r.Supports(models.Chiron))
	assert.True(t, r.Supports(models.Pluto))
}

func TestBuiltinResolver_OutsideElementRange(t *testing.T) {
	r := NewBuiltinResolver("equal")
	for _, at := range []time.Time{
		time.Date(1799, 12, 31, 12, 0, 0, 0, time.UTC),
		time.Date(2051, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(3000, 6, 1, 12, 0, 0, 0, time.UTC),
	} {
		_, err := r.Resolve(context.Background(), at, models.Mars)
		require.Error(t, err, at)
		assert.ErrorIs(t, err, models.ErrPositionUnavailable)
		assert.ErrorIs(t, err, ErrOutOfRange)
	}

	_, err := r.Resolve(context.Background(), time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC), models.Mars)
	assert.NoError(t, err)
	_, err = r.Resolve(context.Background(), time.Date(2050, 12, 31, 12, 0, 0, 0, time.UTC), models.Mars)
	assert.NoError(t, err)
}

func TestBuiltinResolver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuiltinResolver("equal").Resolve(ctx, time.Now(), models.Sun)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuiltinResolver_Houses(t *testing.T) {
	at := time.Date(1990, 6, 15, 8, 30, 0, 0, time.UTC)

	h, err := NewBuiltinResolver("equal").Houses(context.Background(), at, 40.7, -74.0)
	require.NoError(t, err)
	assert.InDelta(t, h.Ascendant, h.Cusps[0], 1e-9)
	for i := 1; i < 12; i++ {
		assert.InDelta(t, 30, models.NormalizeDegrees(h.Cusps[i]-h.Cusps[i-1]), 1e-9)
	}
	// the ascendant leads the midheaven by less than half a circle
	lead := models.NormalizeDegrees(h.Ascendant - h.Midheaven)
	assert.Greater(t, lead, 0.0)
	assert.Less(t, lead, 180.0)

	whole, err := NewBuiltinResolver("whole").Houses(context.Background(), at, 40.7, -74.0)
	require.NoError(t, err)
	assert.InDelta(t, math.Floor(whole.Ascendant/30)*30, whole.Cusps[0], 1e-9)

	_, err = NewBuiltinResolver("equal").Houses(context.Background(), at, 91, 0)
	assert.Error(t, err)
}

func TestAscendantMidheaven_Equator(t *testing.T) {
	// at sidereal time zero on the equator Aries culminates and Cancer rises
	at := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	gmst := models.NormalizeDegrees(280.46061837)
	asc, mc := AscendantMidheaven(at, 0, -gmst)
	assert.InDelta(t, 0, arcDistance(mc, 0), 0.01)
	assert.InDelta(t, 0, arcDistance(asc, 90), 0.01)
}
