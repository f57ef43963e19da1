package ephemeris

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"AstroTransit/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, h http.HandlerFunc, retries int) *HTTPResolver {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPResolver(ClientConfig{
		BaseURL: srv.URL,
		Timeout: time.Second,
		Retries: retries,
		Backoff: time.Millisecond,
	})
}

func TestHTTPResolver_ResolveWithSpeed(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/position", req.URL.Path)
		assert.Equal(t, "Mars", req.URL.Query().Get("body"))
		assert.Equal(t, "2024-03-01T12:00:00Z", req.URL.Query().Get("datetime"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"longitude": 370.5, "speed": -0.25}`))
	}, 0)

	pos, err := r.Resolve(context.Background(), time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), models.Mars)
	require.NoError(t, err)
	assert.InDelta(t, 10.5, pos.Longitude, 1e-9)
	assert.Equal(t, models.Retro, pos.Retrograde)
	require.NotNil(t, pos.Speed)
	assert.InDelta(t, -0.25, *pos.Speed, 1e-9)
}

func TestHTTPResolver_MissingSpeedIsUnknown(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"longitude": 42}`))
	}, 0)

	pos, err := r.Resolve(context.Background(), time.Now(), models.Venus)
	require.NoError(t, err)
	assert.Equal(t, models.RetrogradeUnknown, pos.Retrograde)
	assert.Nil(t, pos.Speed)
	assert.Equal(t, " (R?)", pos.Retrograde.Marker())
}

func TestHTTPResolver_ClientErrorIsUnavailableWithoutRetry(t *testing.T) {
	var calls int32
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unknown body", http.StatusNotFound)
	}, 3)

	_, err := r.Resolve(context.Background(), time.Now(), models.Chiron)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrPositionUnavailable))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPResolver_RetriesServerErrors(t *testing.T) {
	var calls int32
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"longitude": 1, "retrograde": false}`))
	}, 2)

	pos, err := r.Resolve(context.Background(), time.Now(), models.Sun)
	require.NoError(t, err)
	assert.Equal(t, models.Direct, pos.Retrograde)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPResolver_ExhaustedRetriesAreUnavailable(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}, 1)

	_, err := r.Resolve(context.Background(), time.Now(), models.Sun)
	var pue *models.PositionUnavailableError
	require.True(t, errors.As(err, &pue))
	assert.Equal(t, models.Sun, pue.Body)
}

func TestHTTPResolver_ContextCancellationPropagates(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"longitude": 1}`))
	}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Resolve(ctx, time.Now(), models.Sun)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, models.ErrPositionUnavailable))
}

func TestHTTPResolver_Houses(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/houses", req.URL.Path)
		assert.Equal(t, "placidus", req.URL.Query().Get("system"))
		_, _ = w.Write([]byte(`{"cusps":[10,40,70,100,130,160,190,220,250,280,310,340],"ascendant":10,"midheaven":280}`))
	}, 0)

	h, err := r.Houses(context.Background(), time.Now(), 51.5, -0.12)
	require.NoError(t, err)
	assert.Equal(t, 10.0, h.Ascendant)
	assert.Equal(t, 280.0, h.Midheaven)
	assert.Equal(t, 340.0, h.Cusps[11])
}

func TestHTTPResolver_HousesRejectsShortCusps(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"cusps":[10,40],"ascendant":10,"midheaven":280}`))
	}, 0)

	_, err := r.Houses(context.Background(), time.Now(), 0, 0)
	assert.Error(t, err)
}
