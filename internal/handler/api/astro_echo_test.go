package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AstroTransit/internal/domain/models"
	"AstroTransit/internal/service/ephemeris"
	"AstroTransit/internal/services/aspects"
	"AstroTransit/internal/services/transits"
	"AstroTransit/internal/usecase"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type stubStore struct {
	rows []models.StoredTransit
}

func (s *stubStore) SaveReport(context.Context, *models.Report) error { return nil }
func (s *stubStore) Transits(_ context.Context, id uuid.UUID) ([]models.StoredTransit, error) {
	var out []models.StoredTransit
	for _, r := range s.rows {
		if r.ReportID == id {
			out = append(out, r)
		}
	}
	return out, nil
}
func (s *stubStore) Health(context.Context) error { return nil }

func newTestEcho(t *testing.T, store *stubStore) *echo.Echo {
	t.Helper()
	eph := ephemeris.NewBuiltinResolver("equal")
	natal := aspects.MustMatcher(aspects.NatalTable)
	mundane := aspects.MustMatcher(aspects.MundaneTable)
	scanner := transits.NewScanner(eph, natal, transits.WithMundaneMatcher(mundane))
	deps := Deps{
		Natal:     natal,
		Mundane:   mundane,
		Scanner:   scanner,
		Generator: usecase.NewReportGenerator(scanner, usecase.ReportConfig{Workers: 2, MaxRangeDays: 31}),
		Charts:    usecase.NewChartService(scanner, eph, nil),
	}
	if store != nil {
		deps.Store = store
	}
	e := echo.New()
	NewAstroEchoHandler(nil, deps).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target string, body interface{}) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if dest != nil {
		require.NoError(t, json.Unmarshal(env.Data, dest))
	}
	return env
}

func TestHealth(t *testing.T) {
	e := newTestEcho(t, &stubStore{})
	rec := do(e, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var status map[string]string
	decode(t, rec, &status)
	assert.Equal(t, "ok", status["store"])
}

func TestMatch(t *testing.T) {
	e := newTestEcho(t, nil)

	rec := do(e, http.MethodGet, "/api/aspects/match?a=10&b=125", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res MatchResponse
	decode(t, rec, &res)
	assert.True(t, res.Matched)
	assert.Equal(t, models.Trine, res.Aspect)
	assert.InDelta(t, 5, res.Orb, 1e-9)

	// 7° off a trine: inside the natal orb, outside the mundane one
	rec = do(e, http.MethodGet, "/api/aspects/match?a=10&b=123&table=mundane", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res = MatchResponse{}
	decode(t, rec, &res)
	assert.False(t, res.Matched)
	assert.InDelta(t, 113, res.Separation, 1e-9)

	rec = do(e, http.MethodGet, "/api/aspects/match?a=1&b=2&table=sidereal", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPositions(t *testing.T) {
	e := newTestEcho(t, nil)

	rec := do(e, http.MethodGet, "/api/positions?date=2024-04-08", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res PositionsResponse
	decode(t, rec, &res)
	assert.Len(t, res.Positions, len(models.DefaultBodies))
	assert.Equal(t, "New Moon", res.MoonPhase)
	assert.Contains(t, res.Retrogrades, models.Mercury)
	assert.Empty(t, res.RetrogradeUnknown)
	assert.Equal(t, "Aries", res.Positions[0].Sign)

	rec = do(e, http.MethodGet, "/api/positions?date=08-04-2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateChartAndSynastry(t *testing.T) {
	e := newTestEcho(t, nil)

	rec := do(e, http.MethodPost, "/api/charts", models.BirthRequest{Time: "1990-06-15T08:30:00Z", Latitude: 51.5, Longitude: -0.12})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var chart models.ChartDTO
	decode(t, rec, &chart)
	assert.Len(t, chart.Planets, len(models.DefaultBodies))
	assert.Len(t, chart.Houses, 12)

	rec = do(e, http.MethodPost, "/api/charts", models.BirthRequest{Time: "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	syn := models.SynastryRequest{
		A: models.ChartDTO{Planets: []models.Position{{Body: models.Sun, Longitude: 10}}},
		B: models.ChartDTO{Planets: []models.Position{{Body: models.Moon, Longitude: 100}}},
	}
	rec = do(e, http.MethodPost, "/api/synastry", syn)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res usecase.SynastryResult
	decode(t, rec, &res)
	require.Len(t, res.Aspects, 1)
	assert.Equal(t, models.Square, res.Aspects[0].Aspect)
}

func TestNatalReport(t *testing.T) {
	e := newTestEcho(t, nil)

	req := map[string]interface{}{
		"start":  "2024-04-08",
		"end":    "2024-04-09",
		"format": "json",
		"bodies": []string{models.Sun},
		"chart": models.ChartDTO{
			Planets: []models.Position{{Body: models.Venus, Longitude: 19, Retrograde: models.Direct}},
		},
	}
	rec := do(e, http.MethodPost, "/api/reports/natal", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report models.Report
	decode(t, rec, &report)
	assert.Equal(t, models.ModeNatal, report.Mode)
	require.Len(t, report.Days, 2)
	require.Len(t, report.Days[0].AspectChanges, 1)
	assert.Equal(t, models.Conjunction, report.Days[0].AspectChanges[0].Aspect)
	assert.Empty(t, report.Days[1].AspectChanges)

	req["format"] = "text"
	rec = do(e, http.MethodPost, "/api/reports/natal", req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Natal Transit Report: 2024-04-08 to 2024-04-09"))
	assert.Contains(t, rec.Body.String(), "Sun Conjunction Venus")
	assert.NotEmpty(t, rec.Header().Get("X-Report-ID"))

	req["bodies"] = []string{"Marz", "Venuss"}
	rec = do(e, http.MethodPost, "/api/reports/natal", req)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	env := decode(t, rec, nil)
	assert.Contains(t, string(env.Data), "ERR_UNKNOWN_BODY")
	req["bodies"] = []string{models.Sun}

	delete(req, "chart")
	rec = do(e, http.MethodPost, "/api/reports/natal", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeeklyReport(t *testing.T) {
	e := newTestEcho(t, nil)

	rec := do(e, http.MethodGet, "/api/reports/weekly?start=2024-04-08&end=2024-04-08&format=json", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report models.Report
	decode(t, rec, &report)
	require.Len(t, report.Days, 1)
	assert.Equal(t, "New Moon", report.Days[0].MoonPhase)
	found := false
	for _, tr := range report.Days[0].Transits {
		if tr.TransitBody == models.Sun && tr.NatalBody == models.Moon && tr.Aspect == models.Conjunction {
			found = true
		}
	}
	assert.True(t, found)

	rec = do(e, http.MethodGet, "/api/reports/weekly?start=2024-04-08&end=2024-04-01", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec, nil)
	assert.Contains(t, string(env.Data), "ERR_INVALID_RANGE")

	rec = do(e, http.MethodGet, "/api/reports/weekly?start=2024-01-01&end=2024-12-31", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env = decode(t, rec, nil)
	assert.Contains(t, string(env.Data), "ERR_RANGE_TOO_LARGE")

	rec = do(e, http.MethodGet, "/api/reports/weekly?start=2024-04-08&end=2024-04-08&format=markdown", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Weekly Transit Report"))
}

func TestReportTransits(t *testing.T) {
	id := uuid.New()
	store := &stubStore{rows: []models.StoredTransit{{ReportID: id, IsChange: true,
		Transit: models.Transit{TransitBody: models.Mars, NatalBody: models.Sun, Aspect: models.Trine}}}}
	e := newTestEcho(t, store)

	rec := do(e, http.MethodGet, "/api/reports/"+id.String()+"/transits", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.StoredTransit `json:"rows"`
		Total int64                  `json:"total"`
	}
	decode(t, rec, &list)
	assert.EqualValues(t, 1, list.Total)
	assert.True(t, list.Rows[0].IsChange)

	rec = do(e, http.MethodGet, "/api/reports/"+uuid.NewString()+"/transits", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(e, http.MethodGet, "/api/reports/nope/transits", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(newTestEcho(t, nil), http.MethodGet, "/api/reports/"+id.String()+"/transits", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWeeklyWebsocketStream(t *testing.T) {
	srv := httptest.NewServer(newTestEcho(t, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/reports/weekly?start=2024-04-08&end=2024-04-10"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	var dates []string
	for {
		var msg map[string]json.RawMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if done, ok := msg["done"]; ok {
			assert.Equal(t, "true", string(done))
			_, hasErr := msg["error"]
			assert.False(t, hasErr)
			break
		}
		var day models.DailyTransits
		raw, _ := json.Marshal(msg)
		require.NoError(t, json.Unmarshal(raw, &day))
		dates = append(dates, day.Date.Format("2006-01-02"))
	}
	assert.Equal(t, []string{"2024-04-08", "2024-04-09", "2024-04-10"}, dates)
}

func TestWeeklyWebsocketBadRange(t *testing.T) {
	e := newTestEcho(t, nil)
	rec := do(e, http.MethodGet, "/ws/reports/weekly?start=bad&end=2024-04-10", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
