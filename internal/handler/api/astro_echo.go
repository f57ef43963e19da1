package api

import (
	"net/http"
	"strings"
	"time"

	"AstroTransit/internal/domain/models"
	domrepo "AstroTransit/internal/domain/repository"
	"AstroTransit/internal/services/aspects"
	"AstroTransit/internal/services/transits"
	"AstroTransit/internal/usecase"
	xhttp "AstroTransit/pkg/http"
	xlogger "AstroTransit/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Deps groups what the handlers need. Store may be nil.
type Deps struct {
	Natal     *aspects.Matcher
	Mundane   *aspects.Matcher
	Scanner   *transits.Scanner
	Generator *usecase.ReportGenerator
	Charts    *usecase.ChartService
	Store     domrepo.ReportStore
}

// AstroEchoHandler serves the aspect, chart and report endpoints.
type AstroEchoHandler struct {
	logger *xlogger.Logger
	deps   Deps
	ws     *ReportStreamer
}

func NewAstroEchoHandler(logger *xlogger.Logger, deps Deps) *AstroEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &AstroEchoHandler{logger: logger, deps: deps, ws: NewReportStreamer(logger, deps.Generator)}
}

func (h *AstroEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/aspects/match", h.Match)
	g.GET("/positions", h.Positions)
	g.POST("/charts", h.CreateChart)
	g.POST("/synastry", h.Synastry)
	g.POST("/reports/natal", h.NatalReport)
	g.GET("/reports/weekly", h.WeeklyReport)
	g.GET("/reports/:id/transits", h.ReportTransits)

	e.GET("/ws/reports/weekly", h.ws.Weekly)
}

func (h *AstroEchoHandler) Health(c echo.Context) error {
	status := map[string]string{"status": "ok"}
	if h.deps.Store != nil {
		if err := h.deps.Store.Health(c.Request().Context()); err != nil {
			h.logger.Warn("report store unhealthy", xlogger.Error(err))
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": err.Error()})
		}
		status["store"] = "ok"
	}
	return xhttp.SuccessResponse(c, status)
}

// MatchResponse is the result of a single aspect lookup.
type MatchResponse struct {
	Matched    bool    `json:"matched"`
	Separation float64 `json:"separation"`
	models.AspectMatch
}

func (h *AstroEchoHandler) Match(c echo.Context) error {
	req := &models.MatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	m := h.deps.Natal
	if req.Table == "mundane" {
		m = h.deps.Mundane
	}
	res := MatchResponse{Separation: aspects.Separation(req.A, req.B)}
	if am, ok := m.Match(req.A, req.B); ok {
		res.Matched = true
		res.AspectMatch = am
	}
	return xhttp.SuccessResponse(c, res)
}

// PositionView is a position decorated for display.
type PositionView struct {
	models.Position
	Sign      string `json:"sign"`
	Degree    string `json:"degree"`
	Formatted string `json:"formatted"`
}

// PositionsResponse is the sky at the scan instant of a date.
type PositionsResponse struct {
	Date              string         `json:"date"`
	Instant           time.Time      `json:"instant"`
	Positions         []PositionView `json:"positions"`
	MoonPhase         string         `json:"moon_phase,omitempty"`
	Retrogrades       []string       `json:"retrogrades"`
	RetrogradeUnknown []string       `json:"retrograde_unknown"`
}

func (h *AstroEchoHandler) Positions(c echo.Context) error {
	req := &models.PositionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	day, err := h.deps.Generator.ParseDate(req.Date)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	at := h.deps.Scanner.Instant(day)
	ps, err := h.deps.Scanner.Positions(c.Request().Context(), at)
	if err != nil {
		h.logger.Error("positions usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	res := PositionsResponse{Date: req.Date, Instant: at, Positions: make([]PositionView, 0, len(ps)),
		Retrogrades: []string{}, RetrogradeUnknown: []string{}}
	var sun, moon *models.Position
	for i := range ps {
		p := ps[i]
		res.Positions = append(res.Positions, viewOf(p))
		switch p.Retrograde {
		case models.Retro:
			res.Retrogrades = append(res.Retrogrades, p.Body)
		case models.RetrogradeUnknown:
			res.RetrogradeUnknown = append(res.RetrogradeUnknown, p.Body)
		}
		switch p.Body {
		case models.Sun:
			sun = &ps[i]
		case models.Moon:
			moon = &ps[i]
		}
	}
	if sun != nil && moon != nil {
		res.MoonPhase = aspects.MoonPhase(sun.Longitude, moon.Longitude)
	}
	return xhttp.SuccessResponse(c, res)
}

func viewOf(p models.Position) PositionView {
	return PositionView{
		Position:  p,
		Sign:      p.Sign(),
		Degree:    strings.TrimSuffix(models.FormatLongitude(p.Longitude), " "+p.Sign()),
		Formatted: p.Body + p.Retrograde.Marker() + ": " + models.FormatLongitude(p.Longitude),
	}
}

func (h *AstroEchoHandler) CreateChart(c echo.Context) error {
	req := &models.BirthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	birth, err := usecase.BirthFromRequest(*req)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	chart, err := h.deps.Charts.BuildChart(c.Request().Context(), birth)
	if err != nil {
		h.logger.Error("chart usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.CreatedResponse(c, chart.DTO())
}

func (h *AstroEchoHandler) Synastry(c echo.Context) error {
	req := &models.SynastryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	a, err := req.A.Chart()
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	b, err := req.B.Chart()
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, h.deps.Charts.Synastry(a, b))
}

func (h *AstroEchoHandler) NatalReport(c echo.Context) error {
	req := &models.NatalReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	chart, err := h.deps.Charts.ResolveChart(ctx, req.Chart, req.Birth)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	params, err := h.rangeParams(req.Start, req.End)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	params.Mode = models.ModeNatal
	params.Chart = chart
	params.Bodies = req.Bodies
	params.Store = req.Store

	report, err := h.deps.Generator.Generate(ctx, params)
	if err != nil {
		h.logger.Error("natal report usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return h.writeReport(c, report, domrepo.NormalizeFormat(req.Format))
}

func (h *AstroEchoHandler) WeeklyReport(c echo.Context) error {
	req := &models.WeeklyReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	params, err := h.rangeParams(req.Start, req.End)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	params.Mode = models.ModeWeekly

	report, err := h.deps.Generator.Generate(c.Request().Context(), params)
	if err != nil {
		h.logger.Error("weekly report usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return h.writeReport(c, report, domrepo.NormalizeFormat(req.Format))
}

func (h *AstroEchoHandler) ReportTransits(c echo.Context) error {
	if h.deps.Store == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("report storage is not configured"))
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("id", "invalid report id %q", c.Param("id")))
	}
	rows, err := h.deps.Store.Transits(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("report transits query error", xlogger.String("report_id", id.String()), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	if len(rows) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("report %s not found", id))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *AstroEchoHandler) rangeParams(start, end string) (usecase.ReportParams, error) {
	s, err := h.deps.Generator.ParseDate(start)
	if err != nil {
		return usecase.ReportParams{}, err
	}
	e, err := h.deps.Generator.ParseDate(end)
	if err != nil {
		return usecase.ReportParams{}, err
	}
	return usecase.ReportParams{Start: s, End: e}, nil
}

func (h *AstroEchoHandler) writeReport(c echo.Context, r *models.Report, f models.ReportFormat) error {
	switch f {
	case models.FormatJSON:
		return xhttp.SuccessResponse(c, r)
	case models.FormatMarkdown:
		body, err := usecase.RenderString(r, f)
		if err != nil {
			return xhttp.AppErrorResponse(c, toAppError(err))
		}
		c.Response().Header().Set("X-Report-ID", r.ID.String())
		return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(body))
	default:
		body, err := usecase.RenderString(r, models.FormatText)
		if err != nil {
			return xhttp.AppErrorResponse(c, toAppError(err))
		}
		c.Response().Header().Set("X-Report-ID", r.ID.String())
		return c.String(http.StatusOK, body)
	}
}

var _ xhttp.Handler = (*AstroEchoHandler)(nil)
