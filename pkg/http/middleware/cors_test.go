package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func corsEcho(cfg CORSConfig) *echo.Echo {
	e := echo.New()
	e.Use(CORS(cfg))
	e.GET("/api/reports/weekly", func(c echo.Context) error {
		c.Response().Header().Set("X-Report-ID", "r1")
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func TestCORSPreflight(t *testing.T) {
	e := corsEcho(CORSConfig{
		AllowOrigins: []string{"https://charts.example"},
		AllowMethods: []string{http.MethodGet},
		MaxAge:       600,
	})
	req := httptest.NewRequest(http.MethodOptions, "/api/reports/weekly", nil)
	req.Header.Set(echo.HeaderOrigin, "https://charts.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://charts.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))
}

func TestCORSExposesReportID(t *testing.T) {
	e := corsEcho(CORSConfig{ExposeHeaders: []string{"X-Report-ID"}})
	req := httptest.NewRequest(http.MethodGet, "/api/reports/weekly", nil)
	req.Header.Set(echo.HeaderOrigin, "https://anywhere.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "X-Report-ID", rec.Header().Get(echo.HeaderAccessControlExposeHeaders))
}

func TestCORSIgnoresDisallowedOrigin(t *testing.T) {
	e := corsEcho(CORSConfig{AllowOrigins: []string{"https://charts.example"}})
	req := httptest.NewRequest(http.MethodGet, "/api/reports/weekly", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
