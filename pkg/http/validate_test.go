package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planetInput struct {
	Body      string  `json:"body" validate:"required"`
	Longitude float64 `json:"longitude" validate:"gte=0,lt=360"`
}

type rangeInput struct {
	Start   string        `json:"start" validate:"required,datetime=2006-01-02"`
	Format  string        `json:"format" default:"text" validate:"oneof=text markdown json"`
	Planets []planetInput `json:"planets" validate:"omitempty,dive"`
}

func bindJSON(t *testing.T, body string, dst interface{}) interface{} {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	return ReadAndValidateRequest(c, dst)
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	var in rangeInput
	require.Nil(t, bindJSON(t, `{"start":"2024-04-08"}`, &in))
	assert.Equal(t, "text", in.Format)
}

func TestReadAndValidateRequestReportsJSONFieldPaths(t *testing.T) {
	var in rangeInput
	res := bindJSON(t, `{"start":"08/04/2024","format":"pdf","planets":[{"body":"","longitude":400}]}`, &in)
	errs, ok := res.([]ValidationError)
	require.True(t, ok)

	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "ERR_DATETIME", byField["start"].Code)
	assert.Equal(t, "ERR_ONEOF", byField["format"].Code)
	assert.Equal(t, []string{"text", "markdown", "json"}, byField["format"].Params["options"])
	assert.Equal(t, "ERR_REQUIRED", byField["planets[0].body"].Code)
	assert.Equal(t, "ERR_LT", byField["planets[0].longitude"].Code)
}

func TestReadAndValidateRequestMalformedBody(t *testing.T) {
	var in rangeInput
	res := bindJSON(t, `{"start":`, &in)
	errs, ok := res.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_MALFORMED", errs[0].Code)
}
