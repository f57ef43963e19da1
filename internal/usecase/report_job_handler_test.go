package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"AstroTransit/internal/domain/models"
	pkgkafka "AstroTransit/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJobHandler(store *memStore) *ReportJobHandler {
	res := &scriptResolver{fixed: map[string]float64{models.Sun: 10, models.Moon: 12}}
	g := NewReportGenerator(newScanner(res, []string{models.Sun, models.Moon}), ReportConfig{MaxRangeDays: 31},
		WithReportStore(store))
	return NewReportJobHandler("report_jobs", g, nil, nil)
}

func TestReportJobHandler_StoresReport(t *testing.T) {
	store := &memStore{}
	h := newJobHandler(store)
	assert.Equal(t, "report_jobs", h.Topic())

	b, err := json.Marshal(models.ReportJob{Mode: models.ModeWeekly, Start: "2024-01-01", End: "2024-01-03"})
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), b))

	saved := store.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, models.ModeWeekly, saved[0].Mode)
	require.Len(t, saved[0].Days, 3)
	assert.Equal(t, models.Conjunction, saved[0].Days[0].Transits[0].Aspect)
}

func TestReportJobHandler_NatalJobWithChart(t *testing.T) {
	store := &memStore{}
	h := newJobHandler(store)

	job := models.ReportJob{
		Mode:  models.ModeNatal,
		Start: "2024-01-01",
		End:   "2024-01-01",
		Chart: &models.ChartDTO{Planets: []models.Position{{Body: models.Venus, Longitude: 190}}},
	}
	b, err := json.Marshal(job)
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), b))

	saved := store.saved()
	require.Len(t, saved, 1)
	require.Len(t, saved[0].Days, 1)
	assert.Equal(t, models.Opposition, saved[0].Days[0].AspectChanges[0].Aspect)
}

func TestReportJobHandler_PermanentErrors(t *testing.T) {
	h := newJobHandler(&memStore{})

	err := h.Handle(context.Background(), []byte("{not json"))
	require.Error(t, err)
	assert.True(t, pkgkafka.IsPermanent(err))

	b, _ := json.Marshal(models.ReportJob{Mode: models.ModeWeekly, Start: "01/01/2024", End: "2024-01-03"})
	err = h.Handle(context.Background(), b)
	require.Error(t, err)
	assert.True(t, pkgkafka.IsPermanent(err))
	assert.ErrorIs(t, err, models.ErrInvalidRange)

	b, _ = json.Marshal(models.ReportJob{Mode: models.ModeNatal, Start: "2024-01-01", End: "2024-01-02",
		Chart: &models.ChartDTO{}})
	err = h.Handle(context.Background(), b)
	require.Error(t, err)
	assert.True(t, pkgkafka.IsPermanent(err))
	assert.ErrorIs(t, err, models.ErrInvalidChart)

	b, _ = json.Marshal(models.ReportJob{Mode: models.ModeWeekly, Start: "2024-01-01", End: "2024-01-02",
		Bodies: []string{"Marz"}})
	err = h.Handle(context.Background(), b)
	require.Error(t, err)
	assert.True(t, pkgkafka.IsPermanent(err))
	assert.ErrorIs(t, err, models.ErrUnknownBody)
}

func TestReportJobHandler_StoreFailureIsRetryable(t *testing.T) {
	store := &memStore{err: assert.AnError}
	h := newJobHandler(store)

	b, _ := json.Marshal(models.ReportJob{Mode: models.ModeWeekly, Start: "2024-01-01", End: "2024-01-01"})
	err := h.Handle(context.Background(), b)
	require.Error(t, err)
	assert.False(t, pkgkafka.IsPermanent(err))
}
