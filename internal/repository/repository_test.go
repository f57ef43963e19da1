package repository

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"AstroTransit/internal/domain/models"
	pkgkafka "AstroTransit/pkg/kafka"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *models.Report {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	trine := models.Transit{Date: day, TransitBody: models.Mars, NatalBody: models.Sun, Aspect: models.Trine, Orb: 1,
		TransitRetrograde: models.Retro, TransitHouse: 5}
	square := models.Transit{Date: day, TransitBody: models.Venus, NatalBody: models.Moon, Aspect: models.Square, Orb: 2}
	return &models.Report{
		ID:   uuid.New(),
		Mode: models.ModeNatal,
		Days: []models.DailyTransits{
			{Date: day, Transits: []models.Transit{trine, square}, AspectChanges: []models.Transit{trine}},
			{Date: day.AddDate(0, 0, 1)},
		},
		GeneratedAt: day,
	}
}

func TestReportRows(t *testing.T) {
	r := sampleReport()
	rows := reportRows(r)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].change)
	assert.False(t, rows[1].change)
	assert.Equal(t, "natal", rows[0].mode)
	assert.Equal(t, r.ID, rows[1].reportID)
}

func TestInsertStatement(t *testing.T) {
	q, args := insertStatement("astro.transit_events", reportRows(sampleReport()))
	assert.True(t, strings.HasPrefix(q, "INSERT INTO astro.transit_events (report_id, mode, day,"))
	assert.Equal(t, 2, strings.Count(q, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	require.Len(t, args, 30)
	assert.Equal(t, int8(models.Retro), args[9])
	assert.Equal(t, uint8(5), args[11])
	assert.Equal(t, uint8(1), args[13])
	assert.Equal(t, uint8(0), args[28])
}

func TestSchema(t *testing.T) {
	stmts := Schema("astro")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "astro.transit_events")
	assert.Contains(t, stmts[1], "is_change")
}

type captureWriter struct{ msgs []kafka.Message }

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaChangePublisher(t *testing.T) {
	w := &captureWriter{}
	pub := NewKafkaChangePublisher(pkgkafka.NewProducerWithWriter(w, "none"), "aspect_changes")
	r := sampleReport()

	require.NoError(t, pub.PublishChanges(context.Background(), r.ID, r.Days[0].AspectChanges))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "Mars|Sun", string(w.msgs[0].Key))
	assert.Equal(t, r.ID.String(), pkgkafka.ExtractTraceID(w.msgs[0]))

	var ev AspectChangeEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, "2024-03-01", ev.Date)
	assert.Equal(t, models.Trine, ev.Aspect)
	assert.Equal(t, "retrograde", ev.TransitRetrograde)

	require.NoError(t, pub.PublishChanges(context.Background(), r.ID, nil))
	assert.Len(t, w.msgs, 1)
	require.NoError(t, pub.Close())
}
