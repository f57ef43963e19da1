package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"AstroTransit/internal/domain/models"
	domrepo "AstroTransit/internal/domain/repository"
	pkgch "AstroTransit/pkg/clickhouse"
	applogger "AstroTransit/pkg/logger"

	"github.com/google/uuid"
)

const transitColumns = "report_id, mode, day, transit_body, natal_body, aspect, orb, " +
	"transit_longitude, natal_longitude, transit_retrograde, natal_retrograde, " +
	"transit_house, natal_house, is_change, generated_at"

// Schema returns the DDL for the report tables in database.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.transit_events (
			report_id          UUID,
			mode               LowCardinality(String),
			day                Date,
			transit_body       LowCardinality(String),
			natal_body         LowCardinality(String),
			aspect             LowCardinality(String),
			orb                Float64,
			transit_longitude  Float64,
			natal_longitude    Float64,
			transit_retrograde Int8,
			natal_retrograde   Int8,
			transit_house      UInt8,
			natal_house        UInt8,
			is_change          UInt8,
			generated_at       DateTime64(3, 'UTC')
		) ENGINE = MergeTree
		ORDER BY (report_id, day, transit_body, natal_body)`, database),
	}
}

// CHReportStore implements ReportStore backed by ClickHouse. Every transit
// of every included day becomes one row; aspect changes carry is_change = 1.
type CHReportStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHReportStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHReportStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHReportStore{db: ch.DB(), table: database + ".transit_events", l: l}
}

// SaveReport inserts the report rows in chunks.
func (s *CHReportStore) SaveReport(ctx context.Context, r *models.Report) error {
	start := time.Now()
	rows := reportRows(r)
	if len(rows) == 0 {
		return nil
	}
	const chunkSize = 2000
	for lo := 0; lo < len(rows); lo += chunkSize {
		hi := lo + chunkSize
		if hi > len(rows) {
			hi = len(rows)
		}
		q, args := insertStatement(s.table, rows[lo:hi])
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse save_report error",
				applogger.String("report_id", r.ID.String()),
				applogger.Int("rows", hi-lo),
				applogger.Error(err),
			)
			return fmt.Errorf("insert transits: %w", err)
		}
	}
	s.l.Info("clickhouse save_report ok",
		applogger.String("report_id", r.ID.String()),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Transits returns the stored rows of a report in day order.
func (s *CHReportStore) Transits(ctx context.Context, reportID uuid.UUID) ([]models.StoredTransit, error) {
	q := fmt.Sprintf(`SELECT day, transit_body, natal_body, aspect, orb,
		transit_longitude, natal_longitude, transit_retrograde, natal_retrograde,
		transit_house, natal_house, is_change
		FROM %s WHERE report_id = ? ORDER BY day, transit_body, natal_body`, s.table)
	rows, err := s.db.QueryContext(ctx, q, reportID)
	if err != nil {
		s.l.Error("clickhouse transits query error", applogger.String("report_id", reportID.String()), applogger.Error(err))
		return nil, fmt.Errorf("query transits: %w", err)
	}
	defer rows.Close()

	var out []models.StoredTransit
	for rows.Next() {
		st := models.StoredTransit{ReportID: reportID}
		var tr, nr int8
		var th, nh, change uint8
		if err := rows.Scan(&st.Date, &st.TransitBody, &st.NatalBody, &st.Aspect, &st.Orb,
			&st.TransitLongitude, &st.NatalLongitude, &tr, &nr, &th, &nh, &change); err != nil {
			return nil, fmt.Errorf("scan transit: %w", err)
		}
		st.TransitRetrograde = models.Retrograde(tr)
		st.NatalRetrograde = models.Retrograde(nr)
		st.TransitHouse, st.NatalHouse = int(th), int(nh)
		st.TransitSign = models.SignOf(st.TransitLongitude)
		st.NatalSign = models.SignOf(st.NatalLongitude)
		st.IsChange = change == 1
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHReportStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type transitRow struct {
	mode        string
	generatedAt time.Time
	reportID    uuid.UUID
	change      bool
	models.Transit
}

// reportRows flattens the report. A change is also an active transit, so it
// is written once with is_change set.
func reportRows(r *models.Report) []transitRow {
	var out []transitRow
	for _, d := range r.Days {
		changed := make(map[models.PairKey]bool, len(d.AspectChanges))
		for _, c := range d.AspectChanges {
			changed[c.Pair()] = true
		}
		for _, t := range d.Transits {
			out = append(out, transitRow{
				mode:        string(r.Mode),
				generatedAt: r.GeneratedAt,
				reportID:    r.ID,
				change:      changed[t.Pair()],
				Transit:     t,
			})
		}
	}
	return out
}

func insertStatement(table string, rows []transitRow) (string, []interface{}) {
	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*15)
	for _, r := range rows {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		var change uint8
		if r.change {
			change = 1
		}
		args = append(args,
			r.reportID,
			r.mode,
			r.Date,
			r.TransitBody,
			r.NatalBody,
			r.Aspect,
			r.Orb,
			r.TransitLongitude,
			r.NatalLongitude,
			int8(r.TransitRetrograde),
			int8(r.NatalRetrograde),
			uint8(r.TransitHouse),
			uint8(r.NatalHouse),
			change,
			r.generatedAt,
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, transitColumns, strings.Join(values, ","))
	return q, args
}

var _ domrepo.ReportStore = (*CHReportStore)(nil)
