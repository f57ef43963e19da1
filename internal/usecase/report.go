package usecase

import (
	"context"
	"fmt"
	"time"

	"AstroTransit/internal/domain/models"
	drepo "AstroTransit/internal/domain/repository"
	"AstroTransit/internal/services/aspects"
	"AstroTransit/internal/services/transits"
	"AstroTransit/pkg/logger"
	"AstroTransit/pkg/metrics"
	"AstroTransit/pkg/util"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const dateLayout = util.DateLayout

// ReportConfig tunes report generation.
type ReportConfig struct {
	Workers      int
	Timeout      time.Duration
	MaxRangeDays int
	TrackEnded   bool
}

// ReportParams describes one report request.
type ReportParams struct {
	Mode   models.ReportMode
	Start  time.Time
	End    time.Time
	Chart  *models.NatalChart
	Bodies []string
	Store  bool
}

// ReportGenerator drives the scanner across a date range. Day scans run in
// parallel; change tracking runs afterwards in strict date order.
type ReportGenerator struct {
	scanner   *transits.Scanner
	store     drepo.ReportStore
	publisher drepo.EventPublisher
	metrics   drepo.Metrics
	log       *logger.Logger
	cfg       ReportConfig
	now       func() time.Time
}

// GeneratorOption configures ReportGenerator.
type GeneratorOption func(*ReportGenerator)

// WithReportStore persists reports requested with Store.
func WithReportStore(s drepo.ReportStore) GeneratorOption {
	return func(g *ReportGenerator) { g.store = s }
}

// WithEventPublisher publishes aspect changes of every generated report.
func WithEventPublisher(p drepo.EventPublisher) GeneratorOption {
	return func(g *ReportGenerator) { g.publisher = p }
}

// WithGeneratorMetrics sets the metrics sink.
func WithGeneratorMetrics(m drepo.Metrics) GeneratorOption {
	return func(g *ReportGenerator) {
		if m != nil {
			g.metrics = m
		}
	}
}

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(l *logger.Logger) GeneratorOption {
	return func(g *ReportGenerator) {
		if l != nil {
			g.log = l
		}
	}
}

// WithClock overrides the time source for GeneratedAt.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *ReportGenerator) { g.now = now }
}

// NewReportGenerator creates a generator.
func NewReportGenerator(scanner *transits.Scanner, cfg ReportConfig, opts ...GeneratorOption) *ReportGenerator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	g := &ReportGenerator{
		scanner: scanner,
		metrics: metrics.Nop{},
		log:     logger.Nop(),
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Location is the calendar reports are generated in.
func (g *ReportGenerator) Location() *time.Location { return g.scanner.Location() }

// ParseDate parses YYYY-MM-DD in the report calendar.
func (g *ReportGenerator) ParseDate(s string) (time.Time, error) {
	t, err := util.ParseDate(s, g.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", models.ErrInvalidRange, s)
	}
	return t, nil
}

type reportPlan struct {
	mode    models.ReportMode
	dates   []time.Time
	chart   *models.NatalChart
	scanner *transits.Scanner
}

func (g *ReportGenerator) plan(p ReportParams) (reportPlan, error) {
	if p.Mode == "" {
		p.Mode = models.ModeNatal
		if p.Chart == nil {
			p.Mode = models.ModeWeekly
		}
	}
	if !drepo.IsValidMode(p.Mode) {
		return reportPlan{}, fmt.Errorf("unknown report mode %q", p.Mode)
	}
	if p.Mode == models.ModeNatal && p.Chart == nil {
		return reportPlan{}, fmt.Errorf("%w: natal report needs a chart", models.ErrInvalidChart)
	}
	loc := g.Location()
	start := models.Date(p.Start, loc)
	end := models.Date(p.End, loc)
	if end.Before(start) {
		return reportPlan{}, fmt.Errorf("%w: end %s before start %s", models.ErrInvalidRange,
			end.Format(dateLayout), start.Format(dateLayout))
	}

	dates, complete := util.DateRange(start, end, g.cfg.MaxRangeDays)
	if !complete {
		return reportPlan{}, fmt.Errorf("%w: more than %d days", models.ErrRangeTooLarge, g.cfg.MaxRangeDays)
	}

	sc := g.scanner
	if len(p.Bodies) > 0 {
		if err := models.CheckBodies(p.Bodies); err != nil {
			return reportPlan{}, err
		}
		sc = sc.ForBodies(p.Bodies)
	}
	chart := p.Chart
	if p.Mode == models.ModeWeekly {
		chart = nil
	}
	return reportPlan{mode: p.Mode, dates: dates, chart: chart, scanner: sc}, nil
}

// Generate builds the full report.
func (g *ReportGenerator) Generate(ctx context.Context, p ReportParams) (*models.Report, error) {
	start := time.Now()
	pl, err := g.plan(p)
	if err != nil {
		g.metrics.RecordError("report_params")
		return nil, err
	}
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	report := &models.Report{
		ID:          uuid.New(),
		Mode:        pl.mode,
		Start:       pl.dates[0],
		End:         pl.dates[len(pl.dates)-1],
		Bodies:      pl.scanner.Bodies(),
		Days:        []models.DailyTransits{},
		GeneratedAt: g.now().UTC(),
	}
	err = g.walk(ctx, pl, func(day models.DailyTransits) error {
		report.Days = append(report.Days, day)
		return nil
	})
	if err != nil {
		g.metrics.RecordError("report_scan")
		return nil, err
	}

	g.metrics.RecordDaysScanned(string(pl.mode), len(pl.dates))
	g.metrics.RecordReport(string(pl.mode), len(report.Days))
	g.metrics.RecordLatency("report_generate", time.Since(start).Seconds())

	g.publish(ctx, report)
	if p.Store && g.store != nil {
		if err := g.store.SaveReport(ctx, report); err != nil {
			g.metrics.RecordError("report_store")
			return nil, fmt.Errorf("store report: %w", err)
		}
	}

	g.log.Info("report generated",
		logger.String("report_id", report.ID.String()),
		logger.String("mode", string(pl.mode)),
		logger.Int("days_scanned", len(pl.dates)),
		logger.Int("days_included", len(report.Days)),
		logger.Duration("took", time.Since(start)),
	)
	return report, nil
}

// Stream emits each included day as soon as it and every earlier day are scanned.
func (g *ReportGenerator) Stream(ctx context.Context, p ReportParams, emit func(models.DailyTransits) error) error {
	pl, err := g.plan(p)
	if err != nil {
		return err
	}
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	if err := g.walk(ctx, pl, emit); err != nil {
		return err
	}
	g.metrics.RecordDaysScanned(string(pl.mode), len(pl.dates))
	return nil
}

// walk scans days with a bounded worker pool and hands them, in date order,
// to the change tracker and then to emit when notable.
func (g *ReportGenerator) walk(ctx context.Context, pl reportPlan, emit func(models.DailyTransits) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := len(pl.dates)
	scans := make([]transits.DayScan, n)
	ready := make([]chan struct{}, n)
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	eg, ectx := errgroup.WithContext(ctx)
	next := make(chan int)
	eg.Go(func() error {
		defer close(next)
		for i := 0; i < n; i++ {
			select {
			case next <- i:
			case <-ectx.Done():
				return nil
			}
		}
		return nil
	})
	workers := g.cfg.Workers
	if workers > n {
		workers = n
	}
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			for i := range next {
				scan, err := pl.scanner.ScanDay(ectx, pl.dates[i], pl.chart)
				if err != nil {
					return fmt.Errorf("scan %s: %w", pl.dates[i].Format(dateLayout), err)
				}
				scans[i] = scan
				close(ready[i])
			}
			return nil
		})
	}

	tracker := transits.NewChangeTracker(transits.WithEndedTracking(g.cfg.TrackEnded))
	var emitErr error
	consume := func() error {
		for i := 0; i < n; i++ {
			select {
			case <-ready[i]:
			case <-ectx.Done():
				return ectx.Err()
			}
			day := g.assemble(pl, scans[i], tracker)
			if !day.Notable() {
				continue
			}
			if err := emit(day); err != nil {
				emitErr = err
				return err
			}
		}
		return nil
	}

	consumeErr := consume()
	cancel()
	waitErr := eg.Wait()
	if emitErr != nil {
		return emitErr
	}
	if waitErr != nil {
		return waitErr
	}
	return consumeErr
}

func (g *ReportGenerator) assemble(pl reportPlan, scan transits.DayScan, tracker *transits.ChangeTracker) models.DailyTransits {
	changes, ended := tracker.Detect(scan.Transits)
	day := models.DailyTransits{
		Date:          scan.Date,
		Transits:      nonNil(scan.Transits),
		AspectChanges: nonNil(changes),
		Ended:         ended,
	}
	if pl.mode != models.ModeWeekly {
		return day
	}
	day.Positions = scan.Positions
	var sun, moon *models.Position
	for i := range scan.Positions {
		p := &scan.Positions[i]
		switch p.Body {
		case models.Sun:
			sun = p
		case models.Moon:
			moon = p
		}
		switch p.Retrograde {
		case models.Retro:
			day.Retrogrades = append(day.Retrogrades, p.Body)
		case models.RetrogradeUnknown:
			day.RetrogradeUnknown = append(day.RetrogradeUnknown, p.Body)
		}
	}
	if sun != nil && moon != nil {
		day.MoonPhase = aspects.MoonPhase(sun.Longitude, moon.Longitude)
	}
	return day
}

func (g *ReportGenerator) publish(ctx context.Context, r *models.Report) {
	if g.publisher == nil {
		return
	}
	var changes []models.Transit
	for _, d := range r.Days {
		changes = append(changes, d.AspectChanges...)
	}
	if len(changes) == 0 {
		return
	}
	if err := g.publisher.PublishChanges(ctx, r.ID, changes); err != nil {
		g.metrics.RecordError("report_publish")
		g.log.Warn("publish aspect changes failed",
			logger.String("report_id", r.ID.String()),
			logger.Int("changes", len(changes)),
			logger.Error(err),
		)
	}
}

func nonNil(ts []models.Transit) []models.Transit {
	if ts == nil {
		return []models.Transit{}
	}
	return ts
}
