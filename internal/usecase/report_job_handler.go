package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AstroTransit/internal/domain/models"
	drepo "AstroTransit/internal/domain/repository"
	pkgkafka "AstroTransit/pkg/kafka"
	"AstroTransit/pkg/logger"
	pkgmetrics "AstroTransit/pkg/metrics"
)

// ReportJobHandler consumes report requests from Kafka and generates stored reports.
type ReportJobHandler struct {
	topic     string
	generator *ReportGenerator
	metrics   drepo.Metrics
	log       *logger.Logger
}

func NewReportJobHandler(topic string, generator *ReportGenerator, metrics drepo.Metrics, log *logger.Logger) *ReportJobHandler {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &ReportJobHandler{topic: topic, generator: generator, metrics: metrics, log: log}
}

func (h *ReportJobHandler) Topic() string { return h.topic }

// Handle decodes a ReportJob. Malformed jobs are wrapped as permanent so the
// consumer sends them to the DLQ without retrying.
func (h *ReportJobHandler) Handle(ctx context.Context, b []byte) error {
	var job models.ReportJob
	if err := json.Unmarshal(b, &job); err != nil {
		h.metrics.RecordError("job_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode report job: %w", err))
	}

	params, err := h.params(job)
	if err != nil {
		h.metrics.RecordError("job_invalid")
		return pkgkafka.Permanent(err)
	}

	start := time.Now()
	report, err := h.generator.Generate(ctx, params)
	h.metrics.RecordLatency("job_report_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("job_generate")
		return err
	}
	h.log.Info("report job done",
		logger.String("report_id", report.ID.String()),
		logger.String("mode", string(report.Mode)),
		logger.Int("days", len(report.Days)),
	)
	return nil
}

func (h *ReportJobHandler) params(job models.ReportJob) (ReportParams, error) {
	start, err := h.generator.ParseDate(job.Start)
	if err != nil {
		return ReportParams{}, err
	}
	end, err := h.generator.ParseDate(job.End)
	if err != nil {
		return ReportParams{}, err
	}
	if err := models.CheckBodies(job.Bodies); err != nil {
		return ReportParams{}, err
	}
	p := ReportParams{Mode: job.Mode, Start: start, End: end, Bodies: job.Bodies, Store: true}
	if job.Chart != nil {
		chart, err := job.Chart.Chart()
		if err != nil {
			return ReportParams{}, err
		}
		p.Chart = chart
	}
	return p, nil
}

var _ pkgkafka.MessageHandler = (*ReportJobHandler)(nil)
