package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AstroTransit/internal/domain/models"
	domrepo "AstroTransit/internal/domain/repository"
	"AstroTransit/pkg/logger"

	"github.com/google/uuid"
)

type changeBatch struct {
	reportID uuid.UUID
	changes  []models.Transit
}

// EventPipeline sits between report generation and the event bus.
// It validates aspect changes and buffers batches while downstream is unavailable.
type EventPipeline struct {
	next       domrepo.EventPublisher
	metrics    domrepo.Metrics
	log        *logger.Logger
	bufSize    int
	backoffMin time.Duration
	backoffMax time.Duration
	bufCh      chan changeBatch
	stopCh     chan struct{}
	done       chan struct{}
	started    bool
	mu         sync.Mutex
}

type PipelineOption func(*EventPipeline)

// WithBufferSize sets how many batches are held while downstream is failing.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetryBackoff sets the flush backoff range.
func WithRetryBackoff(min, max time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if min > 0 && max >= min {
			p.backoffMin, p.backoffMax = min, max
		}
	}
}

func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *EventPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewEventPipeline wraps next.
func NewEventPipeline(next domrepo.EventPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		next:       next,
		metrics:    metrics,
		log:        logger.Nop(),
		bufSize:    256,
		backoffMin: 50 * time.Millisecond,
		backoffMax: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan changeBatch, p.bufSize)
	return p
}

// Start launches background flushing of buffered batches. A stopped
// pipeline can be started again.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	stop, done := make(chan struct{}), make(chan struct{})
	p.stopCh, p.done = stop, done
	p.mu.Unlock()

	go p.flushLoop(ctx, stop, done)
}

func (p *EventPipeline) flushLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	backoff := p.backoffMin
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case b := <-p.bufCh:
			if err := p.next.PublishChanges(ctx, b.reportID, b.changes); err != nil {
				p.metrics.RecordError("pipeline_flush")
				p.requeue(b)
				select {
				case <-time.After(backoff):
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
				if backoff *= 2; backoff > p.backoffMax {
					backoff = p.backoffMax
				}
				continue
			}
			backoff = p.backoffMin
			p.log.Debug("buffered aspect changes flushed",
				logger.String("report_id", b.reportID.String()),
				logger.Int("changes", len(b.changes)),
			)
		}
	}
}

// Stop stops flushing and waits for the flush loop. Unflushed batches are dropped.
func (p *EventPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	stop, done := p.stopCh, p.done
	p.mu.Unlock()
	close(stop)
	<-done
	if n := len(p.bufCh); n > 0 {
		p.log.Warn("dropping buffered aspect change batches", logger.Int("batches", n))
	}
}

// Close stops the pipeline and closes downstream.
func (p *EventPipeline) Close() error {
	p.Stop()
	return p.next.Close()
}

// Buffered is the number of batches waiting for a retry.
func (p *EventPipeline) Buffered() int { return len(p.bufCh) }

// PublishChanges validates changes and forwards them, buffering on downstream errors.
func (p *EventPipeline) PublishChanges(ctx context.Context, reportID uuid.UUID, changes []models.Transit) error {
	start := time.Now()
	for i := range changes {
		if err := validateChange(&changes[i]); err != nil {
			p.metrics.RecordError("pipeline_validate")
			return err
		}
	}
	if len(changes) == 0 {
		return nil
	}

	if err := p.next.PublishChanges(ctx, reportID, changes); err != nil {
		p.metrics.RecordError("pipeline_publish")
		p.requeue(changeBatch{reportID: reportID, changes: changes})
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_publish", time.Since(start).Seconds())
	return nil
}

func (p *EventPipeline) requeue(b changeBatch) {
	select {
	case p.bufCh <- b:
	default:
		p.metrics.RecordError("pipeline_buffer_full")
	}
}

func validateChange(t *models.Transit) error {
	if t.TransitBody == "" || t.NatalBody == "" {
		return fmt.Errorf("aspect change: body empty")
	}
	if t.Aspect == "" {
		return fmt.Errorf("aspect change: aspect empty")
	}
	if t.Orb < 0 {
		return fmt.Errorf("aspect change: negative orb")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("aspect change: date missing")
	}
	return nil
}

var _ domrepo.EventPublisher = (*EventPipeline)(nil)
