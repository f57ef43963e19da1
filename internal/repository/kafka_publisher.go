package repository

import (
	"context"
	"time"

	"AstroTransit/internal/domain/models"
	domrepo "AstroTransit/internal/domain/repository"
	pkgkafka "AstroTransit/pkg/kafka"

	"github.com/google/uuid"
)

// AspectChangeEvent is the wire form of one aspect change.
type AspectChangeEvent struct {
	ReportID          string    `json:"report_id"`
	Date              string    `json:"date"`
	TransitBody       string    `json:"transit_body"`
	NatalBody         string    `json:"natal_body"`
	Aspect            string    `json:"aspect"`
	Orb               float64   `json:"orb"`
	TransitSign       string    `json:"transit_sign"`
	NatalSign         string    `json:"natal_sign"`
	TransitRetrograde string    `json:"transit_retrograde"`
	PublishedAt       time.Time `json:"published_at"`
}

// KafkaChangePublisher publishes aspect changes keyed by body pair, so the
// changes of one pair stay ordered within a partition.
type KafkaChangePublisher struct {
	producer *pkgkafka.Producer
	topic    string
	now      func() time.Time
}

func NewKafkaChangePublisher(producer *pkgkafka.Producer, topic string) *KafkaChangePublisher {
	return &KafkaChangePublisher{producer: producer, topic: topic, now: time.Now}
}

func (p *KafkaChangePublisher) PublishChanges(ctx context.Context, reportID uuid.UUID, changes []models.Transit) error {
	if len(changes) == 0 {
		return nil
	}
	now := p.now().UTC()
	msgs := make([]pkgkafka.Message, 0, len(changes))
	for _, c := range changes {
		msgs = append(msgs, pkgkafka.Message{
			Key: []byte(c.TransitBody + "|" + c.NatalBody),
			Value: AspectChangeEvent{
				ReportID:          reportID.String(),
				Date:              c.Date.Format("2006-01-02"),
				TransitBody:       c.TransitBody,
				NatalBody:         c.NatalBody,
				Aspect:            c.Aspect,
				Orb:               c.Orb,
				TransitSign:       c.TransitSign,
				NatalSign:         c.NatalSign,
				TransitRetrograde: c.TransitRetrograde.String(),
				PublishedAt:       now,
			},
			Headers: map[string]string{"trace_id": reportID.String()},
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaChangePublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.EventPublisher = (*KafkaChangePublisher)(nil)
