package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"AstroTransit/internal/domain/models"
	"AstroTransit/pkg/metrics"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	published []models.Transit
	closed    bool
}

func (f *flakyPublisher) PublishChanges(_ context.Context, _ uuid.UUID, changes []models.Transit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, changes...)
	return nil
}

func (f *flakyPublisher) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *flakyPublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func change() models.Transit {
	return models.Transit{
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		TransitBody: models.Mars,
		NatalBody:   models.Sun,
		Aspect:      models.Trine,
		Orb:         1.5,
	}
}

func TestEventPipeline_ForwardsValidChanges(t *testing.T) {
	next := &flakyPublisher{}
	p := NewEventPipeline(next, metrics.Nop{})

	require.NoError(t, p.PublishChanges(context.Background(), uuid.New(), []models.Transit{change()}))
	assert.Equal(t, 1, next.count())
	require.NoError(t, p.PublishChanges(context.Background(), uuid.New(), nil))
	assert.Equal(t, 1, next.count())
}

func TestEventPipeline_RejectsInvalid(t *testing.T) {
	next := &flakyPublisher{}
	p := NewEventPipeline(next, metrics.Nop{})

	bad := change()
	bad.Aspect = ""
	assert.Error(t, p.PublishChanges(context.Background(), uuid.New(), []models.Transit{change(), bad}))

	bad = change()
	bad.Orb = -1
	assert.Error(t, p.PublishChanges(context.Background(), uuid.New(), []models.Transit{bad}))
	assert.Equal(t, 0, next.count())
	assert.Equal(t, 0, p.Buffered())
}

func TestEventPipeline_BuffersAndFlushes(t *testing.T) {
	defer goleak.VerifyNone(t)

	next := &flakyPublisher{failures: 2}
	p := NewEventPipeline(next, metrics.Nop{}, WithRetryBackoff(time.Millisecond, 5*time.Millisecond))

	err := p.PublishChanges(context.Background(), uuid.New(), []models.Transit{change(), change()})
	require.Error(t, err)
	assert.Equal(t, 1, p.Buffered())

	p.Start(context.Background())
	assert.Eventually(t, func() bool { return next.count() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Close())
	assert.True(t, next.closed)
}

func TestEventPipeline_BufferFullDrops(t *testing.T) {
	next := &flakyPublisher{failures: 10}
	p := NewEventPipeline(next, metrics.Nop{}, WithBufferSize(1))

	assert.Error(t, p.PublishChanges(context.Background(), uuid.New(), []models.Transit{change()}))
	assert.Error(t, p.PublishChanges(context.Background(), uuid.New(), []models.Transit{change()}))
	assert.Equal(t, 1, p.Buffered())
}

func TestEventPipeline_Restart(t *testing.T) {
	defer goleak.VerifyNone(t)

	next := &flakyPublisher{failures: 1}
	p := NewEventPipeline(next, metrics.Nop{}, WithRetryBackoff(time.Millisecond, 5*time.Millisecond))

	p.Start(context.Background())
	p.Stop()
	p.Stop()

	require.Error(t, p.PublishChanges(context.Background(), uuid.New(), []models.Transit{change()}))
	p.Start(context.Background())
	assert.Eventually(t, func() bool { return next.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.Close())
}
