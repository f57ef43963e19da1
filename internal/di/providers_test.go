package di

import (
	"testing"

	"AstroTransit/internal/domain/models"
	"AstroTransit/internal/services/aspects"
	"AstroTransit/pkg/config"
	"AstroTransit/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideMatchersFallsBackToBuiltinTables(t *testing.T) {
	m, err := ProvideMatchers(config.Default())
	require.NoError(t, err)
	assert.Equal(t, aspects.NatalTable, m.Natal.Table())
	assert.Equal(t, aspects.MundaneTable, m.Mundane.Table())
}

func TestProvideMatchersFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.NatalAspects = []config.AspectSpec{{Name: models.Conjunction, Angle: 0, Orb: 2}}
	m, err := ProvideMatchers(cfg)
	require.NoError(t, err)

	_, ok := m.Natal.Match(10, 13)
	assert.False(t, ok)
	am, ok := m.Natal.Match(10, 11.5)
	require.True(t, ok)
	assert.Equal(t, models.Conjunction, am.Aspect)
}

func TestOptionalInfrastructureDisabledByDefault(t *testing.T) {
	cfg := config.Default()

	c, err := ProvideCache(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	ch, err := ProvideClickHouseClient(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, ch)
	assert.Nil(t, ProvideReportStore(cfg, ch, nil))

	p, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Nil(t, ProvideEventPipeline(cfg, p, metrics.Nop{}, nil))

	consumer, err := ProvideKafkaConsumer(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, consumer)
}

func TestProvideEphemerisRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Ephemeris.Provider = "oracle"
	_, err := ProvideEphemeris(cfg, nil, nil)
	assert.Error(t, err)
}

func TestInitializeEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"
	eng, err := InitializeEngine(cfg)
	require.NoError(t, err)
	require.NotNil(t, eng.Generator)
	require.NotNil(t, eng.Charts)
	assert.NotEmpty(t, eng.Scanner.Bodies())
}
