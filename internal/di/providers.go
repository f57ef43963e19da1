package di

import (
	"context"
	"fmt"
	"time"

	"AstroTransit/internal/domain/models"
	"AstroTransit/internal/domain/repository"
	"AstroTransit/internal/handler/api"
	mid "AstroTransit/internal/middleware"
	internalrepo "AstroTransit/internal/repository"
	"AstroTransit/internal/service/ephemeris"
	"AstroTransit/internal/services/aspects"
	"AstroTransit/internal/services/transits"
	"AstroTransit/internal/usecase"
	"AstroTransit/pkg/cache"
	pkgch "AstroTransit/pkg/clickhouse"
	"AstroTransit/pkg/config"
	xhttp "AstroTransit/pkg/http"
	pkgkafka "AstroTransit/pkg/kafka"
	applogger "AstroTransit/pkg/logger"
	"AstroTransit/pkg/metrics"
	"AstroTransit/pkg/server"
)

// Matchers holds the two aspect tables.
type Matchers struct {
	Natal   *aspects.Matcher
	Mundane *aspects.Matcher
}

// Engine is the infrastructure-free core used by the CLI.
type Engine struct {
	Config    *config.Config
	Logger    *applogger.Logger
	Matchers  Matchers
	Scanner   *transits.Scanner
	Generator *usecase.ReportGenerator
	Charts    *usecase.ChartService
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideMatchers builds the natal and mundane matchers, falling back to the
// built-in tables when config leaves them empty.
func ProvideMatchers(cfg *config.Config) (Matchers, error) {
	natal, err := aspects.NewMatcher(aspectTable(cfg.Engine.NatalAspects, aspects.NatalTable))
	if err != nil {
		return Matchers{}, fmt.Errorf("natal aspects: %w", err)
	}
	mundane, err := aspects.NewMatcher(aspectTable(cfg.Engine.MundaneAspects, aspects.MundaneTable))
	if err != nil {
		return Matchers{}, fmt.Errorf("mundane aspects: %w", err)
	}
	return Matchers{Natal: natal, Mundane: mundane}, nil
}

func aspectTable(specs []config.AspectSpec, fallback []models.AspectDef) []models.AspectDef {
	if len(specs) == 0 {
		return fallback
	}
	out := make([]models.AspectDef, len(specs))
	for i, s := range specs {
		out[i] = models.AspectDef{Name: s.Name, ExactAngle: s.Angle, Orb: s.Orb}
	}
	return out
}

// ProvideCache creates the position cache: memory only, or memory in front of Redis.
// Returns nil when caching is disabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryTTL(cfg.Cache.TTL),
		), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		cache.WithRedisPool(cfg.Cache.Redis.PoolSize, 2, 30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("position cache: layered",
		applogger.String("redis", fmt.Sprintf("%s:%d", cfg.Cache.Redis.Host, cfg.Cache.Redis.Port)),
	)
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
	), nil
}

// ProvideEphemeris selects the position provider and wraps it with the cache.
func ProvideEphemeris(cfg *config.Config, c cache.Service, l *applogger.Logger) (repository.Ephemeris, error) {
	var eph repository.Ephemeris
	switch cfg.Ephemeris.Provider {
	case "builtin":
		eph = ephemeris.NewBuiltinResolver(cfg.Ephemeris.HouseSystem)
	case "http":
		eph = ephemeris.NewHTTPResolver(ephemeris.ClientConfig{
			BaseURL:     cfg.Ephemeris.URL,
			Timeout:     cfg.Ephemeris.Timeout,
			Retries:     cfg.Ephemeris.Retries,
			Backoff:     cfg.Ephemeris.Backoff,
			HouseSystem: cfg.Ephemeris.HouseSystem,
		}, ephemeris.WithLogger(l))
	default:
		return nil, fmt.Errorf("unknown ephemeris provider %q", cfg.Ephemeris.Provider)
	}
	if c != nil {
		eph = ephemeris.NewCachedResolver(eph, c, cfg.Cache.TTL, l)
	}
	return eph, nil
}

// ProvideScanner creates the daily transit scanner.
func ProvideScanner(cfg *config.Config, eph repository.Ephemeris, m Matchers, mt repository.Metrics, l *applogger.Logger) (*transits.Scanner, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	opts := []transits.Option{
		transits.WithMundaneMatcher(m.Mundane),
		transits.WithScanHour(cfg.Engine.ScanHour),
		transits.WithLocation(loc),
		transits.WithMetrics(mt),
		transits.WithLogger(l),
	}
	if len(cfg.Engine.Bodies) > 0 {
		opts = append(opts, transits.WithBodies(cfg.Engine.Bodies))
	}
	return transits.NewScanner(eph, m.Natal, opts...), nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
// Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(10, 5, 5*time.Minute),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideReportStore creates the ClickHouse report store, or nil without ClickHouse.
func ProvideReportStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.ReportStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHReportStore(ch, cfg.ClickHouse.Database, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPipeline wraps the Kafka change publisher in the buffering pipeline.
func ProvideEventPipeline(cfg *config.Config, producer *pkgkafka.Producer, mt repository.Metrics, l *applogger.Logger) *mid.EventPipeline {
	if producer == nil {
		return nil
	}
	pub := internalrepo.NewKafkaChangePublisher(producer, cfg.Kafka.ChangesTopic)
	return mid.NewEventPipeline(pub, mt,
		mid.WithBufferSize(cfg.Kafka.Pipeline.BufferSize),
		mid.WithRetryBackoff(cfg.Kafka.Pipeline.BackoffMin, cfg.Kafka.Pipeline.BackoffMax),
		mid.WithPipelineLogger(l),
	)
}

// ProvideReportGenerator creates the range report use case.
func ProvideReportGenerator(
	cfg *config.Config,
	scanner *transits.Scanner,
	store repository.ReportStore,
	pipeline *mid.EventPipeline,
	mt repository.Metrics,
	l *applogger.Logger,
) *usecase.ReportGenerator {
	opts := []usecase.GeneratorOption{
		usecase.WithGeneratorMetrics(mt),
		usecase.WithGeneratorLogger(l),
	}
	if store != nil {
		opts = append(opts, usecase.WithReportStore(store))
	}
	if pipeline != nil {
		opts = append(opts, usecase.WithEventPublisher(pipeline))
	}
	return usecase.NewReportGenerator(scanner, usecase.ReportConfig{
		Workers:      cfg.Engine.Workers,
		Timeout:      cfg.Engine.ReportTimeout,
		MaxRangeDays: cfg.Engine.MaxRangeDays,
		TrackEnded:   cfg.Engine.TrackEnded,
	}, opts...)
}

// ProvideChartService creates the chart builder.
func ProvideChartService(scanner *transits.Scanner, eph repository.Ephemeris, l *applogger.Logger) *usecase.ChartService {
	return usecase.NewChartService(scanner, eph, l)
}

// ProvideEngine groups the core for command-line use.
func ProvideEngine(
	cfg *config.Config,
	l *applogger.Logger,
	m Matchers,
	scanner *transits.Scanner,
	gen *usecase.ReportGenerator,
	charts *usecase.ChartService,
) *Engine {
	return &Engine{Config: cfg, Logger: l, Matchers: m, Scanner: scanner, Generator: gen, Charts: charts}
}

// ProvideHTTPHandler creates the echo route handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	m Matchers,
	scanner *transits.Scanner,
	gen *usecase.ReportGenerator,
	charts *usecase.ChartService,
	store repository.ReportStore,
) xhttp.Handler {
	return api.NewAstroEchoHandler(l, api.Deps{
		Natal:     m.Natal,
		Mundane:   m.Mundane,
		Scanner:   scanner,
		Generator: gen,
		Charts:    charts,
		Store:     store,
	})
}

// ProvideKafkaConsumer creates the report job consumer, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerHandleTimeout(cfg.Kafka.Consumer.HandleTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideReportJobHandler handles the report request topic.
func ProvideReportJobHandler(cfg *config.Config, gen *usecase.ReportGenerator, mt repository.Metrics, l *applogger.Logger) *usecase.ReportJobHandler {
	return usecase.NewReportJobHandler(cfg.Kafka.JobsTopic, gen, mt, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	jobs *usecase.ReportJobHandler,
	pipeline *mid.EventPipeline,
	ch *pkgch.Client,
	c cache.Service,
) *server.App {
	opts := []server.Option{server.WithConsumer(consumer, jobs)}
	if c != nil {
		opts = append(opts, server.WithCloser(c))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser(ch))
	}
	if pipeline != nil {
		opts = append(opts, server.WithBackground(pipeline), server.WithCloser(pipeline))
	}
	return server.New(cfg, l, handler, opts...)
}
