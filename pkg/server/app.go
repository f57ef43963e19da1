package server

import (
	"context"
	"io"
	"os/signal"
	"syscall"
	"time"

	"AstroTransit/pkg/config"
	xhttp "AstroTransit/pkg/http"
	pkgkafka "AstroTransit/pkg/kafka"
	applogger "AstroTransit/pkg/logger"
)

// Background is a component with its own goroutines.
type Background interface {
	Start(ctx context.Context)
	Stop()
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	jobs       pkgkafka.MessageHandler
	background []Background
	closers    []io.Closer
}

// Option configures App.
type Option func(*App)

// WithConsumer runs jobs on the Kafka consumer.
func WithConsumer(c *pkgkafka.Consumer, jobs pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if c != nil && jobs != nil {
			a.consumer, a.jobs = c, jobs
		}
	}
}

// WithBackground starts b with the app and stops it on shutdown.
func WithBackground(b Background) Option {
	return func(a *App) {
		if b != nil {
			a.background = append(a.background, b)
		}
	}
}

// WithCloser closes c after everything else has stopped.
func WithCloser(c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, c)
		}
	}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, handler xhttp.Handler, opts ...Option) *App {
	if log == nil {
		log = applogger.Nop()
	}
	a := &App{cfg: cfg, log: log, handler: handler}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the registered HTTP handler.
func (a *App) Handler() xhttp.Handler { return a.handler }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	a.httpServer = xhttp.NewServer(a.handler, a.log,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRateLimit(a.cfg.RateLimit.RPS, a.cfg.RateLimit.Burst),
	)

	bgCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, b := range a.background {
		b.Start(bgCtx)
	}

	if a.consumer != nil {
		a.consumer.RegisterHandler(a.jobs)
		a.consumer.WithHook(pkgkafka.TraceHook())
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.log.Info("report job consumer started", applogger.String("topic", a.jobs.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("astrotransit started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("ephemeris", a.cfg.Ephemeris.Provider),
		applogger.Int("port", a.cfg.Server.Port),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	for _, b := range a.background {
		b.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
