package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/focus-api/internal/cache"
	"github.com/phrazzld/focus-api/internal/config"
	"github.com/phrazzld/focus-api/internal/dispatch"
	"github.com/phrazzld/focus-api/internal/events"
	"github.com/phrazzld/focus-api/internal/metrics"
	"github.com/phrazzld/focus-api/internal/platform/hostinfo"
	"github.com/phrazzld/focus-api/internal/platform/postgres"
	"github.com/phrazzld/focus-api/internal/resource"
	"github.com/phrazzld/focus-api/internal/service/auth"
	"github.com/phrazzld/focus-api/internal/session"
	"github.com/phrazzld/focus-api/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	pool       *resource.Pool
	tasks      *task.Manager
	sessions   *session.Manager
	janitor    *session.Janitor
	emitter    *events.InMemoryEventEmitter
	history    *postgres.TaskHistoryStore
	results    *cache.Results
	dispatcher *dispatch.Dispatcher
	jwtService auth.JWTService

	registry  *prometheus.Registry
	collector *metrics.Collector
}

// newApplication wires every component. db may be nil, which disables the
// persisted task history. probe supplies host memory when the configured
// memory cap is zero.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	collaborator dispatch.Collaborator,
	probe hostinfo.MemoryProbe,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	limits, err := schedulerLimits(cfg.Scheduler, probe)
	if err != nil {
		return nil, err
	}
	app.pool, err = resource.NewPool(limits, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource pool: %w", err)
	}
	logger.Info("Resource pool initialized", "limits", app.pool.String())

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.tasks = task.NewManager(app.pool, task.Config{
		QueueSize:      cfg.Scheduler.QueueSize,
		DefaultTimeout: cfg.Scheduler.DefaultTimeout(),
		GracePeriod:    cfg.Scheduler.GracePeriod(),
		HistorySize:    cfg.Scheduler.HistorySize,
		HistoryTTL:     cfg.Scheduler.HistoryTTL(),
	}, logger, app.emitter)

	app.sessions = session.NewManager(session.NewStore(), logger,
		session.WithInactivityThreshold(cfg.Session.InactivityThreshold()))
	app.emitter.RegisterHandler(session.NewActivityHandler(app.sessions))

	if db != nil {
		app.history = postgres.NewTaskHistoryStore(db, logger)
		app.emitter.RegisterHandler(app.history)
		logger.Info("Task history persistence enabled")
	}

	app.janitor, err = session.NewJanitor(app.sessions, cfg.Session.ReapInterval(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session janitor: %w", err)
	}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.collector = metrics.NewCollector(app.tasks, app.sessions)
	if err := app.collector.Register(app.registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	opts := []dispatch.Option{dispatch.WithObserver(app.collector)}
	if cfg.Cache.Enabled && cfg.Cache.Size > 0 {
		app.results = cache.NewResults(cfg.Cache.Size, cfg.Cache.TTL(), logger)
		opts = append(opts, dispatch.WithCache(app.results))
	}
	app.dispatcher = dispatch.New(
		dispatch.DefaultTable(collaborator),
		app.tasks,
		app.sessions,
		dispatch.Config{
			DefaultTimeout: cfg.Scheduler.DefaultTimeout(),
			MaxTimeout:     cfg.Scheduler.MaxTimeout(),
		},
		logger,
		opts...,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// schedulerLimits builds the capacity table from configuration, reading the
// memory cap from the host when it is not configured.
func schedulerLimits(cfg config.SchedulerConfig, probe hostinfo.MemoryProbe) (resource.Limits, error) {
	memory, err := hostinfo.ResolveMemoryLimit(cfg.MemoryCapMB, cfg.MemoryCeilingMB, probe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve memory capacity: %w", err)
	}
	return resource.Limits{
		resource.CPU:    {HardCap: cfg.CPUCap, Ceiling: cfg.CPUCeiling},
		resource.Memory: memory,
		resource.GPU:    {HardCap: cfg.GPUCap, Ceiling: cfg.GPUCeiling},
	}, nil
}

// start launches the background components.
func (app *application) start() {
	app.tasks.Start()
	app.janitor.Start()
}

// Run starts the background components and serves HTTP until ctx is done,
// then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	app.start()

	serveErr := app.serve(ctx, app.setupRouter())

	stopCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout())
	defer cancel()
	err := multierr.Append(serveErr, app.cleanup(stopCtx))

	app.logger.Info("Server shutdown completed", "clean", err == nil)
	return err
}

// cleanup stops admissions and running work before the janitor and the
// database, since task events may still be written to the history table.
func (app *application) cleanup(ctx context.Context) error {
	err := app.tasks.Stop(ctx)
	err = multierr.Append(err, app.janitor.Stop(ctx))
	if app.db != nil {
		if closeErr := app.db.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("closing database: %w", closeErr))
		}
	}
	return err
}
