package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rtepass1986/reallifeberlin/internal/auth"
	"github.com/rtepass1986/reallifeberlin/internal/config"
	router "github.com/rtepass1986/reallifeberlin/internal/http"
	"github.com/rtepass1986/reallifeberlin/internal/http/handlers"
	"github.com/rtepass1986/reallifeberlin/internal/metrics"
	"github.com/rtepass1986/reallifeberlin/internal/notify"
	"github.com/rtepass1986/reallifeberlin/internal/planningcenter"
	"github.com/rtepass1986/reallifeberlin/internal/scheduler"
	"github.com/rtepass1986/reallifeberlin/internal/service"
	"github.com/rtepass1986/reallifeberlin/internal/store"
	"github.com/rtepass1986/reallifeberlin/internal/store/memory"
	"github.com/rtepass1986/reallifeberlin/internal/store/sqlstore"
	"github.com/rtepass1986/reallifeberlin/internal/workerpool"
)

// app holds the wired components shared by every command.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	store     store.Store
	sql       *sqlstore.Store // nil for the memory driver
	metrics   *metrics.Metrics
	pool      *workerpool.Pool
	nats      *nats.Conn
	pc        *planningcenter.Client
	opts      service.Options
	workflows *service.WorkflowService
	tasks     *service.TaskService
	contacts  *service.ContactService
	dashboard *service.DashboardService
	kpis      *service.KPIService
	scheduler *scheduler.Scheduler
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New(nil)}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.pool = workerpool.New(cfg.Notify.PoolSize, logger)
	a.pool.Start(cfg.Notify.Workers)

	hc := &http.Client{Timeout: cfg.Notify.Timeout}
	dispatchOpts := notify.Options{
		Pool:    a.pool,
		Leaders: a.store,
		Metrics: a.metrics,
		Logger:  logger,
	}
	if cfg.Notify.PeoplesAppURL != "" {
		dispatchOpts.Connector = notify.NewPeoplesAppClient(cfg.Notify.PeoplesAppURL, cfg.Notify.PeoplesAppAPIKey, hc)
	}
	if cfg.Notify.WhatsAppURL != "" {
		dispatchOpts.WhatsApp = notify.NewWhatsAppClient(cfg.Notify.WhatsAppURL, cfg.Notify.WhatsAppAPIKey, hc)
	}
	if cfg.NATS.URL != "" {
		a.nats, err = nats.Connect(cfg.NATS.URL, nats.Name("reallife"))
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		dispatchOpts.Mirror = notify.NewNATSPublisher(a.nats, cfg.NATS.SubjectPrefix)
	}
	dispatcher := notify.NewDispatcher(dispatchOpts)

	a.pc = planningcenter.New(planningcenter.Config{
		BaseURL:      cfg.PlanningCenter.BaseURL,
		ClientID:     cfg.PlanningCenter.ClientID,
		ClientSecret: cfg.PlanningCenter.ClientSecret,
		RedirectURL:  cfg.PlanningCenter.RedirectURL,
		AppID:        cfg.PlanningCenter.AppID,
		APIKey:       cfg.PlanningCenter.APIKey,
	}, hc)
	var sync service.PeopleSync
	if a.pc.PeopleConfigured() {
		sync = a.pc
	}

	a.opts = service.Options{Location: cfg.Location(), Metrics: a.metrics, Logger: logger}
	if a.workflows, err = service.NewWorkflowService(a.store, dispatcher, a.opts); err != nil {
		return nil, err
	}
	if a.tasks, err = service.NewTaskService(a.store, dispatcher, a.opts); err != nil {
		return nil, err
	}
	if a.contacts, err = service.NewContactService(a.store, a.workflows, sync, a.pool, a.opts); err != nil {
		return nil, err
	}
	if a.dashboard, err = service.NewDashboardService(a.store, a.opts); err != nil {
		return nil, err
	}
	if a.kpis, err = service.NewKPIService(a.store, a.opts); err != nil {
		return nil, err
	}

	a.scheduler, err = scheduler.New(scheduler.Config{
		DueTasksSpec: cfg.Scheduler.DueTasksSpec,
		AdvanceSpec:  cfg.Scheduler.AdvanceSpec,
		Location:     cfg.Location(),
		JobTimeout:   cfg.Scheduler.JobTimeout,
	}, a.workflows, a.metrics, logger)
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Database.Driver {
	case "memory":
		a.logger.Warn("using the in-memory store, data is lost on exit")
		a.store = memory.New()
		return nil
	default:
		s, err := sqlstore.Open(sqlstore.Options{
			Driver:        a.cfg.Database.Driver,
			DSN:           a.cfg.Database.DSN,
			LogLevel:      gormlogger.Warn,
			Logger:        a.logger,
			SlowThreshold: a.cfg.Database.SlowThreshold,
		})
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.Ping(pingCtx); err != nil {
			_ = s.Close()
			return fmt.Errorf("ping database: %w", err)
		}
		a.sql, a.store = s, s
		return nil
	}
}

func (a *app) migrate(ctx context.Context) error {
	if a.sql == nil {
		a.logger.Info("memory driver has no schema to migrate")
		return nil
	}
	if err := a.sql.Migrate(ctx); err != nil {
		return err
	}
	a.logger.Info("database migrated", "driver", a.cfg.Database.Driver)
	return nil
}

// router wires authentication and the HTTP handlers. It needs a JWT secret,
// so only serve builds it.
func (a *app) router() (http.Handler, error) {
	tokens, err := auth.NewTokens(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth.jwt_secret: %w", err)
	}

	var (
		identity service.IdentityProvider
		people   service.PersonFinder
	)
	if a.pc.OAuthConfigured() {
		identity = a.pc
	}
	if a.pc.PeopleConfigured() {
		people = a.pc
	}

	authSvc, err := service.NewAuthService(a.store, tokens, identity, people, a.opts)
	if err != nil {
		return nil, err
	}

	return router.New(router.Handlers{
		Auth:      handlers.NewAuthHandler(authSvc),
		Contacts:  handlers.NewContactHandler(a.contacts),
		Tasks:     handlers.NewTaskHandler(a.tasks),
		Workflows: handlers.NewWorkflowHandler(a.workflows, a.dashboard),
		KPIs:      handlers.NewKPIHandler(a.kpis),
	}, router.Options{
		Authenticator: authSvc,
		Metrics:       a.metrics,
		CORSOrigins:   a.cfg.HTTP.CORSOrigins,
		Logger:        a.logger,
	}), nil
}

func (a *app) close() {
	if a.pool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		if err := a.pool.Shutdown(ctx); err != nil {
			a.logger.Warn("worker pool did not drain", "error", err)
		}
		cancel()
	}
	if a.nats != nil {
		if err := a.nats.Drain(); err != nil {
			a.logger.Warn("nats drain failed", "error", err)
		}
	}
	if a.sql != nil {
		if err := a.sql.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
}
