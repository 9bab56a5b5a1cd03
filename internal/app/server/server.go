package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"kpireview/internal/domain/audit"
	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/entitystore"
	"kpireview/internal/domain/hierarchy"
	"kpireview/internal/domain/kpi"
	"kpireview/internal/domain/kpigroup"
	"kpireview/internal/domain/review"
	"kpireview/internal/domain/scoring"
	"kpireview/internal/domain/staff"
	"kpireview/internal/platform/config"
	"kpireview/internal/platform/db"
	"kpireview/internal/platform/filestore"
	"kpireview/internal/platform/jobs"
	"kpireview/internal/platform/metrics"
	adminhandler "kpireview/internal/transport/http/handlers/admin"
	audithandler "kpireview/internal/transport/http/handlers/audit"
	authhandler "kpireview/internal/transport/http/handlers/auth"
	grouphandler "kpireview/internal/transport/http/handlers/groups"
	hierarchyhandler "kpireview/internal/transport/http/handlers/hierarchy"
	kpihandler "kpireview/internal/transport/http/handlers/kpis"
	reviewhandler "kpireview/internal/transport/http/handlers/reviews"
	scorehandler "kpireview/internal/transport/http/handlers/scores"
	staffhandler "kpireview/internal/transport/http/handlers/staff"
	"kpireview/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Store   *entitystore.Store
	Engine  *scoring.Engine
	Metrics *metrics.Collector
	Jobs    *jobs.Service
	Audit   *audit.Service

	refresh   jobs.RunFunc
	stopWatch func()
}

// New connects to the database, prepares the schema and loads the entity
// store before any route is served.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	files, err := filestore.New(ctx, cfg.FileStore())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("file store: %w", err)
	}

	staffSvc := staff.NewService(staff.NewStore(pool))
	kpiSvc := kpi.NewService(kpi.NewStore(pool))
	hierarchySvc := hierarchy.NewService(hierarchy.NewStore(pool), staffSvc)
	reviewSvc := review.NewService(review.NewStore(pool), staffSvc, kpiSvc, files, cfg.MaxUploadBytes)
	reviewSvc.Location = loc
	groupSvc := kpigroup.NewService(kpigroup.NewStore(pool), kpiSvc)
	auditSvc := audit.New(pool)
	authSvc := auth.NewService(staffSvc, cfg.JWTSecret, cfg.TokenTTL)

	store := entitystore.New(entitystore.Sources{
		KPIs:        kpiSvc,
		Profiles:    staffSvc,
		Assignments: hierarchySvc,
		ReviewItems: reviewSvc,
	})
	if err := store.Refresh(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initial load: %w", err)
	}
	engine := scoring.NewEngine(func() scoring.Source { return store.Snapshot() })
	stopWatch := store.Subscribe(func(ch entitystore.Change) {
		switch ch.Collection {
		case entitystore.KPIs, entitystore.Profiles, entitystore.ReviewItems:
			engine.Invalidate()
		}
	})

	collector := metrics.New()
	jobsSvc := jobs.New(pool)
	refresh := func(ctx context.Context) (any, error) {
		err := store.Refresh(ctx)
		collector.StoreRefreshed(err)
		return map[string]uint64{"version": store.Version()}, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.SensitiveRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(collector.Snapshot()); err != nil {
				slog.Warn("encode metrics failed", "err", err)
			}
		})
	}

	if local, ok := files.(*filestore.Local); ok {
		router.Handle(local.MountPath()+"/*", local.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authSvc, auditSvc, store, cfg.AllowSelfSignup).RegisterRoutes(r)
		staffhandler.NewHandler(staffSvc, auditSvc, store).RegisterRoutes(r)
		kpihandler.NewHandler(kpiSvc, auditSvc, store).RegisterRoutes(r)
		hierarchyhandler.NewHandler(hierarchySvc, auditSvc, store).RegisterRoutes(r)
		reviews := reviewhandler.NewHandler(reviewSvc, auditSvc, store, collector, loc, cfg.MaxUploadBytes)
		reviews.Throttle = middleware.NewThrottle(cfg.ReviewWritesPerHour, time.Hour)
		reviews.RegisterRoutes(r)
		scorehandler.NewHandler(engine, store, loc).RegisterRoutes(r)
		grouphandler.NewHandler(groupSvc, auditSvc).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc).RegisterRoutes(r)
		adminhandler.NewHandler(store, jobsSvc, refresh, auditSvc).RegisterRoutes(r)
	})

	return &App{
		Config:    cfg,
		DB:        pool,
		Router:    router,
		Store:     store,
		Engine:    engine,
		Metrics:   collector,
		Jobs:      jobsSvc,
		Audit:     auditSvc,
		refresh:   refresh,
		stopWatch: stopWatch,
	}, nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives. Background
// jobs stop with the server.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.startJobs(ctx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("kpi review server listening on %s", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// startJobs schedules the periodic store refresh and, when a retention
// window is configured, the daily audit purge.
func (a *App) startJobs(ctx context.Context) {
	a.Jobs.Start(ctx)
	a.Jobs.Every(ctx, jobs.JobStoreRefresh, a.Config.RefreshInterval, a.refresh)
	if days := a.Config.AuditRetentionDays; days > 0 {
		a.Jobs.Every(ctx, jobs.JobAuditRetention, 24*time.Hour, func(ctx context.Context) (any, error) {
			cutoff := time.Now().AddDate(0, 0, -days)
			deleted, err := a.Audit.Purge(ctx, cutoff)
			return map[string]any{"cutoff": cutoff, "deleted": deleted}, err
		})
	}
}

func (a *App) Close() {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
