// Package main runs the tracker HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	app "github.com/R3E-Network/tracker/internal/app"
	"github.com/R3E-Network/tracker/internal/app/audit"
	"github.com/R3E-Network/tracker/internal/app/health"
	"github.com/R3E-Network/tracker/internal/app/httpapi"
	"github.com/R3E-Network/tracker/internal/app/storage/postgres"
	"github.com/R3E-Network/tracker/internal/cache"
	"github.com/R3E-Network/tracker/internal/config"
	"github.com/R3E-Network/tracker/internal/middleware"
	"github.com/R3E-Network/tracker/internal/platform/migrations"
	"github.com/R3E-Network/tracker/pkg/logger"
)

var (
	openPostgres    = postgres.Open
	applyMigrations = migrations.Apply
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	_ = godotenv.Load() // allow .env for local runs

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("tracker").WithError(err).Fatal("failed to load configuration")
	}
	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	}).Component("tracker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *migrateOnly {
		if err := migrate(ctx, cfg.Database, log); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.Info("migrations applied")
		return
	}

	db, err := openDatabase(ctx, cfg.Database, false, log)
	if err != nil {
		log.WithError(err).Fatal("database setup failed")
	}
	if db != nil {
		defer db.Close()
	}

	projectCache, closeCache := openCache(ctx, cfg.Cache, log)
	defer closeCache()

	stores := app.Stores{}
	if db != nil {
		stores = app.StoresFrom(postgres.New(db))
	}
	application, err := app.New(stores, app.Options{
		Cache:        projectCache,
		CacheTTL:     cfg.Cache.TTL,
		EventHistory: cfg.Events.History,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build application")
	}

	auditLog, auditStore, closeAudit := openAudit(cfg.Audit, db, log)
	defer closeAudit()

	purgeTargets := []audit.Purgeable{auditLog}
	if auditStore != nil {
		purgeTargets = append(purgeTargets, auditStore)
	}
	if cfg.Audit.Retention > 0 {
		purger, err := audit.NewPurger(cfg.Audit.PurgeSchedule, cfg.Audit.Retention, log, purgeTargets...)
		if err != nil {
			log.WithError(err).Fatal("invalid audit purge schedule")
		}
		if err := application.Attach(purger); err != nil {
			log.WithError(err).Fatal("failed to attach audit purger")
		}
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start application")
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
		limiter.StartCleanup(ctx, time.Minute)
	}

	checker := health.NewChecker(nil)
	if db != nil {
		checker = health.NewChecker(db)
	}

	opts := httpapi.Options{
		Logger:      log,
		Health:      checker,
		Audit:       auditLog,
		Auth:        cfg.Auth,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		RateLimiter: limiter,
	}
	if auditStore != nil {
		opts.AuditStore = auditStore
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      httpapi.NewHandler(application, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).
			WithField("storage", storageName(db)).
			WithField("auth", cfg.Auth.Enabled()).
			Info("tracker listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.WithField("signal", sig.String()).Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown error")
	}
	cancel()
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop error")
	}
	log.Info("tracker stopped")
}

// openDatabase connects when a DSN is configured and applies migrations when
// asked to. It returns a nil handle for in-memory mode.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, migrate bool, log *logger.Logger) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		if migrate {
			return nil, errors.New("-migrate requires DATABASE_URL")
		}
		log.Warn("DATABASE_URL not set; using in-memory storage")
		return nil, nil
	}

	db, err := openPostgres(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if migrate || cfg.AutoMigrate {
		if err := applyMigrations(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// migrate applies the schema and releases the pool.
func migrate(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) error {
	db, err := openDatabase(ctx, cfg, true, log)
	if err != nil {
		return err
	}
	return db.Close()
}

func openCache(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) (cache.Cache, func()) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(), func() {}
	}
	r, err := cache.NewRedis(ctx, cfg.RedisURL, "tracker:")
	if err != nil {
		log.WithError(err).Warn("redis unavailable; falling back to in-process cache")
		return cache.NewMemory(), func() {}
	}
	return r, func() { _ = r.Close() }
}

func openAudit(cfg config.AuditConfig, db *sqlx.DB, log *logger.Logger) (*audit.Log, *audit.PostgresSink, func()) {
	var sinks []audit.Sink
	closers := []func(){}

	if cfg.File != "" {
		fileSink, err := audit.NewFileSink(cfg.File)
		if err != nil {
			log.WithError(err).WithField("file", cfg.File).Warn("audit file sink disabled")
		} else {
			sinks = append(sinks, fileSink)
			closers = append(closers, func() { _ = fileSink.Close() })
		}
	}

	var store *audit.PostgresSink
	if db != nil {
		store = audit.NewPostgresSink(db)
		sinks = append(sinks, store)
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	return audit.NewLog(cfg.Buffer, log, sinks...), store, closeAll
}

func storageName(db *sqlx.DB) string {
	if db == nil {
		return "memory"
	}
	return "postgres"
}
