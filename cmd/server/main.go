// Command server runs the citizen feedback HTTP API.
//
// Startup order: environment (.env optional), configuration, logging,
// tracing, storage, analytics config, notifier, services, background jobs,
// router. SIGINT/SIGTERM drains in-flight requests and then stops the jobs,
// flushes traces and closes the store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	_ "github.com/tbourn/citizen-feedback/docs"
	"github.com/tbourn/citizen-feedback/internal/analytics"
	"github.com/tbourn/citizen-feedback/internal/config"
	httpapi "github.com/tbourn/citizen-feedback/internal/http"
	"github.com/tbourn/citizen-feedback/internal/jobs"
	"github.com/tbourn/citizen-feedback/internal/jsonstore"
	"github.com/tbourn/citizen-feedback/internal/notify"
	"github.com/tbourn/citizen-feedback/internal/observability"
	"github.com/tbourn/citizen-feedback/internal/repo"
	"github.com/tbourn/citizen-feedback/internal/services"
	"github.com/tbourn/citizen-feedback/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout = 10 * time.Second
	jobTimeout      = 2 * time.Minute
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	sysutil.ConfigureLogging(cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, nil)
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	ctx := context.Background()
	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open store")
	}

	anaCfg, err := analytics.LoadFile(cfg.Analytics.ConfigPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Analytics.ConfigPath).Msg("failed to load analytics config")
	}
	if tz := strings.TrimSpace(cfg.Analytics.Timezone); tz != "" {
		anaCfg.Timezone = tz
	}
	anaStore, err := analytics.NewStore(anaCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid analytics config")
	}

	notifier := notify.New(cfg.Webhook.BaseURL, notify.Options{
		Timeout:    cfg.Webhook.Timeout,
		MaxRetries: cfg.Webhook.MaxRetries,
	})
	if !notifier.Enabled() {
		log.Info().Msg("webhook delivery disabled")
	}

	fbSvc := services.NewFeedbackService(store, store, notifier)
	fbSvc.MaxTextRunes = cfg.MaxFeedbackRunes
	anaSvc := services.NewAnalyticsService(store, anaStore, notifier)

	// Schedules use the startup timezone; a runtime config change only moves
	// analytics bucketing (see AnalyticsService.ReplaceConfig).
	sched := jobs.New(anaStore.Snapshot().Location(), jobTimeout)
	if spec := cfg.Analytics.SLAWatchSchedule; spec != "" {
		if err := sched.Add("sla-watch", spec, func(ctx context.Context) error {
			_, err := anaSvc.CheckSLA(ctx)
			return err
		}); err != nil {
			log.Fatal().Err(err).Str("schedule", spec).Msg("invalid SLA watch schedule")
		}
	}
	if spec := cfg.Analytics.IdemPurgeSchedule; spec != "" {
		if err := sched.Add("idempotency-purge", spec, func(ctx context.Context) error {
			n, err := store.PurgeIdempotency(ctx, time.Now().UTC())
			if err == nil && n > 0 {
				log.Info().Int64("purged", n).Msg("expired idempotency keys removed")
			}
			return err
		}); err != nil {
			log.Fatal().Err(err).Str("schedule", spec).Msg("invalid idempotency purge schedule")
		}
	}
	sched.Start()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, fbSvc, anaSvc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("driver", cfg.DBDriver).
			Str("version", appVersion).
			Int("jobs", sched.Len()).
			Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	sched.Stop(ctxShutdown)
	observability.ShutdownWithTimeout(otelShutdown, shutdownTimeout)
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("store close")
	}
	log.Info().Msg("server stopped")
}

// openStore selects the persistence backend named by DB_DRIVER.
func openStore(cfg config.Config) (services.Store, error) {
	switch cfg.DBDriver {
	case config.DriverJSON:
		return jsonstore.Open(cfg.DataDir)
	case config.DriverPostgres:
		return openGorm(repo.DriverPostgres, cfg.DatabaseURL)
	default:
		return openGorm(repo.DriverSQLite, cfg.DBPath)
	}
}

func openGorm(driver, target string) (services.Store, error) {
	db, err := repo.Open(driver, target)
	if err != nil {
		return nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, err
	}
	return repo.NewGormStore(db), nil
}
