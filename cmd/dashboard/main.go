// Package main is the entrypoint of the air-quality dashboard server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/aqdash/internal/airquality"
	"github.com/breatheroute/aqdash/internal/airquality/luchtmeetnet"
	"github.com/breatheroute/aqdash/internal/api"
	"github.com/breatheroute/aqdash/internal/api/middleware"
	"github.com/breatheroute/aqdash/internal/clock"
	"github.com/breatheroute/aqdash/internal/config"
	"github.com/breatheroute/aqdash/internal/database"
	"github.com/breatheroute/aqdash/internal/featureflags"
	"github.com/breatheroute/aqdash/internal/notification"
	"github.com/breatheroute/aqdash/internal/page"
	"github.com/breatheroute/aqdash/internal/page/htmldom"
	"github.com/breatheroute/aqdash/internal/provider/resilience"
	"github.com/breatheroute/aqdash/internal/telemetry"
	"github.com/breatheroute/aqdash/internal/web"
	"github.com/breatheroute/aqdash/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	serviceName        = "aqdash"
	initialLoadTimeout = 15 * time.Second
)

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("dashboard stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(log zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("locale", string(cfg.Locale)).
		Str("storage", cfg.Storage).
		Dur("refresh_interval", cfg.RefreshInterval).
		Msg("starting air quality dashboard")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}
	dashboardMetrics, err := telemetry.NewDashboardMetrics(tp.Meter)
	if err != nil {
		return err
	}

	flagRepo, historyRepo, closeStore, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagRepo,
		Logger:     log,
		CacheTTL:   time.Minute,
	})
	history := notification.NewService(historyRepo, log)

	registry := resilience.NewRegistry()
	provider := luchtmeetnet.NewClient(luchtmeetnet.ClientConfig{
		BaseURL:  cfg.LuchtmeetnetURL,
		Registry: registry,
		Logger:   log,
	})
	airQuality := airquality.NewService(airquality.ServiceConfig{
		Provider: provider,
		Logger:   log,
		CacheTTL: cfg.RefreshInterval,
	})

	formatter := cfg.Formatter()
	renderer, err := web.NewRenderer(formatter)
	if err != nil {
		return err
	}
	doc, err := buildDocument(ctx, cfg, renderer, airQuality, log)
	if err != nil {
		return err
	}

	scheduler := clock.Real{}
	stopClock := page.Bootstrap(doc, page.Options{
		Toolkit:       htmldom.Toolkit{},
		Scheduler:     scheduler,
		Formatter:     formatter,
		Logger:        log,
		ClockInterval: cfg.ClockInterval,
	})
	defer stopClock()

	notifier := page.NewNotifier(page.NotifierConfig{
		Document:  doc,
		Scheduler: scheduler,
		Logger:    log,
		TTL:       cfg.NotificationTTL,
		Recorder:  page.Recorders{history, dashboardMetrics},
	})

	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Refresher: airQuality,
		Notifier:  notifier,
		Logger:    log,
		Messages:  worker.MessagesFor(cfg.Locale),
		View: web.NewStationsView(web.StationsViewConfig{
			Renderer: renderer,
			Document: doc,
			Source:   airQuality,
			Toolkit:  htmldom.Toolkit{},
		}),
	})
	refreshScheduler, err := worker.NewScheduler(ctx, refreshJob, cfg.RefreshInterval)
	if err != nil {
		return err
	}
	refreshScheduler.Start()
	defer refreshScheduler.Stop()

	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		BuildTime:        BuildTime,
		ServiceName:      serviceName,
		Logger:           log,
		Config:           cfg,
		Document:         doc,
		Notifier:         notifier,
		History:          history,
		AirQuality:       airQuality,
		Registry:         registry,
		Refresh:          refreshJob,
		Flags:            flags,
		Metrics:          httpMetrics,
		DashboardMetrics: dashboardMetrics,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStorage returns the flag and notification repositories for the
// configured backend and a func that releases them.
func openStorage(ctx context.Context, cfg config.Config, log zerolog.Logger) (featureflags.Repository, notification.Repository, func(), error) {
	if cfg.Storage != config.StoragePostgres {
		return featureflags.NewInMemoryRepository(nil), notification.NewInMemoryRepository(0), func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("database connected")

	return featureflags.NewPostgresRepository(pool), notification.NewPostgresRepository(pool), pool.Close, nil
}

// buildDocument renders the initial dashboard. A provider failure leaves
// the station table empty until the refresh job fills it in.
func buildDocument(ctx context.Context, cfg config.Config, renderer *web.Renderer, aq *airquality.Service, log zerolog.Logger) (*htmldom.Document, error) {
	data := web.Data{Config: cfg.Public()}

	loadCtx, cancel := context.WithTimeout(ctx, initialLoadTimeout)
	defer cancel()
	levels, fetchedAt, err := aq.StationLevels(loadCtx, false)
	if err != nil {
		log.Warn().Err(err).Msg("initial air quality load failed, rendering empty dashboard")
	} else {
		data.Stations = levels
		data.FetchedAt = fetchedAt
	}

	return renderer.NewDocument(data)
}
