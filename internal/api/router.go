// Package api wires the dashboard HTTP server.
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/breatheroute/aqdash/internal/api/handler"
	"github.com/breatheroute/aqdash/internal/api/middleware"
	"github.com/breatheroute/aqdash/internal/api/response"
	"github.com/breatheroute/aqdash/internal/config"
	"github.com/breatheroute/aqdash/internal/featureflags"
	"github.com/breatheroute/aqdash/internal/provider/resilience"
	"github.com/breatheroute/aqdash/internal/telemetry"
	"github.com/breatheroute/aqdash/internal/web"
)

// AirQuality is the air-quality data the server reads.
type AirQuality interface {
	handler.StationLevelSource
	handler.CacheStatusSource
}

// RouterConfig holds the router's dependencies. Registry, Refresh, Flags,
// Metrics and DashboardMetrics are optional.
type RouterConfig struct {
	Version     string
	BuildTime   string
	ServiceName string
	Logger      zerolog.Logger
	Config      config.Config

	Document   handler.LiveDocument
	Notifier   handler.Poster
	History    handler.History
	AirQuality AirQuality
	Registry   *resilience.Registry
	Refresh    handler.RefreshStatsSource
	Flags      *featureflags.Service

	Metrics          *middleware.Metrics
	DashboardMetrics *telemetry.DashboardMetrics
}

// NewRouter creates the dashboard router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "aqdash"
	}

	// Global middleware, order matters.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequireTLS(cfg.Config.RequireTLS))

	formatter := cfg.Config.Formatter()

	opsCfg := handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Cache:     cfg.AirQuality,
		Refresh:   cfg.Refresh,
		Formatter: formatter,
	}
	var (
		cachedOnly handler.CachedOnlyFlag
		rawMarkup  handler.RawMarkupFlag
	)
	if cfg.Flags != nil {
		opsCfg.Flags = cfg.Flags
		cachedOnly = cfg.Flags
		rawMarkup = cfg.Flags
	}

	pageHandler := handler.NewPageHandler(cfg.Document, cfg.DashboardMetrics, cfg.Logger)
	opsHandler := handler.NewOpsHandler(opsCfg)
	configHandler := handler.NewConfigHandler(cfg.Config)
	airQualityHandler := handler.NewAirQualityHandler(cfg.AirQuality, cachedOnly, formatter, cfg.Logger)
	formatHandler := handler.NewFormatHandler(formatter)
	notificationsHandler := handler.NewNotificationsHandler(handler.NotificationsConfig{
		Poster:  cfg.Notifier,
		History: cfg.History,
		Flags:   rawMarkup,
		Logger:  cfg.Logger,
	})

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)
	notificationRateLimit := middleware.RateLimitByIP(middleware.NotificationRateLimit)

	// Pages.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PageSecurityHeaders)
		r.Get("/", pageHandler.RedirectToDashboard)
		r.Get("/dashboard", pageHandler.Dashboard)
		r.Get("/dashboard/live", pageHandler.Live)
		r.Handle("/static/*", web.StaticHandler("/static/"))
	})

	// Service API.
	apiBase := basePath(cfg.Config.APIBaseURL)
	r.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.ContentTypeJSON)

		r.Get(apiBase+"/ops/health", opsHandler.HealthCheck)
		r.Get(apiBase+"/ops/ready", opsHandler.ReadinessCheck)
		r.Get(apiBase+"/ops/status", opsHandler.SystemStatus)

		if cfg.Config.AdminEnabled && cfg.Flags != nil {
			flagsHandler := handler.NewFeatureFlagsHandler(cfg.Flags, cfg.Logger)
			r.Group(func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Use(middleware.RequireJSON)
				r.Get(apiBase+"/admin/flags", flagsHandler.ListFeatureFlags)
				r.Put(apiBase+"/admin/flags", flagsHandler.UpsertFeatureFlags)
				r.Post(apiBase+"/admin/flags/invalidate", flagsHandler.InvalidateCache)
			})
		}
	})

	// Page API, consumed by dashboard scripts.
	webBase := basePath(cfg.Config.WebAPIBaseURL)
	r.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get(webBase+"/config", configHandler.GetConfig)
			r.Get(webBase+"/air-quality/level", airQualityHandler.GetLevel)
			r.Get(webBase+"/air-quality/stations", airQualityHandler.ListStations)
			r.Get(webBase+"/format/duration", formatHandler.FormatDuration)
			r.Get(webBase+"/format/time", formatHandler.FormatTime)
			r.Get(webBase+"/notifications", notificationsHandler.ListNotifications)
			r.Post(webBase+"/notifications/{id}/dismiss", notificationsHandler.DismissNotification)
		})

		r.With(notificationRateLimit, middleware.RequireJSON).
			Post(webBase+"/notifications", notificationsHandler.CreateNotification)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})

	return r
}

func basePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
