// Package handler holds the HTTP handlers of the dashboard server.
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/breatheroute/aqdash/internal/airquality"
	"github.com/breatheroute/aqdash/internal/api/models"
	"github.com/breatheroute/aqdash/internal/api/response"
	"github.com/breatheroute/aqdash/internal/featureflags"
	"github.com/breatheroute/aqdash/internal/format"
	"github.com/breatheroute/aqdash/internal/provider/resilience"
	"github.com/breatheroute/aqdash/internal/worker"
)

// CacheStatusSource reports the air-quality snapshot cache.
type CacheStatusSource interface {
	CacheStatus() airquality.CacheStatus
}

// RefreshStatsSource reports the background refresh job.
type RefreshStatsSource interface {
	Stats() worker.RefreshStats
}

// FlagSource lists the current feature flags.
type FlagSource interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
}

// OpsConfig configures an OpsHandler. Every source is optional.
type OpsConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry
	Cache     CacheStatusSource
	Refresh   RefreshStatsSource
	Flags     FlagSource
	Formatter format.Formatter
	Now       func() time.Time
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates an OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /ops/health. The process is alive if it answers.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.cfg.Now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /ops/ready. The server is ready once it can
// answer station requests, either from a snapshot or a usable provider.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	hasSnapshot := h.cfg.Cache == nil || h.cfg.Cache.CacheStatus().HasData
	providers := resilience.StatusHealthy
	if h.cfg.Registry != nil {
		providers = h.cfg.Registry.Overall()
	}

	if !hasSnapshot && providers == resilience.StatusUnhealthy {
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status: models.HealthStatusFail,
			Time:   models.Timestamp(h.cfg.Now()),
			Details: map[string]any{
				"reason": "no air quality snapshot and provider unavailable",
			},
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.cfg.Now()),
	})
}

// SystemStatus handles GET /ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := h.cfg.Now()
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(now),
		Version:   h.cfg.Version,
		BuildTime: h.cfg.BuildTime,
		Providers: []models.ProviderStatus{},
	}

	if h.cfg.Registry != nil {
		for _, p := range h.cfg.Registry.All() {
			ps := models.ProviderStatus{
				Provider: p.Name,
				Status:   healthStatus(p.Status),
				Message:  p.LastError,
			}
			if p.LastSuccessAt != nil {
				ps.LastSuccessAt = models.NewTimestamp(*p.LastSuccessAt)
			}
			if p.LastFailureAt != nil {
				ps.LastFailureAt = models.NewTimestamp(*p.LastFailureAt)
			}
			status.Providers = append(status.Providers, ps)
		}
		status.Status = worse(status.Status, healthStatus(h.cfg.Registry.Overall()))
	}

	if h.cfg.Cache != nil {
		cs := h.cfg.Cache.CacheStatus()
		status.Cache = models.CacheStatus{
			HasSnapshot:  cs.HasData,
			StationCount: cs.StationCount,
		}
		if cs.HasData {
			status.Cache.FetchedAt = models.NewTimestamp(cs.FetchedAt)
			status.Cache.Age = h.cfg.Formatter.Since(cs.FetchedAt, now)
			if cs.IsStale {
				status.Status = worse(status.Status, models.HealthStatusDegraded)
			}
		}
	}

	if h.cfg.Refresh != nil {
		st := h.cfg.Refresh.Stats()
		status.Refresh = &models.RefreshStatus{
			Runs:                st.Runs,
			Failures:            st.Failures,
			ConsecutiveFailures: st.ConsecutiveFailures,
			LastRunAt:           models.NewTimestamp(st.LastRunAt),
			LastSuccessAt:       models.NewTimestamp(st.LastSuccessAt),
			LastError:           st.LastError,
		}
		if st.ConsecutiveFailures > 0 {
			status.Status = worse(status.Status, models.HealthStatusDegraded)
		}
	}

	if h.cfg.Flags != nil {
		status.ActiveDegradationFlags = enabledFlags(h.cfg.Flags.GetAllFlags(r.Context()))
	}

	response.JSON(w, r, http.StatusOK, status)
}

func healthStatus(s resilience.Status) models.HealthStatus {
	switch s {
	case resilience.StatusDegraded:
		return models.HealthStatusDegraded
	case resilience.StatusUnhealthy:
		return models.HealthStatusFail
	default:
		return models.HealthStatusOK
	}
}

var healthRank = map[models.HealthStatus]int{
	models.HealthStatusOK:       0,
	models.HealthStatusDegraded: 1,
	models.HealthStatusFail:     2,
}

func worse(a, b models.HealthStatus) models.HealthStatus {
	if healthRank[b] > healthRank[a] {
		return b
	}
	return a
}

func enabledFlags(flags map[string]*featureflags.Flag) []string {
	var keys []string
	for key, f := range flags {
		if f.BoolValue(false) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
