package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/aqdash/internal/airquality"
	"github.com/breatheroute/aqdash/internal/api/models"
	"github.com/breatheroute/aqdash/internal/api/response"
	"github.com/breatheroute/aqdash/internal/format"
)

// StationLevelSource returns classified station readings.
type StationLevelSource interface {
	StationLevels(ctx context.Context, cachedOnly bool) ([]airquality.StationLevel, time.Time, error)
}

// CachedOnlyFlag reports whether station requests may reach the provider.
type CachedOnlyFlag interface {
	CachedOnlyAirQuality(ctx context.Context) bool
}

// AirQualityHandler serves PM2.5 classification and station levels.
type AirQualityHandler struct {
	stations  StationLevelSource
	flags     CachedOnlyFlag
	formatter format.Formatter
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAirQualityHandler creates an AirQualityHandler. flags may be nil.
func NewAirQualityHandler(stations StationLevelSource, flags CachedOnlyFlag, formatter format.Formatter, logger zerolog.Logger) *AirQualityHandler {
	return &AirQualityHandler{
		stations:  stations,
		flags:     flags,
		formatter: formatter,
		logger:    logger,
		now:       time.Now,
	}
}

// GetLevel handles GET /air-quality/level?pm25=.
func (h *AirQualityHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("pm25")
	if raw == "" {
		response.BadRequest(w, r, "pm25 is required", []models.FieldError{
			{Field: "pm25", Message: "is required", Code: "required"},
		})
		return
	}
	pm25, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(pm25) || math.IsInf(pm25, 0) {
		response.BadRequest(w, r, "pm25 must be a finite number", []models.FieldError{
			{Field: "pm25", Message: "must be a finite number", Code: "invalid"},
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.LevelResponse{
		PM25:  pm25,
		Level: airquality.Classify(pm25),
	})
}

// ListStations handles GET /air-quality/stations.
func (h *AirQualityHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	cachedOnly := h.flags != nil && h.flags.CachedOnlyAirQuality(r.Context())

	levels, fetchedAt, err := h.stations.StationLevels(r.Context(), cachedOnly)
	switch {
	case errors.Is(err, airquality.ErrCacheEmpty):
		response.ServiceUnavailable(w, r, "no air quality data has been fetched yet")
		return
	case errors.Is(err, airquality.ErrProviderUnavailable):
		response.ServiceUnavailable(w, r, "air quality provider is unavailable")
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("failed to list station levels")
		response.InternalError(w, r, "failed to list station levels")
		return
	}

	now := h.now()
	out := models.StationLevels{
		Items:     make([]models.StationLevel, 0, len(levels)),
		FetchedAt: models.NewTimestamp(fetchedAt),
	}
	for _, l := range levels {
		out.Items = append(out.Items, models.StationLevel{
			StationID:  l.Station.ID,
			Name:       l.Station.Name,
			PM25:       l.PM25,
			Level:      l.Level,
			MeasuredAt: models.Timestamp(l.MeasuredAt),
			Measured:   h.formatter.Instant(l.MeasuredAt),
			Age:        h.formatter.Since(l.MeasuredAt, now),
		})
	}
	response.JSON(w, r, http.StatusOK, out)
}
