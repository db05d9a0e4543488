package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/breatheroute/aqdash/internal/api/models"
	"github.com/breatheroute/aqdash/internal/api/response"
	"github.com/breatheroute/aqdash/internal/featureflags"
)

// FlagStore reads and writes feature flags.
type FlagStore interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
	SetFlags(ctx context.Context, flags ...*featureflags.Flag) error
	InvalidateCache()
}

// FlagList is the body of the flag admin endpoints.
type FlagList struct {
	Flags []*featureflags.Flag `json:"flags"`
}

// FeatureFlagsHandler handles the flag admin endpoints.
type FeatureFlagsHandler struct {
	store  FlagStore
	logger zerolog.Logger
}

// NewFeatureFlagsHandler creates a FeatureFlagsHandler.
func NewFeatureFlagsHandler(store FlagStore, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{store: store, logger: logger}
}

// ListFeatureFlags handles GET /admin/flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.list(r.Context()))
}

// UpsertFeatureFlags handles PUT /admin/flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var body FlagList
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, r, "request body must be a JSON flag list", nil)
		return
	}

	var fieldErrors []models.FieldError
	for i, f := range body.Flags {
		if f == nil || strings.TrimSpace(f.Key) == "" {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:   "flags[" + strconv.Itoa(i) + "].key",
				Message: "is required",
				Code:    "required",
			})
		}
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid flags", fieldErrors)
		return
	}

	if err := h.store.SetFlags(r.Context(), body.Flags...); err != nil {
		h.logger.Error().Err(err).Msg("failed to update feature flags")
		response.InternalError(w, r, "failed to update feature flags")
		return
	}

	response.JSON(w, r, http.StatusOK, h.list(r.Context()))
}

// InvalidateCache handles POST /admin/flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.store.InvalidateCache()
	response.Accepted(w, r, "", nil)
}

func (h *FeatureFlagsHandler) list(ctx context.Context) FlagList {
	all := h.store.GetAllFlags(ctx)
	out := FlagList{Flags: make([]*featureflags.Flag, 0, len(all))}
	for _, f := range all {
		out.Flags = append(out.Flags, f)
	}
	sort.Slice(out.Flags, func(i, j int) bool { return out.Flags[i].Key < out.Flags[j].Key })
	return out
}
