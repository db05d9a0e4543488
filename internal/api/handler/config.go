package handler

import (
	"net/http"

	"github.com/breatheroute/aqdash/internal/api/response"
	"github.com/breatheroute/aqdash/internal/config"
)

// ConfigHandler serves the public page configuration.
type ConfigHandler struct {
	public config.Public
}

// NewConfigHandler creates a ConfigHandler.
func NewConfigHandler(cfg config.Config) *ConfigHandler {
	return &ConfigHandler{public: cfg.Public()}
}

// GetConfig handles GET /config.
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=60")
	response.JSON(w, r, http.StatusOK, h.public)
}
