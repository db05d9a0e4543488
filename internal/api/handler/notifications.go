package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/breatheroute/aqdash/internal/api/models"
	"github.com/breatheroute/aqdash/internal/api/response"
	"github.com/breatheroute/aqdash/internal/notification"
	"github.com/breatheroute/aqdash/internal/page"
)

const (
	maxNotificationBody   = 16 << 10
	maxNotificationLength = 2000
)

// Poster shows and dismisses notifications on the live page.
type Poster interface {
	Post(msg page.Message) (page.Notification, bool)
	Dismiss(id string) bool
}

// History lists recently shown notifications.
type History interface {
	Recent(ctx context.Context, limit int) ([]notification.Record, error)
}

// RawMarkupFlag reports whether raw notification markup is allowed.
type RawMarkupFlag interface {
	RawNotificationMarkupAllowed(ctx context.Context) bool
}

// NotificationsConfig configures a NotificationsHandler.
type NotificationsConfig struct {
	Poster  Poster
	History History
	Flags   RawMarkupFlag
	Logger  zerolog.Logger
	Now     func() time.Time
}

// NotificationsHandler posts banners to the live page and lists history.
type NotificationsHandler struct {
	cfg NotificationsConfig
}

// NewNotificationsHandler creates a NotificationsHandler.
func NewNotificationsHandler(cfg NotificationsConfig) *NotificationsHandler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &NotificationsHandler{cfg: cfg}
}

// CreateNotification handles POST /notifications.
func (h *NotificationsHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req models.NotificationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxNotificationBody)).Decode(&req); err != nil {
		response.BadRequest(w, r, "request body must be a JSON notification", nil)
		return
	}

	var fieldErrors []models.FieldError
	switch msg := strings.TrimSpace(req.Message); {
	case msg == "":
		fieldErrors = append(fieldErrors, models.FieldError{Field: "message", Message: "is required", Code: "required"})
	case len(req.Message) > maxNotificationLength:
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "message",
			Message: "must be at most " + strconv.Itoa(maxNotificationLength) + " bytes",
			Code:    "too_long",
		})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid notification", fieldErrors)
		return
	}

	if req.Raw && (h.cfg.Flags == nil || !h.cfg.Flags.RawNotificationMarkupAllowed(r.Context())) {
		response.Forbidden(w, r, "raw notification markup is disabled")
		return
	}

	n, ok := h.cfg.Poster.Post(page.Message{
		Text: req.Message,
		Kind: page.ParseKind(req.Kind),
		Raw:  req.Raw,
	})
	if !ok {
		response.ServiceUnavailable(w, r, "the dashboard page has no notification container")
		return
	}

	h.cfg.Logger.Info().
		Str("notification_id", n.ID).
		Str("kind", string(n.Kind)).
		Bool("raw", n.Raw).
		Msg("notification posted")

	response.Accepted(w, r, "", h.toModel(notification.FromNotification(n)))
}

// DismissNotification handles POST /notifications/{id}/dismiss, sent when a
// reader closes a banner.
func (h *NotificationsHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.cfg.Poster.Dismiss(id) {
		response.NotFound(w, r, "notification is not showing")
		return
	}
	h.cfg.Logger.Debug().Str("notification_id", id).Msg("notification dismissed")
	response.NoContent(w, r)
}

// ListNotifications handles GET /notifications?limit=.
func (h *NotificationsHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := notification.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			response.BadRequest(w, r, "limit must be a positive integer", []models.FieldError{
				{Field: "limit", Message: "must be a positive integer", Code: "invalid"},
			})
			return
		}
		limit = v
	}

	recs, err := h.cfg.History.Recent(r.Context(), limit)
	if err != nil {
		h.cfg.Logger.Error().Err(err).Msg("failed to list notifications")
		response.InternalError(w, r, "failed to list notifications")
		return
	}

	out := models.NotificationList{Items: make([]models.Notification, 0, len(recs))}
	for _, rec := range recs {
		out.Items = append(out.Items, h.toModel(rec))
	}
	response.JSON(w, r, http.StatusOK, out)
}

func (h *NotificationsHandler) toModel(rec notification.Record) models.Notification {
	return models.Notification{
		ID:        rec.ID,
		Kind:      string(rec.Kind),
		Message:   rec.Message,
		Raw:       rec.Raw,
		ShownAt:   models.Timestamp(rec.ShownAt),
		ExpiresAt: models.Timestamp(rec.ExpiresAt),
		Active:    rec.Active(h.cfg.Now()),
	}
}
