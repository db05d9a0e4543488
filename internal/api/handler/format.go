package handler

import (
	"net/http"
	"strconv"

	"github.com/breatheroute/aqdash/internal/api/models"
	"github.com/breatheroute/aqdash/internal/api/response"
	"github.com/breatheroute/aqdash/internal/format"
)

// FormatHandler exposes the page's time and duration formatting.
type FormatHandler struct {
	formatter format.Formatter
}

// NewFormatHandler creates a FormatHandler.
func NewFormatHandler(formatter format.Formatter) *FormatHandler {
	return &FormatHandler{formatter: formatter}
}

// FormatDuration handles GET /format/duration?seconds=. An optional locale
// parameter overrides the configured locale.
func (h *FormatHandler) FormatDuration(w http.ResponseWriter, r *http.Request) {
	seconds, ok := intParam(w, r, "seconds")
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.FormattedValue{
		Input:     seconds,
		Formatted: h.formatterFor(r).Duration(seconds),
	})
}

// FormatTime handles GET /format/time?timestamp=.
func (h *FormatHandler) FormatTime(w http.ResponseWriter, r *http.Request) {
	ts, ok := intParam(w, r, "timestamp")
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.FormattedValue{
		Input:     ts,
		Formatted: h.formatterFor(r).Time(ts),
	})
}

func (h *FormatHandler) formatterFor(r *http.Request) format.Formatter {
	if loc := r.URL.Query().Get("locale"); loc != "" {
		return format.NewFormatter(format.ParseLocale(loc), h.formatter.Location)
	}
	return h.formatter
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		response.BadRequest(w, r, name+" is required", []models.FieldError{
			{Field: name, Message: "is required", Code: "required"},
		})
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		response.BadRequest(w, r, name+" must be an integer", []models.FieldError{
			{Field: name, Message: "must be an integer", Code: "invalid"},
		})
		return 0, false
	}
	return v, true
}
