package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/breatheroute/aqdash/internal/api/response"
	"github.com/breatheroute/aqdash/internal/page/htmldom"
	"github.com/breatheroute/aqdash/internal/telemetry"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

// LiveDocument is the server-held dashboard page.
type LiveDocument interface {
	HTML() (string, error)
	Full() (htmldom.Delta, error)
	Since(version uint64) (htmldom.Delta, error)
	Subscribe() (<-chan struct{}, func())
}

// Snapshot is one live stream message. Boot identifies the server
// process; versions are only comparable within one boot.
type Snapshot struct {
	Boot string `json:"boot"`
	htmldom.Delta
}

// PageHandler serves the dashboard page and its live stream.
type PageHandler struct {
	doc      LiveDocument
	metrics  *telemetry.DashboardMetrics
	logger   zerolog.Logger
	boot     string
	upgrader websocket.Upgrader
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(doc LiveDocument, metrics *telemetry.DashboardMetrics, logger zerolog.Logger) *PageHandler {
	return &PageHandler{
		doc:     doc,
		metrics: metrics,
		logger:  logger,
		boot:    uuid.NewString(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 << 10,
		},
	}
}

// RedirectToDashboard handles GET /.
func (h *PageHandler) RedirectToDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Dashboard handles GET /dashboard.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	markup, err := h.doc.HTML()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to render dashboard")
		response.InternalError(w, r, "failed to render dashboard")
		return
	}
	response.HTML(w, r, http.StatusOK, markup)
}

// Live handles GET /dashboard/live. It sends the whole page on connect.
// After that text-only changes go out as patches and structural changes
// as the whole page again.
func (h *PageHandler) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		h.logger.Debug().Err(err).Msg("live stream upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.metrics.LiveClientConnected(ctx, 1)
	defer h.metrics.LiveClientConnected(context.WithoutCancel(ctx), -1)

	changes, unsubscribe := h.doc.Subscribe()
	defer unsubscribe()

	go h.readPump(conn, cancel)

	delta, err := h.doc.Full()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to render live page")
		return
	}
	if err := h.send(conn, delta); err != nil {
		h.logger.Debug().Err(err).Msg("live stream write failed")
		return
	}
	sent := delta.Version

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			delta, err := h.doc.Since(sent)
			if err != nil {
				h.logger.Error().Err(err).Msg("failed to render live page")
				return
			}
			if delta.Version == sent {
				continue
			}
			if err := h.send(conn, delta); err != nil {
				h.logger.Debug().Err(err).Msg("live stream write failed")
				return
			}
			sent = delta.Version
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *PageHandler) send(conn *websocket.Conn, delta htmldom.Delta) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return conn.WriteJSON(Snapshot{Boot: h.boot, Delta: delta})
}

// readPump drains client frames so pongs and close frames are processed.
func (h *PageHandler) readPump(conn *websocket.Conn, done context.CancelFunc) {
	defer done()
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
