package handler_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/aqdash/internal/api/handler"
	"github.com/breatheroute/aqdash/internal/notification"
	"github.com/breatheroute/aqdash/internal/page"
)

type posterStub struct {
	ok       bool
	messages []page.Message
}

func (p *posterStub) Post(msg page.Message) (page.Notification, bool) {
	p.messages = append(p.messages, msg)
	if !p.ok {
		return page.Notification{}, false
	}
	return page.Notification{ID: "n1", Kind: msg.Kind, Message: msg.Text, ShownAt: now, ExpiresAt: now.Add(page.DefaultNotificationTTL)}, true
}

func (p *posterStub) Dismiss(id string) bool {
	return p.ok && id == "n1"
}

type historyStub struct {
	err   error
	limit int
}

func (h *historyStub) Recent(_ context.Context, limit int) ([]notification.Record, error) {
	h.limit = limit
	return nil, h.err
}

func newNotificationsHandler(p handler.Poster, h handler.History) *handler.NotificationsHandler {
	return handler.NewNotificationsHandler(handler.NotificationsConfig{
		Poster:  p,
		History: h,
		Logger:  zerolog.New(io.Discard),
	})
}

func TestNotificationsHandler_NoContainer(t *testing.T) {
	poster := &posterStub{ok: false}
	h := newNotificationsHandler(poster, &historyStub{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/web/api/notifications", strings.NewReader(`{"message":"hi","kind":"warning"}`))
	h.CreateNotification(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Len(t, poster.messages, 1)
	assert.Equal(t, page.KindWarning, poster.messages[0].Kind)
}

func TestNotificationsHandler_RawWithoutFlagSource(t *testing.T) {
	poster := &posterStub{ok: true}
	h := newNotificationsHandler(poster, &historyStub{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/web/api/notifications", strings.NewReader(`{"message":"<i>x</i>","raw":true}`))
	h.CreateNotification(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, poster.messages)
}

func TestNotificationsHandler_List(t *testing.T) {
	history := &historyStub{}
	h := newNotificationsHandler(&posterStub{}, history)

	rec := httptest.NewRecorder()
	h.ListNotifications(rec, httptest.NewRequest(http.MethodGet, "/web/api/notifications?limit=5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, history.limit)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ListNotifications(rec, httptest.NewRequest(http.MethodGet, "/web/api/notifications?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	history.err = errors.New("db down")
	rec = httptest.NewRecorder()
	h.ListNotifications(rec, httptest.NewRequest(http.MethodGet, "/web/api/notifications", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, notification.DefaultListLimit, history.limit)
}
