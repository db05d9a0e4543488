// Package notification keeps a history of the banners shown on the dashboard.
package notification

import (
	"errors"
	"time"

	"github.com/breatheroute/aqdash/internal/page"
)

// DefaultListLimit bounds ListRecent when the caller passes no limit.
const DefaultListLimit = 50

// ErrInvalidRecord is returned when a record has no ID.
var ErrInvalidRecord = errors.New("notification record has no id")

// Record is one shown notification.
type Record struct {
	ID        string    `json:"id"`
	Kind      page.Kind `json:"kind"`
	Message   string    `json:"message"`
	Raw       bool      `json:"raw"`
	ShownAt   time.Time `json:"shownAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FromNotification converts a page notification.
func FromNotification(n page.Notification) Record {
	return Record{
		ID:        n.ID,
		Kind:      n.Kind,
		Message:   n.Message,
		Raw:       n.Raw,
		ShownAt:   n.ShownAt,
		ExpiresAt: n.ExpiresAt,
	}
}

// Active reports whether the banner is still on the page at t.
func (r Record) Active(t time.Time) bool {
	return t.Before(r.ExpiresAt)
}
