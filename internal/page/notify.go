package page

import (
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/breatheroute/aqdash/internal/clock"
)

// DefaultNotificationTTL is how long a banner stays before it is removed.
const DefaultNotificationTTL = 5 * time.Second

// Kind is a notification severity.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

var alertClasses = map[Kind]string{
	KindSuccess: "alert-success",
	KindError:   "alert-danger",
	KindWarning: "alert-warning",
	KindInfo:    "alert-info",
}

// ParseKind returns the Kind for s, or KindInfo if s is not a known kind.
func ParseKind(s string) Kind {
	if _, ok := alertClasses[Kind(s)]; ok {
		return Kind(s)
	}
	return KindInfo
}

// AlertClass returns the style class for the kind; unknown kinds style as info.
func (k Kind) AlertClass() string {
	if c, ok := alertClasses[k]; ok {
		return c
	}
	return alertClasses[KindInfo]
}

// Message is a notification request.
type Message struct {
	Text string
	Kind Kind

	// Raw inserts Text as markup instead of escaping it. Only use with
	// trusted content.
	Raw bool
}

// Notification is a banner that was inserted into the page.
type Notification struct {
	ID        string
	Kind      Kind
	Message   string
	Raw       bool
	ShownAt   time.Time
	ExpiresAt time.Time
}

// Recorder receives every notification that was shown.
type Recorder interface {
	Record(n Notification)
}

// Recorders passes each notification to every recorder in order.
type Recorders []Recorder

// Record implements Recorder.
func (rs Recorders) Record(n Notification) {
	for _, r := range rs {
		if r != nil {
			r.Record(n)
		}
	}
}

// NotifierConfig configures a Notifier.
type NotifierConfig struct {
	Document  Document
	Scheduler clock.Scheduler
	Logger    zerolog.Logger

	// TTL defaults to DefaultNotificationTTL.
	TTL time.Duration

	// Recorder is optional.
	Recorder Recorder
}

// Notifier shows dismissible banners at the top of the page container.
type Notifier struct {
	doc       Document
	scheduler clock.Scheduler
	logger    zerolog.Logger
	ttl       time.Duration
	recorder  Recorder

	mu     sync.Mutex
	active map[string]Element
}

// NewNotifier creates a Notifier.
func NewNotifier(cfg NotifierConfig) *Notifier {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultNotificationTTL
	}
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = clock.Real{}
	}
	return &Notifier{
		doc:       cfg.Document,
		scheduler: scheduler,
		logger:    cfg.Logger,
		ttl:       ttl,
		recorder:  cfg.Recorder,
		active:    make(map[string]Element),
	}
}

// Show displays message as escaped text. Unknown kinds display as info.
// If the page has no container nothing happens.
func (n *Notifier) Show(message string, kind Kind) {
	n.Post(Message{Text: message, Kind: kind})
}

// ShowHTML displays trusted markup.
func (n *Notifier) ShowHTML(markup string, kind Kind) {
	n.Post(Message{Text: markup, Kind: kind, Raw: true})
}

// Post inserts the banner and schedules its removal. The bool is false
// when the page has no container.
func (n *Notifier) Post(msg Message) (Notification, bool) {
	container, ok := n.doc.QuerySelector(SelectorContainer)
	if !ok {
		n.logger.Debug().Str("kind", string(msg.Kind)).Msg("notification skipped: no container")
		return Notification{}, false
	}

	kind := ParseKind(string(msg.Kind))
	id := uuid.NewString()
	body := msg.Text
	if !msg.Raw {
		body = html.EscapeString(body)
	}

	el, ok := container.PrependHTML(alertMarkup(id, kind))
	if !ok {
		return Notification{}, false
	}
	// Parsed inside the alert so unbalanced markup stays in the banner.
	el.PrependHTML(body)

	now := n.scheduler.Now()
	note := Notification{
		ID:        id,
		Kind:      kind,
		Message:   msg.Text,
		Raw:       msg.Raw,
		ShownAt:   now,
		ExpiresAt: now.Add(n.ttl),
	}

	n.mu.Lock()
	n.active[id] = el
	n.mu.Unlock()

	n.scheduler.AfterFunc(n.ttl, func() { n.expire(id, el) })

	if n.recorder != nil {
		n.recorder.Record(note)
	}
	return note, true
}

// Dismiss removes a banner before it expires. It reports whether the
// banner was still showing.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	el, ok := n.active[id]
	delete(n.active, id)
	n.mu.Unlock()

	if !ok || !el.Attached() {
		return false
	}
	el.Remove()
	return true
}

// Active returns the number of banners that have not expired or been dismissed.
func (n *Notifier) Active() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.active)
}

func (n *Notifier) expire(id string, el Element) {
	n.mu.Lock()
	delete(n.active, id)
	n.mu.Unlock()

	if el.Attached() {
		el.Remove()
	}
}

func alertMarkup(id string, kind Kind) string {
	return fmt.Sprintf(
		`<div class="alert %s alert-dismissible fade show" role="alert" data-notification-id="%s"><button type="button" class="btn-close" data-bs-dismiss="alert"></button></div>`,
		kind.AlertClass(), id,
	)
}
