package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/breatheroute/aqdash/internal/page"
)

// DashboardMetrics are the dashboard's own instruments.
type DashboardMetrics struct {
	notifications metric.Int64Counter
	liveClients   metric.Int64UpDownCounter
}

// NewDashboardMetrics creates the instruments on meter.
func NewDashboardMetrics(meter metric.Meter) (*DashboardMetrics, error) {
	notifications, err := meter.Int64Counter("aqdash.notifications.shown",
		metric.WithDescription("Notifications inserted into the dashboard page"),
	)
	if err != nil {
		return nil, err
	}
	liveClients, err := meter.Int64UpDownCounter("aqdash.live.clients",
		metric.WithDescription("Connected live dashboard streams"),
	)
	if err != nil {
		return nil, err
	}
	return &DashboardMetrics{notifications: notifications, liveClients: liveClients}, nil
}

// NotificationShown counts a banner of kind.
func (m *DashboardMetrics) NotificationShown(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Record implements page.Recorder so every banner the page shows is counted.
func (m *DashboardMetrics) Record(n page.Notification) {
	m.NotificationShown(context.Background(), string(n.Kind))
}

// LiveClientConnected adjusts the live client gauge by delta.
func (m *DashboardMetrics) LiveClientConnected(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.liveClients.Add(ctx, delta)
}
