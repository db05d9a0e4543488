package resilience_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/aqdash/internal/provider/resilience"
)

func TestRegistry_HealthLifecycle(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("luchtmeetnet", fastClient("luchtmeetnet", 0, neverTrip))

	h, ok := registry.Health("luchtmeetnet")
	require.True(t, ok)
	assert.Equal(t, resilience.StatusHealthy, h.Status)
	assert.Nil(t, h.LastSuccessAt)
	assert.Nil(t, h.LastFailureAt)

	registry.RecordSuccess("luchtmeetnet")
	registry.RecordFailure("luchtmeetnet", assert.AnError)

	h, _ = registry.Health("luchtmeetnet")
	require.NotNil(t, h.LastSuccessAt)
	require.NotNil(t, h.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *h.LastFailureAt, time.Second)
	assert.Equal(t, assert.AnError.Error(), h.LastError)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := resilience.NewRegistry()

	registry.RecordSuccess("missing")
	registry.RecordFailure("missing", assert.AnError)

	_, ok := registry.Health("missing")
	assert.False(t, ok)
	assert.Empty(t, registry.All())
	assert.Equal(t, resilience.StatusHealthy, registry.Overall())
}

func TestRegistry_AllSortedByName(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		registry.Register(name, fastClient(name, 0, neverTrip))
	}

	var names []string
	for _, h := range registry.All() {
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestRegistry_OverallReflectsOpenBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	failing := fastClient("failing", -1, func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 1 })
	registry.Register("failing", failing)
	registry.Register("fine", fastClient("fine", 0, neverTrip))

	resp, err := get(t, failing, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, resilience.StatusUnhealthy, registry.Overall())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, resilience.StatusHealthy, resilience.StatusOf(gobreaker.StateClosed))
	assert.Equal(t, resilience.StatusDegraded, resilience.StatusOf(gobreaker.StateHalfOpen))
	assert.Equal(t, resilience.StatusUnhealthy, resilience.StatusOf(gobreaker.StateOpen))
}
