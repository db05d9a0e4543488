package airquality_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/aqdash/internal/airquality"
)

type mockProvider struct {
	snapshot   *airquality.Snapshot
	err        error
	fetchCount atomic.Int32
}

func (m *mockProvider) FetchSnapshot(_ context.Context) (*airquality.Snapshot, error) {
	m.fetchCount.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot, nil
}

func testSnapshot() *airquality.Snapshot {
	measured := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	snapshot := airquality.NewSnapshot("test")
	snapshot.Stations["NL10002"] = &airquality.Station{ID: "NL10002", Name: "Rotterdam-Noord"}
	snapshot.Stations["NL10001"] = &airquality.Station{ID: "NL10001", Name: "Amsterdam-Centrum"}
	snapshot.Stations["NL10003"] = &airquality.Station{ID: "NL10003", Name: "Utrecht-Griftpark"}
	snapshot.SetMeasurement(&airquality.Measurement{
		StationID: "NL10001", Pollutant: airquality.PollutantNO2, Value: 32.5, Unit: "µg/m³", MeasuredAt: measured,
	})
	snapshot.SetMeasurement(&airquality.Measurement{
		StationID: "NL10001", Pollutant: airquality.PollutantPM25, Value: 12.3, Unit: "µg/m³", MeasuredAt: measured,
	})
	snapshot.SetMeasurement(&airquality.Measurement{
		StationID: "NL10002", Pollutant: airquality.PollutantPM25, Value: 120, Unit: "µg/m³", MeasuredAt: measured,
	})
	return snapshot
}

func newService(p airquality.Provider, ttl time.Duration) *airquality.Service {
	return airquality.NewService(airquality.ServiceConfig{
		Provider:        p,
		Logger:          zerolog.New(io.Discard),
		CacheTTL:        ttl,
		StaleIfErrorTTL: time.Hour,
	})
}

func TestService_GetSnapshot_UsesCache(t *testing.T) {
	provider := &mockProvider{snapshot: testSnapshot()}
	svc := newService(provider, 5*time.Minute)
	ctx := context.Background()

	snapshot, err := svc.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Stations, 3)

	again, err := svc.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Same(t, snapshot, again)
	assert.Equal(t, int32(1), provider.fetchCount.Load())
}

func TestService_GetSnapshot_ServesStaleOnError(t *testing.T) {
	provider := &mockProvider{snapshot: testSnapshot()}
	svc := newService(provider, time.Millisecond)
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	provider.err = errors.New("upstream down")

	result, err := svc.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, result.Stations, 3)
	assert.Equal(t, int32(2), provider.fetchCount.Load())
}

func TestService_GetSnapshot_ErrorWithoutCache(t *testing.T) {
	svc := newService(&mockProvider{err: errors.New("upstream down")}, 0)

	_, err := svc.GetSnapshot(context.Background())
	assert.ErrorIs(t, err, airquality.ErrProviderUnavailable)
}

func TestService_Refresh_ForcedErrorIsReported(t *testing.T) {
	provider := &mockProvider{snapshot: testSnapshot()}
	svc := newService(provider, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx))

	provider.err = errors.New("upstream down")
	assert.ErrorIs(t, svc.Refresh(ctx), airquality.ErrProviderUnavailable)

	// The previous snapshot is kept.
	cached, err := svc.CachedSnapshot()
	require.NoError(t, err)
	assert.Len(t, cached.Stations, 3)
}

func TestService_StationLevels(t *testing.T) {
	svc := newService(&mockProvider{snapshot: testSnapshot()}, 5*time.Minute)

	levels, fetchedAt, err := svc.StationLevels(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, fetchedAt.IsZero())

	require.Len(t, levels, 2)
	assert.Equal(t, "NL10001", levels[0].Station.ID)
	assert.Equal(t, airquality.Excellent, levels[0].Level.Category)
	assert.Equal(t, "NL10002", levels[1].Station.ID)
	assert.Equal(t, airquality.ModeratePollution, levels[1].Level.Category)
}

func TestService_StationLevels_CachedOnly(t *testing.T) {
	provider := &mockProvider{snapshot: testSnapshot()}
	svc := newService(provider, 5*time.Minute)

	_, _, err := svc.StationLevels(context.Background(), true)
	assert.ErrorIs(t, err, airquality.ErrCacheEmpty)
	assert.Equal(t, int32(0), provider.fetchCount.Load())
}

func TestService_GetMeasurement(t *testing.T) {
	svc := newService(&mockProvider{snapshot: testSnapshot()}, 5*time.Minute)
	ctx := context.Background()

	m, err := svc.GetMeasurement(ctx, "NL10001", airquality.PollutantNO2)
	require.NoError(t, err)
	assert.Equal(t, 32.5, m.Value)

	_, err = svc.GetMeasurement(ctx, "NL10001", airquality.PollutantO3)
	assert.ErrorIs(t, err, airquality.ErrNoMeasurements)

	_, err = svc.GetMeasurement(ctx, "XX", airquality.PollutantPM25)
	assert.ErrorIs(t, err, airquality.ErrStationNotFound)
}

func TestService_InvalidateCacheAndStatus(t *testing.T) {
	provider := &mockProvider{snapshot: testSnapshot()}
	svc := newService(provider, 10*time.Minute)
	ctx := context.Background()

	assert.False(t, svc.CacheStatus().HasData)

	_, err := svc.GetSnapshot(ctx)
	require.NoError(t, err)

	status := svc.CacheStatus()
	assert.True(t, status.HasData)
	assert.Equal(t, 3, status.StationCount)
	assert.Equal(t, "test", status.Provider)
	assert.False(t, status.IsExpired)

	svc.InvalidateCache()
	_, err = svc.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.fetchCount.Load())
}
