package airquality

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider fetches station metadata and measurements from an upstream source.
type Provider interface {
	FetchSnapshot(ctx context.Context) (*Snapshot, error)
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CacheTTL is how long a snapshot is served without refetching (default: 5 minutes).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving an old snapshot while the provider fails (default: 30 minutes).
	StaleIfErrorTTL time.Duration
}

// Service caches provider snapshots.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration

	mu          sync.RWMutex
	snapshot    *Snapshot
	cacheExpiry time.Time
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 30 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
	}
}

// GetSnapshot returns the cached snapshot, refreshing it once expired.
func (s *Service) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	if s.snapshot != nil && time.Now().Before(s.cacheExpiry) {
		snapshot := s.snapshot
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	return s.refresh(ctx, false)
}

// CachedSnapshot returns whatever is cached without contacting the provider.
func (s *Service) CachedSnapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, ErrCacheEmpty
	}
	return s.snapshot, nil
}

// StationLevels returns the classified PM2.5 level of every station.
// With cachedOnly set the provider is never contacted.
func (s *Service) StationLevels(ctx context.Context, cachedOnly bool) ([]StationLevel, time.Time, error) {
	var (
		snapshot *Snapshot
		err      error
	)
	if cachedOnly {
		snapshot, err = s.CachedSnapshot()
	} else {
		snapshot, err = s.GetSnapshot(ctx)
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return snapshot.Levels(), snapshot.FetchedAt, nil
}

// GetMeasurement retrieves a specific measurement.
func (s *Service) GetMeasurement(ctx context.Context, stationID string, pollutant Pollutant) (*Measurement, error) {
	snapshot, err := s.GetSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	if _, ok := snapshot.Stations[stationID]; !ok {
		return nil, ErrStationNotFound
	}
	m := snapshot.GetMeasurement(stationID, pollutant)
	if m == nil {
		return nil, ErrNoMeasurements
	}
	return m, nil
}

// Refresh forces a provider fetch regardless of cache state.
func (s *Service) Refresh(ctx context.Context) error {
	_, err := s.refresh(ctx, true)
	return err
}

// InvalidateCache clears the cached snapshot.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.cacheExpiry = time.Time{}
}

// CacheStatus describes the cache.
type CacheStatus struct {
	HasData      bool
	FetchedAt    time.Time
	ExpiresAt    time.Time
	IsExpired    bool
	IsStale      bool
	StationCount int
	Provider     string
}

// CacheStatus returns information about the current cache state.
func (s *Service) CacheStatus() CacheStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return CacheStatus{}
	}

	now := time.Now()
	return CacheStatus{
		HasData:      true,
		FetchedAt:    s.snapshot.FetchedAt,
		ExpiresAt:    s.cacheExpiry,
		IsExpired:    now.After(s.cacheExpiry),
		IsStale:      now.After(s.snapshot.FetchedAt.Add(s.staleIfErrorTTL)),
		StationCount: len(s.snapshot.Stations),
		Provider:     s.snapshot.Provider,
	}
}

func (s *Service) refresh(ctx context.Context, force bool) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if !force && s.snapshot != nil && time.Now().Before(s.cacheExpiry) {
		return s.snapshot, nil
	}

	s.logger.Debug().Bool("forced", force).Msg("refreshing air quality snapshot")

	snapshot, err := s.provider.FetchSnapshot(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch air quality snapshot")

		if !force && s.snapshot != nil && time.Now().Before(s.snapshot.FetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", s.snapshot.FetchedAt).
				Msg("serving stale air quality data due to provider error")
			return s.snapshot, nil
		}

		return nil, ErrProviderUnavailable
	}

	s.snapshot = snapshot
	s.cacheExpiry = time.Now().Add(s.cacheTTL)

	s.logger.Info().
		Int("stations", len(snapshot.Stations)).
		Int("measurements", len(snapshot.Measurements)).
		Time("expires_at", s.cacheExpiry).
		Msg("air quality snapshot refreshed")

	return snapshot, nil
}
