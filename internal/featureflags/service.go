package featureflags

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL defaults to one minute.
	CacheTTL time.Duration

	// Defaults answer for keys the repository does not have. Nil means
	// DefaultFlags.
	Defaults map[string]*Flag
}

// Service evaluates flags through a short-lived cache and falls back to
// defaults when the repository fails.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	defaults map[string]*Flag
	now      func() time.Time

	mu          sync.RWMutex
	cache       map[string]*Flag
	cacheExpiry time.Time
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	defaults := cfg.Defaults
	if defaults == nil {
		defaults = DefaultFlags()
	}
	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: ttl,
		defaults: defaults,
		now:      time.Now,
		cache:    make(map[string]*Flag),
	}
}

// GetFlag returns the flag for key, or nil if neither the repository nor
// the defaults know it.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if f := s.cached(key); f != nil {
		return f
	}

	f, err := s.repo.GetFlag(ctx, key)
	if err == nil {
		s.store(f)
		return f
	}
	if !errors.Is(err, ErrFlagNotFound) {
		s.logger.Warn().Err(err).Str("flag", key).Msg("feature flag lookup failed, using default")
	}
	return s.defaults[key]
}

// GetAllFlags returns repository flags merged over the defaults.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	out := make(map[string]*Flag, len(s.defaults))
	for k, f := range s.defaults {
		out[k] = f
	}

	flags, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("feature flag listing failed, using defaults")
		return out
	}
	for k, f := range flags {
		out[k] = f
	}

	s.mu.Lock()
	s.cache = flags
	s.cacheExpiry = s.now().Add(s.cacheTTL)
	s.mu.Unlock()
	return out
}

// SetFlags writes flags and refreshes the cache entries for them.
func (s *Service) SetFlags(ctx context.Context, flags ...*Flag) error {
	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}
	for _, f := range flags {
		s.store(f)
	}
	s.logger.Info().Int("count", len(flags)).Msg("feature flags updated")
	return nil
}

// InvalidateCache forces the next lookup to hit the repository.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Flag)
	s.cacheExpiry = time.Time{}
}

// IsEnabled reports whether the flag is truthy. A nil Service has every
// flag disabled.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	if s == nil {
		return false
	}
	return s.GetFlag(ctx, key).BoolValue(false)
}

// RawNotificationMarkupAllowed reports whether API clients may post markup.
func (s *Service) RawNotificationMarkupAllowed(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagRawNotificationMarkup)
}

// CachedOnlyAirQuality reports whether station levels must come from cache.
func (s *Service) CachedOnlyAirQuality(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagCachedOnlyAirQuality)
}

func (s *Service) cached(key string) *Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.now().After(s.cacheExpiry) {
		return nil
	}
	return s.cache[key]
}

func (s *Service) store(f *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[f.Key] = f
	if now := s.now(); s.cacheExpiry.Before(now) {
		s.cacheExpiry = now.Add(s.cacheTTL)
	}
}
