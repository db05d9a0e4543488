package featureflags

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps flags in process memory.
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]*Flag
}

// NewInMemoryRepository creates a repository seeded with flags. A nil map
// seeds DefaultFlags.
func NewInMemoryRepository(flags map[string]*Flag) *InMemoryRepository {
	if flags == nil {
		flags = DefaultFlags()
	}
	seeded := make(map[string]*Flag, len(flags))
	for k, f := range flags {
		seeded[k] = f.clone()
	}
	return &InMemoryRepository{flags: seeded}
}

func (r *InMemoryRepository) GetFlag(_ context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.flags[key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	return f.clone(), nil
}

func (r *InMemoryRepository) GetAllFlags(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Flag, len(r.flags))
	for k, f := range r.flags {
		out[k] = f.clone()
	}
	return out, nil
}

func (r *InMemoryRepository) SetFlags(_ context.Context, flags []*Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, f := range flags {
		r.flags[f.Key] = &Flag{Key: f.Key, Value: f.Value, UpdatedAt: now}
	}
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
