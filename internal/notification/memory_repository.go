package notification

import (
	"context"
	"sort"
	"sync"
)

// DefaultMemoryCapacity is how many records an InMemoryRepository keeps.
const DefaultMemoryCapacity = 200

// InMemoryRepository keeps the most recent records in memory. Older
// records are dropped once capacity is reached.
type InMemoryRepository struct {
	mu       sync.RWMutex
	capacity int
	records  []Record
}

// NewInMemoryRepository creates a repository. capacity <= 0 uses
// DefaultMemoryCapacity.
func NewInMemoryRepository(capacity int) *InMemoryRepository {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &InMemoryRepository{capacity: capacity}
}

func (r *InMemoryRepository) Save(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return ErrInvalidRecord
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if r.records[i].ID == rec.ID {
			r.records[i] = rec
			return nil
		}
	}
	r.records = append(r.records, rec)
	if over := len(r.records) - r.capacity; over > 0 {
		r.records = append(r.records[:0:0], r.records[over:]...)
	}
	return nil
}

func (r *InMemoryRepository) ListRecent(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	r.mu.RLock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ShownAt.After(out[j].ShownAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repository = (*InMemoryRepository)(nil)
