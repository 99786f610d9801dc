package override

import (
	"context"
	"sync"
	"time"

	"localcart/internal/domain"
)

// Repository keeps the ZIP a requester explicitly typed in, keyed by
// domain.Requester.Key. Get returns domain.ErrNotFound when nothing is stored
// or the entry expired.
type Repository interface {
	Get(ctx context.Context, requesterKey string) (string, error)
	Set(ctx context.Context, requesterKey, zip string) error
	Delete(ctx context.Context, requesterKey string) error
}

type memoryEntry struct {
	zip       string
	expiresAt time.Time
}

type memoryRepo struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemory returns a process-local Repository. A zero ttl keeps entries forever.
func NewMemory(ttl time.Duration) Repository {
	return &memoryRepo{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (r *memoryRepo) Get(_ context.Context, requesterKey string) (string, error) {
	r.mu.RLock()
	entry, ok := r.entries[requesterKey]
	r.mu.RUnlock()
	if !ok {
		return "", domain.ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		r.mu.Lock()
		delete(r.entries, requesterKey)
		r.mu.Unlock()
		return "", domain.ErrNotFound
	}
	return entry.zip, nil
}

func (r *memoryRepo) Set(_ context.Context, requesterKey, zip string) error {
	entry := memoryEntry{zip: zip}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.mu.Lock()
	r.entries[requesterKey] = entry
	r.mu.Unlock()
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, requesterKey string) error {
	r.mu.Lock()
	delete(r.entries, requesterKey)
	r.mu.Unlock()
	return nil
}
