package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HandleKind distinguishes staged uploads from previews of stored files.
type HandleKind string

const (
	HandleStaged  HandleKind = "staged"
	HandlePreview HandleKind = "preview"
)

// Handle is a short-lived capability over a stored key.
type Handle struct {
	ID          string
	Kind        HandleKind
	Owner       string
	Key         string
	Name        string
	ContentType string
	Size        int64
	ExpiresAt   time.Time
}

// HandleRegistry tracks live handles in memory. Handles expire after the
// registry TTL; at most one preview handle exists per owner and key.
type HandleRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]Handle
}

// NewHandleRegistry creates an empty registry.
func NewHandleRegistry(ttl time.Duration) *HandleRegistry {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &HandleRegistry{ttl: ttl, now: time.Now, entries: make(map[string]Handle)}
}

// Acquire registers h under a new identifier. A new preview supersedes the
// previous preview of the same owner and key, which is returned as released.
func (r *HandleRegistry) Acquire(h Handle) (Handle, []Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released []Handle
	if h.Kind == HandlePreview {
		for id, existing := range r.entries {
			if existing.Kind == HandlePreview && existing.Owner == h.Owner && existing.Key == h.Key {
				delete(r.entries, id)
				released = append(released, existing)
			}
		}
	}
	h.ID = uuid.NewString()
	h.ExpiresAt = r.now().Add(r.ttl)
	r.entries[h.ID] = h
	return h, released
}

// Get returns a live handle.
func (r *HandleRegistry) Get(id string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.entries[id]
	if !ok || !r.now().Before(h.ExpiresAt) {
		return Handle{}, false
	}
	return h, true
}

// Release removes a handle and returns it.
func (r *HandleRegistry) Release(id string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return h, ok
}

// ReleaseKey removes every handle over key and returns them.
func (r *HandleRegistry) ReleaseKey(key string) []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	var released []Handle
	for id, h := range r.entries {
		if h.Key == key {
			delete(r.entries, id)
			released = append(released, h)
		}
	}
	return released
}

// Sweep removes expired handles and returns them.
func (r *HandleRegistry) Sweep() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var expired []Handle
	for id, h := range r.entries {
		if !now.Before(h.ExpiresAt) {
			delete(r.entries, id)
			expired = append(expired, h)
		}
	}
	return expired
}

// Len reports the number of tracked handles, expired or not.
func (r *HandleRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run sweeps every interval until ctx is done, passing expired handles to onExpired.
func (r *HandleRegistry) Run(ctx context.Context, interval time.Duration, onExpired func(Handle)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, h := range r.Sweep() {
				if onExpired != nil {
					onExpired(h)
				}
			}
		}
	}
}
