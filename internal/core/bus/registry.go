package bus

import (
	"sync"
)

// Registry owns the map from StreamKey to live Stream instances.
type Registry struct {
	mu      sync.RWMutex
	streams map[StreamKey]*Stream
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		streams: make(map[StreamKey]*Stream),
	}
}

// GetOrCreate returns the stream for key, creating it when absent. The
// second result reports whether it was created by this call.
func (r *Registry) GetOrCreate(key StreamKey) (*Stream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stream, exists := r.streams[key]; exists {
		return stream, false
	}

	stream := NewStream(key)
	r.streams[key] = stream
	return stream, true
}

// Get returns the stream for key, nil when absent.
func (r *Registry) Get(key StreamKey) *Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.streams[key]
}

// Remove deletes the stream for key if it is empty. Returns whether a
// deletion happened.
func (r *Registry) Remove(key StreamKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	stream, exists := r.streams[key]
	if !exists {
		return false
	}
	if !stream.IsEmpty() {
		return false
	}

	delete(r.streams, key)
	return true
}

// RemoveIfEmpty is Remove under its intent-revealing name, for cleanup
// paths.
func (r *Registry) RemoveIfEmpty(key StreamKey) bool {
	return r.Remove(key)
}

// Count returns the number of registered streams.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

// List returns the keys of all registered streams.
func (r *Registry) List() []StreamKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]StreamKey, 0, len(r.streams))
	for key := range r.streams {
		keys = append(keys, key)
	}
	return keys
}
