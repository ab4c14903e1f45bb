package relay

import (
	"sync"
)

// Registry tracks the open viewer channels.
type Registry struct {
	mu      sync.RWMutex
	viewers map[string]*Viewer
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		viewers: make(map[string]*Viewer),
	}
}

// Add registers a viewer. An existing viewer with the same id is replaced.
func (r *Registry) Add(v *Viewer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.viewers[v.ID]; !ok {
		r.order = append(r.order, v.ID)
	}
	r.viewers[v.ID] = v
}

// Remove unregisters a viewer and returns it. Unknown ids are ignored.
func (r *Registry) Remove(id string) (*Viewer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.viewers[id]
	if !ok {
		return nil, false
	}
	delete(r.viewers, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return v, true
}

// Get looks up a viewer by id.
func (r *Registry) Get(id string) (*Viewer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.viewers[id]
	return v, ok
}

// Len returns the number of registered viewers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.viewers)
}

// Each calls fn for every viewer in registration order. fn must not call
// back into the registry.
func (r *Registry) Each(fn func(*Viewer)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		fn(r.viewers[id])
	}
}

// CloseAll closes and removes every viewer.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	viewers := r.viewers
	r.viewers = make(map[string]*Viewer)
	r.order = nil
	r.mu.Unlock()
	for _, v := range viewers {
		_ = v.Close()
	}
}
