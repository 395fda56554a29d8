package adapter

import (
	"sync"

	"github.com/danmuck/nerve-search-adapter/internal/protocol"
)

// Registry is the session-scoped set of cancelled request ids.
// Entries are never removed; the registry lives exactly as long as its session.
type Registry struct {
	mu        sync.Mutex
	cancelled map[protocol.RequestID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		cancelled: make(map[protocol.RequestID]struct{}),
	}
}

// Cancel marks id cancelled. It reports whether id was newly inserted.
func (r *Registry) Cancel(id protocol.RequestID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cancelled[id]; ok {
		return false
	}
	r.cancelled[id] = struct{}{}
	return true
}

func (r *Registry) IsCancelled(id protocol.RequestID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cancelled[id]
	return ok
}

// UnlessCancelled runs fn with the registry locked if id is not cancelled,
// so no Cancel for id can land between the check and fn. It reports whether
// fn ran. fn must not call back into the registry.
func (r *Registry) UnlessCancelled(id protocol.RequestID, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cancelled[id]; ok {
		return false
	}
	fn()
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancelled)
}
