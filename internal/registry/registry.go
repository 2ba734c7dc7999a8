// Package registry implements the append-only, capacity-bounded activity
// action log. Monitors and pollers register normalized user events; the
// detection workers read them back by time window and type.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halcyon-dev/flowpilot/internal/domain"
)

// DefaultCapacity bounds the ring buffer when no capacity is configured.
const DefaultCapacity = 100000

// Registry is the central action log. Safe for concurrent use; actions are
// immutable once registered and are destroyed only by eviction.
type Registry struct {
	mu       sync.Mutex
	capacity int
	actions  []domain.UserAction
	now      func() time.Time
}

// New creates a registry holding at most capacity actions.
func New(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		capacity: capacity,
		now:      time.Now,
	}
}

// Register appends a new action and returns its ID. The oldest action is
// evicted once capacity is reached.
func (r *Registry) Register(actionType domain.ActionType, details map[string]any, source string, metadata map[string]any) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	action := domain.UserAction{
		ID:        uuid.NewString(),
		Type:      actionType,
		Timestamp: r.now(),
		Details:   details,
		Source:    source,
		Metadata:  metadata,
	}
	r.actions = append(r.actions, action)
	if len(r.actions) > r.capacity {
		r.actions = r.actions[len(r.actions)-r.capacity:]
	}
	return action.ID
}

// Actions returns actions filtered by time, type and count. A zero since
// keeps everything; an empty actionType keeps all types; limit <= 0 keeps
// all matches, otherwise the newest limit entries are returned.
func (r *Registry) Actions(since time.Time, actionType domain.ActionType, limit int) []domain.UserAction {
	r.mu.Lock()
	snapshot := make([]domain.UserAction, len(r.actions))
	copy(snapshot, r.actions)
	r.mu.Unlock()

	var out []domain.UserAction
	for _, a := range snapshot {
		if !since.IsZero() && a.Timestamp.Before(since) {
			continue
		}
		if actionType != "" && a.Type != actionType {
			continue
		}
		out = append(out, a)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Recent returns the actions registered within the trailing window.
func (r *Registry) Recent(window time.Duration) []domain.UserAction {
	return r.Actions(r.now().Add(-window), "", 0)
}

// ByID returns the action with the given ID, or false when unknown.
func (r *Registry) ByID(id string) (domain.UserAction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.actions {
		if a.ID == id {
			return a, true
		}
	}
	return domain.UserAction{}, false
}

// All returns every stored action, oldest first.
func (r *Registry) All() []domain.UserAction {
	return r.Actions(time.Time{}, "", 0)
}

// Len returns the number of stored actions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

// ClearOlderThan drops actions older than the given age.
func (r *Registry) ClearOlderThan(age time.Duration) {
	cutoff := r.now().Add(-age)
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.actions[:0]
	for _, a := range r.actions {
		if !a.Timestamp.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	r.actions = kept
}

// Stats summarizes the registry contents by type and source.
func (r *Registry) Stats() domain.ActionStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := domain.ActionStats{
		TotalActions: len(r.actions),
		ByType:       map[domain.ActionType]int{},
		BySource:     map[string]int{},
	}
	for i, a := range r.actions {
		stats.ByType[a.Type]++
		stats.BySource[a.Source]++
		if i == 0 || a.Timestamp.Before(stats.Oldest) {
			stats.Oldest = a.Timestamp
		}
		if a.Timestamp.After(stats.Newest) {
			stats.Newest = a.Timestamp
		}
	}
	return stats
}
