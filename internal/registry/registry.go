// Package registry maintains a stable, insertion-ordered view of active
// triggers across repeated unordered snapshots.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/arbdesk/console/internal/store"
)

// Entry is one tracked trigger. FirstOrder is assigned the first time a
// key is seen trigger-active and never changes while the key stays
// continuously active, which is what keeps on-screen row order stable.
type Entry struct {
	Row        store.Opportunity
	FirstOrder int64
	LastSeen   time.Time
}

// Registry converts a sequence of snapshots into a stable ordered view.
// It is the sole owner of its entries; mutation happens only inside
// Reconcile.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
	counter int64
	now     func() time.Time
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Reconcile applies one snapshot and returns the resulting view ordered
// by first activation.
//
// A key that goes inactive and later reactivates is treated as a brand
// new occurrence and sorts to the bottom; stability is per continuous
// activation, not per key lifetime.
func (r *Registry) Reconcile(snapshot []store.Opportunity) []store.Opportunity {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	current := make(map[string]struct{}, len(snapshot))

	for i := range snapshot {
		row := snapshot[i]
		key := row.Key()
		current[key] = struct{}{}

		if !row.TriggerActive() {
			delete(r.entries, key)
			continue
		}

		if entry, ok := r.entries[key]; ok {
			// Prices refresh, rank does not
			entry.Row = row
			entry.LastSeen = now
			continue
		}

		r.entries[key] = &Entry{Row: row, FirstOrder: r.counter, LastSeen: now}
		r.counter++
	}

	// Keys absent from the snapshot are gone
	for key := range r.entries {
		if _, ok := current[key]; !ok {
			delete(r.entries, key)
		}
	}

	return r.orderedLocked()
}

// View returns the current ordered view without applying a snapshot.
func (r *Registry) View() []store.Opportunity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orderedLocked()
}

// Len returns the number of tracked triggers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// orderedLocked must be called with the lock held.
func (r *Registry) orderedLocked() []store.Opportunity {
	ordered := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].FirstOrder < ordered[j].FirstOrder
	})

	rows := make([]store.Opportunity, len(ordered))
	for i, entry := range ordered {
		rows[i] = entry.Row
	}
	return rows
}
