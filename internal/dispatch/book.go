// Package dispatch issues signals at remote execution agents and
// reconciles them against the asynchronously-polled execution log.
package dispatch

import (
	"sync"
	"time"
)

// PendingAction is a dispatched signal awaiting a terminal outcome.
type PendingAction struct {
	ID             string
	Action         string
	Broker         string
	SymbolOrTicket string
	IssuedAt       time.Time
}

// PendingBook stores pending actions in dispatch order. Insertion order
// matters: attribute-fallback matching resolves the oldest eligible
// candidate, so iteration must be deterministic.
//
// Removal under the lock is the at-most-once point: whichever of the
// log-match path and the timeout sweep removes an entry first is the only
// one that acts on it.
type PendingBook struct {
	mu      sync.Mutex
	order   []string
	actions map[string]PendingAction
}

// NewPendingBook creates an empty book.
func NewPendingBook() *PendingBook {
	return &PendingBook{actions: make(map[string]PendingAction)}
}

// Add records a pending action. An existing id is overwritten in place,
// keeping its original position.
func (b *PendingBook) Add(a PendingAction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.actions[a.ID]; !ok {
		b.order = append(b.order, a.ID)
	}
	b.actions[a.ID] = a
}

// Remove deletes the action and reports whether it was present. Callers
// may act on the returned action only when present is true.
func (b *PendingBook) Remove(id string) (PendingAction, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.actions[id]
	if !ok {
		return PendingAction{}, false
	}
	delete(b.actions, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return a, true
}

// Get returns the action without removing it.
func (b *PendingBook) Get(id string) (PendingAction, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.actions[id]
	return a, ok
}

// InOrder returns a copy of the pending actions in dispatch order.
func (b *PendingBook) InOrder() []PendingAction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PendingAction, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.actions[id])
	}
	return out
}

// Len returns the number of pending actions.
func (b *PendingBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.actions)
}
