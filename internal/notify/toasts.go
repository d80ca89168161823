// Package notify provides the action-notification surface and the audio
// alert policy.
package notify

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a toast.
type Status string

// Toast statuses. A toast is created pending and transitions exactly once
// to success or fail.
const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Toast is one action notification. At most one toast exists per action
// id; updates merge into the existing entry.
type Toast struct {
	ID        string
	Status    Status
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Book holds the visible toasts in creation order. Entries expire on a
// status-dependent grace period measured from their last update.
type Book struct {
	mu          sync.Mutex
	toasts      []Toast
	pendingTTL  time.Duration
	terminalTTL time.Duration
	now         func() time.Time
}

// NewBook creates a toast book with the given retention periods.
func NewBook(pendingTTL, terminalTTL time.Duration) *Book {
	return &Book{
		pendingTTL:  pendingTTL,
		terminalTTL: terminalTTL,
		now:         time.Now,
	}
}

// Upsert merges into the toast with the given id, creating it when absent.
// With onlyUpdate set, a missing toast stays missing; the reconciler uses
// this so a late execution record cannot resurrect an already-finalized
// notification.
func (b *Book) Upsert(id string, status Status, message string, onlyUpdate bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for i := range b.toasts {
		if b.toasts[i].ID == id {
			b.toasts[i].Status = status
			b.toasts[i].Message = message
			b.toasts[i].UpdatedAt = now
			return
		}
	}
	if onlyUpdate {
		return
	}
	b.toasts = append(b.toasts, Toast{
		ID:        id,
		Status:    status,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Sweep evicts toasts whose grace period has elapsed.
func (b *Book) Sweep() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	kept := b.toasts[:0]
	for _, t := range b.toasts {
		age := now.Sub(t.UpdatedAt)
		ttl := b.terminalTTL
		if t.Status == StatusPending {
			ttl = b.pendingTTL
		}
		if age < ttl {
			kept = append(kept, t)
		}
	}
	b.toasts = kept
}

// List returns the visible toasts in creation order.
func (b *Book) List() []Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Toast, len(b.toasts))
	copy(out, b.toasts)
	return out
}
