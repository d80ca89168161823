package dispatch

import (
	"log/slog"
	"time"

	"github.com/arbdesk/console/internal/notify"
	"github.com/arbdesk/console/internal/store"
)

// Reconciler resolves pending actions against the polled execution log.
// Matching is id-first with an attribute fallback, because the receiver
// does not guarantee the dispatch id comes back on log records.
type Reconciler struct {
	book    *PendingBook
	toasts  *notify.Book
	timeout time.Duration
	now     func() time.Time

	// onResolve, when set, observes each log-driven resolution and
	// whether the id matched directly
	onResolve func(a PendingAction, byID bool)
}

// NewReconciler creates a Reconciler over the shared pending book.
// timeout bounds how long an action may stay pending before the sweep
// force-fails it.
func NewReconciler(book *PendingBook, toasts *notify.Book, timeout time.Duration) *Reconciler {
	return &Reconciler{
		book:    book,
		toasts:  toasts,
		timeout: timeout,
		now:     time.Now,
	}
}

// Process runs Resolve over a log poll's records, assumed sorted by ts
// ascending, and returns how many pending actions were resolved.
func (r *Reconciler) Process(records []store.ExecRecord) int {
	resolved := 0
	for i := range records {
		if r.Resolve(records[i]) {
			resolved++
		}
	}
	return resolved
}

// Resolve attempts to settle at most one pending action with this log
// record, then stops searching.
//
// Priority: a pending action with the record's id wins outright. Failing
// that, the oldest pending action agreeing on action kind and broker
// whose stored subject equals the record's symbol-or-ticket, ticket, or
// symbol is resolved, whichever representation the log happened to
// carry. Two concurrent same-broker same-symbol actions of the same kind
// are genuinely ambiguous here; first dispatched wins.
func (r *Reconciler) Resolve(rec store.ExecRecord) bool {
	action := store.NormalizeAction(rec.Action)
	symbol := rec.Symbol
	ticket := rec.Ticket.String()
	subject := rec.SymbolOrTicket()

	if rec.ID != "" {
		if a, ok := r.book.Remove(rec.ID); ok {
			r.settle(a, action, rec, subject, true)
			return true
		}
	}

	for _, cand := range r.book.InOrder() {
		if cand.Action != action || cand.Broker != rec.Broker {
			continue
		}
		if cand.SymbolOrTicket != subject && cand.SymbolOrTicket != ticket && cand.SymbolOrTicket != symbol {
			continue
		}
		// Matched by attributes. Removal may still lose to the timeout
		// sweep; only the winner settles.
		if a, ok := r.book.Remove(cand.ID); ok {
			r.settle(a, action, rec, subject, false)
			return true
		}
	}
	return false
}

// SetOnResolve installs an observer for log-driven resolutions.
func (r *Reconciler) SetOnResolve(fn func(a PendingAction, byID bool)) {
	r.onResolve = fn
}

// settle writes the terminal toast for a matched action. Only-update
// keeps a late record from recreating a toast that already finalized and
// expired.
func (r *Reconciler) settle(a PendingAction, action string, rec store.ExecRecord, subject string, byID bool) {
	finalize(r.toasts, a.ID, action, rec.Broker, subject, rec.ExecOK, rec.Error, true)
	if r.onResolve != nil {
		r.onResolve(a, byID)
	}
	slog.Debug("exec_resolved",
		"id", a.ID,
		"action", action,
		"broker", rec.Broker,
		"subject", subject,
		"exec_ok", rec.ExecOK,
		"matched_by_id", byID,
	)
}

// SweepTimeouts force-fails every pending action older than the timeout
// and returns them. A log record arriving afterwards finds no pending
// entry and is ignored.
func (r *Reconciler) SweepTimeouts() []PendingAction {
	cutoff := r.now().Add(-r.timeout)
	var expired []PendingAction
	for _, cand := range r.book.InOrder() {
		if cand.IssuedAt.After(cutoff) {
			continue
		}
		if a, ok := r.book.Remove(cand.ID); ok {
			finalize(r.toasts, a.ID, a.Action, a.Broker, a.SymbolOrTicket, false, ReasonTimeout, false)
			slog.Warn("pending_timeout", "id", a.ID, "action", a.Action, "broker", a.Broker)
			expired = append(expired, a)
		}
	}
	return expired
}
