package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/arbdesk/console/internal/notify"
	"github.com/arbdesk/console/internal/store"
)

// Failure reasons surfaced in toasts. Remote and log error strings pass
// through verbatim.
const (
	ReasonMissingTicket = "missing_ticket"
	ReasonNetwork       = "network"
	ReasonTimeout       = "timeout"
	ReasonRejected      = "rejected"
)

// Pusher forwards a signal to the receiver and returns its acceptance
// result. Acceptance is not execution.
type Pusher interface {
	PushSignal(ctx context.Context, req store.SignalRequest) (store.SignalResult, error)
}

// Dispatcher validates and issues signals, records them as pending, and
// resolves acceptance-time failures. Execution outcomes arrive later
// through the Reconciler.
type Dispatcher struct {
	pusher Pusher
	book   *PendingBook
	toasts *notify.Book

	mu  sync.Mutex
	seq int64
	now func() time.Time
}

// NewDispatcher creates a Dispatcher sharing the pending book with a
// Reconciler.
func NewDispatcher(pusher Pusher, book *PendingBook, toasts *notify.Book) *Dispatcher {
	return &Dispatcher{
		pusher: pusher,
		book:   book,
		toasts: toasts,
		now:    time.Now,
	}
}

// Dispatch issues one signal. The returned result reflects remote
// acceptance only; the pending toast transitions to success or fail once
// the execution log (or the timeout sweep) resolves the action.
//
// A CLOSE without a ticket fails immediately and is never recorded as
// pending. Transport failures and explicit remote rejections resolve the
// action terminally right here.
func (d *Dispatcher) Dispatch(ctx context.Context, req store.SignalRequest) store.SignalResult {
	action := store.NormalizeAction(req.Action)
	req.Action = action
	symbol := req.Symbol
	ticket := req.Ticket.String()
	symbolOrTicket := symbol
	if symbolOrTicket == "" {
		symbolOrTicket = ticket
	}

	if action == store.ActionClose && ticket == "" {
		return store.SignalResult{OK: false, Error: ReasonMissingTicket}
	}

	id := req.ID
	if id == "" {
		id = d.nextID()
		req.ID = id
	}

	d.book.Add(PendingAction{
		ID:             id,
		Action:         action,
		Broker:         req.Broker,
		SymbolOrTicket: symbolOrTicket,
		IssuedAt:       d.now(),
	})
	d.toasts.Upsert(id, notify.StatusPending,
		fmt.Sprintf("%s %s %s...", actionLabel(action), req.Broker, symbolOrTicket), false)

	slog.Debug("signal_dispatched",
		"id", id,
		"action", action,
		"broker", req.Broker,
		"subject", symbolOrTicket,
	)

	res, err := d.pusher.PushSignal(ctx, req)
	if err != nil {
		// Terminal at acceptance time; nothing to reconcile later
		if _, ok := d.book.Remove(id); ok {
			finalize(d.toasts, id, action, req.Broker, symbolOrTicket, false, ReasonNetwork, false)
		}
		slog.Warn("signal_push_failed", "id", id, "error", err)
		return store.SignalResult{OK: false, Error: ReasonNetwork}
	}
	if !res.OK {
		reason := res.Error
		if reason == "" {
			reason = ReasonRejected
		}
		if _, ok := d.book.Remove(id); ok {
			finalize(d.toasts, id, action, req.Broker, symbolOrTicket, false, reason, false)
		}
		slog.Warn("signal_rejected", "id", id, "reason", reason)
		return res
	}

	return res
}

// nextID generates a locally-unique signal id. Ids are generated here so
// correlation survives a receiver that never echoes them back.
func (d *Dispatcher) nextID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := fmt.Sprintf("SIG_%d_%s", d.now().UnixMilli(), strconv.FormatInt(d.seq, 36))
	d.seq++
	return id
}

// actionLabel renders an action kind for toast messages.
func actionLabel(action string) string {
	switch action {
	case store.ActionClose:
		return "Close"
	case store.ActionCancelPending:
		return "Cancel pending"
	default:
		return "Open"
	}
}

// finalize writes the terminal toast for an action.
func finalize(toasts *notify.Book, id, action, broker, symbolOrTicket string, ok bool, errMsg string, onlyUpdate bool) {
	status := notify.StatusSuccess
	outcome := "succeeded"
	if !ok {
		status = notify.StatusFail
		outcome = "failed"
		if errMsg != "" {
			outcome += " (" + errMsg + ")"
		}
	}
	msg := fmt.Sprintf("%s %s %s %s", actionLabel(action), broker, symbolOrTicket, outcome)
	toasts.Upsert(id, status, msg, onlyUpdate)
}
