// Package engine wires the trigger registries, the dispatcher/reconciler
// pair and the notification surface behind one read-mostly facade.
package engine

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/arbdesk/console/internal/config"
	"github.com/arbdesk/console/internal/dispatch"
	"github.com/arbdesk/console/internal/feed"
	"github.com/arbdesk/console/internal/metrics"
	"github.com/arbdesk/console/internal/notify"
	"github.com/arbdesk/console/internal/registry"
	"github.com/arbdesk/console/internal/store"
)

// Remote is the receiver surface the engine needs. *feed.Client
// implements it.
type Remote interface {
	dispatch.Pusher
	DeleteTrigger(ctx context.Context, req store.DeleteTriggerRequest) error
}

// View is a point-in-time copy of everything the display layer renders.
type View struct {
	Live              []store.Opportunity
	Old               []store.Opportunity
	Toasts            []notify.Toast
	PendingOrders     []store.PendingOrder
	Positions         []store.Position
	PositionsByBroker map[string][]store.Position
	Metrics           metrics.Snapshot
	HiddenCount       int
	Quiet             bool
	LiveInterval      time.Duration
}

// Engine owns the console's mutable state. Poll loops feed it, the UI
// reads View(), and operator actions go through Dispatch and friends.
type Engine struct {
	liveReg    *registry.Registry
	oldReg     *registry.Registry
	book       *dispatch.PendingBook
	dispatcher *dispatch.Dispatcher
	reconciler *dispatch.Reconciler
	toasts     *notify.Book
	policy     *notify.Policy
	alerter    *notify.Alerter
	tracker    *metrics.Tracker
	remote     Remote

	liveInterval  *feed.Interval
	sweepInterval time.Duration

	mu            sync.Mutex
	liveView      []store.Opportunity
	oldView       []store.Opportunity
	pendingOrders []store.PendingOrder
	positions     []store.Position
	posByBroker   map[string][]store.Position
	deleted       map[string]struct{}
}

// New assembles an Engine from configuration and a receiver client.
func New(cfg *config.Config, remote Remote) *Engine {
	book := dispatch.NewPendingBook()
	toasts := notify.NewBook(cfg.ToastPendingTTL, cfg.ToastTerminalTTL)
	policy := notify.NewPolicy(cfg.QuietFrom, cfg.QuietTo, cfg.HideTTL)
	tracker := metrics.NewTracker()

	e := &Engine{
		liveReg:       registry.New(),
		oldReg:        registry.New(),
		book:          book,
		dispatcher:    dispatch.NewDispatcher(remote, book, toasts),
		reconciler:    dispatch.NewReconciler(book, toasts, cfg.PendingTimeout),
		toasts:        toasts,
		policy:        policy,
		alerter:       notify.NewAlerter(policy, nil),
		tracker:       tracker,
		remote:        remote,
		liveInterval:  feed.NewInterval(cfg.LivePollInterval),
		sweepInterval: cfg.SweepInterval,
		posByBroker:   make(map[string][]store.Position),
		deleted:       make(map[string]struct{}),
	}
	e.reconciler.SetOnResolve(func(_ dispatch.PendingAction, byID bool) {
		tracker.IncrementResolved(byID)
	})
	return e
}

// Policy exposes the alert policy for operator controls.
func (e *Engine) Policy() *notify.Policy { return e.policy }

// Alerter exposes the new-activation alerter so the UI can install its
// bell.
func (e *Engine) Alerter() *notify.Alerter { return e.alerter }

// LiveInterval returns the adjustable live-poll cadence.
func (e *Engine) LiveInterval() *feed.Interval { return e.liveInterval }

// OnLiveSnapshot applies one live poll result.
func (e *Engine) OnLiveSnapshot(snap feed.Snapshot) {
	// Alerting keys off the raw snapshot, before any view filtering
	e.alerter.Observe(snap.Rows)

	view := e.liveReg.Reconcile(snap.Rows)
	e.tracker.RecordLiveSnapshot(len(view))

	e.mu.Lock()
	e.liveView = view
	e.mu.Unlock()
}

// OnOldSnapshot applies one historical poll result.
func (e *Engine) OnOldSnapshot(snap feed.Snapshot) {
	view := e.oldReg.Reconcile(snap.Rows)
	e.tracker.RecordOldSnapshot(len(view))

	e.mu.Lock()
	e.oldView = view
	e.mu.Unlock()
}

// OnExecLog runs the reconciler over one execution-log poll.
func (e *Engine) OnExecLog(records []store.ExecRecord) {
	e.reconciler.Process(records)
	e.tracker.AddExecRecords(len(records))
	e.tracker.SetPendingActions(e.book.Len())
}

// OnPendingOrders stores the latest remote pending-order inventory.
func (e *Engine) OnPendingOrders(orders []store.PendingOrder) {
	e.tracker.RecordPoll("pending")
	e.mu.Lock()
	e.pendingOrders = orders
	e.mu.Unlock()
}

// OnPositions stores the latest open-position inventory.
func (e *Engine) OnPositions(byBroker map[string][]store.Position, all []store.Position) {
	e.tracker.RecordPoll("positions")
	e.mu.Lock()
	e.posByBroker = byBroker
	e.positions = all
	e.mu.Unlock()
}

// PollFailed counts a failed poll of the named loop.
func (e *Engine) PollFailed(name string) {
	e.tracker.RecordPollFailure(name)
}

// Dispatch issues a signal and tracks the acceptance outcome.
func (e *Engine) Dispatch(ctx context.Context, req store.SignalRequest) store.SignalResult {
	e.tracker.IncrementDispatches()
	res := e.dispatcher.Dispatch(ctx, req)
	if !res.OK {
		e.tracker.IncrementAcceptFailures()
	}
	e.tracker.SetPendingActions(e.book.Len())
	return res
}

// Trade opens a market order on one venue of an opportunity.
func (e *Engine) Trade(ctx context.Context, row store.Opportunity, venue, side string, volume float64) store.SignalResult {
	broker := row.Client
	symbol := row.ClientRaw
	if venue == "server" {
		broker = row.Server
		symbol = row.ServerRaw
	}
	if symbol == "" {
		symbol = row.Symbol
	}
	if broker == "" || symbol == "" {
		return store.SignalResult{OK: false, Error: "missing_broker"}
	}
	if !(volume > 0) {
		return store.SignalResult{OK: false, Error: "missing_volume"}
	}
	return e.Dispatch(ctx, store.SignalRequest{
		Broker:  broker,
		Action:  store.ActionTrade,
		Symbol:  symbol,
		Side:    side,
		Volume:  volume,
		Comment: "WebTrade",
	})
}

// CloseTicket closes one open position.
func (e *Engine) CloseTicket(ctx context.Context, pos store.Position) store.SignalResult {
	ticket := normalizeTicket(pos.Ticket.String())
	if pos.Broker == "" || ticket == "" {
		return store.SignalResult{OK: false, Error: dispatch.ReasonMissingTicket}
	}
	return e.Dispatch(ctx, store.SignalRequest{
		Broker:      pos.Broker,
		Action:      store.ActionClose,
		Ticket:      store.FlexString(ticket),
		Volume:      0,
		MaxSlippage: 30,
		Comment:     "WebCloseOne",
	})
}

// CancelPendingOrder cancels one resting order.
func (e *Engine) CancelPendingOrder(ctx context.Context, ord store.PendingOrder) store.SignalResult {
	ticket := normalizeTicket(ord.Ticket.String())
	if ord.Broker == "" || ticket == "" {
		return store.SignalResult{OK: false, Error: dispatch.ReasonMissingTicket}
	}
	return e.Dispatch(ctx, store.SignalRequest{
		Broker:  ord.Broker,
		Action:  store.ActionCancelPending,
		Ticket:  store.FlexString(ticket),
		Symbol:  ord.Symbol,
		Comment: "WebCancelPending",
	})
}

// DeleteTrigger removes a trigger server-side and drops it from the
// local view for the rest of the session.
func (e *Engine) DeleteTrigger(ctx context.Context, row store.Opportunity, scope string) error {
	req := store.DeleteTriggerRequest{
		Server: row.Server,
		Client: row.Client,
		Symbol: row.Symbol,
		Scope:  scope,
	}
	if scope == "old" && row.Version != 0 {
		v := row.Version
		req.Version = &v
	}
	if err := e.remote.DeleteTrigger(ctx, req); err != nil {
		slog.Warn("delete_trigger_failed", "key", row.Key(), "scope", scope, "error", err)
		return err
	}

	e.mu.Lock()
	e.deleted[row.Key()] = struct{}{}
	e.mu.Unlock()
	return nil
}

// RunSweeps runs the periodic sweeps (toast expiry, policy TTLs, pending
// timeouts) until the context is cancelled. It blocks; run it on its own
// goroutine.
func (e *Engine) RunSweeps(ctx context.Context) {
	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.toasts.Sweep()
			e.policy.Sweep()
			if expired := e.reconciler.SweepTimeouts(); len(expired) > 0 {
				e.tracker.AddTimeouts(len(expired))
			}
			e.tracker.SetPendingActions(e.book.Len())
		}
	}
}

// View assembles the current display state. Hidden and deleted triggers
// are filtered from the live population; deleted triggers also leave the
// historical one.
func (e *Engine) View() View {
	e.mu.Lock()
	live := make([]store.Opportunity, 0, len(e.liveView))
	for i := range e.liveView {
		key := e.liveView[i].Key()
		if _, gone := e.deleted[key]; gone {
			continue
		}
		live = append(live, e.liveView[i])
	}
	old := make([]store.Opportunity, 0, len(e.oldView))
	for i := range e.oldView {
		if _, gone := e.deleted[e.oldView[i].Key()]; gone {
			continue
		}
		old = append(old, e.oldView[i])
	}
	pendingOrders := e.pendingOrders
	positions := e.positions
	posByBroker := e.posByBroker
	e.mu.Unlock()

	// Policy filtering happens outside the engine lock
	visible := live[:0]
	for i := range live {
		if e.policy.Hidden(live[i].Key()) {
			continue
		}
		visible = append(visible, live[i])
	}

	return View{
		Live:              visible,
		Old:               old,
		Toasts:            e.toasts.List(),
		PendingOrders:     pendingOrders,
		Positions:         positions,
		PositionsByBroker: posByBroker,
		Metrics:           e.tracker.Snapshot(),
		HiddenCount:       e.policy.HiddenCount(),
		Quiet:             e.policy.WithinQuiet(),
		LiveInterval:      e.liveInterval.Get(),
	}
}

// normalizeTicket renders a ticket as a positive integer string, the
// form the execution agents expect.
func normalizeTicket(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ""
	}
	t := int64(math.Abs(f))
	if t == 0 {
		return ""
	}
	return strconv.FormatInt(t, 10)
}
