package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arbdesk/console/internal/notify"
	"github.com/arbdesk/console/internal/store"
)

func newReconcilerFixture() (*Reconciler, *PendingBook, *notify.Book) {
	book := NewPendingBook()
	toasts := notify.NewBook(30*time.Second, 6*time.Second)
	return NewReconciler(book, toasts, 8*time.Second), book, toasts
}

func pending(id, action, broker, subject string, issuedAt time.Time) PendingAction {
	return PendingAction{
		ID:             id,
		Action:         action,
		Broker:         broker,
		SymbolOrTicket: subject,
		IssuedAt:       issuedAt,
	}
}

func TestResolveByID(t *testing.T) {
	r, book, toasts := newReconcilerFixture()

	book.Add(pending("SIG_1_0", store.ActionTrade, "FP-Demo", "EURUSD", time.Now()))
	toasts.Upsert("SIG_1_0", notify.StatusPending, "Open FP-Demo EURUSD...", false)

	ok := r.Resolve(store.ExecRecord{
		ID:     "SIG_1_0",
		Action: store.ActionTrade,
		Broker: "FP-Demo",
		Symbol: "EURUSD",
		ExecOK: true,
	})

	require.True(t, ok)
	require.Equal(t, 0, book.Len())

	list := toasts.List()
	require.Len(t, list, 1)
	require.Equal(t, notify.StatusSuccess, list[0].Status)
}

func TestUnknownIDFallsBackToAttributes(t *testing.T) {
	r, book, _ := newReconcilerFixture()

	book.Add(pending("SIG_1_0", store.ActionTrade, "FP-Demo", "EURUSD", time.Now()))

	// The receiver stamped its own id; attributes still identify the action
	ok := r.Resolve(store.ExecRecord{
		ID:     "f3b1d0a2-0000-4000-8000-000000000000",
		Action: store.ActionTrade,
		Broker: "FP-Demo",
		Symbol: "EURUSD",
		ExecOK: true,
	})

	require.True(t, ok)
	require.Equal(t, 0, book.Len())
}

func TestFallbackResolvesOldestFirst(t *testing.T) {
	r, book, _ := newReconcilerFixture()

	book.Add(pending("SIG_1_0", store.ActionTrade, "FP-Demo", "EURUSD", time.Now()))
	book.Add(pending("SIG_1_1", store.ActionTrade, "FP-Demo", "EURUSD", time.Now()))

	ok := r.Resolve(store.ExecRecord{
		Action: store.ActionTrade,
		Broker: "FP-Demo",
		Symbol: "EURUSD",
		ExecOK: true,
	})

	require.True(t, ok)
	require.Equal(t, 1, book.Len())

	_, first := book.Get("SIG_1_0")
	_, second := book.Get("SIG_1_1")
	require.False(t, first, "oldest candidate should have been resolved")
	require.True(t, second)
}

func TestFallbackMatchesStoredTicketAgainstLogTicket(t *testing.T) {
	r, book, _ := newReconcilerFixture()

	// A CLOSE is recorded under its ticket, and the log record carries the
	// ticket as a number
	book.Add(pending("SIG_1_0", store.ActionClose, "FP-Demo", "612001", time.Now()))

	ok := r.Resolve(store.ExecRecord{
		Action: store.ActionClose,
		Broker: "FP-Demo",
		Ticket: "612001",
		ExecOK: true,
	})

	require.True(t, ok)
	require.Equal(t, 0, book.Len())
}

func TestFallbackMatchesSymbolWhenRecordCarriesBoth(t *testing.T) {
	r, book, _ := newReconcilerFixture()

	book.Add(pending("SIG_1_0", store.ActionTrade, "FP-Demo", "EURUSD", time.Now()))

	// Symbol and a fresh ticket on the record; the stored subject matches
	// the symbol representation
	ok := r.Resolve(store.ExecRecord{
		Action: store.ActionTrade,
		Broker: "FP-Demo",
		Symbol: "EURUSD",
		Ticket: "900100",
		ExecOK: true,
	})

	require.True(t, ok)
}

func TestNoMatchLeavesBookUntouched(t *testing.T) {
	r, book, _ := newReconcilerFixture()

	book.Add(pending("SIG_1_0", store.ActionTrade, "FP-Demo", "EURUSD", time.Now()))

	require.False(t, r.Resolve(store.ExecRecord{
		Action: store.ActionTrade,
		Broker: "RB-Live", // wrong broker
		Symbol: "EURUSD",
	}))
	require.False(t, r.Resolve(store.ExecRecord{
		Action: store.ActionClose, // wrong action kind
		Broker: "FP-Demo",
		Symbol: "EURUSD",
	}))
	require.Equal(t, 1, book.Len())
}

func TestRecordResolvesAtMostOneAction(t *testing.T) {
	r, book, _ := newReconcilerFixture()

	book.Add(pending("SIG_1_0", store.ActionTrade, "FP-Demo", "EURUSD", time.Now()))
	book.Add(pending("SIG_1_1", store.ActionTrade, "FP-Demo", "EURUSD", time.Now()))

	resolved := r.Process([]store.ExecRecord{{
		Action: store.ActionTrade,
		Broker: "FP-Demo",
		Symbol: "EURUSD",
		ExecOK: true,
	}})

	require.Equal(t, 1, resolved)
	require.Equal(t, 1, book.Len())
}

func TestResolveDoesNotCreateToast(t *testing.T) {
	r, book, toasts := newReconcilerFixture()

	// The pending toast already expired; a matching record must not
	// resurrect it
	book.Add(pending("SIG_1_0", store.ActionTrade, "FP-Demo", "EURUSD", time.Now()))

	ok := r.Resolve(store.ExecRecord{
		ID:     "SIG_1_0",
		Action: store.ActionTrade,
		Broker: "FP-Demo",
		Symbol: "EURUSD",
		ExecOK: true,
	})

	require.True(t, ok)
	require.Empty(t, toasts.List())
}

func TestFailedExecutionCarriesLogError(t *testing.T) {
	r, book, toasts := newReconcilerFixture()

	book.Add(pending("SIG_1_0", store.ActionTrade, "FP-Demo", "EURUSD", time.Now()))
	toasts.Upsert("SIG_1_0", notify.StatusPending, "Open FP-Demo EURUSD...", false)

	r.Resolve(store.ExecRecord{
		ID:     "SIG_1_0",
		Action: store.ActionTrade,
		Broker: "FP-Demo",
		Symbol: "EURUSD",
		ExecOK: false,
		Error:  "off quotes",
	})

	require.Equal(t, 0, book.Len())
	list := toasts.List()
	require.Len(t, list, 1)
	require.Equal(t, notify.StatusFail, list[0].Status)
	require.Contains(t, list[0].Message, "off quotes")
}

func TestSweepTimeoutsForceFails(t *testing.T) {
	r, book, toasts := newReconcilerFixture()

	now := time.Now()
	r.now = func() time.Time { return now }

	book.Add(pending("SIG_1_0", store.ActionTrade, "FP-Demo", "EURUSD", now.Add(-9*time.Second)))
	book.Add(pending("SIG_1_1", store.ActionTrade, "FP-Demo", "GBPUSD", now.Add(-2*time.Second)))
	toasts.Upsert("SIG_1_0", notify.StatusPending, "Open FP-Demo EURUSD...", false)

	expired := r.SweepTimeouts()

	require.Len(t, expired, 1)
	require.Equal(t, "SIG_1_0", expired[0].ID)
	require.Equal(t, 1, book.Len())

	list := toasts.List()
	require.Len(t, list, 1)
	require.Equal(t, notify.StatusFail, list[0].Status)
	require.Contains(t, list[0].Message, ReasonTimeout)
}

func TestLateRecordAfterTimeoutIgnored(t *testing.T) {
	r, book, _ := newReconcilerFixture()

	now := time.Now()
	r.now = func() time.Time { return now }

	book.Add(pending("SIG_1_0", store.ActionTrade, "FP-Demo", "EURUSD", now.Add(-9*time.Second)))
	require.Len(t, r.SweepTimeouts(), 1)

	// The record arrives after the sweep already settled the action
	ok := r.Resolve(store.ExecRecord{
		ID:     "SIG_1_0",
		Action: store.ActionTrade,
		Broker: "FP-Demo",
		Symbol: "EURUSD",
		ExecOK: true,
	})
	require.False(t, ok)
}

func TestOnResolveReportsMatchKind(t *testing.T) {
	r, book, _ := newReconcilerFixture()

	var byIDCount, fallbackCount int
	r.SetOnResolve(func(_ PendingAction, byID bool) {
		if byID {
			byIDCount++
		} else {
			fallbackCount++
		}
	})

	book.Add(pending("SIG_1_0", store.ActionTrade, "FP-Demo", "EURUSD", time.Now()))
	book.Add(pending("SIG_1_1", store.ActionClose, "FP-Demo", "612001", time.Now()))

	r.Resolve(store.ExecRecord{ID: "SIG_1_0", Action: store.ActionTrade, Broker: "FP-Demo", Symbol: "EURUSD", ExecOK: true})
	r.Resolve(store.ExecRecord{Action: store.ActionClose, Broker: "FP-Demo", Ticket: "612001", ExecOK: true})

	require.Equal(t, 1, byIDCount)
	require.Equal(t, 1, fallbackCount)
}
