package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arbdesk/console/internal/notify"
	"github.com/arbdesk/console/internal/store"
)

// fakePusher records the last pushed signal and returns a scripted
// acceptance result.
type fakePusher struct {
	res   store.SignalResult
	err   error
	last  store.SignalRequest
	calls int
}

func (f *fakePusher) PushSignal(_ context.Context, req store.SignalRequest) (store.SignalResult, error) {
	f.calls++
	f.last = req
	return f.res, f.err
}

func newDispatcherFixture(pusher *fakePusher) (*Dispatcher, *PendingBook, *notify.Book) {
	book := NewPendingBook()
	toasts := notify.NewBook(30*time.Second, 6*time.Second)
	return NewDispatcher(pusher, book, toasts), book, toasts
}

func TestDispatchAcceptedStaysPending(t *testing.T) {
	pusher := &fakePusher{res: store.SignalResult{OK: true}}
	d, book, toasts := newDispatcherFixture(pusher)

	res := d.Dispatch(context.Background(), store.SignalRequest{
		Broker: "FP-Demo",
		Action: store.ActionTrade,
		Symbol: "EURUSD",
		Side:   "BUY",
		Volume: 0.1,
	})

	require.True(t, res.OK)
	require.Equal(t, 1, pusher.calls)
	require.True(t, strings.HasPrefix(pusher.last.ID, "SIG_"), "expected generated id, got %q", pusher.last.ID)

	// Acceptance is not execution: the action stays pending
	require.Equal(t, 1, book.Len())
	a, ok := book.Get(pusher.last.ID)
	require.True(t, ok)
	require.Equal(t, store.ActionTrade, a.Action)
	require.Equal(t, "EURUSD", a.SymbolOrTicket)

	list := toasts.List()
	require.Len(t, list, 1)
	require.Equal(t, notify.StatusPending, list[0].Status)
}

func TestCloseWithoutTicketFailsWithoutSideEffects(t *testing.T) {
	pusher := &fakePusher{res: store.SignalResult{OK: true}}
	d, book, toasts := newDispatcherFixture(pusher)

	res := d.Dispatch(context.Background(), store.SignalRequest{
		Broker: "FP-Demo",
		Action: store.ActionClose,
	})

	require.False(t, res.OK)
	require.Equal(t, ReasonMissingTicket, res.Error)
	require.Equal(t, 0, pusher.calls)
	require.Equal(t, 0, book.Len())
	require.Empty(t, toasts.List())
}

func TestTransportFailureResolvesImmediately(t *testing.T) {
	pusher := &fakePusher{err: context.DeadlineExceeded}
	d, book, toasts := newDispatcherFixture(pusher)

	res := d.Dispatch(context.Background(), store.SignalRequest{
		Broker: "FP-Demo",
		Action: store.ActionTrade,
		Symbol: "EURUSD",
		Volume: 0.1,
	})

	require.False(t, res.OK)
	require.Equal(t, ReasonNetwork, res.Error)
	require.Equal(t, 0, book.Len())

	list := toasts.List()
	require.Len(t, list, 1)
	require.Equal(t, notify.StatusFail, list[0].Status)
	require.Contains(t, list[0].Message, ReasonNetwork)
}

func TestRemoteRejectionCarriesRemoteReason(t *testing.T) {
	pusher := &fakePusher{res: store.SignalResult{OK: false, Error: "market closed"}}
	d, book, toasts := newDispatcherFixture(pusher)

	res := d.Dispatch(context.Background(), store.SignalRequest{
		Broker: "FP-Demo",
		Action: store.ActionTrade,
		Symbol: "EURUSD",
		Volume: 0.1,
	})

	require.False(t, res.OK)
	require.Equal(t, "market closed", res.Error)
	require.Equal(t, 0, book.Len())

	list := toasts.List()
	require.Len(t, list, 1)
	require.Equal(t, notify.StatusFail, list[0].Status)
	require.Contains(t, list[0].Message, "market closed")
}

func TestRejectionWithoutReasonFallsBack(t *testing.T) {
	pusher := &fakePusher{res: store.SignalResult{OK: false}}
	d, _, toasts := newDispatcherFixture(pusher)

	d.Dispatch(context.Background(), store.SignalRequest{
		Broker: "FP-Demo",
		Action: store.ActionTrade,
		Symbol: "EURUSD",
		Volume: 0.1,
	})

	list := toasts.List()
	require.Len(t, list, 1)
	require.Contains(t, list[0].Message, ReasonRejected)
}

func TestCallerIDPreserved(t *testing.T) {
	pusher := &fakePusher{res: store.SignalResult{OK: true}}
	d, book, _ := newDispatcherFixture(pusher)

	d.Dispatch(context.Background(), store.SignalRequest{
		ID:     "SIG_1_custom",
		Broker: "FP-Demo",
		Action: store.ActionTrade,
		Symbol: "EURUSD",
		Volume: 0.1,
	})

	require.Equal(t, "SIG_1_custom", pusher.last.ID)
	_, ok := book.Get("SIG_1_custom")
	require.True(t, ok)
}

func TestUnknownActionTreatedAsTrade(t *testing.T) {
	pusher := &fakePusher{res: store.SignalResult{OK: true}}
	d, book, _ := newDispatcherFixture(pusher)

	d.Dispatch(context.Background(), store.SignalRequest{
		Broker: "FP-Demo",
		Action: "bogus",
		Symbol: "EURUSD",
		Volume: 0.1,
	})

	require.Equal(t, store.ActionTrade, pusher.last.Action)
	a, ok := book.Get(pusher.last.ID)
	require.True(t, ok)
	require.Equal(t, store.ActionTrade, a.Action)
}

func TestTicketUsedAsSubjectWhenSymbolMissing(t *testing.T) {
	pusher := &fakePusher{res: store.SignalResult{OK: true}}
	d, book, _ := newDispatcherFixture(pusher)

	d.Dispatch(context.Background(), store.SignalRequest{
		Broker: "FP-Demo",
		Action: store.ActionClose,
		Ticket: "612001",
	})

	a, ok := book.Get(pusher.last.ID)
	require.True(t, ok)
	require.Equal(t, "612001", a.SymbolOrTicket)
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	pusher := &fakePusher{res: store.SignalResult{OK: true}}
	d, book, _ := newDispatcherFixture(pusher)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		d.Dispatch(context.Background(), store.SignalRequest{
			Broker: "FP-Demo",
			Action: store.ActionTrade,
			Symbol: "EURUSD",
			Volume: 0.1,
		})
		id := pusher.last.ID
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
	require.Equal(t, 50, book.Len())
}
