// Package metrics provides real-time counters for the console status bar.
package metrics

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the tracker.
type Snapshot struct {
	LiveSnapshots      int64
	OldSnapshots       int64
	LiveRows           int
	OldRows            int
	ExecRecordsSeen    int64
	Dispatches         int64
	AcceptFailures     int64
	ResolvedByID       int64
	ResolvedByFallback int64
	Timeouts           int64
	PendingActions     int
	PollFailures       map[string]int64
	LastPoll           map[string]time.Time
	Uptime             time.Duration
}

// Tracker provides thread-safe metrics tracking.
type Tracker struct {
	mu                 sync.RWMutex
	liveSnapshots      int64
	oldSnapshots       int64
	liveRows           int
	oldRows            int
	execRecordsSeen    int64
	dispatches         int64
	acceptFailures     int64
	resolvedByID       int64
	resolvedByFallback int64
	timeouts           int64
	pendingActions     int
	pollFailures       map[string]int64
	lastPoll           map[string]time.Time
	startTime          time.Time
}

// NewTracker creates a Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		pollFailures: make(map[string]int64),
		lastPoll:     make(map[string]time.Time),
		startTime:    time.Now(),
	}
}

// RecordLiveSnapshot records one live poll and its row count.
func (t *Tracker) RecordLiveSnapshot(rows int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.liveSnapshots++
	t.liveRows = rows
	t.lastPoll["live"] = time.Now()
}

// RecordOldSnapshot records one historical poll and its row count.
func (t *Tracker) RecordOldSnapshot(rows int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.oldSnapshots++
	t.oldRows = rows
	t.lastPoll["old"] = time.Now()
}

// RecordPoll marks a successful poll of the named loop.
func (t *Tracker) RecordPoll(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastPoll[name] = time.Now()
}

// RecordPollFailure counts a failed poll of the named loop.
func (t *Tracker) RecordPollFailure(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pollFailures[name]++
}

// AddExecRecords counts execution-log records scanned.
func (t *Tracker) AddExecRecords(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.execRecordsSeen += int64(n)
	t.lastPoll["exec"] = time.Now()
}

// IncrementDispatches counts one dispatched signal.
func (t *Tracker) IncrementDispatches() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispatches++
}

// IncrementAcceptFailures counts a signal that failed at acceptance time.
func (t *Tracker) IncrementAcceptFailures() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acceptFailures++
}

// IncrementResolved counts one resolved pending action.
func (t *Tracker) IncrementResolved(byID bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if byID {
		t.resolvedByID++
	} else {
		t.resolvedByFallback++
	}
}

// AddTimeouts counts force-resolved pending actions.
func (t *Tracker) AddTimeouts(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeouts += int64(n)
}

// SetPendingActions records the pending-book size.
func (t *Tracker) SetPendingActions(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingActions = n
}

// Snapshot returns a point-in-time copy of every counter.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	failuresCopy := make(map[string]int64, len(t.pollFailures))
	for k, v := range t.pollFailures {
		failuresCopy[k] = v
	}
	lastPollCopy := make(map[string]time.Time, len(t.lastPoll))
	for k, v := range t.lastPoll {
		lastPollCopy[k] = v
	}

	return Snapshot{
		LiveSnapshots:      t.liveSnapshots,
		OldSnapshots:       t.oldSnapshots,
		LiveRows:           t.liveRows,
		OldRows:            t.oldRows,
		ExecRecordsSeen:    t.execRecordsSeen,
		Dispatches:         t.dispatches,
		AcceptFailures:     t.acceptFailures,
		ResolvedByID:       t.resolvedByID,
		ResolvedByFallback: t.resolvedByFallback,
		Timeouts:           t.timeouts,
		PendingActions:     t.pendingActions,
		PollFailures:       failuresCopy,
		LastPoll:           lastPollCopy,
		Uptime:             time.Since(t.startTime),
	}
}
