package notify

import (
	"sync"

	"github.com/arbdesk/console/internal/store"
)

// Alerter fires the audio callback when a trigger key becomes active that
// was not active on the previous snapshot. The alert is a side effect of
// trigger detection only; it is independent of dispatch notifications.
type Alerter struct {
	mu         sync.Mutex
	prevActive map[string]struct{}
	policy     *Policy
	play       func()
}

// NewAlerter creates an Alerter. play may be nil for a silent console.
func NewAlerter(policy *Policy, play func()) *Alerter {
	return &Alerter{
		prevActive: make(map[string]struct{}),
		policy:     policy,
		play:       play,
	}
}

// SetPlayer replaces the audio callback (the UI installs its bell once
// the terminal is ready).
func (a *Alerter) SetPlayer(play func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.play = play
}

// Observe diffs the snapshot's active keys against the previous one and
// sounds the alert for newly-activated, unmuted keys outside the quiet
// window.
func (a *Alerter) Observe(rows []store.Opportunity) {
	active := make(map[string]struct{}, len(rows))
	for i := range rows {
		if rows[i].TriggerActive() {
			active[rows[i].Key()] = struct{}{}
		}
	}

	a.mu.Lock()
	shouldPlay := false
	for key := range active {
		if _, seen := a.prevActive[key]; !seen && !a.policy.RowMuted(key) {
			shouldPlay = true
			break
		}
	}
	a.prevActive = active
	play := a.play
	a.mu.Unlock()

	if shouldPlay && play != nil && !a.policy.WithinQuiet() {
		play()
	}
}
