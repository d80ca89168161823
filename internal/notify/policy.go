package notify

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// muteState records a per-row mute. A zero until means muted until
// explicitly lifted.
type muteState struct {
	until time.Time
}

// Policy decides whether an alert may sound and which rows are hidden.
// It owns three TTL maps keyed by the composite trigger key: row mutes,
// hidden triggers, and the global quiet-hours window.
type Policy struct {
	mu        sync.Mutex
	quietFrom string
	quietTo   string
	rowMute   map[string]muteState
	hidden    map[string]time.Time // key -> hidden-at
	hideTTL   time.Duration
	now       func() time.Time
}

// NewPolicy creates a Policy. hideTTL of zero keeps hidden triggers
// hidden until shown manually.
func NewPolicy(quietFrom, quietTo string, hideTTL time.Duration) *Policy {
	return &Policy{
		quietFrom: quietFrom,
		quietTo:   quietTo,
		rowMute:   make(map[string]muteState),
		hidden:    make(map[string]time.Time),
		hideTTL:   hideTTL,
		now:       time.Now,
	}
}

// SetQuietWindow replaces the quiet-hours window. Empty strings disable it.
func (p *Policy) SetQuietWindow(from, to string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quietFrom, p.quietTo = from, to
}

// QuietWindow returns the configured window.
func (p *Policy) QuietWindow() (from, to string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quietFrom, p.quietTo
}

// WithinQuiet reports whether the current time falls inside the quiet
// window. Overnight windows (23:00 -> 05:00) wrap past midnight.
func (p *Policy) WithinQuiet() bool {
	p.mu.Lock()
	from, to := p.quietFrom, p.quietTo
	now := p.now()
	p.mu.Unlock()

	a, okA := parseClock(from)
	b, okB := parseClock(to)
	if !okA || !okB || a == b {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	if a < b {
		return cur >= a && cur < b
	}
	return cur >= a || cur < b
}

// MuteRow silences alerts for a trigger key. A zero duration mutes until
// UnmuteRow.
func (p *Policy) MuteRow(key string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := muteState{}
	if d > 0 {
		st.until = p.now().Add(d)
	}
	p.rowMute[key] = st
}

// UnmuteRow lifts a row mute.
func (p *Policy) UnmuteRow(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rowMute, key)
}

// RowMuted reports whether alerts for the key are currently silenced.
func (p *Policy) RowMuted(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.rowMute[key]
	if !ok {
		return false
	}
	if !st.until.IsZero() && p.now().After(st.until) {
		return false
	}
	return true
}

// Hide removes a trigger key from the live view until unhidden or until
// the hide TTL elapses.
func (p *Policy) Hide(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden[key] = p.now()
}

// Unhide restores a hidden trigger.
func (p *Policy) Unhide(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.hidden, key)
}

// UnhideAll restores every hidden trigger.
func (p *Policy) UnhideAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden = make(map[string]time.Time)
}

// Hidden reports whether the key is currently hidden.
func (p *Policy) Hidden(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	at, ok := p.hidden[key]
	if !ok {
		return false
	}
	if p.hideTTL > 0 && p.now().Sub(at) >= p.hideTTL {
		return false
	}
	return true
}

// HiddenCount returns the number of currently hidden keys.
func (p *Policy) HiddenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	now := p.now()
	for _, at := range p.hidden {
		if p.hideTTL > 0 && now.Sub(at) >= p.hideTTL {
			continue
		}
		n++
	}
	return n
}

// SetHideTTL changes the auto-unhide period. Zero disables auto-unhide.
func (p *Policy) SetHideTTL(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hideTTL = d
}

// Sweep prunes expired row mutes and hidden entries. Run periodically.
func (p *Policy) Sweep() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for key, st := range p.rowMute {
		if !st.until.IsZero() && now.After(st.until) {
			delete(p.rowMute, key)
		}
	}
	if p.hideTTL > 0 {
		for key, at := range p.hidden {
			if now.Sub(at) >= p.hideTTL {
				delete(p.hidden, key)
			}
		}
	}
}

// parseClock parses an HH:MM string into minutes since midnight.
func parseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(m) != 2 {
		return 0, false
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, false
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}
