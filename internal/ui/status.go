package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/arbdesk/console/internal/engine"
)

const keyHelp = "Tab focus | t/T trade cli/srv | x close/cancel | d delete | h hide | u unhide all | m/M mute/unmute | p pause | +/- rate | q quit"

// StatusBarView displays runtime counters and the key legend.
type StatusBarView struct {
	textView *tview.TextView
}

// NewStatusBarView creates a new status bar.
func NewStatusBarView() *StatusBarView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetBorder(true)

	return &StatusBarView{textView: textView}
}

// Widget returns the tview primitive.
func (v *StatusBarView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the status line from an engine view.
func (v *StatusBarView) Update(view engine.View) {
	v.textView.Clear()

	m := view.Metrics

	poll := "paused"
	if view.LiveInterval > 0 {
		poll = view.LiveInterval.String()
	}

	livePoll := "never"
	if t, ok := m.LastPoll["live"]; ok {
		livePoll = formatTimeAgo(t)
	}

	failures := int64(0)
	for _, n := range m.PollFailures {
		failures += n
	}

	quiet := ""
	if view.Quiet {
		quiet = " [yellow]quiet[-]"
	}

	fmt.Fprintf(v.textView,
		"up %s | poll %s (live %s, %d fail) | exec seen %d | sent %d (%d rejected) | resolved %d id / %d attr | timeouts %d | in-flight %d | hidden %d%s\n[gray]%s[-]",
		formatDuration(m.Uptime),
		poll, livePoll, failures,
		m.ExecRecordsSeen,
		m.Dispatches, m.AcceptFailures,
		m.ResolvedByID, m.ResolvedByFallback,
		m.Timeouts,
		m.PendingActions,
		view.HiddenCount, quiet,
		keyHelp,
	)
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// formatTimeAgo formats a time as "X ago".
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	elapsed := time.Since(t)

	if elapsed < time.Minute {
		return fmt.Sprintf("%.0fs ago", elapsed.Seconds())
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("%.0fm ago", elapsed.Minutes())
	}
	return fmt.Sprintf("%.0fh ago", elapsed.Hours())
}
