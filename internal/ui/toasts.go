package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/arbdesk/console/internal/notify"
)

// ToastsView displays action notifications, newest last.
type ToastsView struct {
	textView *tview.TextView
}

// NewToastsView creates a new notifications view.
func NewToastsView() *ToastsView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" Actions ").SetBorder(true)

	return &ToastsView{textView: textView}
}

// Widget returns the tview primitive.
func (v *ToastsView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the notification list.
func (v *ToastsView) Update(toasts []notify.Toast) {
	v.textView.Clear()

	if len(toasts) == 0 {
		fmt.Fprint(v.textView, "[gray]no recent actions[-]")
		return
	}

	for _, t := range toasts {
		color := "yellow"
		marker := "…"
		switch t.Status {
		case notify.StatusSuccess:
			color, marker = "green", "✓"
		case notify.StatusFail:
			color, marker = "red", "✗"
		}
		fmt.Fprintf(v.textView, "[%s]%s %s %s[-]\n",
			color, t.UpdatedAt.Format("15:04:05"), marker, t.Message)
	}
}
