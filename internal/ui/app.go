// Package ui provides the terminal dashboard.
package ui

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/arbdesk/console/internal/config"
	"github.com/arbdesk/console/internal/engine"
)

// intervalStep is the live-poll adjustment applied per keypress.
const intervalStep = 500 * time.Millisecond

// App is the main TUI application.
type App struct {
	app    *tview.Application
	layout *tview.Flex

	// Views
	triggers      *TriggerTableView
	history       *HistoryView
	positions     *PositionsView
	pendingOrders *PendingOrdersView
	toasts        *ToastsView
	statusBar     *StatusBarView

	engine      *engine.Engine
	cfg         *config.Config
	refreshRate time.Duration

	// Interval to restore when unpausing
	resumeInterval time.Duration

	focusRing []tview.Primitive
	focusIdx  int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the dashboard over an engine.
func NewApp(cfg *config.Config, eng *engine.Engine) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:            tview.NewApplication(),
		triggers:       NewTriggerTableView(),
		history:        NewHistoryView(),
		positions:      NewPositionsView(),
		pendingOrders:  NewPendingOrdersView(),
		toasts:         NewToastsView(),
		statusBar:      NewStatusBarView(),
		engine:         eng,
		cfg:            cfg,
		refreshRate:    cfg.UIRefreshRate,
		resumeInterval: cfg.LivePollInterval,
		ctx:            ctx,
		cancel:         cancel,
	}

	a.setupLayout()
	a.setupKeyboard()

	// Terminal bell on new trigger activations
	eng.Alerter().SetPlayer(func() {
		os.Stdout.WriteString("\a")
	})

	return a
}

// setupLayout creates the panel layout.
func (a *App) setupLayout() {
	// Top: live triggers (left) | actions (right)
	topRow := tview.NewFlex().
		AddItem(a.triggers.Widget(), 0, 3, true).
		AddItem(a.toasts.Widget(), 0, 1, false)

	// Middle: positions | pending orders
	middleRow := tview.NewFlex().
		AddItem(a.positions.Widget(), 0, 1, false).
		AddItem(a.pendingOrders.Widget(), 0, 1, false)

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 3, true).
		AddItem(middleRow, 0, 2, false).
		AddItem(a.history.Widget(), 0, 2, false).
		AddItem(a.statusBar.Widget(), 4, 0, false)

	a.layout.SetTitle(fmt.Sprintf(" %s ", a.cfg.DashboardTitle)).SetBorder(true)

	a.focusRing = []tview.Primitive{
		a.triggers.Widget(),
		a.positions.Widget(),
		a.pendingOrders.Widget(),
		a.history.Widget(),
	}

	a.app.SetRoot(a.layout, true)
	a.app.SetFocus(a.focusRing[0])
}

// setupKeyboard configures keyboard shortcuts.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyTab:
			a.focusIdx = (a.focusIdx + 1) % len(a.focusRing)
			a.app.SetFocus(a.focusRing[a.focusIdx])
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case 'p':
				a.togglePause()
				return nil
			case '+', '=':
				a.adjustInterval(intervalStep)
				return nil
			case '-':
				a.adjustInterval(-intervalStep)
				return nil
			case 'u':
				a.engine.Policy().UnhideAll()
				return nil
			case 't':
				a.tradeSelected("client")
				return nil
			case 'T':
				a.tradeSelected("server")
				return nil
			case 'h':
				if o, ok := a.triggers.Selected(); ok {
					a.engine.Policy().Hide(o.Key())
				}
				return nil
			case 'm':
				if o, ok := a.triggers.Selected(); ok {
					a.engine.Policy().MuteRow(o.Key(), 0)
				}
				return nil
			case 'M':
				if o, ok := a.triggers.Selected(); ok {
					a.engine.Policy().UnmuteRow(o.Key())
				}
				return nil
			case 'd':
				a.deleteSelected()
				return nil
			case 'x':
				a.closeOrCancelSelected()
				return nil
			}
		}
		return event
	})
}

// tradeSelected dispatches a market order for the selected live trigger
// in its trigger direction.
func (a *App) tradeSelected(venue string) {
	o, ok := a.triggers.Selected()
	if !ok {
		return
	}
	side := o.Direction()
	if side == "" {
		return
	}
	go a.engine.Trade(a.ctx, o, venue, side, a.cfg.DefaultTradeVolume)
}

// deleteSelected removes the selected trigger, live or historical
// depending on which table holds focus.
func (a *App) deleteSelected() {
	switch a.app.GetFocus() {
	case a.history.Widget():
		if o, ok := a.history.Selected(); ok {
			go a.engine.DeleteTrigger(a.ctx, o, "old")
		}
	default:
		if o, ok := a.triggers.Selected(); ok {
			go a.engine.DeleteTrigger(a.ctx, o, "live")
		}
	}
}

// closeOrCancelSelected acts on the focused inventory table: close a
// position or cancel a resting order.
func (a *App) closeOrCancelSelected() {
	switch a.app.GetFocus() {
	case a.positions.Widget():
		if p, ok := a.positions.Selected(); ok {
			go a.engine.CloseTicket(a.ctx, p)
		}
	case a.pendingOrders.Widget():
		if o, ok := a.pendingOrders.Selected(); ok {
			go a.engine.CancelPendingOrder(a.ctx, o)
		}
	}
}

// togglePause pauses the live poll loop or restores its previous cadence.
func (a *App) togglePause() {
	iv := a.engine.LiveInterval()
	if d := iv.Get(); d > 0 {
		a.resumeInterval = d
		iv.Set(0)
		return
	}
	if a.resumeInterval <= 0 {
		a.resumeInterval = a.cfg.LivePollInterval
	}
	iv.Set(a.resumeInterval)
}

// adjustInterval shifts the live poll cadence, never dropping a running
// loop below one step.
func (a *App) adjustInterval(delta time.Duration) {
	iv := a.engine.LiveInterval()
	d := iv.Get()
	if d <= 0 {
		return
	}
	d += delta
	if d < intervalStep {
		d = intervalStep
	}
	iv.Set(d)
}

// Run starts the TUI application (blocking).
func (a *App) Run() error {
	go a.updateLoop()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// Done is closed when the operator quits.
func (a *App) Done() <-chan struct{} {
	return a.ctx.Done()
}

// updateLoop periodically redraws every view from the engine state.
func (a *App) updateLoop() {
	ticker := time.NewTicker(a.refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			view := a.engine.View()

			a.app.QueueUpdateDraw(func() {
				a.triggers.Update(view.Live)
				a.history.Update(view.Old)
				a.positions.Update(view.Positions)
				a.pendingOrders.Update(view.PendingOrders)
				a.toasts.Update(view.Toasts)
				a.statusBar.Update(view)
			})
		}
	}
}
