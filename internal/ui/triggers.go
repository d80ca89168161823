package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/arbdesk/console/internal/store"
)

var triggerHeaders = []string{"Seen", "Symbol", "Server", "Client", "Dir", "Dev", "Gap", "Srv Quote", "Cli Quote", "Reason"}

// TriggerTableView displays the live trigger population in stable
// first-seen order.
type TriggerTableView struct {
	table *tview.Table
	rows  []store.Opportunity
}

// NewTriggerTableView creates a new live trigger view.
func NewTriggerTableView() *TriggerTableView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)

	table.SetTitle(" Live Triggers ").SetBorder(true)

	v := &TriggerTableView{table: table}
	v.updateTable()
	return v
}

// Widget returns the tview primitive.
func (v *TriggerTableView) Widget() tview.Primitive {
	return v.table
}

// Update replaces the displayed rows.
func (v *TriggerTableView) Update(rows []store.Opportunity) {
	v.rows = rows
	v.updateTable()
}

// Selected returns the opportunity under the cursor, if any.
func (v *TriggerTableView) Selected() (store.Opportunity, bool) {
	row, _ := v.table.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(v.rows) {
		return store.Opportunity{}, false
	}
	return v.rows[idx], true
}

// updateTable rebuilds the table from current rows.
func (v *TriggerTableView) updateTable() {
	v.table.Clear()

	for col, header := range triggerHeaders {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}

	for i := range v.rows {
		o := &v.rows[i]
		row := i + 1

		dir := o.Direction()
		dirColor := tcell.ColorWhite
		switch dir {
		case "BUY":
			dirColor = tcell.ColorGreen
		case "SELL":
			dirColor = tcell.ColorRed
		default:
			dir = "-"
		}

		srv := quoteCell(o.BidServer, o.AskServer, dir, o.Category, o.DigitsServer)
		cli := quoteCell(o.BidClient, o.AskClient, dir, o.Category, o.DigitsClient)

		cells := []string{
			formatUnix(o.LastSeenTS()),
			o.Symbol,
			o.Server,
			o.Client,
			dir,
			fmt.Sprintf("%.1f", o.Deviation()),
			fmt.Sprintf("%.1f", o.GapPts),
			srv,
			cli,
			o.Reason,
		}

		for col, text := range cells {
			cell := tview.NewTableCell(text).SetAlign(tview.AlignLeft)
			if col == 4 {
				cell.SetTextColor(dirColor)
			}
			v.table.SetCell(row, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Live Triggers (%d) ", len(v.rows)))
}

// quoteCell renders the venue quote relevant to the trigger direction:
// the ask when buying, the bid when selling.
func quoteCell(bid, ask *float64, dir, category string, digits *int) string {
	price := ask
	if dir == "SELL" {
		price = bid
	}
	q := store.MiniQuote(price, category, digits)
	if q.Mini == "" {
		return "-"
	}
	return q.Mini
}

// formatUnix renders a unix-seconds timestamp as local wall-clock time.
func formatUnix(ts float64) string {
	if ts <= 0 {
		return "-"
	}
	return time.Unix(int64(ts), 0).Format("15:04:05")
}
