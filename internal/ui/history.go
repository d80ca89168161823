package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/arbdesk/console/internal/store"
)

var historyHeaders = []string{"Ended", "Symbol", "Server", "Client", "Dir", "Dev", "Dur", "Ver"}

// HistoryView displays closed triggers, newest first.
type HistoryView struct {
	table *tview.Table
	rows  []store.Opportunity
}

// NewHistoryView creates a new history view.
func NewHistoryView() *HistoryView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)

	table.SetTitle(" History ").SetBorder(true)

	v := &HistoryView{table: table}
	v.updateTable()
	return v
}

// Widget returns the tview primitive.
func (v *HistoryView) Widget() tview.Primitive {
	return v.table
}

// Update replaces the displayed rows.
func (v *HistoryView) Update(rows []store.Opportunity) {
	v.rows = rows
	v.updateTable()
}

// Selected returns the record under the cursor, if any.
func (v *HistoryView) Selected() (store.Opportunity, bool) {
	row, _ := v.table.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(v.rows) {
		return store.Opportunity{}, false
	}
	return v.rows[idx], true
}

// updateTable rebuilds the table from current rows.
func (v *HistoryView) updateTable() {
	v.table.Clear()

	for col, header := range historyHeaders {
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
		if dir == "" {
			dir = "-"
		}

		cells := []string{
			formatUnix(o.EndTS()),
			o.Symbol,
			o.Server,
			o.Client,
			dir,
			fmt.Sprintf("%.1f", o.Deviation()),
			formatSeconds(o.DurationSec),
			fmt.Sprintf("%d", o.Version),
		}

		for col, text := range cells {
			v.table.SetCell(row, col, tview.NewTableCell(text).SetAlign(tview.AlignLeft))
		}
	}

	v.table.SetTitle(fmt.Sprintf(" History (%d) ", len(v.rows)))
}

// formatSeconds renders a duration in seconds compactly.
func formatSeconds(s float64) string {
	if s <= 0 {
		return "-"
	}
	if s < 60 {
		return fmt.Sprintf("%.0fs", s)
	}
	return fmt.Sprintf("%.0fm%02.0fs", s/60, float64(int(s)%60))
}
