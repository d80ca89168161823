package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/arbdesk/console/internal/store"
)

// PositionsView displays open positions across brokers.
type PositionsView struct {
	table *tview.Table
	rows  []store.Position
}

// NewPositionsView creates a new positions view.
func NewPositionsView() *PositionsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)

	table.SetTitle(" Positions ").SetBorder(true)

	v := &PositionsView{table: table}
	v.updateTable()
	return v
}

// Widget returns the tview primitive.
func (v *PositionsView) Widget() tview.Primitive {
	return v.table
}

// Update replaces the displayed positions.
func (v *PositionsView) Update(rows []store.Position) {
	v.rows = rows
	v.updateTable()
}

// Selected returns the position under the cursor, if any.
func (v *PositionsView) Selected() (store.Position, bool) {
	row, _ := v.table.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(v.rows) {
		return store.Position{}, false
	}
	return v.rows[idx], true
}

func (v *PositionsView) updateTable() {
	v.table.Clear()

	headers := []string{"Broker", "Ticket", "Symbol", "Side", "Vol", "Entry", "P/L"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}

	for i := range v.rows {
		p := &v.rows[i]
		row := i + 1

		profitColor := tcell.ColorGreen
		if p.Profit < 0 {
			profitColor = tcell.ColorRed
		}

		cells := []string{
			p.Broker,
			p.Ticket.String(),
			p.Symbol,
			p.SideLabel(),
			fmt.Sprintf("%.2f", p.VolumeLots()),
			fmt.Sprintf("%.5g", p.EntryPrice()),
			fmt.Sprintf("%.2f", p.Profit),
		}

		for col, text := range cells {
			cell := tview.NewTableCell(text).SetAlign(tview.AlignLeft)
			if col == 6 {
				cell.SetTextColor(profitColor)
			}
			v.table.SetCell(row, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Positions (%d) ", len(v.rows)))
}

// PendingOrdersView displays resting orders reported by broker agents.
type PendingOrdersView struct {
	table *tview.Table
	rows  []store.PendingOrder
}

// NewPendingOrdersView creates a new pending orders view.
func NewPendingOrdersView() *PendingOrdersView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)

	table.SetTitle(" Pending Orders ").SetBorder(true)

	v := &PendingOrdersView{table: table}
	v.updateTable()
	return v
}

// Widget returns the tview primitive.
func (v *PendingOrdersView) Widget() tview.Primitive {
	return v.table
}

// Update replaces the displayed orders.
func (v *PendingOrdersView) Update(rows []store.PendingOrder) {
	v.rows = rows
	v.updateTable()
}

// Selected returns the order under the cursor, if any.
func (v *PendingOrdersView) Selected() (store.PendingOrder, bool) {
	row, _ := v.table.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(v.rows) {
		return store.PendingOrder{}, false
	}
	return v.rows[idx], true
}

func (v *PendingOrdersView) updateTable() {
	v.table.Clear()

	headers := []string{"Broker", "Ticket", "Symbol", "Type", "Vol", "Price"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}

	for i := range v.rows {
		o := &v.rows[i]
		row := i + 1

		vol := o.Volume
		if vol == 0 {
			vol = o.Lots
		}
		price := o.Price
		if price == 0 {
			price = o.PriceOpen
		}

		cells := []string{
			o.Broker,
			o.Ticket.String(),
			o.Symbol,
			o.Type,
			fmt.Sprintf("%.2f", vol),
			fmt.Sprintf("%.5g", price),
		}

		for col, text := range cells {
			v.table.SetCell(row, col, tview.NewTableCell(text).SetAlign(tview.AlignLeft))
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Pending Orders (%d) ", len(v.rows)))
}
