// Package store provides the data model shared across the console.
package store

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Signal actions accepted by remote execution agents.
const (
	ActionTrade         = "TRADE"
	ActionClose         = "CLOSE"
	ActionCancelPending = "CANCEL_PENDING"
)

// NormalizeAction maps an arbitrary action string onto one of the three
// known kinds. Anything unrecognized is treated as a TRADE, matching how
// the execution agents interpret it.
func NormalizeAction(s string) string {
	switch s {
	case ActionClose:
		return ActionClose
	case ActionCancelPending:
		return ActionCancelPending
	default:
		return ActionTrade
	}
}

// TriggerKey builds the composite identity of an opportunity. Every
// component that needs to identify a trigger uses this one constructor.
func TriggerKey(server, client, symbol string) string {
	return server + "|" + client + "|" + symbol
}

// Opportunity is one arbitrage trigger record from a receiver snapshot.
type Opportunity struct {
	// ID is the receiver-assigned record id, if any
	ID string `json:"_id,omitempty"`

	// Lifecycle timestamps, unix seconds (the receiver occasionally
	// reports milliseconds; the feed client normalizes)
	TS           float64 `json:"ts,omitempty"`
	StartTS      float64 `json:"start_ts,omitempty"`
	LastUpdateTS float64 `json:"last_update_ts,omitempty"`
	EndedTS      float64 `json:"ended_ts,omitempty"`
	DurationSec  float64 `json:"duration_sec,omitempty"`

	// Version disambiguates historical records sharing a key
	Version int `json:"version,omitempty"`

	// Identity
	Symbol string `json:"symbol,omitempty"`
	Server string `json:"server,omitempty"`
	Client string `json:"client,omitempty"`

	// Two-sided quotes per venue; nil when the venue has no price
	BidServer *float64 `json:"bid_server,omitempty"`
	AskServer *float64 `json:"ask_server,omitempty"`
	BidClient *float64 `json:"bid_client,omitempty"`
	AskClient *float64 `json:"ask_client,omitempty"`

	// Gap between venues in points
	GapPts float64 `json:"gap_pts,omitempty"`

	// Trigger1 fires on the BUY side, Trigger2 on the SELL side
	Trigger1 bool `json:"trigger1,omitempty"`
	Trigger2 bool `json:"trigger2,omitempty"`

	// Deviation magnitude per trigger, in absolute points
	Diff1PointsAbs float64 `json:"diff1_points_abs,omitempty"`
	Diff2PointsAbs float64 `json:"diff2_points_abs,omitempty"`

	// Decimal-precision hints per venue
	DigitsServer *int `json:"digits_server,omitempty"`
	DigitsClient *int `json:"digits_client,omitempty"`

	// Raw venue-local symbol names used when dispatching
	ServerRaw string `json:"server_raw,omitempty"`
	ClientRaw string `json:"client_raw,omitempty"`

	Category string `json:"category,omitempty"`
	Reason   string `json:"reason,omitempty"`

	// Active is a display hint set by the feed client for old records
	Active bool `json:"active,omitempty"`

	LocalTime string `json:"local_time,omitempty"`
}

// Key returns the composite trigger key for this record.
func (o *Opportunity) Key() string {
	return TriggerKey(o.Server, o.Client, o.Symbol)
}

// TriggerActive reports whether at least one trigger flag is set.
func (o *Opportunity) TriggerActive() bool {
	return o.Trigger1 || o.Trigger2
}

// Direction returns BUY when trigger1 fired, SELL when trigger2 fired,
// empty when neither.
func (o *Opportunity) Direction() string {
	if o.Trigger1 {
		return "BUY"
	}
	if o.Trigger2 {
		return "SELL"
	}
	return ""
}

// Deviation returns the magnitude of whichever trigger fired.
func (o *Opportunity) Deviation() float64 {
	if o.Trigger1 {
		return o.Diff1PointsAbs
	}
	if o.Trigger2 {
		return o.Diff2PointsAbs
	}
	return 0
}

// LastSeenTS returns the freshest lifecycle timestamp, unix seconds.
func (o *Opportunity) LastSeenTS() float64 {
	if o.LastUpdateTS > 0 {
		return o.LastUpdateTS
	}
	if o.TS > 0 {
		return o.TS
	}
	return o.StartTS
}

// EndTS returns the best-effort close time of a historical record.
func (o *Opportunity) EndTS() float64 {
	if o.EndedTS > 0 {
		return o.EndedTS
	}
	if o.LastUpdateTS > 0 {
		return o.LastUpdateTS
	}
	return o.TS
}

// FlexString is a wire field the receiver serializes sometimes as a JSON
// string and sometimes as a number (tickets, order types). It marshals
// back as a bare number when it holds one.
type FlexString string

// String returns the underlying value.
func (f FlexString) String() string { return string(f) }

// UnmarshalJSON accepts strings, numbers and null.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexString(v)
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = FlexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// MarshalJSON emits a bare number for numeric values, a string otherwise.
func (f FlexString) MarshalJSON() ([]byte, error) {
	if f == "" {
		return []byte(`""`), nil
	}
	if _, err := strconv.ParseFloat(string(f), 64); err == nil {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

// ExecRecord is one completed action from the receiver execution log.
// The id of the originating signal may or may not be echoed back.
type ExecRecord struct {
	ID     string     `json:"id,omitempty"`
	Action string     `json:"action"`
	Broker string     `json:"broker"`
	Symbol string     `json:"symbol,omitempty"`
	Ticket FlexString `json:"ticket,omitempty"`
	ExecOK bool       `json:"exec_ok"`
	Error  string     `json:"error,omitempty"`
	TS     float64    `json:"ts"`
}

// SymbolOrTicket resolves the record's subject the way the dispatcher
// stored it: symbol when present, ticket otherwise.
func (r *ExecRecord) SymbolOrTicket() string {
	if r.Symbol != "" {
		return r.Symbol
	}
	return r.Ticket.String()
}

// SignalRequest is the push_signal body.
type SignalRequest struct {
	ID          string     `json:"id,omitempty"`
	Broker      string     `json:"broker"`
	Action      string     `json:"action"`
	Symbol      string     `json:"symbol,omitempty"`
	Ticket      FlexString `json:"ticket,omitempty"`
	Side        string     `json:"side,omitempty"`
	Volume      float64    `json:"volume"`
	MaxSlippage int        `json:"max_slippage,omitempty"`
	Comment     string     `json:"comment,omitempty"`
}

// SignalResult is the remote acceptance response for push_signal. It says
// the receiver accepted the request, not that the action executed.
type SignalResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// DeleteTriggerRequest removes a trigger server-side.
type DeleteTriggerRequest struct {
	Server  string `json:"server"`
	Client  string `json:"client"`
	Symbol  string `json:"symbol"`
	Scope   string `json:"scope"` // live or old
	Version *int   `json:"version,omitempty"`
}

// Position is an open position reported by a broker agent.
type Position struct {
	Broker     string     `json:"broker,omitempty"`
	Ticket     FlexString `json:"ticket,omitempty"`
	Symbol     string     `json:"symbol,omitempty"`
	Side       string     `json:"side,omitempty"`
	Type       *int       `json:"type,omitempty"`
	Volume     float64    `json:"volume,omitempty"`
	Lots       float64    `json:"lots,omitempty"`
	OpenPrice  float64    `json:"open_price,omitempty"`
	PriceOpen  float64    `json:"price_open,omitempty"`
	SL         float64    `json:"sl,omitempty"`
	TP         float64    `json:"tp,omitempty"`
	Profit     float64    `json:"profit,omitempty"`
	Swap       float64    `json:"swap,omitempty"`
	Commission float64    `json:"commission,omitempty"`
	TS         float64    `json:"ts,omitempty"`
	OpenTime   float64    `json:"open_time,omitempty"`
	Time       float64    `json:"time,omitempty"`
}

// SideLabel normalizes the position direction for display. Agents report
// either a side string or a numeric order type (0 buy, 1 sell).
func (p *Position) SideLabel() string {
	if s := strings.ToUpper(p.Side); s != "" {
		return s
	}
	if p.Type != nil {
		switch *p.Type {
		case 0:
			return "BUY"
		case 1:
			return "SELL"
		}
	}
	return ""
}

// EntryPrice returns whichever open-price field the agent populated.
func (p *Position) EntryPrice() float64 {
	if p.OpenPrice != 0 {
		return p.OpenPrice
	}
	return p.PriceOpen
}

// VolumeLots returns volume with lots as the fallback field.
func (p *Position) VolumeLots() float64 {
	if p.Volume != 0 {
		return p.Volume
	}
	return p.Lots
}

// OpenedAt returns the best-effort open time, unix seconds.
func (p *Position) OpenedAt() float64 {
	if p.TS > 0 {
		return p.TS
	}
	if p.OpenTime > 0 {
		return p.OpenTime
	}
	return p.Time
}

// PendingOrder is a resting order reported by a broker agent. This is
// remote inventory for display; it is unrelated to the dispatcher's
// pending-action book.
type PendingOrder struct {
	Broker    string     `json:"broker,omitempty"`
	Ticket    FlexString `json:"ticket,omitempty"`
	Symbol    string     `json:"symbol,omitempty"`
	Type      string     `json:"type,omitempty"`
	Volume    float64    `json:"volume,omitempty"`
	Lots      float64    `json:"lots,omitempty"`
	Price     float64    `json:"price,omitempty"`
	PriceOpen float64    `json:"price_open,omitempty"`
	SL        float64    `json:"sl,omitempty"`
	TP        float64    `json:"tp,omitempty"`
	TS        float64    `json:"ts,omitempty"`
	Time      float64    `json:"time,omitempty"`
}

// PlacedAt returns the best-effort placement time, unix seconds.
func (p *PendingOrder) PlacedAt() float64 {
	if p.TS > 0 {
		return p.TS
	}
	return p.Time
}
