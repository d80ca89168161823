// Package feed polls the receiver HTTP surface: trigger snapshots,
// broker inventories, and the execution log.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/arbdesk/console/internal/store"
)

// Snapshot is one poll result of a trigger population.
type Snapshot struct {
	Rows []store.Opportunity
	TS   float64
}

// Client is a typed client for the receiver endpoints.
type Client struct {
	baseURL    string
	client     *http.Client
	liveMaxAge time.Duration
	now        func() time.Time
}

// NewClient creates a Client. liveMaxAge bounds the recency window for
// live records; zero disables the filter.
func NewClient(baseURL string, timeout, liveMaxAge time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
		liveMaxAge: liveMaxAge,
		now:        time.Now,
	}
}

type recordList struct {
	Data []store.Opportunity `json:"data"`
}

type liveEnvelope struct {
	Live recordList `json:"live"`
	TS   float64    `json:"ts"`
}

type oldEnvelope struct {
	Old recordList `json:"old"`
	TS  float64    `json:"ts"`
}

type positionsAllEnvelope struct {
	Data []store.Position `json:"data"`
}

// FetchLive fetches the live trigger population, dropping records whose
// freshest timestamp falls outside the recency window. The receiver
// occasionally reports milliseconds where seconds belong; values past
// 1e11 are scaled down before the comparison.
func (c *Client) FetchLive(ctx context.Context) (Snapshot, error) {
	var env liveEnvelope
	if err := c.getJSON(ctx, "/receiver?mode=live", &env); err != nil {
		return Snapshot{}, err
	}

	rows := env.Live.Data
	if c.liveMaxAge > 0 {
		nowSec := float64(c.now().UnixMilli()) / 1000
		kept := rows[:0]
		for i := range rows {
			last := rows[i].LastSeenTS()
			if last > 1e11 {
				last /= 1000
			}
			if last <= 0 {
				continue
			}
			if nowSec-last <= c.liveMaxAge.Seconds() {
				kept = append(kept, rows[i])
			}
		}
		rows = kept
	}

	ts := env.TS
	if ts == 0 {
		ts = float64(c.now().UnixMilli()) / 1000
	}
	return Snapshot{Rows: rows, TS: ts}, nil
}

// FetchOld fetches the historical population sorted by end time
// descending. Closed records keep the trigger flags they held while
// active; the Active hint and a synthetic version-qualified id are
// filled in for display.
func (c *Client) FetchOld(ctx context.Context) (Snapshot, error) {
	var env oldEnvelope
	if err := c.getJSON(ctx, "/receiver?mode=old", &env); err != nil {
		return Snapshot{}, err
	}

	rows := env.Old.Data
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].EndedTS > rows[j].EndedTS
	})
	for i := range rows {
		rows[i].Active = rows[i].TriggerActive()
		if rows[i].ID == "" {
			rows[i].ID = fmt.Sprintf("OLD-%d-%s-%s-%s-%d",
				rows[i].Version, rows[i].Server, rows[i].Client, rows[i].Symbol, int64(rows[i].EndedTS))
		}
	}

	ts := env.TS
	if ts == 0 {
		ts = float64(c.now().UnixMilli()) / 1000
	}
	return Snapshot{Rows: rows, TS: ts}, nil
}

// FetchPendingOrders fetches the remote pending-order inventory,
// flattened across brokers and sorted newest first.
func (c *Client) FetchPendingOrders(ctx context.Context) ([]store.PendingOrder, error) {
	byBroker := make(map[string][]store.PendingOrder)
	if err := c.getJSON(ctx, "/receiver/pending", &byBroker); err != nil {
		return nil, err
	}

	var flat []store.PendingOrder
	for broker, orders := range byBroker {
		for _, o := range orders {
			if o.Broker == "" {
				o.Broker = broker
			}
			flat = append(flat, o)
		}
	}
	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].PlacedAt() > flat[j].PlacedAt()
	})
	return flat, nil
}

// FetchPositions fetches open positions, both grouped by broker and as
// the flat cross-broker list.
func (c *Client) FetchPositions(ctx context.Context) (map[string][]store.Position, []store.Position, error) {
	byBroker := make(map[string][]store.Position)
	if err := c.getJSON(ctx, "/receiver/positions", &byBroker); err != nil {
		return nil, nil, err
	}
	for broker, list := range byBroker {
		for i := range list {
			if list[i].Broker == "" {
				list[i].Broker = broker
			}
		}
		byBroker[broker] = list
	}

	var all positionsAllEnvelope
	if err := c.getJSON(ctx, "/receiver/positions_all", &all); err != nil {
		return nil, nil, err
	}
	return byBroker, all.Data, nil
}

// FetchExecLog fetches the execution log, flattened and sorted by ts
// ascending so the reconciler processes completions in log order.
func (c *Client) FetchExecLog(ctx context.Context) ([]store.ExecRecord, error) {
	grouped := make(map[string][]store.ExecRecord)
	if err := c.getJSON(ctx, "/receiver/trade_exec", &grouped); err != nil {
		return nil, err
	}

	var flat []store.ExecRecord
	for _, records := range grouped {
		flat = append(flat, records...)
	}
	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].TS < flat[j].TS
	})
	return flat, nil
}

// PushSignal forwards a signal for acceptance. A transport or HTTP
// failure is returned as an error; an explicit rejection comes back in
// the result with OK false.
func (c *Client) PushSignal(ctx context.Context, req store.SignalRequest) (store.SignalResult, error) {
	var res store.SignalResult
	if err := c.postJSON(ctx, "/api/push_signal", req, &res); err != nil {
		return store.SignalResult{}, err
	}
	return res, nil
}

// DeleteTrigger removes a trigger server-side.
func (c *Client) DeleteTrigger(ctx context.Context, req store.DeleteTriggerRequest) error {
	return c.postJSON(ctx, "/receiver/delete_trigger", req, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return nil
}
