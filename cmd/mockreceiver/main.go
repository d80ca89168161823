// Package main is a scripted stand-in for the receiver, useful for
// exercising the console without live broker agents. It serves the
// snapshot, inventory and execution-log endpoints over simulated data
// that flickers the way the real feed does.
package main

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/arbdesk/console/internal/store"
)

// execDelay is how long a pushed signal sits before its log record
// appears, imitating broker round-trip time.
const execDelay = 1200 * time.Millisecond

// dropIDChance is the fraction of exec records whose original signal id
// is replaced with a receiver-assigned one, forcing clients onto the
// attribute fallback.
const dropIDChance = 0.3

type seedRow struct {
	symbol   string
	server   string
	client   string
	category string
	digits   int
	base     float64
}

var seeds = []seedRow{
	{"EURUSD", "IC-Live", "FP-Demo", "fx", 5, 1.0852},
	{"GBPUSD", "IC-Live", "FP-Demo", "fx", 5, 1.2731},
	{"XAUUSD", "IC-Live", "FP-Demo", "metal", 2, 2385.40},
	{"BTCUSD", "IC-Live", "RB-Live", "crypto", 2, 64230.0},
	{"USDJPY", "IC-Live", "RB-Live", "fx", 3, 151.42},
}

// state is the simulated receiver book, guarded by one mutex.
type state struct {
	mu        sync.Mutex
	rng       *rand.Rand
	live      map[string]*store.Opportunity
	old       []store.Opportunity
	versions  map[string]int
	positions map[string][]store.Position
	pending   map[string][]store.PendingOrder
	execLog   map[string][]store.ExecRecord
	ticketSeq int64
}

func newState() *state {
	s := &state{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		live:      make(map[string]*store.Opportunity),
		versions:  make(map[string]int),
		positions: make(map[string][]store.Position),
		pending:   make(map[string][]store.PendingOrder),
		execLog:   make(map[string][]store.ExecRecord),
		ticketSeq: 500000,
	}

	now := nowSec()
	for _, seed := range seeds {
		bid := seed.base
		ask := seed.base + pointValue(seed.digits)
		digits := seed.digits
		o := &store.Opportunity{
			TS:           now,
			StartTS:      now,
			LastUpdateTS: now,
			Symbol:       seed.symbol,
			Server:       seed.server,
			Client:       seed.client,
			BidServer:    &bid,
			AskServer:    &ask,
			BidClient:    &bid,
			AskClient:    &ask,
			DigitsServer: &digits,
			DigitsClient: &digits,
			ServerRaw:    seed.symbol,
			ClientRaw:    seed.symbol + ".r",
			Category:     seed.category,
			Reason:       "gap",
		}
		s.live[o.Key()] = o
	}

	s.positions["FP-Demo"] = []store.Position{
		{Broker: "FP-Demo", Ticket: "612001", Symbol: "EURUSD", Side: "buy", Volume: 0.10, OpenPrice: 1.0844, Profit: 12.4, TS: now - 600},
	}
	s.pending["RB-Live"] = []store.PendingOrder{
		{Broker: "RB-Live", Ticket: "612050", Symbol: "BTCUSD", Type: "buy_limit", Volume: 0.01, Price: 63800, TS: now - 300},
	}
	return s
}

// tick mutates quotes and flips trigger flags so the population
// flickers: rows activate, deactivate, and occasionally retire to the
// historical book.
func (s *state) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowSec()
	for key, o := range s.live {
		drift := (s.rng.Float64() - 0.5) * 20 * pointValue(derefInt(o.DigitsServer))
		*o.BidServer += drift
		*o.AskServer = *o.BidServer + pointValue(derefInt(o.DigitsServer))
		*o.BidClient = *o.BidServer + (s.rng.Float64()-0.5)*30*pointValue(derefInt(o.DigitsClient))
		*o.AskClient = *o.BidClient + pointValue(derefInt(o.DigitsClient))
		o.LastUpdateTS = now
		o.GapPts = (*o.BidClient - *o.BidServer) / pointValue(derefInt(o.DigitsServer))

		switch roll := s.rng.Float64(); {
		case roll < 0.25:
			o.Trigger1 = true
			o.Trigger2 = false
			o.Diff1PointsAbs = 10 + s.rng.Float64()*40
		case roll < 0.50:
			o.Trigger1 = false
			o.Trigger2 = true
			o.Diff2PointsAbs = 10 + s.rng.Float64()*40
		case roll < 0.85:
			o.Trigger1 = false
			o.Trigger2 = false
		default:
			// Retire the row to the historical book
			s.versions[key]++
			closed := *o
			closed.EndedTS = now
			closed.DurationSec = now - closed.StartTS
			closed.Version = s.versions[key]
			s.old = append(s.old, closed)
			if len(s.old) > 50 {
				s.old = s.old[len(s.old)-50:]
			}
			o.StartTS = now
			o.Trigger1 = false
			o.Trigger2 = false
		}
	}
}

// acceptSignal validates a pushed signal and schedules its execution.
func (s *state) acceptSignal(req store.SignalRequest) store.SignalResult {
	action := store.NormalizeAction(req.Action)
	if req.Broker == "" {
		return store.SignalResult{OK: false, Error: "unknown_broker"}
	}
	if action != store.ActionTrade && req.Ticket.String() == "" {
		return store.SignalResult{OK: false, Error: "missing_ticket"}
	}

	go func() {
		time.Sleep(execDelay)
		s.execute(action, req)
	}()
	return store.SignalResult{OK: true}
}

// execute applies a signal to the book and appends its log record.
func (s *state) execute(action string, req store.SignalRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := store.ExecRecord{
		ID:     req.ID,
		Action: action,
		Broker: req.Broker,
		Symbol: req.Symbol,
		Ticket: req.Ticket,
		ExecOK: true,
		TS:     nowSec(),
	}
	// Sometimes the agent loses the caller's id and the receiver stamps
	// its own; clients then have to match on attributes
	if s.rng.Float64() < dropIDChance {
		rec.ID = uuid.NewString()
	}

	switch action {
	case store.ActionTrade:
		s.ticketSeq++
		ticket := strconv.FormatInt(s.ticketSeq, 10)
		rec.Ticket = store.FlexString(ticket)
		if s.rng.Float64() < 0.15 {
			rec.ExecOK = false
			rec.Error = "off quotes"
			break
		}
		s.positions[req.Broker] = append(s.positions[req.Broker], store.Position{
			Broker: req.Broker,
			Ticket: store.FlexString(ticket),
			Symbol: req.Symbol,
			Side:   strings.ToLower(req.Side),
			Volume: req.Volume,
			TS:     nowSec(),
		})
	case store.ActionClose:
		if !s.removePosition(req.Broker, req.Ticket.String()) {
			rec.ExecOK = false
			rec.Error = "position not found"
		}
	case store.ActionCancelPending:
		if !s.removePending(req.Broker, req.Ticket.String()) {
			rec.ExecOK = false
			rec.Error = "order not found"
		}
	}

	s.execLog[req.Broker] = append(s.execLog[req.Broker], rec)
	if len(s.execLog[req.Broker]) > 100 {
		s.execLog[req.Broker] = s.execLog[req.Broker][len(s.execLog[req.Broker])-100:]
	}
}

func (s *state) removePosition(broker, ticket string) bool {
	list := s.positions[broker]
	for i := range list {
		if list[i].Ticket.String() == ticket {
			s.positions[broker] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

func (s *state) removePending(broker, ticket string) bool {
	list := s.pending[broker]
	for i := range list {
		if list[i].Ticket.String() == ticket {
			s.pending[broker] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

func (s *state) deleteTrigger(req store.DeleteTriggerRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := store.TriggerKey(req.Server, req.Client, req.Symbol)
	if req.Scope == "old" {
		kept := s.old[:0]
		for _, o := range s.old {
			if o.Key() == key && (req.Version == nil || o.Version == *req.Version) {
				continue
			}
			kept = append(kept, o)
		}
		s.old = kept
		return
	}
	delete(s.live, key)
}

// Server is the mock receiver HTTP surface.
type Server struct {
	router *mux.Router
	server *http.Server
	state  *state
}

// NewServer creates the mock receiver on addr.
func NewServer(addr string, st *state) *Server {
	s := &Server{
		router: mux.NewRouter(),
		state:  st,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(requestIDMiddleware)

	s.router.HandleFunc("/receiver", s.handleSnapshot).Methods("GET")
	s.router.HandleFunc("/receiver/pending", s.handlePending).Methods("GET")
	s.router.HandleFunc("/receiver/positions", s.handlePositions).Methods("GET")
	s.router.HandleFunc("/receiver/positions_all", s.handlePositionsAll).Methods("GET")
	s.router.HandleFunc("/receiver/trade_exec", s.handleExecLog).Methods("GET")
	s.router.HandleFunc("/receiver/delete_trigger", s.handleDeleteTrigger).Methods("POST")
	s.router.HandleFunc("/api/push_signal", s.handlePushSignal).Methods("POST")
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if mode == "old" {
		writeJSON(w, map[string]any{
			"old": map[string]any{"data": s.state.old},
			"ts":  nowSec(),
		})
		return
	}

	rows := make([]store.Opportunity, 0, len(s.state.live))
	for _, o := range s.state.live {
		rows = append(rows, *o)
	}
	writeJSON(w, map[string]any{
		"live": map[string]any{"data": rows},
		"ts":   nowSec(),
	})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	writeJSON(w, s.state.pending)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	writeJSON(w, s.state.positions)
}

func (s *Server) handlePositionsAll(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	var all []store.Position
	for _, list := range s.state.positions {
		all = append(all, list...)
	}
	writeJSON(w, map[string]any{"data": all})
}

func (s *Server) handleExecLog(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	writeJSON(w, s.state.execLog)
}

func (s *Server) handlePushSignal(w http.ResponseWriter, r *http.Request) {
	var req store.SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res := s.state.acceptSignal(req)
	slog.Info("signal_received", "id", req.ID, "action", req.Action, "broker", req.Broker, "ok", res.OK)
	writeJSON(w, res)
}

func (s *Server) handleDeleteTrigger(w http.ResponseWriter, r *http.Request) {
	var req store.DeleteTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.state.deleteTrigger(req)
	writeJSON(w, map[string]any{"ok": true})
}

// requestIDMiddleware stamps each request with a unique id for tracing.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode_failed", "error", err)
	}
}

func nowSec() float64 {
	return float64(time.Now().UnixMilli()) / 1000
}

func pointValue(digits int) float64 {
	if digits <= 0 {
		return 1
	}
	v := 1.0
	for i := 0; i < digits; i++ {
		v /= 10
	}
	return v
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func main() {
	addr := os.Getenv("MOCK_ADDR")
	if addr == "" {
		addr = "127.0.0.1:5000"
	}

	st := newState()
	srv := NewServer(addr, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Flicker loop
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.tick()
			}
		}
	}()

	go func() {
		slog.Info("mock_receiver_started", "addr", addr)
		if err := srv.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server_failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("shutdown_signal_received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown_failed", "error", err)
	}
	slog.Info("shutdown_complete")
}
