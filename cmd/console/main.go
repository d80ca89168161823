// Package main is the entry point for the receiver operator console.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arbdesk/console/internal/config"
	"github.com/arbdesk/console/internal/engine"
	"github.com/arbdesk/console/internal/feed"
	"github.com/arbdesk/console/internal/ui"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("console starting", "version", "1.0.0")

	slog.Info("config_loaded",
		"receiver_url", cfg.ReceiverBaseURL,
		"live_poll", cfg.LivePollInterval,
		"old_poll", cfg.OldPollInterval,
		"exec_poll", cfg.ExecPollInterval,
		"live_max_age", cfg.LiveMaxAge,
		"pending_timeout", cfg.PendingTimeout,
		"trade_volume", cfg.DefaultTradeVolume,
		"enable_tui", cfg.EnableTUI,
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	client := feed.NewClient(cfg.ReceiverBaseURL, cfg.HTTPTimeout, cfg.LiveMaxAge)
	eng := engine.New(cfg, client)

	// Periodic sweeps: toast expiry, policy TTLs, pending timeouts
	go eng.RunSweeps(ctx)

	// Poll loops. The live cadence is shared with the engine so the
	// operator can adjust or pause it at runtime.
	loops := []*feed.Loop{
		feed.NewLoop("live", eng.LiveInterval(), func(ctx context.Context) error {
			snap, err := client.FetchLive(ctx)
			if err != nil {
				eng.PollFailed("live")
				return err
			}
			eng.OnLiveSnapshot(snap)
			return nil
		}),
		feed.NewLoop("old", feed.NewInterval(cfg.OldPollInterval), func(ctx context.Context) error {
			snap, err := client.FetchOld(ctx)
			if err != nil {
				eng.PollFailed("old")
				return err
			}
			eng.OnOldSnapshot(snap)
			return nil
		}),
		feed.NewLoop("exec", feed.NewInterval(cfg.ExecPollInterval), func(ctx context.Context) error {
			records, err := client.FetchExecLog(ctx)
			if err != nil {
				eng.PollFailed("exec")
				return err
			}
			eng.OnExecLog(records)
			return nil
		}),
		feed.NewLoop("pending", feed.NewInterval(cfg.PendingPollInterval), func(ctx context.Context) error {
			orders, err := client.FetchPendingOrders(ctx)
			if err != nil {
				eng.PollFailed("pending")
				return err
			}
			eng.OnPendingOrders(orders)
			return nil
		}),
		feed.NewLoop("positions", feed.NewInterval(cfg.PositionsPollInterval), func(ctx context.Context) error {
			byBroker, all, err := client.FetchPositions(ctx)
			if err != nil {
				eng.PollFailed("positions")
				return err
			}
			eng.OnPositions(byBroker, all)
			return nil
		}),
	}
	for _, loop := range loops {
		go loop.Start(ctx)
	}

	slog.Info("console_started",
		"poll_loops", len(loops),
		"tui_enabled", cfg.EnableTUI,
	)

	if cfg.EnableTUI {
		slog.Info("starting_tui")
		app := ui.NewApp(cfg, eng)

		// Run the TUI on its own goroutine so signals still shut us down
		go func() {
			if err := app.Run(); err != nil {
				slog.Error("tui_error", "error", err)
				cancel()
			}
		}()

		select {
		case sig := <-sigChan:
			slog.Info("shutdown_signal_received", "signal", sig.String())
			app.Stop()
		case <-app.Done():
		case <-ctx.Done():
			app.Stop()
		}
	} else {
		sig := <-sigChan
		slog.Info("shutdown_signal_received", "signal", sig.String())
	}

	cancel()
	slog.Info("shutdown_complete")
}

// setupLogger creates a structured logger with the specified level.
// Format: 2025-01-04 14:32:01 [INFO]  message key=value
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("2006-01-02 15:04:05"))
				}
			}
			return a
		},
	}

	// Logs go to stderr; the dashboard owns stdout
	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler)
}
