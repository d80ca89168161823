package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoopRunsAndStopsOnCancel(t *testing.T) {
	var runs atomic.Int64
	loop := NewLoop("test", NewInterval(10*time.Millisecond), func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Start(ctx)
		close(done)
	}()

	time.Sleep(80 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}

	if runs.Load() < 2 {
		t.Errorf("expected at least 2 runs, got %d", runs.Load())
	}
}

func TestLoopKeepsGoingAfterFailures(t *testing.T) {
	var runs atomic.Int64
	loop := NewLoop("test", NewInterval(5*time.Millisecond), func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("transient")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Start(ctx)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	if runs.Load() < 2 {
		t.Errorf("expected loop to reschedule after failures, got %d runs", runs.Load())
	}
}

func TestPausedLoopDoesNotRun(t *testing.T) {
	var runs atomic.Int64
	loop := NewLoop("test", NewInterval(0), func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("paused loop did not stop after cancel")
	}

	if runs.Load() != 0 {
		t.Errorf("expected no runs while paused, got %d", runs.Load())
	}
}

func TestIntervalClampsNegative(t *testing.T) {
	iv := NewInterval(-5 * time.Second)
	if iv.Get() != 0 {
		t.Errorf("expected negative interval to clamp to 0, got %v", iv.Get())
	}

	iv.Set(2 * time.Second)
	if iv.Get() != 2*time.Second {
		t.Errorf("expected 2s, got %v", iv.Get())
	}

	iv.Set(-1)
	if iv.Get() != 0 {
		t.Errorf("expected Set(-1) to pause, got %v", iv.Get())
	}
}
