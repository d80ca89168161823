package notify

import (
	"testing"
	"time"
)

func clock(hh, mm int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, 6, 1, hh, mm, 0, 0, time.UTC)
	}
}

func TestQuietWindowSameDay(t *testing.T) {
	p := NewPolicy("09:00", "17:30", 0)

	cases := []struct {
		hh, mm int
		quiet  bool
	}{
		{8, 59, false},
		{9, 0, true},
		{12, 0, true},
		{17, 29, true},
		{17, 30, false},
		{23, 0, false},
	}
	for _, tc := range cases {
		p.now = clock(tc.hh, tc.mm)
		if got := p.WithinQuiet(); got != tc.quiet {
			t.Errorf("%02d:%02d: expected quiet=%v, got %v", tc.hh, tc.mm, tc.quiet, got)
		}
	}
}

func TestQuietWindowOvernightWrap(t *testing.T) {
	p := NewPolicy("23:00", "05:00", 0)

	cases := []struct {
		hh, mm int
		quiet  bool
	}{
		{22, 59, false},
		{23, 0, true},
		{23, 30, true},
		{0, 0, true},
		{4, 59, true},
		{5, 0, false},
		{12, 0, false},
	}
	for _, tc := range cases {
		p.now = clock(tc.hh, tc.mm)
		if got := p.WithinQuiet(); got != tc.quiet {
			t.Errorf("%02d:%02d: expected quiet=%v, got %v", tc.hh, tc.mm, tc.quiet, got)
		}
	}
}

func TestQuietWindowDisabledOnBadInput(t *testing.T) {
	for _, pair := range [][2]string{{"", ""}, {"9am", "5pm"}, {"25:00", "26:00"}, {"12:00", "12:00"}} {
		p := NewPolicy(pair[0], pair[1], 0)
		p.now = clock(12, 0)
		if p.WithinQuiet() {
			t.Errorf("window %q-%q should be disabled", pair[0], pair[1])
		}
	}
}

func TestRowMuteWithExpiry(t *testing.T) {
	p := NewPolicy("", "", 0)

	t0 := time.Now()
	p.now = func() time.Time { return t0 }
	p.MuteRow("IC-Live|FP-Demo|EURUSD", time.Minute)

	if !p.RowMuted("IC-Live|FP-Demo|EURUSD") {
		t.Fatal("expected row muted")
	}

	p.now = func() time.Time { return t0.Add(2 * time.Minute) }
	if p.RowMuted("IC-Live|FP-Demo|EURUSD") {
		t.Error("expected mute expired")
	}

	p.Sweep()
	p.now = func() time.Time { return t0 }
	if p.RowMuted("IC-Live|FP-Demo|EURUSD") {
		t.Error("expected sweep to drop the expired mute")
	}
}

func TestRowMuteIndefinite(t *testing.T) {
	p := NewPolicy("", "", 0)

	t0 := time.Now()
	p.now = func() time.Time { return t0 }
	p.MuteRow("IC-Live|FP-Demo|EURUSD", 0)

	p.now = func() time.Time { return t0.Add(24 * time.Hour) }
	p.Sweep()
	if !p.RowMuted("IC-Live|FP-Demo|EURUSD") {
		t.Error("indefinite mute should survive until unmuted")
	}

	p.UnmuteRow("IC-Live|FP-Demo|EURUSD")
	if p.RowMuted("IC-Live|FP-Demo|EURUSD") {
		t.Error("expected mute lifted")
	}
}

func TestHideWithTTL(t *testing.T) {
	p := NewPolicy("", "", time.Minute)

	t0 := time.Now()
	p.now = func() time.Time { return t0 }
	p.Hide("IC-Live|FP-Demo|EURUSD")

	if !p.Hidden("IC-Live|FP-Demo|EURUSD") {
		t.Fatal("expected row hidden")
	}
	if got := p.HiddenCount(); got != 1 {
		t.Errorf("expected 1 hidden, got %d", got)
	}

	p.now = func() time.Time { return t0.Add(2 * time.Minute) }
	if p.Hidden("IC-Live|FP-Demo|EURUSD") {
		t.Error("expected hide to lapse after TTL")
	}
	if got := p.HiddenCount(); got != 0 {
		t.Errorf("expected 0 hidden, got %d", got)
	}
}

func TestHideWithoutTTLPersists(t *testing.T) {
	p := NewPolicy("", "", 0)

	t0 := time.Now()
	p.now = func() time.Time { return t0 }
	p.Hide("IC-Live|FP-Demo|EURUSD")

	p.now = func() time.Time { return t0.Add(24 * time.Hour) }
	p.Sweep()
	if !p.Hidden("IC-Live|FP-Demo|EURUSD") {
		t.Error("expected hide to persist without TTL")
	}

	p.UnhideAll()
	if p.Hidden("IC-Live|FP-Demo|EURUSD") {
		t.Error("expected UnhideAll to restore the row")
	}
}
