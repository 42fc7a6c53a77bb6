package tz

import (
	"testing"
	"time"
)

func TestNewClockRejectsUnknownZone(t *testing.T) {
	if _, err := NewClock("Mars/Phobos"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestWallToInstantUsesOffsetAtThatInstant(t *testing.T) {
	clock, err := NewClock("America/New_York")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}

	// Day before the 2025 spring-forward (EST, UTC-5).
	beforeDST := clock.WallToInstant(2025, time.March, 8, 10, 0)
	if got := beforeDST.Format(time.RFC3339); got != "2025-03-08T15:00:00Z" {
		t.Fatalf("EST morning slot = %s", got)
	}

	// Day after the transition (EDT, UTC-4). Same wall time, different instant.
	afterDST := clock.WallToInstant(2025, time.March, 9, 10, 0)
	if got := afterDST.Format(time.RFC3339); got != "2025-03-09T14:00:00Z" {
		t.Fatalf("EDT morning slot = %s", got)
	}
}

func TestInstantToWallRoundTrip(t *testing.T) {
	clock, err := NewClock("Europe/Berlin")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}

	cases := []struct {
		year         int
		month        time.Month
		day, hh, mm  int
	}{
		{2025, time.January, 15, 9, 30},
		{2025, time.March, 30, 10, 0},  // day of the EU spring-forward
		{2025, time.October, 26, 16, 45}, // day of the EU fall-back
		{2025, time.July, 1, 23, 59},
	}
	for _, tc := range cases {
		instant := clock.WallToInstant(tc.year, tc.month, tc.day, tc.hh, tc.mm)
		y, m, d, hh, mm := clock.InstantToWall(instant)
		if y != tc.year || m != tc.month || d != tc.day || hh != tc.hh || mm != tc.mm {
			t.Fatalf("round trip %v-%v-%v %02d:%02d came back as %v-%v-%v %02d:%02d",
				tc.year, tc.month, tc.day, tc.hh, tc.mm, y, m, d, hh, mm)
		}
	}
}

func TestWeekdayOfUsesConfiguredZone(t *testing.T) {
	clock, err := NewClock("Pacific/Auckland")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	// 23:00 UTC on a Friday is already Saturday in Auckland.
	instant := time.Date(2025, time.June, 13, 23, 0, 0, 0, time.UTC)
	if got := clock.WeekdayOf(instant); got != time.Saturday {
		t.Fatalf("weekday in Auckland = %v, want Saturday", got)
	}
}

func TestNextDayCrossesDSTBoundary(t *testing.T) {
	clock, err := NewClock("America/New_York")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	y, m, d := clock.NextDay(2025, time.March, 8)
	if y != 2025 || m != time.March || d != 9 {
		t.Fatalf("next day after Mar 8 = %v-%v-%v", y, m, d)
	}
	y, m, d = clock.NextDay(2025, time.March, 9) // the 23-hour day
	if y != 2025 || m != time.March || d != 10 {
		t.Fatalf("next day after Mar 9 = %v-%v-%v", y, m, d)
	}
}

func TestLabelIsZoneLocal(t *testing.T) {
	clock, err := NewClock("America/Chicago")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	instant := time.Date(2025, time.May, 5, 15, 0, 0, 0, time.UTC) // 10:00 CDT
	if got := clock.Label(instant); got != "Monday, May 5 at 10:00 AM" {
		t.Fatalf("label = %q", got)
	}
	if got := clock.TimeLabel(instant); got != "10:00 AM" {
		t.Fatalf("time label = %q", got)
	}
}

func TestWithNowLeavesReceiverUntouched(t *testing.T) {
	clock, err := NewClock("America/New_York")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	pinned := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

	frozen := clock.WithNow(func() time.Time { return pinned })
	if !frozen.Now().Equal(pinned) {
		t.Fatalf("frozen now = %v", frozen.Now())
	}
	if clock.Now().Equal(pinned) {
		t.Fatal("WithNow must return a copy, not mutate the original clock")
	}
	if frozen.Location() != clock.Location() {
		t.Fatal("the copy keeps the original zone")
	}
}
