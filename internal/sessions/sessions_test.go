package sessions

import (
	"testing"
	"time"
)

func mustClock(t *testing.T) *Clock {
	t.Helper()
	c, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func ny(t *testing.T, layout, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	parsed, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		t.Fatalf("ParseInLocation: %v", err)
	}
	return parsed
}

func TestSessionAt(t *testing.T) {
	c := mustClock(t)
	cases := []struct {
		name string
		time string
		want string
	}{
		{"london morning", "2026-03-05 09:00", "london"},
		{"new york afternoon", "2026-03-05 14:00", "newyork"},
		{"asian session", "2026-03-05 03:00", "asian"},
		{"dead zone", "2026-03-05 22:00", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.SessionAt(ny(t, "2006-01-02 15:04", tc.time))
			if got != tc.want {
				t.Fatalf("expected session %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMarketOpenAt(t *testing.T) {
	c := mustClock(t)
	cases := []struct {
		name string
		time string
		want bool
	}{
		{"tuesday", "2026-03-03 12:00", true},
		{"saturday", "2026-03-07 12:00", false},
		{"friday evening closed", "2026-03-06 18:00", false},
		{"friday afternoon open", "2026-03-06 12:00", true},
		{"sunday before reopen", "2026-03-08 16:00", false},
		{"sunday after reopen", "2026-03-08 18:00", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.MarketOpenAt(ny(t, "2006-01-02 15:04", tc.time))
			if got != tc.want {
				t.Fatalf("expected market open=%v, got %v", tc.want, got)
			}
		})
	}
}
