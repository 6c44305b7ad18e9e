// Package sessions resolves trading sessions and market-hours in the
// America/New_York time zone — the one IANA zone every session window and
// market-hours check in the spec is anchored to, because naive UTC offset
// math shifts NY sessions by an hour across DST transitions.
package sessions

import (
	"time"
)

// Window is a named session mapped to an hour range in NY time, matching
// §4.8's london/newyork/asian windows.
type Window struct {
	Name      string
	StartHour int
	EndHour   int
}

// DefaultWindows are the spec's fixed session hour ranges in NY time.
// newyork is listed before london so the 13:00–16:00 overlap resolves to
// newyork under first-match lookup.
func DefaultWindows() []Window {
	return []Window{
		{Name: "newyork", StartHour: 13, EndHour: 21},
		{Name: "london", StartHour: 8, EndHour: 16},
		{Name: "asian", StartHour: 0, EndHour: 8},
	}
}

// Clock resolves the current trading session and whether the market is
// open, in America/New_York time. It satisfies signalpipeline.SessionResolver
// and is shared by the execution filter (C9) for its own session-window gate.
type Clock struct {
	loc     *time.Location
	windows []Window
	now     func() time.Time
}

// New constructs a Clock. A nil windows slice uses DefaultWindows.
func New(windows []Window) (*Clock, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, err
	}
	if windows == nil {
		windows = DefaultWindows()
	}
	return &Clock{loc: loc, windows: windows, now: time.Now}, nil
}

// CurrentSession returns the name of the first matching window for the
// current NY hour, or "" if none match (e.g. the dead zone between 21:00
// and 00:00 NY).
func (c *Clock) CurrentSession() string {
	return c.SessionAt(c.now())
}

// SessionAt returns the session name active at t, evaluated in NY time.
func (c *Clock) SessionAt(t time.Time) string {
	hour := t.In(c.loc).Hour()
	for _, w := range c.windows {
		if hourInRange(hour, w.StartHour, w.EndHour) {
			return w.Name
		}
	}
	return ""
}

func hourInRange(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour < end
	}
	// overnight window wrapping past midnight
	return hour >= start || hour < end
}

// IsMarketOpen reports whether the market is open right now: not a weekend,
// and not in the Friday-evening/Sunday-evening close window used by FX/CFD
// brokers (Friday 17:00 NY through Sunday 17:00 NY).
func (c *Clock) IsMarketOpen() bool {
	return c.MarketOpenAt(c.now())
}

// MarketOpenAt reports whether the market is open at t, evaluated in NY time.
func (c *Clock) MarketOpenAt(t time.Time) bool {
	ny := t.In(c.loc)
	switch ny.Weekday() {
	case time.Saturday:
		return false
	case time.Sunday:
		return ny.Hour() >= 17
	case time.Friday:
		return ny.Hour() < 17
	default:
		return true
	}
}
