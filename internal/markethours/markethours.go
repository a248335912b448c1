// Package markethours decides when the dollar market is being watched and
// emits the once-per-day open and close events.
package markethours

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Default window, Buenos Aires local time.
const (
	DefaultOpenHour  = 10
	DefaultCloseHour = 17
	DefaultTimezone  = "America/Argentina/Buenos_Aires"
)

// Window is the daily monitoring window [OpenHour, CloseHour) in Location.
type Window struct {
	OpenHour     int
	CloseHour    int
	Location     *time.Location
	WeekdaysOnly bool
	Holidays     Holidays
}

// NewWindow validates the hours and returns a window. A nil location means UTC.
func NewWindow(openHour, closeHour int, loc *time.Location) (Window, error) {
	if openHour < 0 || openHour > 23 || closeHour < 0 || closeHour > 23 {
		return Window{}, fmt.Errorf("markethours: hours must be in 0..23, got %d and %d", openHour, closeHour)
	}
	if openHour >= closeHour {
		return Window{}, fmt.Errorf("markethours: open hour %d must be before close hour %d", openHour, closeHour)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Window{OpenHour: openHour, CloseHour: closeHour, Location: loc}, nil
}

func (w Window) loc() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// Local converts t to the market location.
func (w Window) Local(t time.Time) time.Time { return t.In(w.loc()) }

// DateKey is the market-local calendar date of t.
func (w Window) DateKey(t time.Time) string { return w.Local(t).Format(dateLayout) }

// IsTradingDay returns true unless t falls on a configured holiday or, when
// WeekdaysOnly is set, on a weekend.
func (w Window) IsTradingDay(t time.Time) bool {
	local := w.Local(t)
	if w.WeekdaysOnly {
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	return !w.Holidays.Contains(local)
}

// InWindow returns true if t falls inside [OpenHour, CloseHour) on a trading day.
func (w Window) InWindow(t time.Time) bool {
	local := w.Local(t)
	if !w.IsTradingDay(local) {
		return false
	}
	h := local.Hour()
	return h >= w.OpenHour && h < w.CloseHour
}

// NextOpen returns the next window opening strictly after t.
func (w Window) NextOpen(t time.Time) time.Time {
	local := w.Local(t)
	d := time.Date(local.Year(), local.Month(), local.Day(), w.OpenHour, 0, 0, 0, w.loc())
	if !d.After(local) {
		d = d.AddDate(0, 0, 1)
	}
	for i := 0; i < 15; i++ { // weekends plus long holiday runs
		if w.IsTradingDay(d) {
			return d
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// TodayClose returns the close of the window on t's market-local date.
func (w Window) TodayClose(t time.Time) time.Time {
	local := w.Local(t)
	return time.Date(local.Year(), local.Month(), local.Day(), w.CloseHour, 0, 0, 0, w.loc())
}

// NextDaily returns the next hour:minute in the market location strictly
// after t. Used for the daily summary and reset triggers.
func (w Window) NextDaily(t time.Time, hour, minute int) time.Time {
	local := w.Local(t)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, w.loc())
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// StatusString returns a human-readable market status.
func (w Window) StatusString(t time.Time) string {
	if w.InWindow(t) {
		return fmt.Sprintf("Market open, closes in %s", fmtDur(w.TodayClose(t).Sub(t)))
	}
	next := w.NextOpen(t)
	return fmt.Sprintf("Market closed, opens %s %s (%s)",
		next.Weekday().String()[:3], next.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
