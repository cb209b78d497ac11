package domain

import "time"

// OpenWindow describes when a location trades. Hours are a half-open window
// that may wrap past midnight (e.g. 20 → 4 means 20:00–04:00). Days are an
// inclusive weekday range, Monday-indexed (0=Monday .. 6=Sunday).
type OpenWindow struct {
	HoursStart int
	HoursEnd   int
	DaysStart  int
	DaysEnd    int
}

// Default open window: 08–20, Monday through Saturday.
const (
	DefaultOpenHoursStart = 8
	DefaultOpenHoursEnd   = 20
	DefaultOpenDaysStart  = 0
	DefaultOpenDaysEnd    = 5
)

// mondayWeekday converts Go's Sunday-indexed weekday to Monday-indexed.
func mondayWeekday(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// openHour reports whether hour h lies inside the window, handling overnight
// wrap: when start ≥ end the open set is [start,24) ∪ [0,end).
func (w OpenWindow) openHour(h int) bool {
	if w.HoursStart < w.HoursEnd {
		return h >= w.HoursStart && h < w.HoursEnd
	}
	return h >= w.HoursStart || h < w.HoursEnd
}

// openDay reports whether Monday-indexed weekday d lies inside the inclusive
// open-days range.
func (w OpenWindow) openDay(d int) bool {
	return d >= w.DaysStart && d <= w.DaysEnd
}

// PruneClosed returns a new frame holding only rows whose timestamp falls on
// an open weekday and open hour.
func PruneClosed(f *Frame, window OpenWindow) *Frame {
	timestamps := f.Timestamps()
	return f.Select(func(i int) bool {
		ts := timestamps[i].UTC()
		return window.openDay(mondayWeekday(ts.Weekday())) && window.openHour(ts.Hour())
	})
}
