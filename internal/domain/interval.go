package domain

import (
	"errors"
	"fmt"
	"time"
)

// MaxFetchSpan is the longest interval the FMI open data API serves in a
// single stored query (440 hours).
const MaxFetchSpan = 440 * time.Hour

// ErrInvalidInterval is returned when an interval's end does not lie strictly
// after its start.
var ErrInvalidInterval = errors.New("interval end must be after start")

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval validates and constructs a half-open interval.
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, fmt.Errorf("%w: start=%s end=%s", ErrInvalidInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns End − Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Split partitions the interval into contiguous, non-overlapping sub-intervals
// of at most maxSpan each. The sub-intervals cover [Start, End) exactly; the
// final one absorbs the remainder and may be shorter. A span that already fits
// within maxSpan yields the interval itself.
func (iv Interval) Split(maxSpan time.Duration) ([]Interval, error) {
	if !iv.End.After(iv.Start) {
		return nil, fmt.Errorf("%w: start=%s end=%s", ErrInvalidInterval, iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
	}
	if maxSpan <= 0 {
		return nil, fmt.Errorf("split interval: max span must be positive, got %s", maxSpan)
	}

	var parts []Interval
	cur := iv.Start
	for cur.Before(iv.End) {
		next := cur.Add(maxSpan)
		if next.After(iv.End) {
			next = iv.End
		}
		parts = append(parts, Interval{Start: cur, End: next})
		cur = next
	}
	return parts, nil
}

// HourlyTimestamps returns the hourly instants covered by the interval,
// start-inclusive and end-exclusive.
func (iv Interval) HourlyTimestamps() []time.Time {
	var out []time.Time
	for t := iv.Start; t.Before(iv.End); t = t.Add(time.Hour) {
		out = append(out, t)
	}
	return out
}

// String implements fmt.Stringer for log output.
func (iv Interval) String() string {
	return iv.Start.Format(time.RFC3339) + "/" + iv.End.Format(time.RFC3339)
}
