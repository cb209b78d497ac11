package domain

import (
	"fmt"
	"slices"
	"time"
)

// Column names shared between the generator, the flat fact tables, and the
// catalog configuration files.
const (
	ColTimestamp     = "timestamp"
	ColLocationID    = "location_id"
	ColPersonID      = "person_id"
	ColProductID     = "product_id"
	ColSales         = "sales"
	ColTemperature   = "temperature"
	ColRainAmount    = "rain_amount"
	ColWeatherIndex  = "weather_index"
	ColDaytimeEffect = "daytime_effect"
)

// Frame is a timestamp-indexed table of named float64 columns. It is the
// in-memory shape of an hourly observation series as it moves through the
// generation pipeline, which appends derived columns (weather index, daytime
// effect, sales) alongside the raw ones.
type Frame struct {
	timestamps []time.Time
	names      []string
	columns    map[string][]float64
}

// NewFrame creates a frame over the given row timestamps with no columns.
func NewFrame(timestamps []time.Time) *Frame {
	return &Frame{
		timestamps: slices.Clone(timestamps),
		columns:    make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.timestamps)
}

// Timestamps returns the row timestamps. The slice is shared; callers must
// not mutate it.
func (f *Frame) Timestamps() []time.Time {
	return f.timestamps
}

// ColumnNames returns the column names in insertion order.
func (f *Frame) ColumnNames() []string {
	return slices.Clone(f.names)
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Column returns the named column's values, or false if absent. The slice is
// shared; callers must not mutate it.
func (f *Frame) Column(name string) ([]float64, bool) {
	vals, ok := f.columns[name]
	return vals, ok
}

// AddColumn appends a new column. Adding a column that already exists or whose
// length does not match the row count is an error.
func (f *Frame) AddColumn(name string, values []float64) error {
	if _, ok := f.columns[name]; ok {
		return fmt.Errorf("add column: column %q already exists", name)
	}
	if len(values) != len(f.timestamps) {
		return fmt.Errorf("add column: column %q has %d values, frame has %d rows", name, len(values), len(f.timestamps))
	}
	f.names = append(f.names, name)
	f.columns[name] = slices.Clone(values)
	return nil
}

// RenameColumn renames a column in place, keeping its position.
func (f *Frame) RenameColumn(from, to string) error {
	vals, ok := f.columns[from]
	if !ok {
		return fmt.Errorf("rename column: column %q not found", from)
	}
	if _, ok := f.columns[to]; ok {
		return fmt.Errorf("rename column: column %q already exists", to)
	}
	delete(f.columns, from)
	f.columns[to] = vals
	for i, n := range f.names {
		if n == from {
			f.names[i] = to
		}
	}
	return nil
}

// Select returns a new frame containing only the rows for which keep returns
// true. Column order is preserved.
func (f *Frame) Select(keep func(i int) bool) *Frame {
	out := &Frame{columns: make(map[string][]float64, len(f.names))}
	var rows []int
	for i := range f.timestamps {
		if keep(i) {
			rows = append(rows, i)
			out.timestamps = append(out.timestamps, f.timestamps[i])
		}
	}
	out.names = slices.Clone(f.names)
	for _, name := range f.names {
		src := f.columns[name]
		vals := make([]float64, 0, len(rows))
		for _, i := range rows {
			vals = append(vals, src[i])
		}
		out.columns[name] = vals
	}
	return out
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	out := &Frame{
		timestamps: slices.Clone(f.timestamps),
		names:      slices.Clone(f.names),
		columns:    make(map[string][]float64, len(f.names)),
	}
	for name, vals := range f.columns {
		out.columns[name] = slices.Clone(vals)
	}
	return out
}
