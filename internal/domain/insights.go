package domain

import "fmt"

// HourlyMean is the mean of a value over all rows sharing an hour of day.
type HourlyMean struct {
	Hour int
	Mean float64
}

// MeanSalesByHour averages the sales column per hour of day over rows that
// fall inside the open window, returning one entry per open hour in ascending
// hour order. Hours with no rows are omitted.
func MeanSalesByHour(f *Frame, window OpenWindow) ([]HourlyMean, error) {
	sales, ok := f.Column(ColSales)
	if !ok {
		return nil, fmt.Errorf("mean sales by hour: missing required column %q", ColSales)
	}

	var sums, counts [24]float64
	for i, ts := range f.Timestamps() {
		h := ts.UTC().Hour()
		if !window.openHour(h) {
			continue
		}
		sums[h] += sales[i]
		counts[h]++
	}

	out := make([]HourlyMean, 0, 24)
	for h := range 24 {
		if counts[h] > 0 {
			out = append(out, HourlyMean{Hour: h, Mean: sums[h] / counts[h]})
		}
	}
	return out, nil
}
