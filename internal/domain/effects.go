package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Default daytime effect and capacity constants.
const (
	DefaultDaytimeMeanHour = 14.0
	DefaultDaytimeStdDev   = 3.0
	DefaultSalesMax        = 200.0

	dayNoiseSigma   = 0.15 // day-to-day amplitude variability
	pointNoiseSigma = 0.05 // small per-row jitter
	smoothingWindow = 3
)

// ensureSource returns src, or a PCG freshly seeded from the global generator
// when src is nil. The nil path is the out-of-box convenience: data is
// non-reproducible unless the caller injects a seeded source.
func ensureSource(src rand.Source) rand.Source {
	if src == nil {
		return rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return src
}

// AddDaytimeEffect appends the daytime_effect column: a Gaussian bump over the
// hour of day, exp(-(h-mean)²/(2·sd²)), in [0,1]. With injectNoise the curve
// is multiplied by one log-normal draw per calendar day and one per row, then
// smoothed with a centered 3-row moving average (edge rows use fewer
// neighbors) and clamped back to [0,1].
func AddDaytimeEffect(f *Frame, meanHour, stdDev float64, injectNoise bool, src rand.Source) error {
	if stdDev <= 0 {
		return fmt.Errorf("daytime effect: standard deviation must be positive, got %v", stdDev)
	}

	timestamps := f.Timestamps()
	effect := make([]float64, len(timestamps))
	for i, ts := range timestamps {
		h := float64(ts.UTC().Hour())
		effect[i] = math.Exp(-((h - meanHour) * (h - meanHour)) / (2 * stdDev * stdDev))
	}

	if !injectNoise {
		return f.AddColumn(ColDaytimeEffect, effect)
	}

	src = ensureSource(src)
	dayNoise := distuv.LogNormal{Mu: 0, Sigma: dayNoiseSigma, Src: src}
	pointNoise := distuv.LogNormal{Mu: 0, Sigma: pointNoiseSigma, Src: src}

	// One draw per calendar day, shared by all of that day's rows.
	dayScale := make(map[time.Time]float64)
	for i, ts := range timestamps {
		day := ts.UTC().Truncate(24 * time.Hour)
		scale, ok := dayScale[day]
		if !ok {
			scale = dayNoise.Rand()
			dayScale[day] = scale
		}
		effect[i] *= scale * pointNoise.Rand()
	}

	smoothed := movingAverage(effect, smoothingWindow)
	for i, v := range smoothed {
		smoothed[i] = math.Min(math.Max(v, 0), 1)
	}
	return f.AddColumn(ColDaytimeEffect, smoothed)
}

// movingAverage computes a centered moving average; rows near the edges
// average over however many neighbors exist.
func movingAverage(values []float64, window int) []float64 {
	half := window / 2
	out := make([]float64, len(values))
	for i := range values {
		lo := max(i-half, 0)
		hi := min(i+half, len(values)-1)
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// AddTotalSales appends the sales column: ceil(baseDraw · weatherIndex ·
// daytimeEffect) per row. In deterministic mode baseDraw is salesMax for every
// row; with injectNoise it is a Poisson draw with mean salesMax, simulating a
// thinned non-homogeneous Poisson process. Requires the weather_index and
// daytime_effect columns.
func AddTotalSales(f *Frame, salesMax float64, injectNoise bool, src rand.Source) error {
	if salesMax <= 0 {
		return fmt.Errorf("total sales: sales max must be positive, got %v", salesMax)
	}
	index, ok := f.Column(ColWeatherIndex)
	if !ok {
		return fmt.Errorf("total sales: missing required column %q", ColWeatherIndex)
	}
	effect, ok := f.Column(ColDaytimeEffect)
	if !ok {
		return fmt.Errorf("total sales: missing required column %q", ColDaytimeEffect)
	}

	base := make([]float64, f.Len())
	if injectNoise {
		poisson := distuv.Poisson{Lambda: salesMax, Src: ensureSource(src)}
		for i := range base {
			base[i] = poisson.Rand()
		}
	} else {
		for i := range base {
			base[i] = salesMax
		}
	}

	sales := make([]float64, f.Len())
	for i := range sales {
		sales[i] = math.Ceil(base[i] * index[i] * effect[i])
	}
	return f.AddColumn(ColSales, sales)
}
