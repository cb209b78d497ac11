// Package domain models weather-correlated synthetic retail sales generation.
//
// # Generative model
//
// Hourly sales for one retail location are simulated in layers, each layer
// contributing a multiplicative factor in [0,1]:
//
//	Weather index:
//	  index = clamp(100 − |temp − optimal|/tolerance·50 − rain/threshold·50, 0, 100) / 100
//	  A pleasantness score derived from hourly temperature and accumulated
//	  rain observations. 1.0 is ideal weather for being out shopping.
//
//	Daytime effect:
//	  base(h) = exp(-(h − mean)² / (2·sd²))
//	  A Gaussian bump over the hour of day (default mean 14:00, sd 3h).
//	  With noise injection enabled the curve is multiplied by one log-normal
//	  draw per calendar day (day-to-day variability, σ=0.15) and one per row
//	  (point jitter, σ=0.05), smoothed with a centered 3-row moving average,
//	  then clamped back to [0,1].
//
//	Total sales:
//	  ceil(baseDraw · weatherIndex · daytimeEffect)
//	  where baseDraw is the location's hourly sales capacity, either constant
//	  (deterministic mode) or a Poisson draw with that mean (noisy mode).
//	  This simulates a non-homogeneous Poisson process by thinning a
//	  homogeneous one.
//
// Hourly totals are then split across salespeople proportional to
// performance weight among those available (working-hours window), with
// per-person ceiling rounding, and each person's share is spread over the
// location's product assortment either perfectly uniformly (random remainder
// placement) or by uniform random assignment per sale.
//
// # Rounding slack
//
// Because person-level allocation ceils each share independently, the summed
// assignments for an hour can exceed the nominal total by up to one unit per
// additional positive share. This slack is an accepted property of the
// generator, not a bug; downstream totals are "at least" the nominal figure.
//
// # Randomness
//
// All stochastic components accept a math/rand/v2 Source. Passing nil seeds a
// fresh PCG from the global generator, so out of the box the data is
// non-reproducible; inject a seeded source for deterministic runs.
//
// # Weather data conventions
//
// Observations come from the FMI open data WFS API (hourly stored queries).
// External parameter codes map to internal column names through a
// ParameterMapping, e.g. TA_PT1H_AVG → temperature, PRA_PT1H_ACC →
// rain_amount. Observation rows missing any required parameter are dropped
// before modeling. The FMI API caps a single query at 440 hours; longer
// intervals are split with Interval.Split.
package domain
