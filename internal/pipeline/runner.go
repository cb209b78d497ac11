package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/sales-synth-service/internal/domain"
	"github.com/couchcryptid/sales-synth-service/internal/observability"
)

// TableStore persists flat tables.
type TableStore interface {
	WriteTable(ctx context.Context, table domain.Table, mode domain.WriteMode) error
}

// RecordPublisher streams flat records to downstream consumers.
type RecordPublisher interface {
	PublishSales(ctx context.Context, records []domain.SalesRecord) error
	PublishWeather(ctx context.Context, weather domain.WeatherTable) error
}

// FleetBuilder assembles a fresh fleet for one generation interval. A new
// fleet per run keeps locale models one-shot: every run re-fetches weather
// and re-generates.
type FleetBuilder func(interval domain.Interval) (*Fleet, error)

// RunnerConfig parameterizes the generation loop.
type RunnerConfig struct {
	SalesTableName   string
	WeatherTableName string
	// Lookback is how far back from now each run generates.
	Lookback time.Duration
	// Interval is the wait between runs.
	Interval time.Duration
}

// Summary describes the most recent completed run.
type Summary struct {
	GeneratedAt    time.Time       `json:"generated_at"`
	Interval       domain.Interval `json:"-"`
	IntervalStart  time.Time       `json:"interval_start"`
	IntervalEnd    time.Time       `json:"interval_end"`
	Locations      int             `json:"locations"`
	SalesRecords   int             `json:"sales_records"`
	WeatherRecords int             `json:"weather_records"`
}

// Runner drives the periodic generate-flatten-persist cycle.
type Runner struct {
	build     FleetBuilder
	store     TableStore
	publisher RecordPublisher // nil when streaming is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics
	cfg       RunnerConfig

	ready atomic.Bool

	mu          sync.Mutex
	lastSummary *Summary
}

// NewRunner creates a Runner. The publisher may be nil.
func NewRunner(build FleetBuilder, store TableStore, publisher RecordPublisher, logger *slog.Logger, metrics *observability.Metrics, cfg RunnerConfig) *Runner {
	return &Runner{
		build:     build,
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// CheckReadiness returns nil once at least one generation run has completed.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no generation run has completed yet")
	}
	return nil
}

// LastSummary returns the most recent run summary, or nil before the first
// completed run.
func (r *Runner) LastSummary() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastSummary == nil {
		return nil
	}
	s := *r.lastSummary
	return &s
}

// Run executes generation runs until the context is cancelled: one
// immediately, then one per configured interval. A failed run is logged and
// the loop continues; persistent failures show up in metrics and readiness.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("generator started",
		"lookback", r.cfg.Lookback, "interval", r.cfg.Interval)
	r.metrics.GeneratorRunning.Set(1)
	defer r.metrics.GeneratorRunning.Set(0)

	for {
		if err := r.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("generation run failed", "error", err)
			r.metrics.GenerationRuns.WithLabelValues("error").Inc()
		}

		select {
		case <-ctx.Done():
			r.logger.Info("generator stopping", "reason", ctx.Err())
			return nil
		case <-clock.After(r.cfg.Interval):
		}
	}
}

// runOnce generates the lookback window, flattens, persists, and publishes.
func (r *Runner) runOnce(ctx context.Context) error {
	start := time.Now()

	end := clock.Now().UTC().Truncate(time.Hour)
	interval, err := domain.NewInterval(end.Add(-r.cfg.Lookback), end)
	if err != nil {
		return fmt.Errorf("generation interval: %w", err)
	}

	// The weather API caps a single query's span, so a long lookback runs as
	// several contiguous chunks.
	chunks, err := interval.Split(domain.MaxFetchSpan)
	if err != nil {
		return fmt.Errorf("split interval: %w", err)
	}

	var sales []domain.SalesRecord
	var weather domain.WeatherTable
	locations := 0

	for _, chunk := range chunks {
		fleet, err := r.build(chunk)
		if err != nil {
			return err
		}
		data, err := fleet.Generate(ctx)
		if err != nil {
			return err
		}

		chunkSales, chunkWeather, err := domain.Flatten(data.Locales)
		if err != nil {
			return fmt.Errorf("flatten: %w", err)
		}
		sales = append(sales, chunkSales...)
		if weather.Columns == nil {
			weather.Columns = chunkWeather.Columns
		} else if !slices.Equal(weather.Columns, chunkWeather.Columns) {
			return fmt.Errorf("flatten: chunk weather columns %v do not match %v", chunkWeather.Columns, weather.Columns)
		}
		weather.Records = append(weather.Records, chunkWeather.Records...)
		locations = len(data.Locales)
	}

	if err := r.store.WriteTable(ctx, domain.SalesTable(r.cfg.SalesTableName, sales), domain.WriteMergeByKey); err != nil {
		return fmt.Errorf("write sales table: %w", err)
	}
	if err := r.store.WriteTable(ctx, domain.WeatherFactTable(r.cfg.WeatherTableName, weather), domain.WriteMergeByKey); err != nil {
		return fmt.Errorf("write weather table: %w", err)
	}

	r.publish(ctx, sales, weather)

	r.metrics.GenerationRuns.WithLabelValues("success").Inc()
	r.metrics.LocationsGenerated.Add(float64(locations))
	r.metrics.RecordsFlattened.WithLabelValues("sales").Add(float64(len(sales)))
	r.metrics.RecordsFlattened.WithLabelValues("weather").Add(float64(len(weather.Records)))
	r.metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	r.ready.Store(true)

	summary := Summary{
		GeneratedAt:    clock.Now().UTC(),
		Interval:       interval,
		IntervalStart:  interval.Start,
		IntervalEnd:    interval.End,
		Locations:      locations,
		SalesRecords:   len(sales),
		WeatherRecords: len(weather.Records),
	}
	r.mu.Lock()
	r.lastSummary = &summary
	r.mu.Unlock()

	r.logger.Info("generation run complete",
		"interval", interval.String(),
		"locations", locations,
		"sales_records", len(sales),
		"weather_records", len(weather.Records),
		"duration", time.Since(start))
	return nil
}

// publish streams the run's records when a publisher is wired. Publish
// failures are logged and counted but never fail the run; the table store is
// the source of truth.
func (r *Runner) publish(ctx context.Context, sales []domain.SalesRecord, weather domain.WeatherTable) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishSales(ctx, sales); err != nil {
		r.logger.Warn("publish sales failed", "error", err, "records", len(sales))
		r.metrics.PublishErrors.Inc()
	} else {
		r.metrics.RecordsPublished.WithLabelValues("sales").Add(float64(len(sales)))
	}
	if err := r.publisher.PublishWeather(ctx, weather); err != nil {
		r.logger.Warn("publish weather failed", "error", err, "records", len(weather.Records))
		r.metrics.PublishErrors.Inc()
	} else {
		r.metrics.RecordsPublished.WithLabelValues("weather").Add(float64(len(weather.Records)))
	}
}
