package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/sales-synth-service/internal/catalog"
	"github.com/couchcryptid/sales-synth-service/internal/domain"
)

// Fleet generates sales data for every locale and collects the nested result.
// Locales are independent, so generation fans out across a bounded worker
// pool.
type Fleet struct {
	locales []LocaleModel
	workers int
	logger  *slog.Logger
}

// NewFleet wraps the locales. Workers ≤ 0 means one worker per locale.
func NewFleet(locales []LocaleModel, workers int, logger *slog.Logger) *Fleet {
	if workers <= 0 {
		workers = len(locales)
	}
	return &Fleet{locales: locales, workers: workers, logger: logger}
}

// Generate runs every locale and returns the nested result keyed by location
// id. The first locale error cancels the remaining work.
func (f *Fleet) Generate(ctx context.Context) (*domain.FleetData, error) {
	results := make(map[int]*domain.LocaleData, len(f.locales))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for _, locale := range f.locales {
		g.Go(func() error {
			data, err := locale.SalesData(ctx)
			if err != nil {
				return err
			}
			mu.Lock()
			results[locale.LocationID()] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generate fleet: %w", err)
	}
	return domain.NewFleetData(results), nil
}

// BuildOptions configures BuildFleet. The factory fields exist so tests can
// substitute stub models; nil factories build the Simple implementations.
type BuildOptions struct {
	InjectNoise bool
	// Seed is the base random seed; each locale derives its own stream from
	// it, keyed by location id, so parallel runs reproduce exactly.
	Seed     uint64
	Workers  int
	SalesMax float64

	WeatherFactory func(cfg domain.WeatherConfig) (domain.WeatherModel, error)
	PersonFactory  func(cfg domain.SalespersonConfig, src rand.Source) domain.SalespersonModel
}

// BuildFleet assembles one locale model per catalog location, wiring weather
// models to the fetcher and salespeople to their catalog rows.
func BuildFleet(cat *catalog.Catalog, interval domain.Interval, fetcher domain.ObservationFetcher, opts BuildOptions, logger *slog.Logger) (*Fleet, error) {
	weatherFactory := opts.WeatherFactory
	if weatherFactory == nil {
		weatherFactory = func(cfg domain.WeatherConfig) (domain.WeatherModel, error) {
			return domain.NewSimpleWeatherModel(cfg, fetcher)
		}
	}
	personFactory := opts.PersonFactory
	if personFactory == nil {
		personFactory = func(cfg domain.SalespersonConfig, src rand.Source) domain.SalespersonModel {
			return domain.NewSimpleSalesperson(cfg, src)
		}
	}

	locales := make([]LocaleModel, 0, len(cat.Locations))
	for _, loc := range cat.Locations {
		weather, err := weatherFactory(domain.WeatherConfig{
			LocationID:   loc.ID,
			LocationName: loc.Name,
			Interval:     interval,
		})
		if err != nil {
			return nil, fmt.Errorf("build fleet: location %d: %w", loc.ID, err)
		}

		rows, err := cat.SalespeopleByLocation(loc.ID)
		if err != nil {
			return nil, fmt.Errorf("build fleet: %w", err)
		}
		// One seeded stream per locale keeps runs reproducible regardless of
		// worker scheduling.
		src := localeSource(opts.Seed, loc.ID)
		people := make([]domain.SalespersonModel, 0, len(rows))
		for _, row := range rows {
			people = append(people, personFactory(domain.SalespersonConfig{
				PersonID:          row.ID,
				PerformanceWeight: row.PerformanceWeight,
				WorkingHoursStart: row.WorkingHoursStart,
				WorkingHoursEnd:   row.WorkingHoursEnd,
				InjectNoise:       opts.InjectNoise,
			}, src))
		}

		productIDs, err := cat.ProductIDsByLocation(loc.ID)
		if err != nil {
			return nil, fmt.Errorf("build fleet: %w", err)
		}

		locale, err := NewSimpleLocale(LocaleConfig{
			LocationID:   loc.ID,
			LocationName: loc.Name,
			OpenWindow: domain.OpenWindow{
				HoursStart: loc.OpenHoursStart,
				HoursEnd:   loc.OpenHoursEnd,
				DaysStart:  domain.DefaultOpenDaysStart,
				DaysEnd:    domain.DefaultOpenDaysEnd,
			},
			SalesMax:    opts.SalesMax,
			InjectNoise: opts.InjectNoise,
		}, weather, people, productIDs, src, logger)
		if err != nil {
			return nil, fmt.Errorf("build fleet: %w", err)
		}
		locales = append(locales, locale)
	}
	return NewFleet(locales, opts.Workers, logger), nil
}

// localeSource derives a locale's random source from the base seed and the
// location id. Seed 0 means non-reproducible runs.
func localeSource(seed uint64, locationID int) rand.Source {
	if seed == 0 {
		return nil
	}
	return rand.NewPCG(seed, uint64(locationID))
}
