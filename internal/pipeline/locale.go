// Package pipeline orchestrates synthetic sales generation: one locale model
// per location, a fleet that fans generation out across locales, and a runner
// that drives the periodic generate-flatten-persist cycle.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/couchcryptid/sales-synth-service/internal/domain"
)

// LocaleModel produces one location's sales data.
type LocaleModel interface {
	LocationID() int

	// SalesData returns the locale's generated data, generating on first
	// call. The result is a deep copy; callers may mutate it freely.
	SalesData(ctx context.Context) (*domain.LocaleData, error)
}

// LocaleConfig parameterizes a SimpleLocale. Zero model constants select the
// domain defaults, which makes a literal zero (a midnight mean hour) not
// expressible here.
type LocaleConfig struct {
	LocationID   int
	LocationName string
	OpenWindow   domain.OpenWindow

	SalesMax        float64
	DaytimeMeanHour float64
	DaytimeStdDev   float64
	InjectNoise     bool
}

// SimpleLocale runs the generation pipeline for one location: weather, prune
// to open hours, daytime effect, total sales, allocation to salespeople, then
// product assignment per person. Generation happens exactly once, on the
// first SalesData call.
type SimpleLocale struct {
	cfg        LocaleConfig
	weather    domain.WeatherModel
	people     []domain.SalespersonModel
	productIDs []int
	src        rand.Source
	logger     *slog.Logger

	generated bool
	result    *domain.LocaleData
}

// NewSimpleLocale constructs the locale. Zero model constants get the domain
// defaults; a nil source falls back to the ambient generator.
func NewSimpleLocale(cfg LocaleConfig, weather domain.WeatherModel, people []domain.SalespersonModel, productIDs []int, src rand.Source, logger *slog.Logger) (*SimpleLocale, error) {
	if weather == nil {
		return nil, fmt.Errorf("locale %d: weather model is required", cfg.LocationID)
	}
	if len(people) == 0 {
		return nil, fmt.Errorf("locale %d: at least one salesperson is required", cfg.LocationID)
	}
	if len(productIDs) == 0 {
		return nil, fmt.Errorf("locale %d: product assortment is empty", cfg.LocationID)
	}
	if cfg.SalesMax == 0 {
		cfg.SalesMax = domain.DefaultSalesMax
	}
	if cfg.DaytimeMeanHour == 0 {
		cfg.DaytimeMeanHour = domain.DefaultDaytimeMeanHour
	}
	if cfg.DaytimeStdDev == 0 {
		cfg.DaytimeStdDev = domain.DefaultDaytimeStdDev
	}
	if cfg.OpenWindow == (domain.OpenWindow{}) {
		cfg.OpenWindow = domain.OpenWindow{
			HoursStart: domain.DefaultOpenHoursStart,
			HoursEnd:   domain.DefaultOpenHoursEnd,
			DaysStart:  domain.DefaultOpenDaysStart,
			DaysEnd:    domain.DefaultOpenDaysEnd,
		}
	}
	return &SimpleLocale{
		cfg:        cfg,
		weather:    weather,
		people:     people,
		productIDs: productIDs,
		src:        src,
		logger:     logger,
	}, nil
}

// LocationID returns the locale's location id.
func (l *SimpleLocale) LocationID() int {
	return l.cfg.LocationID
}

// SalesData generates on first call and returns a deep copy of the result.
func (l *SimpleLocale) SalesData(ctx context.Context) (*domain.LocaleData, error) {
	if !l.generated {
		if err := l.generate(ctx); err != nil {
			return nil, err
		}
		l.generated = true
	}

	out := &domain.LocaleData{Sales: make(map[int]*domain.ProductSales, len(l.result.Sales))}
	for id, table := range l.result.Sales {
		out.Sales[id] = table.Copy()
	}
	if l.result.Weather != nil {
		out.Weather = l.result.Weather.Copy()
	}
	return out, nil
}

func (l *SimpleLocale) generate(ctx context.Context) error {
	observed, err := l.weather.WeatherData(ctx)
	if err != nil {
		return fmt.Errorf("locale %d: %w", l.cfg.LocationID, err)
	}

	frame := domain.PruneClosed(observed.Copy(), l.cfg.OpenWindow)
	if frame.Len() == 0 {
		// A short interval can miss every open hour. Not an error: the locale
		// contributes no sales but still reports its weather series.
		l.logger.Warn("no open hours in interval, locale produces no sales",
			"location_id", l.cfg.LocationID, "location", l.cfg.LocationName)
		l.result = &domain.LocaleData{Sales: make(map[int]*domain.ProductSales), Weather: observed}
		return nil
	}

	if err := domain.AddDaytimeEffect(frame, l.cfg.DaytimeMeanHour, l.cfg.DaytimeStdDev, l.cfg.InjectNoise, l.src); err != nil {
		return fmt.Errorf("locale %d: %w", l.cfg.LocationID, err)
	}
	if err := domain.AddTotalSales(frame, l.cfg.SalesMax, l.cfg.InjectNoise, l.src); err != nil {
		return fmt.Errorf("locale %d: %w", l.cfg.LocationID, err)
	}

	timestamps := frame.Timestamps()
	totals, _ := frame.Column(domain.ColSales)

	series := make([]domain.AvailabilitySeries, len(l.people))
	weights := make([]float64, len(l.people))
	for i, p := range l.people {
		series[i] = p.Availability(timestamps)
		weights[i] = p.PerformanceWeight()
	}
	availability := domain.MergeAvailability(timestamps, series)
	assigned := domain.AllocatePersonSales(totals, availability, weights)

	// The nested result carries the model's full weather series; the pruned
	// working frame with the generation columns stays internal.
	result := &domain.LocaleData{Sales: make(map[int]*domain.ProductSales, len(l.people)), Weather: observed}
	for i, p := range l.people {
		personSales := make([]int, len(timestamps))
		for t := range timestamps {
			personSales[t] = assigned[t][i]
		}
		if err := p.AssignProducts(domain.SalesSeries{Timestamps: timestamps, Sales: personSales}, l.productIDs); err != nil {
			return fmt.Errorf("locale %d: %w", l.cfg.LocationID, err)
		}
		table, err := p.SalesByProduct()
		if err != nil {
			return fmt.Errorf("locale %d: %w", l.cfg.LocationID, err)
		}
		result.Sales[p.PersonID()] = table
	}

	l.result = result
	l.logger.Debug("locale generated",
		"location_id", l.cfg.LocationID, "rows", frame.Len(), "salespeople", len(l.people))
	return nil
}
