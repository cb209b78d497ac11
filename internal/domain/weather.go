package domain

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// ParameterMapping pairs internal observation column names with the external
// parameter codes of the weather API that serves them. Both directions are
// kept so fetch requests can be phrased in external codes and responses
// renamed back to internal names.
type ParameterMapping struct {
	external map[string]string // internal name -> external code
	inverse  map[string]string // external code -> internal name
}

// NewParameterMapping builds a mapping from internal column names to external
// parameter codes, deriving the inverse. Duplicate or empty codes are
// rejected at construction so a misconfigured model fails before any fetch.
func NewParameterMapping(external map[string]string) (ParameterMapping, error) {
	if len(external) == 0 {
		return ParameterMapping{}, fmt.Errorf("parameter mapping: at least one parameter is required")
	}
	inverse := make(map[string]string, len(external))
	for name, code := range external {
		if name == "" || code == "" {
			return ParameterMapping{}, fmt.Errorf("parameter mapping: empty name or code (%q -> %q)", name, code)
		}
		if prev, ok := inverse[code]; ok {
			return ParameterMapping{}, fmt.Errorf("parameter mapping: code %q mapped by both %q and %q", code, prev, name)
		}
		inverse[code] = name
	}
	ext := make(map[string]string, len(external))
	for k, v := range external {
		ext[k] = v
	}
	return ParameterMapping{external: ext, inverse: inverse}, nil
}

// ExternalCodes returns the external parameter codes in deterministic order.
func (m ParameterMapping) ExternalCodes() []string {
	codes := make([]string, 0, len(m.external))
	for _, code := range m.external {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// InternalNames returns the internal column names in deterministic order.
func (m ParameterMapping) InternalNames() []string {
	names := make([]string, 0, len(m.external))
	for name := range m.external {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InternalName resolves an external code to its internal column name.
func (m ParameterMapping) InternalName(code string) (string, bool) {
	name, ok := m.inverse[code]
	return name, ok
}

// ObservationFetcher is the weather data provider collaborator. It returns a
// frame of hourly observations for a place, with columns named by the
// requested external parameter codes. Rows missing any requested parameter
// are dropped by the implementation.
type ObservationFetcher interface {
	FetchObservations(ctx context.Context, place string, interval Interval, codes []string) (*Frame, error)
}

// WeatherModel produces the weather series for one location, including the
// derived pleasantness index.
type WeatherModel interface {
	// WeatherData returns the observation frame with a weather_index column.
	// The first call fetches and derives; later calls return the cached frame.
	WeatherData(ctx context.Context) (*Frame, error)
}

// WeatherConfig parameterizes a SimpleWeatherModel. Zero model constants are
// replaced with defaults at construction, so a literal 0.0 (an optimal
// temperature of 0°C) is not expressible here.
type WeatherConfig struct {
	LocationID   int
	LocationName string
	Interval     Interval

	// OptimalTemp is the temperature scored as perfectly pleasant.
	OptimalTemp float64
	// TempToleranceRange scales how fast pleasantness drops per degree of
	// deviation from OptimalTemp.
	TempToleranceRange float64
	// RainThreshold is the accumulated rain (mm/h) that alone halves the index.
	RainThreshold float64
}

// Default weather model constants.
const (
	DefaultOptimalTemp        = 21.0
	DefaultTempToleranceRange = 15.0
	DefaultRainThreshold      = 0.5
)

// SimpleWeatherModel scores weather pleasantness from temperature deviation
// and rainfall. It fetches observations lazily, renames external parameter
// codes to internal column names, and derives the weather index exactly once.
type SimpleWeatherModel struct {
	cfg     WeatherConfig
	mapping ParameterMapping
	fetcher ObservationFetcher

	observations *Frame
}

// NewSimpleWeatherModel constructs the model, applying defaults for zero
// constants and validating the parameter mapping up front.
func NewSimpleWeatherModel(cfg WeatherConfig, fetcher ObservationFetcher) (*SimpleWeatherModel, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("weather model: observation fetcher is required")
	}
	if cfg.OptimalTemp == 0 {
		cfg.OptimalTemp = DefaultOptimalTemp
	}
	if cfg.TempToleranceRange == 0 {
		cfg.TempToleranceRange = DefaultTempToleranceRange
	}
	if cfg.RainThreshold == 0 {
		cfg.RainThreshold = DefaultRainThreshold
	}
	mapping, err := NewParameterMapping(map[string]string{
		ColTemperature: "TA_PT1H_AVG",
		ColRainAmount:  "PRA_PT1H_ACC",
	})
	if err != nil {
		return nil, err
	}
	return &SimpleWeatherModel{cfg: cfg, mapping: mapping, fetcher: fetcher}, nil
}

// LocationID returns the owning location's id.
func (m *SimpleWeatherModel) LocationID() int {
	return m.cfg.LocationID
}

// WeatherData returns the observation frame with the weather_index column,
// fetching and deriving on first use. The returned frame is the model's
// internal series; the locale orchestrator copies it before handing it out.
func (m *SimpleWeatherModel) WeatherData(ctx context.Context) (*Frame, error) {
	if m.observations == nil {
		if err := m.fetchObservations(ctx); err != nil {
			return nil, err
		}
	}
	if !m.observations.HasColumn(ColWeatherIndex) {
		if err := m.computeWeatherIndex(); err != nil {
			return nil, err
		}
	}
	return m.observations, nil
}

func (m *SimpleWeatherModel) fetchObservations(ctx context.Context) error {
	frame, err := m.fetcher.FetchObservations(ctx, m.cfg.LocationName, m.cfg.Interval, m.mapping.ExternalCodes())
	if err != nil {
		return fmt.Errorf("fetch observations for %q: %w", m.cfg.LocationName, err)
	}
	for _, code := range frame.ColumnNames() {
		if name, ok := m.mapping.InternalName(code); ok {
			if err := frame.RenameColumn(code, name); err != nil {
				return fmt.Errorf("rename observation column: %w", err)
			}
		}
	}
	m.observations = frame
	return nil
}

// computeWeatherIndex derives the pleasantness index in [0,1] from the
// temperature and rain columns. A second invocation is a no-op because
// WeatherData checks for the column first; the missing-column validation here
// guards against fetchers that dropped a required parameter.
func (m *SimpleWeatherModel) computeWeatherIndex() error {
	temps, ok := m.observations.Column(ColTemperature)
	if !ok {
		return fmt.Errorf("compute weather index: missing required column %q", ColTemperature)
	}
	rain, ok := m.observations.Column(ColRainAmount)
	if !ok {
		return fmt.Errorf("compute weather index: missing required column %q", ColRainAmount)
	}

	index := make([]float64, len(temps))
	for i := range temps {
		v := 100 -
			math.Abs(temps[i]-m.cfg.OptimalTemp)/m.cfg.TempToleranceRange*50 -
			rain[i]/m.cfg.RainThreshold*50
		// Clamp to [0, 100] so outliers can't push the index out of range.
		index[i] = math.Min(math.Max(v, 0), 100) / 100
	}
	return m.observations.AddColumn(ColWeatherIndex, index)
}
