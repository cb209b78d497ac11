package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sales-synth-service/internal/domain"
)

// stubWeather hands out a fixed frame and counts reads so tests can assert
// the locale generates lazily and exactly once.
type stubWeather struct {
	frame *domain.Frame
	err   error
	calls int
}

func (s *stubWeather) WeatherData(context.Context) (*domain.Frame, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.frame, nil
}

// stubFetcher serves deterministic observations derived from the interval, so
// fleet-level tests get reproducible weather without HTTP.
type stubFetcher struct{}

func (stubFetcher) FetchObservations(_ context.Context, _ string, interval domain.Interval, codes []string) (*domain.Frame, error) {
	stamps := interval.HourlyTimestamps()
	frame := domain.NewFrame(stamps)
	for _, code := range codes {
		vals := make([]float64, len(stamps))
		for i, ts := range stamps {
			if code == "TA_PT1H_AVG" {
				vals[i] = 15 + float64(ts.Hour()%10)
			}
		}
		if err := frame.AddColumn(code, vals); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// memStore collects table writes.
type memStore struct {
	mu     sync.Mutex
	writes []domain.Table
	modes  []domain.WriteMode
	err    error
}

func (m *memStore) WriteTable(_ context.Context, table domain.Table, mode domain.WriteMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, table)
	m.modes = append(m.modes, mode)
	return nil
}

// memPublisher collects published records.
type memPublisher struct {
	mu       sync.Mutex
	sales    []domain.SalesRecord
	weather  []domain.WeatherRecord
	salesErr error
}

func (m *memPublisher) PublishSales(_ context.Context, records []domain.SalesRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.salesErr != nil {
		return m.salesErr
	}
	m.sales = append(m.sales, records...)
	return nil
}

func (m *memPublisher) PublishWeather(_ context.Context, weather domain.WeatherTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weather = append(m.weather, weather.Records...)
	return nil
}

// openWeekFrame builds a weather frame with index 1.0 for every hour of one
// Monday-through-Sunday week starting 2024-06-03.
func openWeekFrame(t *testing.T, hours int) *domain.Frame {
	t.Helper()
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	stamps := make([]time.Time, hours)
	for i := range stamps {
		stamps[i] = start.Add(time.Duration(i) * time.Hour)
	}
	frame := domain.NewFrame(stamps)
	ones := make([]float64, hours)
	temps := make([]float64, hours)
	for i := range ones {
		ones[i] = 1
		temps[i] = 21
	}
	require.NoError(t, frame.AddColumn(domain.ColTemperature, temps))
	require.NoError(t, frame.AddColumn(domain.ColRainAmount, make([]float64, hours)))
	require.NoError(t, frame.AddColumn(domain.ColWeatherIndex, ones))
	return frame
}
