package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sales-synth-service/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testPeople(weights ...float64) []domain.SalespersonModel {
	people := make([]domain.SalespersonModel, len(weights))
	for i, w := range weights {
		people[i] = domain.NewSimpleSalesperson(domain.SalespersonConfig{
			PersonID:          10 + i,
			PerformanceWeight: w,
			WorkingHoursStart: 8,
			WorkingHoursEnd:   20,
		}, nil)
	}
	return people
}

func TestSimpleLocaleValidation(t *testing.T) {
	weather := &stubWeather{frame: openWeekFrame(t, 24)}
	people := testPeople(1)

	t.Run("nil weather", func(t *testing.T) {
		_, err := NewSimpleLocale(LocaleConfig{LocationID: 1}, nil, people, []int{1}, nil, testLogger())
		assert.Error(t, err)
	})

	t.Run("no salespeople", func(t *testing.T) {
		_, err := NewSimpleLocale(LocaleConfig{LocationID: 1}, weather, nil, []int{1}, nil, testLogger())
		assert.Error(t, err)
	})

	t.Run("empty assortment", func(t *testing.T) {
		_, err := NewSimpleLocale(LocaleConfig{LocationID: 1}, weather, people, nil, nil, testLogger())
		assert.Error(t, err)
	})
}

func TestSimpleLocaleGeneratesOnce(t *testing.T) {
	weather := &stubWeather{frame: openWeekFrame(t, 48)}
	locale, err := NewSimpleLocale(LocaleConfig{LocationID: 1}, weather, testPeople(1, 2), []int{100, 101}, nil, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	first, err := locale.SalesData(ctx)
	require.NoError(t, err)
	second, err := locale.SalesData(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, weather.calls)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Sales[10].Counts, second.Sales[10].Counts)
}

func TestSimpleLocaleDeepCopy(t *testing.T) {
	weather := &stubWeather{frame: openWeekFrame(t, 48)}
	locale, err := NewSimpleLocale(LocaleConfig{LocationID: 1}, weather, testPeople(1), []int{100}, nil, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	first, err := locale.SalesData(ctx)
	require.NoError(t, err)

	// Mutating a returned copy must not leak into later reads.
	first.Sales[10].Counts[0][0] = -999

	second, err := locale.SalesData(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, -999, second.Sales[10].Counts[0][0])
}

func TestSimpleLocaleAllocation(t *testing.T) {
	// Index 1.0 everywhere, an enormous daytime spread so the curve is flat,
	// and a deterministic base of 50 gives exactly 50 sales per open hour.
	weather := &stubWeather{frame: openWeekFrame(t, 24)}
	locale, err := NewSimpleLocale(LocaleConfig{
		LocationID:    1,
		SalesMax:      50,
		DaytimeStdDev: 1e9,
	}, weather, testPeople(2, 4, 6, 8), []int{100, 101, 102}, nil, testLogger())
	require.NoError(t, err)

	data, err := locale.SalesData(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Sales, 4)

	// Weighted shares of 50: 5, 10, 15, 20.
	wantShares := map[int]int{10: 5, 11: 10, 12: 15, 13: 20}
	for personID, want := range wantShares {
		table := data.Sales[personID]
		require.NotNil(t, table, "person %d", personID)
		for _, row := range table.Counts {
			var sum int
			for _, v := range row {
				sum += v
			}
			assert.Equal(t, want, sum, "person %d hourly total", personID)
		}
	}

	// Default window keeps Monday 08-19 for sales; the weather entry stays
	// the model's full day.
	assert.Len(t, data.Sales[10].Timestamps, 12)
	assert.Equal(t, 24, data.Weather.Len())
}

func TestSimpleLocaleWeatherPassthrough(t *testing.T) {
	frame := openWeekFrame(t, 24)
	locale, err := NewSimpleLocale(LocaleConfig{LocationID: 1}, &stubWeather{frame: frame}, testPeople(1), []int{100}, nil, testLogger())
	require.NoError(t, err)

	data, err := locale.SalesData(context.Background())
	require.NoError(t, err)

	// The weather entry is the model's series as served, not the pruned
	// working frame with the generation columns.
	assert.Equal(t, frame.Len(), data.Weather.Len())
	assert.ElementsMatch(t, frame.ColumnNames(), data.Weather.ColumnNames())
	assert.False(t, data.Weather.HasColumn(domain.ColDaytimeEffect))
	assert.False(t, data.Weather.HasColumn(domain.ColSales))
}

func TestSimpleLocaleOvernightWindow(t *testing.T) {
	weather := &stubWeather{frame: openWeekFrame(t, 24)}
	locale, err := NewSimpleLocale(LocaleConfig{
		LocationID: 1,
		OpenWindow: domain.OpenWindow{HoursStart: 20, HoursEnd: 4, DaysStart: 0, DaysEnd: 6},
	}, weather, testPeople(1), []int{100}, nil, testLogger())
	require.NoError(t, err)

	data, err := locale.SalesData(context.Background())
	require.NoError(t, err)

	require.Len(t, data.Sales[10].Timestamps, 8)
	var hours []int
	for _, ts := range data.Sales[10].Timestamps {
		hours = append(hours, ts.Hour())
	}
	assert.Equal(t, []int{0, 1, 2, 3, 20, 21, 22, 23}, hours)
	assert.Equal(t, 24, data.Weather.Len())
}

func TestSimpleLocaleNoOpenHours(t *testing.T) {
	// Sunday-only frame with a Monday-to-Saturday window prunes every row.
	start := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC) // a Sunday
	stamps := make([]time.Time, 24)
	for i := range stamps {
		stamps[i] = start.Add(time.Duration(i) * time.Hour)
	}
	frame := domain.NewFrame(stamps)
	ones := make([]float64, 24)
	for i := range ones {
		ones[i] = 1
	}
	require.NoError(t, frame.AddColumn(domain.ColWeatherIndex, ones))

	locale, err := NewSimpleLocale(LocaleConfig{LocationID: 1}, &stubWeather{frame: frame}, testPeople(1), []int{100}, nil, testLogger())
	require.NoError(t, err)

	data, err := locale.SalesData(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data.Sales)
	// The weather series still comes through for the weather fact table.
	assert.Equal(t, 24, data.Weather.Len())
}

func TestSimpleLocaleWeatherError(t *testing.T) {
	weather := &stubWeather{err: errors.New("boom")}
	locale, err := NewSimpleLocale(LocaleConfig{LocationID: 7}, weather, testPeople(1), []int{100}, nil, testLogger())
	require.NoError(t, err)

	_, err = locale.SalesData(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locale 7")
}
