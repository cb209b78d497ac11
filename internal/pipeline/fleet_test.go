package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sales-synth-service/internal/catalog"
	"github.com/couchcryptid/sales-synth-service/internal/domain"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		catalog.LocationsFile: "location_id;location_name;open_hours_start;open_hours_end\n" +
			"1;Helsinki;8;20\n" +
			"2;Tampere;9;18\n",
		catalog.SalespeopleFile: "person_id;person_name;location_id;performance_weight;working_hours_start;working_hours_end\n" +
			"10;Aino;1;1.0;8;16\n" +
			"11;Eero;1;2.0;10;20\n" +
			"20;Venla;2;1.0;9;18\n",
		catalog.ProductsFile: "product_id;product_name;product_category_id;product_price\n" +
			"100;Umbrella;1;19.90\n" +
			"101;Sunscreen;1;9.90\n",
		catalog.ProductLocationsFile: "location_id;product_id\n" +
			"1;100\n1;101\n2;100\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	c, err := catalog.Load(dir)
	require.NoError(t, err)
	return c
}

func weekInterval(t *testing.T) domain.Interval {
	t.Helper()
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	iv, err := domain.NewInterval(start, start.Add(7*24*time.Hour))
	require.NoError(t, err)
	return iv
}

func TestBuildFleet(t *testing.T) {
	cat := testCatalog(t)
	iv := weekInterval(t)

	fleet, err := BuildFleet(cat, iv, stubFetcher{}, BuildOptions{Seed: 42}, testLogger())
	require.NoError(t, err)

	data, err := fleet.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, data.Locales, 2)
	assert.Contains(t, data.Locales, 1)
	assert.Contains(t, data.Locales, 2)

	// Location 1 carries both of its salespeople and its two products.
	loc1 := data.Locales[1]
	require.Len(t, loc1.Sales, 2)
	assert.Equal(t, []int{100, 101}, loc1.Sales[10].ProductIDs)
	assert.True(t, loc1.Weather.HasColumn(domain.ColWeatherIndex))
}

func TestFleetGenerateDeterministic(t *testing.T) {
	cat := testCatalog(t)
	iv := weekInterval(t)
	opts := BuildOptions{Seed: 42, InjectNoise: true, Workers: 2}

	run := func() ([]domain.SalesRecord, domain.WeatherTable) {
		fleet, err := BuildFleet(cat, iv, stubFetcher{}, opts, testLogger())
		require.NoError(t, err)
		data, err := fleet.Generate(context.Background())
		require.NoError(t, err)
		sales, weather, err := domain.Flatten(data.Locales)
		require.NoError(t, err)
		return sales, weather
	}

	sales1, weather1 := run()
	sales2, weather2 := run()

	// Same seed, same catalog: parallel workers must not change the output.
	if diff := cmp.Diff(sales1, sales2); diff != "" {
		t.Errorf("sales differ between identical runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(weather1, weather2); diff != "" {
		t.Errorf("weather differs between identical runs (-first +second):\n%s", diff)
	}
}

func TestFleetMixedOpenHoursFlattens(t *testing.T) {
	// One locale open on Mondays, one open on Sundays only, over a single
	// Monday of observations. The second prunes to nothing but the whole
	// fleet still flattens: both report the same weather columns.
	open, err := NewSimpleLocale(LocaleConfig{LocationID: 1},
		&stubWeather{frame: openWeekFrame(t, 24)}, testPeople(1), []int{100}, nil, testLogger())
	require.NoError(t, err)

	closed, err := NewSimpleLocale(LocaleConfig{
		LocationID: 2,
		OpenWindow: domain.OpenWindow{HoursStart: 8, HoursEnd: 20, DaysStart: 6, DaysEnd: 6},
	}, &stubWeather{frame: openWeekFrame(t, 24)}, testPeople(1), []int{100}, nil, testLogger())
	require.NoError(t, err)

	fleet := NewFleet([]LocaleModel{open, closed}, 2, testLogger())
	data, err := fleet.Generate(context.Background())
	require.NoError(t, err)

	sales, weather, err := domain.Flatten(data.Locales)
	require.NoError(t, err)

	require.NotEmpty(t, sales)
	for _, rec := range sales {
		assert.Equal(t, 1, rec.LocationID)
	}
	// Both locales contribute their full weather series.
	assert.Len(t, weather.Records, 48)
}

func TestFleetGeneratePropagatesError(t *testing.T) {
	weather := &stubWeather{err: assert.AnError}
	locale, err := NewSimpleLocale(LocaleConfig{LocationID: 1}, weather, testPeople(1), []int{100}, nil, testLogger())
	require.NoError(t, err)

	good, err := NewSimpleLocale(LocaleConfig{LocationID: 2}, &stubWeather{frame: openWeekFrame(t, 24)}, testPeople(1), []int{100}, nil, testLogger())
	require.NoError(t, err)

	fleet := NewFleet([]LocaleModel{locale, good}, 2, testLogger())
	_, err = fleet.Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate fleet")
}
