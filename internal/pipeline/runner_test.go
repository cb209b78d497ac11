package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sales-synth-service/internal/domain"
	"github.com/couchcryptid/sales-synth-service/internal/observability"
)

func testRunnerConfig() RunnerConfig {
	return RunnerConfig{
		SalesTableName:   "sales",
		WeatherTableName: "weather",
		Lookback:         7 * 24 * time.Hour,
		Interval:         time.Hour,
	}
}

// fixedBuilder builds a single-locale fleet over the requested interval and
// records the intervals it was asked for.
type fixedBuilder struct {
	intervals []domain.Interval
}

func (b *fixedBuilder) build(t *testing.T) FleetBuilder {
	return func(interval domain.Interval) (*Fleet, error) {
		b.intervals = append(b.intervals, interval)

		stamps := interval.HourlyTimestamps()
		frame := domain.NewFrame(stamps)
		ones := make([]float64, len(stamps))
		temps := make([]float64, len(stamps))
		for i := range ones {
			ones[i] = 1
			temps[i] = 21
		}
		require.NoError(t, frame.AddColumn(domain.ColTemperature, temps))
		require.NoError(t, frame.AddColumn(domain.ColWeatherIndex, ones))

		locale, err := NewSimpleLocale(LocaleConfig{LocationID: 1, SalesMax: 10},
			&stubWeather{frame: frame}, testPeople(1), []int{100}, nil, testLogger())
		require.NoError(t, err)
		return NewFleet([]LocaleModel{locale}, 1, testLogger()), nil
	}
}

func TestRunnerRun(t *testing.T) {
	fixed := time.Date(2024, 6, 10, 12, 30, 0, 0, time.UTC)
	fakeClock := clockwork.NewFakeClockAt(fixed)
	SetClock(fakeClock)
	defer SetClock(nil)

	builder := &fixedBuilder{}
	store := &memStore{}
	publisher := &memPublisher{}
	runner := NewRunner(builder.build(t), store, publisher, testLogger(), observability.NewMetricsForTesting(), testRunnerConfig())

	require.Error(t, runner.CheckReadiness(context.Background()))
	assert.Nil(t, runner.LastSummary())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool {
		return runner.CheckReadiness(context.Background()) == nil
	}, 5*time.Second, 10*time.Millisecond)

	t.Run("persists both tables with merge mode", func(t *testing.T) {
		store.mu.Lock()
		defer store.mu.Unlock()
		require.Len(t, store.writes, 2)
		assert.Equal(t, "sales", store.writes[0].Name)
		assert.Equal(t, "weather", store.writes[1].Name)
		assert.Equal(t, domain.WriteMergeByKey, store.modes[0])
		assert.Equal(t, domain.WriteMergeByKey, store.modes[1])
	})

	t.Run("publishes records", func(t *testing.T) {
		publisher.mu.Lock()
		defer publisher.mu.Unlock()
		assert.NotEmpty(t, publisher.sales)
		assert.NotEmpty(t, publisher.weather)
	})

	t.Run("summary reflects the run", func(t *testing.T) {
		summary := runner.LastSummary()
		require.NotNil(t, summary)
		assert.Equal(t, 1, summary.Locations)
		// The interval ends at the current hour boundary.
		assert.Equal(t, fixed.Truncate(time.Hour), summary.IntervalEnd)
		assert.Equal(t, fixed.Truncate(time.Hour).Add(-7*24*time.Hour), summary.IntervalStart)
		assert.Greater(t, summary.SalesRecords, 0)
	})

	t.Run("next run fires on the schedule", func(t *testing.T) {
		fakeClock.BlockUntil(1)
		fakeClock.Advance(time.Hour)

		require.Eventually(t, func() bool {
			store.mu.Lock()
			defer store.mu.Unlock()
			return len(store.writes) >= 4
		}, 5*time.Second, 10*time.Millisecond)
	})

	cancel()
	assert.NoError(t, <-done)
}

func TestRunnerSplitsLongLookback(t *testing.T) {
	fixed := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	fakeClock := clockwork.NewFakeClockAt(fixed)
	SetClock(fakeClock)
	defer SetClock(nil)

	builder := &fixedBuilder{}
	cfg := testRunnerConfig()
	cfg.Lookback = 500 * time.Hour

	runner := NewRunner(builder.build(t), &memStore{}, nil, testLogger(), observability.NewMetricsForTesting(), cfg)
	require.NoError(t, runner.runOnce(context.Background()))

	// 500h exceeds the single-query cap, so generation runs in two chunks.
	require.Len(t, builder.intervals, 2)
	assert.Equal(t, builder.intervals[0].End, builder.intervals[1].Start)
	assert.LessOrEqual(t, builder.intervals[0].Duration(), domain.MaxFetchSpan)
	assert.Equal(t, fixed, builder.intervals[1].End)
}

func TestRunnerRejectsMismatchedChunkColumns(t *testing.T) {
	fixed := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	// The second chunk's weather frame grows an extra column, which must fail
	// the run instead of misaligning the concatenated records.
	calls := 0
	build := func(interval domain.Interval) (*Fleet, error) {
		calls++
		stamps := interval.HourlyTimestamps()
		frame := domain.NewFrame(stamps)
		ones := make([]float64, len(stamps))
		for i := range ones {
			ones[i] = 1
		}
		require.NoError(t, frame.AddColumn(domain.ColWeatherIndex, ones))
		if calls > 1 {
			require.NoError(t, frame.AddColumn(domain.ColTemperature, ones))
		}
		locale, err := NewSimpleLocale(LocaleConfig{LocationID: 1, SalesMax: 10},
			&stubWeather{frame: frame}, testPeople(1), []int{100}, nil, testLogger())
		require.NoError(t, err)
		return NewFleet([]LocaleModel{locale}, 1, testLogger()), nil
	}

	cfg := testRunnerConfig()
	cfg.Lookback = 500 * time.Hour
	runner := NewRunner(build, &memStore{}, nil, testLogger(), observability.NewMetricsForTesting(), cfg)

	err := runner.runOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weather columns")
}

func TestRunnerStoreFailure(t *testing.T) {
	fixed := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	builder := &fixedBuilder{}
	store := &memStore{err: assert.AnError}
	runner := NewRunner(builder.build(t), store, nil, testLogger(), observability.NewMetricsForTesting(), testRunnerConfig())

	err := runner.runOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write sales table")
	assert.Error(t, runner.CheckReadiness(context.Background()))
}

func TestRunnerPublishFailureIsNonFatal(t *testing.T) {
	fixed := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	builder := &fixedBuilder{}
	publisher := &memPublisher{salesErr: assert.AnError}
	runner := NewRunner(builder.build(t), &memStore{}, publisher, testLogger(), observability.NewMetricsForTesting(), testRunnerConfig())

	require.NoError(t, runner.runOnce(context.Background()))
	assert.NoError(t, runner.CheckReadiness(context.Background()))
	// Weather still went out even though sales publishing failed.
	assert.NotEmpty(t, publisher.weather)
}
