package domain

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestAddDaytimeEffect(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	t.Run("deterministic curve", func(t *testing.T) {
		f := NewFrame(hourlyTimestamps(day, 24))
		require.NoError(t, AddDaytimeEffect(f, DefaultDaytimeMeanHour, DefaultDaytimeStdDev, false, nil))

		effect, ok := f.Column(ColDaytimeEffect)
		require.True(t, ok)

		// Peak of exactly 1 at the mean hour, symmetric around it.
		assert.InDelta(t, 1.0, effect[14], 1e-9)
		assert.InDelta(t, effect[12], effect[16], 1e-9)
		assert.InDelta(t, effect[10], effect[18], 1e-9)
		assert.Greater(t, effect[14], effect[10])
		for _, v := range effect {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	})

	t.Run("noisy curve stays in range", func(t *testing.T) {
		f := NewFrame(hourlyTimestamps(day, 72))
		src := rand.NewPCG(7, 11)
		require.NoError(t, AddDaytimeEffect(f, DefaultDaytimeMeanHour, DefaultDaytimeStdDev, true, src))

		effect, ok := f.Column(ColDaytimeEffect)
		require.True(t, ok)
		require.Len(t, effect, 72)
		for _, v := range effect {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	})

	t.Run("seeded noise is reproducible", func(t *testing.T) {
		f1 := NewFrame(hourlyTimestamps(day, 48))
		f2 := NewFrame(hourlyTimestamps(day, 48))
		require.NoError(t, AddDaytimeEffect(f1, 14, 3, true, rand.NewPCG(1, 2)))
		require.NoError(t, AddDaytimeEffect(f2, 14, 3, true, rand.NewPCG(1, 2)))

		e1, _ := f1.Column(ColDaytimeEffect)
		e2, _ := f2.Column(ColDaytimeEffect)
		assert.Equal(t, e1, e2)
	})

	t.Run("non-positive std dev rejected", func(t *testing.T) {
		f := NewFrame(hourlyTimestamps(day, 1))
		assert.Error(t, AddDaytimeEffect(f, 14, 0, false, nil))
	})
}

func TestMovingAverage(t *testing.T) {
	got := movingAverage([]float64{3, 6, 9, 12}, 3)
	// Edge rows average over the neighbors that exist.
	assert.InDelta(t, 4.5, got[0], 1e-9)
	assert.InDelta(t, 6.0, got[1], 1e-9)
	assert.InDelta(t, 9.0, got[2], 1e-9)
	assert.InDelta(t, 10.5, got[3], 1e-9)
}

func TestAddTotalSales(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	build := func(t *testing.T, index, effect []float64) *Frame {
		t.Helper()
		f := NewFrame(hourlyTimestamps(day, len(index)))
		require.NoError(t, f.AddColumn(ColWeatherIndex, index))
		require.NoError(t, f.AddColumn(ColDaytimeEffect, effect))
		return f
	}

	t.Run("deterministic ceiling", func(t *testing.T) {
		f := build(t, []float64{1, 0.5, 0.3}, []float64{1, 0.5, 0.33})
		require.NoError(t, AddTotalSales(f, 200, false, nil))

		sales, ok := f.Column(ColSales)
		require.True(t, ok)
		assert.Equal(t, 200.0, sales[0])
		assert.Equal(t, 50.0, sales[1])
		assert.Equal(t, 20.0, sales[2]) // ceil(19.8)
	})

	t.Run("noisy draws are non-negative and seeded-reproducible", func(t *testing.T) {
		f1 := build(t, []float64{1, 1, 1, 1}, []float64{1, 1, 1, 1})
		f2 := build(t, []float64{1, 1, 1, 1}, []float64{1, 1, 1, 1})
		require.NoError(t, AddTotalSales(f1, 50, true, rand.NewPCG(3, 4)))
		require.NoError(t, AddTotalSales(f2, 50, true, rand.NewPCG(3, 4)))

		s1, _ := f1.Column(ColSales)
		s2, _ := f2.Column(ColSales)
		assert.Equal(t, s1, s2)
		for _, v := range s1 {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	})

	t.Run("noisy draws center on sales max", func(t *testing.T) {
		n := 2000
		index := make([]float64, n)
		effect := make([]float64, n)
		for i := range index {
			index[i] = 1
			effect[i] = 1
		}
		f := NewFrame(hourlyTimestamps(day, n))
		require.NoError(t, f.AddColumn(ColWeatherIndex, index))
		require.NoError(t, f.AddColumn(ColDaytimeEffect, effect))
		require.NoError(t, AddTotalSales(f, 200, true, rand.NewPCG(9, 9)))

		sales, _ := f.Column(ColSales)
		// Poisson(200) sample mean over 2000 draws lands within a few
		// standard errors of lambda (se = sqrt(200/2000) ≈ 0.32).
		assert.InDelta(t, 200.0, stat.Mean(sales, nil), 2.0)
	})

	t.Run("missing weather index", func(t *testing.T) {
		f := NewFrame(hourlyTimestamps(day, 1))
		require.NoError(t, f.AddColumn(ColDaytimeEffect, []float64{1}))
		err := AddTotalSales(f, 200, false, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ColWeatherIndex)
	})

	t.Run("missing daytime effect", func(t *testing.T) {
		f := NewFrame(hourlyTimestamps(day, 1))
		require.NoError(t, f.AddColumn(ColWeatherIndex, []float64{1}))
		err := AddTotalSales(f, 200, false, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ColDaytimeEffect)
	})

	t.Run("non-positive sales max rejected", func(t *testing.T) {
		f := build(t, []float64{1}, []float64{1})
		assert.Error(t, AddTotalSales(f, 0, false, nil))
	})
}
