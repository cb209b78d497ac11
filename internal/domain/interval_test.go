package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInterval(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("valid interval", func(t *testing.T) {
		iv, err := NewInterval(start, start.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 24*time.Hour, iv.Duration())
	})

	t.Run("end equals start", func(t *testing.T) {
		_, err := NewInterval(start, start)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := NewInterval(start, start.Add(-time.Hour))
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})
}

func TestIntervalSplit(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("span within max yields single part", func(t *testing.T) {
		iv := Interval{Start: start, End: start.Add(100 * time.Hour)}
		parts, err := iv.Split(MaxFetchSpan)
		require.NoError(t, err)
		require.Len(t, parts, 1)
		assert.Equal(t, iv, parts[0])
	})

	t.Run("span exactly max yields single part", func(t *testing.T) {
		iv := Interval{Start: start, End: start.Add(MaxFetchSpan)}
		parts, err := iv.Split(MaxFetchSpan)
		require.NoError(t, err)
		require.Len(t, parts, 1)
		assert.Equal(t, iv, parts[0])
	})

	t.Run("long span splits into contiguous cover", func(t *testing.T) {
		iv := Interval{Start: start, End: start.Add(1000 * time.Hour)}
		parts, err := iv.Split(MaxFetchSpan)
		require.NoError(t, err)
		require.Len(t, parts, 3)

		assert.Equal(t, iv.Start, parts[0].Start)
		assert.Equal(t, iv.End, parts[len(parts)-1].End)
		for i := 1; i < len(parts); i++ {
			assert.Equal(t, parts[i-1].End, parts[i].Start)
		}
		for _, p := range parts {
			assert.LessOrEqual(t, p.Duration(), MaxFetchSpan)
		}
		// 1000h = 440h + 440h + 120h remainder
		assert.Equal(t, 120*time.Hour, parts[2].Duration())
	})

	t.Run("invalid interval", func(t *testing.T) {
		iv := Interval{Start: start, End: start}
		_, err := iv.Split(MaxFetchSpan)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("non-positive max span", func(t *testing.T) {
		iv := Interval{Start: start, End: start.Add(time.Hour)}
		_, err := iv.Split(0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max span")
	})
}

func TestIntervalHourlyTimestamps(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	iv := Interval{Start: start, End: start.Add(4 * time.Hour)}

	stamps := iv.HourlyTimestamps()
	require.Len(t, stamps, 4)
	assert.Equal(t, start, stamps[0])
	assert.Equal(t, start.Add(3*time.Hour), stamps[3])
}
