package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSingleBatch(t *testing.T) {
	start := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC)

	got, err := Split(start, end, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Range{Start: start, End: end}, got[0])
}

func TestSplitExactMultiple(t *testing.T) {
	start := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(20 * 24 * time.Hour)

	got, err := Split(start, end, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, start, got[0].Start)
	assert.Equal(t, got[0].End, got[1].Start)
	assert.Equal(t, end, got[1].End)
}

func TestSplitProperties(t *testing.T) {
	tests := []struct {
		name        string
		start, end  time.Time
		maxSpanDays int
	}{
		{
			name:        "one month at ten days",
			start:       time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
			end:         time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			maxSpanDays: 10,
		},
		{
			name:        "sub-day offsets",
			start:       time.Date(2024, 11, 1, 13, 45, 30, 0, time.UTC),
			end:         time.Date(2024, 11, 29, 7, 2, 11, 0, time.UTC),
			maxSpanDays: 10,
		},
		{
			name:        "single day window",
			start:       time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
			end:         time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			maxSpanDays: 1,
		},
		{
			name:        "range smaller than span",
			start:       time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
			end:         time.Date(2024, 11, 1, 0, 30, 0, 0, time.UTC),
			maxSpanDays: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.start, tt.end, tt.maxSpanDays)
			require.NoError(t, err)
			require.NotEmpty(t, got)

			span := time.Duration(tt.maxSpanDays) * 24 * time.Hour

			assert.Equal(t, tt.start, got[0].Start, "first batch starts at start")
			assert.Equal(t, tt.end, got[len(got)-1].End, "last batch ends at end")

			for i, r := range got {
				assert.True(t, r.Start.Before(r.End), "batch %d is non-degenerate", i)
				assert.LessOrEqual(t, r.End.Sub(r.Start), span, "batch %d within max span", i)
				if i > 0 {
					assert.Equal(t, got[i-1].End, r.Start, "batch %d contiguous with predecessor", i)
				}
			}
		})
	}
}

func TestSplitDeterministic(t *testing.T) {
	start := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 14, 18, 0, 0, 0, time.UTC)

	first, err := Split(start, end, 7)
	require.NoError(t, err)
	second, err := Split(start, end, 7)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSplitInvalid(t *testing.T) {
	now := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		start, end  time.Time
		maxSpanDays int
	}{
		{name: "degenerate range", start: now, end: now, maxSpanDays: 10},
		{name: "inverted range", start: now.Add(time.Hour), end: now, maxSpanDays: 10},
		{name: "zero span", start: now, end: now.Add(time.Hour), maxSpanDays: 0},
		{name: "negative span", start: now, end: now.Add(time.Hour), maxSpanDays: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.start, tt.end, tt.maxSpanDays)
			assert.ErrorIs(t, err, ErrInvalidRange)
			assert.Nil(t, got)
		})
	}
}
