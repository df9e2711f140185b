package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowpull/glowpull/internal/glowmarkt"
)

func TestToPoints(t *testing.T) {
	reading := &glowmarkt.Reading{
		ResourceID: "res-1",
		Classifier: "electricity.consumption",
		Data: [][]float64{
			{1700000000, 3.5},
			{1700001800, 4.0},
		},
	}

	points := ToPoints(reading)
	require.Len(t, points, 2)

	assert.Equal(t, time.Unix(1700000000, 0).UTC(), points[0].Time)
	assert.Equal(t, 3.5, points[0].Value)
	assert.Equal(t, time.Unix(1700001800, 0).UTC(), points[1].Time)
	assert.Equal(t, 4.0, points[1].Value)

	for _, p := range points {
		assert.Equal(t, "electricity.consumption", p.Measurement)
		assert.Equal(t, "electricity.consumption", p.Tags["classifier"])
		assert.Equal(t, "res-1", p.Tags["resource_id"])
		assert.Equal(t, time.UTC, p.Time.Location())
	}
}

func TestToPointsEmptyData(t *testing.T) {
	reading := &glowmarkt.Reading{Classifier: "gas.consumption", Data: nil}
	points := ToPoints(reading)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}
