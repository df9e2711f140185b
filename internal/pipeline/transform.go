package pipeline

import (
	"time"

	"github.com/glowpull/glowpull/internal/glowmarkt"
	"github.com/glowpull/glowpull/internal/sink"
)

// ToPoints converts a reading into sink points, one per data row.
//
// Row timestamps are epoch seconds interpreted as UTC. The reading's
// classifier becomes both the measurement name and a grouping tag, and
// the resource id is tagged so streams stay distinguishable downstream.
// Empty data yields an empty slice, not an error.
func ToPoints(r *glowmarkt.Reading) []sink.Point {
	points := make([]sink.Point, 0, len(r.Data))
	for _, row := range r.Data {
		if len(row) < 2 {
			continue // row shape is validated at decode
		}
		points = append(points, sink.Point{
			Time:        time.Unix(int64(row[0]), 0).UTC(),
			Value:       row[1],
			Measurement: r.Classifier,
			Tags: map[string]string{
				"classifier":  r.Classifier,
				"resource_id": r.ResourceID,
			},
		})
	}
	return points
}
