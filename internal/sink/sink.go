// Package sink defines the time-series point sink and its InfluxDB and
// TimescaleDB implementations.
package sink

import (
	"context"
	"time"
)

// Point is one time-series sample ready for storage.
type Point struct {
	Time        time.Time
	Value       float64
	Measurement string
	Tags        map[string]string
}

// Writer receives batches of points. Writes are fire-and-forget from the
// pipeline's perspective: errors are surfaced to the caller but never
// retried here.
type Writer interface {
	// WritePoints stores a batch of points.
	WritePoints(ctx context.Context, points []Point) error

	// Flush pushes any buffered points downstream. Best-effort.
	Flush()

	// Close releases resources held by the sink.
	Close() error
}

// Multi fans a write out to several sinks. The first error is returned
// after all sinks have been attempted.
type Multi []Writer

func (m Multi) WritePoints(ctx context.Context, points []Point) error {
	var first error
	for _, w := range m {
		if err := w.WritePoints(ctx, points); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Flush() {
	for _, w := range m {
		w.Flush()
	}
}

func (m Multi) Close() error {
	var first error
	for _, w := range m {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
