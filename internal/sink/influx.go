package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/glowpull/glowpull/internal/config"
)

const influxConnectTimeout = 10 * time.Second

var (
	// ErrConnectionFailed indicates the initial InfluxDB connection
	// attempt failed.
	ErrConnectionFailed = errors.New("sink: influxdb connection failed")

	// ErrWriteFailed indicates a sink write failed.
	ErrWriteFailed = errors.New("sink: write failed")
)

// InfluxSink writes points to InfluxDB using the blocking write API, so
// each pipeline batch either lands or reports its error immediately.
type InfluxSink struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

var _ Writer = (*InfluxSink)(nil)

// ConnectInflux creates an InfluxSink and verifies connectivity with a
// ping before returning it.
func ConnectInflux(cfg config.InfluxConfig) (*InfluxSink, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), influxConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %v", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	return &InfluxSink{
		client: client,
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

func (s *InfluxSink) WritePoints(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	converted := make([]*write.Point, len(points))
	for i, p := range points {
		converted[i] = write.NewPoint(
			p.Measurement,
			p.Tags,
			map[string]interface{}{"value": p.Value},
			p.Time,
		)
	}

	if err := s.write.WritePoint(ctx, converted...); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Flush is a no-op: the blocking write API has no internal buffer.
func (s *InfluxSink) Flush() {}

func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
