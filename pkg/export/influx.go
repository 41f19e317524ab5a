package export

import (
	"context"
	"fmt"
	"math"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sensorlab/telemetry-ingest/pkg/timeseries"
)

// InfluxWriter writes frames to an InfluxDB bucket, one point per reading
// with the frame's fields as point fields.
type InfluxWriter struct {
	client influxdb2.Client
	org    string
	bucket string
	logger zerolog.Logger
}

// NewInfluxWriter creates a writer for the given InfluxDB instance.
func NewInfluxWriter(url, token, org, bucket string) *InfluxWriter {
	return &InfluxWriter{
		client: influxdb2.NewClient(url, token),
		org:    org,
		bucket: bucket,
		logger: log.With().Str("component", "influx-writer").Logger(),
	}
}

// WriteFrame writes every row of the frame as one measurement point. NaN
// values are omitted from their point; a row whose fields are all NaN is
// skipped entirely. Timestamps are carried through unchanged.
func (w *InfluxWriter) WriteFrame(ctx context.Context, measurement string, tags map[string]string, f *timeseries.Frame) error {
	writeAPI := w.client.WriteAPIBlocking(w.org, w.bucket)

	start := time.Now()
	written := 0

	for i := 0; i < f.Len(); i++ {
		fields := make(map[string]interface{}, len(f.Order))
		for _, label := range f.Order {
			v := f.Columns[label][i]
			if math.IsNaN(v) {
				continue
			}
			fields[label] = v
		}
		if len(fields) == 0 {
			continue
		}

		p := influxdb2.NewPoint(measurement, tags, fields, f.Timestamps[i])
		if err := writeAPI.WritePoint(ctx, p); err != nil {
			return fmt.Errorf("write point %d to influxdb: %w", i, err)
		}
		written++
	}

	w.logger.Info().
		Str("measurement", measurement).
		Str("bucket", w.bucket).
		Int("points", written).
		Dur("duration", time.Since(start)).
		Msg("Frame written to InfluxDB")

	return nil
}

// Close releases the underlying InfluxDB client.
func (w *InfluxWriter) Close() {
	w.client.Close()
}
