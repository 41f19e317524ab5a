// Package export hands calibrated frames to external collaborators: CSV
// for file-based workflows and InfluxDB for time-series storage.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/sensorlab/telemetry-ingest/pkg/timeseries"
)

// WriteCSV renders a frame as CSV: a "timestamp" column in RFC 3339
// followed by one column per field. NaN values are written as empty cells.
func WriteCSV(w io.Writer, f *timeseries.Frame) error {
	cw := csv.NewWriter(w)

	header := append([]string{"timestamp"}, f.Order...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for i := 0; i < f.Len(); i++ {
		row[0] = f.Timestamps[i].UTC().Format(time.RFC3339)
		for j, label := range f.Order {
			v := f.Columns[label][i]
			if math.IsNaN(v) {
				row[j+1] = ""
				continue
			}
			row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
