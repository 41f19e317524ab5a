package calibrate

import (
	"fmt"

	"github.com/sensorlab/telemetry-ingest/pkg/timeseries"
)

// Apply corrects one column of a frame in place. The frame must contain
// the column; the model itself is never modified and can be applied to any
// number of frames.
func Apply(f *timeseries.Frame, column string, m Model) error {
	col, ok := f.Column(column)
	if !ok {
		return fmt.Errorf("apply %s calibration: no column %q", m.Kind(), column)
	}
	f.SetColumn(column, m.CorrectAll(col))
	return nil
}
