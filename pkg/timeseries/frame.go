package timeseries

import "time"

// Frame is the column-oriented, timestamp-indexed table handed to export
// collaborators. Columns holds one float64 slice per field, all aligned
// with Timestamps.
type Frame struct {
	Timestamps []time.Time
	Order      []string
	Columns    map[string][]float64
}

// Frame converts the series into its column-oriented form. Column order
// follows the series field order.
func (s *Series) Frame() *Frame {
	f := &Frame{
		Timestamps: s.Timestamps(),
		Order:      append([]string(nil), s.Fields...),
		Columns:    make(map[string][]float64, len(s.Fields)),
	}
	for _, label := range s.Fields {
		col, _ := s.Column(label)
		f.Columns[label] = col
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Timestamps)
}

// Column returns one value column by label.
func (f *Frame) Column(label string) ([]float64, bool) {
	col, ok := f.Columns[label]
	return col, ok
}

// SetColumn replaces an existing column. Adding new columns is not
// supported; the field set of a frame is fixed.
func (f *Frame) SetColumn(label string, values []float64) bool {
	if _, ok := f.Columns[label]; !ok {
		return false
	}
	if len(values) != len(f.Timestamps) {
		return false
	}
	f.Columns[label] = values
	return true
}
