// Package timeseries defines the domain types shared by the ingestion and
// calibration packages: timestamped readings, ordered series, and the
// column-oriented frame handed to export collaborators.
package timeseries

import (
	"fmt"
	"sort"
	"time"
)

// FieldMap maps opaque upstream field keys (e.g. "field1") to their
// human-readable labels (e.g. "Temp (C)"). It is derived once per ingestion
// run and reused for every batch in that run.
type FieldMap map[string]string

// Labels returns the descriptive labels in deterministic (sorted key) order.
func (m FieldMap) Labels() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	labels := make([]string, 0, len(keys))
	for _, k := range keys {
		labels = append(labels, m[k])
	}
	return labels
}

// Reading is a single timestamped observation. Values is keyed by the
// descriptive field label, not the upstream field key.
type Reading struct {
	Timestamp time.Time
	EntryID   int64
	Values    map[string]float64
}

// Series is an ordered sequence of readings sharing one field-label set.
type Series struct {
	// FieldMap is the key-to-label mapping the readings were decoded with.
	FieldMap FieldMap

	// Fields lists the value columns in deterministic order.
	Fields []string

	Readings []Reading
}

// New creates an empty series for the given field map.
func New(fields FieldMap) *Series {
	return &Series{
		FieldMap: fields,
		Fields:   fields.Labels(),
	}
}

// Len returns the number of readings.
func (s *Series) Len() int {
	return len(s.Readings)
}

// Sort orders the readings by timestamp ascending. Readings with equal
// timestamps keep their relative order.
func (s *Series) Sort() {
	sort.SliceStable(s.Readings, func(i, j int) bool {
		return s.Readings[i].Timestamp.Before(s.Readings[j].Timestamp)
	})
}

// Earliest returns the smallest timestamp in the series. The boolean is
// false for an empty series.
func (s *Series) Earliest() (time.Time, bool) {
	if len(s.Readings) == 0 {
		return time.Time{}, false
	}
	earliest := s.Readings[0].Timestamp
	for _, r := range s.Readings[1:] {
		if r.Timestamp.Before(earliest) {
			earliest = r.Timestamp
		}
	}
	return earliest, true
}

// Merge appends the readings of other to s. The field-label sets must match;
// batches of one pagination run share a single field map, so a mismatch
// means the upstream channel changed shape mid-run.
func (s *Series) Merge(other *Series) error {
	if len(s.Fields) != len(other.Fields) {
		return fmt.Errorf("merge: field set changed (%v vs %v)", s.Fields, other.Fields)
	}
	for i, f := range s.Fields {
		if other.Fields[i] != f {
			return fmt.Errorf("merge: field set changed (%v vs %v)", s.Fields, other.Fields)
		}
	}
	s.Readings = append(s.Readings, other.Readings...)
	return nil
}

// DedupeByTimestamp removes readings whose timestamp equals that of the
// previous reading, keeping the first occurrence. The series must be sorted.
// Returns the number of readings removed.
func (s *Series) DedupeByTimestamp() int {
	if len(s.Readings) < 2 {
		return 0
	}
	out := s.Readings[:1]
	for _, r := range s.Readings[1:] {
		if r.Timestamp.Equal(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, r)
	}
	removed := len(s.Readings) - len(out)
	s.Readings = out
	return removed
}

// TrimOldest drops the oldest readings until at most n remain. The series
// must be sorted ascending.
func (s *Series) TrimOldest(n int) {
	if n < 0 || len(s.Readings) <= n {
		return
	}
	s.Readings = s.Readings[len(s.Readings)-n:]
}

// Column returns the values of one field column in reading order.
func (s *Series) Column(label string) ([]float64, bool) {
	found := false
	for _, f := range s.Fields {
		if f == label {
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	col := make([]float64, len(s.Readings))
	for i, r := range s.Readings {
		col[i] = r.Values[label]
	}
	return col, true
}

// Timestamps returns the timestamps in reading order.
func (s *Series) Timestamps() []time.Time {
	ts := make([]time.Time, len(s.Readings))
	for i, r := range s.Readings {
		ts[i] = r.Timestamp
	}
	return ts
}
