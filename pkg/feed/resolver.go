package feed

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sensorlab/telemetry-ingest/pkg/timeseries"
)

// FieldLabels extracts the data-field entries from channel metadata. Field
// keys are identified by naming convention ("field1", "field2", ...); all
// other metadata keys (name, id, description) are ignored. An empty result
// is valid: a channel with no field keys produces a series with no value
// columns.
//
// Two distinct keys mapping to the same label would make the resulting
// column set ambiguous, so collisions are rejected.
func FieldLabels(meta map[string]any) (timeseries.FieldMap, error) {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		if strings.Contains(k, "field") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fields := make(timeseries.FieldMap, len(keys))
	byLabel := make(map[string]string, len(keys))
	for _, k := range keys {
		label := stringify(meta[k])
		if prev, ok := byLabel[label]; ok {
			return nil, fmt.Errorf("field label %q assigned to both %q and %q", label, prev, k)
		}
		byLabel[label] = k
		fields[k] = label
	}
	return fields, nil
}

// stringify renders a metadata value as a label. Labels are strings on the
// wire; anything else is formatted with its default representation.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
