package export

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorlab/telemetry-ingest/pkg/timeseries"
)

func sampleFrame() *timeseries.Frame {
	series := timeseries.New(timeseries.FieldMap{
		"field1": "Temp (C)",
		"field2": "Pressure (psi)",
	})

	base := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	values := []struct {
		temp, pressure float64
	}{
		{21.5, 14.7},
		{math.NaN(), 14.8},
		{22.25, math.NaN()},
	}
	for i, v := range values {
		series.Readings = append(series.Readings, timeseries.Reading{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			EntryID:   int64(i + 1),
			Values: map[string]float64{
				"Temp (C)":       v.temp,
				"Pressure (psi)": v.pressure,
			},
		})
	}
	return series.Frame()
}

func TestWriteCSV(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, sampleFrame()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4, "header plus three rows")

	// Sorted field-key order, quoting only where CSV demands it
	assert.Equal(t, `timestamp,Temp (C),Pressure (psi)`, lines[0])
	assert.Equal(t, `2023-06-01T12:00:00Z,21.5,14.7`, lines[1])
	assert.Equal(t, `2023-06-01T12:01:00Z,,14.8`, lines[2], "NaN renders as an empty cell")
	assert.Equal(t, `2023-06-01T12:02:00Z,22.25,`, lines[3])
}

func TestWriteCSV_EmptyFrame(t *testing.T) {
	series := timeseries.New(timeseries.FieldMap{"field1": "Temp (C)"})

	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, series.Frame()))

	assert.Equal(t, "timestamp,Temp (C)\n", buf.String(), "empty frame still gets a header")
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, assert.AnError
}

func TestWriteCSV_WriterError(t *testing.T) {
	err := WriteCSV(failingWriter{}, sampleFrame())
	assert.Error(t, err)
}
