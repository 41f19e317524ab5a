// Package feed implements single-batch retrieval from a ThingSpeak channel:
// one bounded request, field-label resolution from the embedded channel
// metadata, numeric parsing, and timestamp-ordered output.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sensorlab/telemetry-ingest/pkg/timeseries"
)

// MaxBatchSize is the per-request record cap of the upstream service. This
// is a hard protocol limit, not a tunable.
const MaxBatchSize = 8000

// DefaultResults is the record count used when the caller does not bound
// the request.
const DefaultResults = 10

// TimestampFormat is the timestamp syntax the service expects in start/end
// query bounds. The space separator is transmitted as %20 (the transport
// takes care of the encoding).
const TimestampFormat = "2006-01-02 15:04:05"

// FormatTimestamp renders a boundary timestamp in the service's expected
// syntax.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Transport performs one GET against the service and returns the JSON body.
// Retry and backoff policy belong to the transport, not to this package.
type Transport interface {
	Get(ctx context.Context, path string, params url.Values) ([]byte, error)
}

// Options bound a single batch request.
type Options struct {
	// Results is the record count to request, at most MaxBatchSize.
	// Zero means DefaultResults.
	Results int

	// Start and End bound the requested time range. Zero values are omitted.
	Start time.Time
	End   time.Time

	// APIKey is the read key for private channels, passed through opaquely.
	APIKey string

	// Fields is a pre-resolved field map. When set, the resolver is skipped
	// and every batch of a pagination run decodes against the same labels.
	Fields timeseries.FieldMap
}

// query renders the options as request parameters.
func (o Options) query() url.Values {
	results := o.Results
	if results <= 0 {
		results = DefaultResults
	}

	v := url.Values{}
	v.Set("results", strconv.Itoa(results))
	if !o.Start.IsZero() {
		v.Set("start", FormatTimestamp(o.Start))
	}
	if !o.End.IsZero() {
		v.Set("end", FormatTimestamp(o.End))
	}
	if o.APIKey != "" {
		v.Set("api_key", o.APIKey)
	}
	return v
}

// Fetcher retrieves single bounded batches from a channel.
type Fetcher struct {
	transport Transport
	logger    zerolog.Logger
}

// NewFetcher creates a batch fetcher on top of a transport.
func NewFetcher(transport Transport) *Fetcher {
	return &Fetcher{
		transport: transport,
		logger:    log.With().Str("component", "feed-fetcher").Logger(),
	}
}

// FetchBatch issues one bounded request and returns the records as a
// timestamp-sorted series. A response with zero records yields
// ErrEmptyResult; values that fail numeric conversion yield
// *MalformedDataError. Transport failures propagate unchanged.
func (f *Fetcher) FetchBatch(ctx context.Context, channelID int64, opts Options) (*timeseries.Series, error) {
	if opts.Results > MaxBatchSize {
		return nil, fmt.Errorf("results %d exceeds per-request cap %d", opts.Results, MaxBatchSize)
	}

	start := time.Now()
	path := fmt.Sprintf("/channels/%d/feeds.json", channelID)

	body, err := f.transport.Get(ctx, path, opts.query())
	if err != nil {
		return nil, err
	}

	var resp feedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedDataError{Channel: channelID, Detail: "decode response", Err: err}
	}

	if len(resp.Feeds) == 0 {
		return nil, fmt.Errorf("channel %d: %w", channelID, ErrEmptyResult)
	}

	fields := opts.Fields
	if fields == nil {
		fields, err = FieldLabels(resp.Channel)
		if err != nil {
			return nil, &MalformedDataError{Channel: channelID, Detail: "resolve field labels", Err: err}
		}
	}

	series := timeseries.New(fields)
	series.Readings = make([]timeseries.Reading, 0, len(resp.Feeds))

	for _, entry := range resp.Feeds {
		ts, err := time.Parse(time.RFC3339, entry.CreatedAt)
		if err != nil {
			return nil, &MalformedDataError{
				Channel: channelID,
				EntryID: entry.EntryID,
				Field:   "created_at",
				Err:     err,
			}
		}

		values := make(map[string]float64, len(fields))
		for key, label := range fields {
			raw, ok := entry.Fields[key]
			if !ok || raw == nil {
				// The sensor reported nothing for this field; NaN flows
				// through calibration unchanged.
				values[label] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(*raw, 64)
			if err != nil {
				return nil, &MalformedDataError{
					Channel: channelID,
					EntryID: entry.EntryID,
					Field:   key,
					Detail:  fmt.Sprintf("value %q is not numeric", *raw),
					Err:     err,
				}
			}
			values[label] = v
		}

		series.Readings = append(series.Readings, timeseries.Reading{
			Timestamp: ts,
			EntryID:   entry.EntryID,
			Values:    values,
		})
	}

	series.Sort()

	f.logger.Debug().
		Int64("channel_id", channelID).
		Int("records", series.Len()).
		Int("fields", len(fields)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetched")

	return series, nil
}
