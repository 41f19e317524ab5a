package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sensorlab/telemetry-ingest/pkg/feed"
	"github.com/sensorlab/telemetry-ingest/pkg/timeseries"
)

// Prometheus metrics for pagination runs.
var (
	paginationBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagination_batches_total",
		Help: "Total batch requests issued by the paginator",
	})

	paginationRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagination_records_fetched_total",
		Help: "Total records fetched across all pagination runs",
	})

	paginationDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagination_boundary_duplicates_total",
		Help: "Total boundary-overlap records removed by deduplication",
	})

	paginationPartialTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagination_partial_results_total",
		Help: "Total runs that ended early because upstream history was exhausted",
	})
)

// BatchFetcher is the interface the paginator needs for single-batch
// retrieval.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, channelID int64, opts feed.Options) (*timeseries.Series, error)
}

// Config holds paginator configuration.
type Config struct {
	// BatchSize is the record count requested per batch. It defaults to the
	// protocol cap and can only be lowered (useful in tests); the cap itself
	// is fixed by the upstream service.
	BatchSize int
}

// DefaultConfig returns the default paginator configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize: feed.MaxBatchSize,
	}
}

// Paginator stitches capped batches into one ordered series.
type Paginator struct {
	fetcher BatchFetcher
	config  Config
	logger  zerolog.Logger
}

// New creates a paginator on top of a batch fetcher.
func New(fetcher BatchFetcher, config Config) *Paginator {
	if config.BatchSize <= 0 || config.BatchSize > feed.MaxBatchSize {
		config.BatchSize = feed.MaxBatchSize
	}

	return &Paginator{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "paginator").Logger(),
	}
}

// cursor is the continuation state threaded through the batch loop.
type cursor struct {
	// earliest is the boundary timestamp: the smallest timestamp seen in
	// the previous batch, used as the end bound of the next one.
	earliest time.Time

	// remaining is the number of records still owed to the caller.
	remaining int
}

// FetchSeries retrieves total records from a channel, chunking the request
// into capped batches walking backward in time. The result is sorted
// ascending with unique timestamps. If upstream history runs out before
// total records are found, the shorter series is returned without error;
// callers must check the length. Any batch-level error aborts the whole
// run, since the next boundary cannot be derived from a failed batch.
func (p *Paginator) FetchSeries(ctx context.Context, channelID int64, total int, opts feed.Options) (*timeseries.Series, error) {
	if total <= 0 {
		return nil, fmt.Errorf("total record count must be positive (got %d)", total)
	}

	start := time.Now()
	state := cursor{remaining: total}
	partial := false

	var acc *timeseries.Series
	batches := 0

	for state.remaining > 0 {
		batches++

		// Continuation batches re-fetch the record at the boundary
		// timestamp (the end bound is inclusive), so ask for one extra to
		// keep the net yield on target.
		size := state.remaining
		if acc != nil {
			size++
		}
		if size > p.config.BatchSize {
			size = p.config.BatchSize
		}

		batchOpts := opts
		batchOpts.Results = size
		if acc != nil {
			batchOpts.End = state.earliest
			batchOpts.Fields = acc.FieldMap
		}

		series, err := p.fetcher.FetchBatch(ctx, channelID, batchOpts)
		if err != nil {
			if acc != nil && errors.Is(err, feed.ErrEmptyResult) {
				// Nothing older than the boundary: upstream exhausted.
				partial = true
				break
			}
			return nil, fmt.Errorf("batch %d: %w", batches, err)
		}

		fetched := series.Len()
		paginationBatchesTotal.Inc()
		paginationRecordsTotal.Add(float64(fetched))

		earliest, _ := series.Earliest()
		state.earliest = earliest

		before := 0
		if acc == nil {
			acc = series
		} else {
			before = acc.Len()
			if err := acc.Merge(series); err != nil {
				return nil, &feed.MalformedDataError{Channel: channelID, Detail: "merge batches", Err: err}
			}
		}

		acc.Sort()
		duplicates := acc.DedupeByTimestamp()
		paginationDuplicatesTotal.Add(float64(duplicates))

		state.remaining = total - acc.Len()

		p.logger.Debug().
			Int64("channel_id", channelID).
			Int("batch", batches).
			Int("requested", size).
			Int("records", fetched).
			Int("duplicates", duplicates).
			Int("remaining", state.remaining).
			Time("boundary", state.earliest).
			Msg("Batch complete")

		if fetched < size {
			// The service returned fewer records than requested: there is
			// no older history to walk into.
			partial = true
			break
		}

		if before > 0 && acc.Len() == before {
			// Defensive: a batch that adds no new timestamps would loop on
			// the same boundary forever.
			p.logger.Warn().
				Int64("channel_id", channelID).
				Time("boundary", state.earliest).
				Msg("Batch added no new records, stopping")
			partial = true
			break
		}
	}

	if partial {
		paginationPartialTotal.Inc()
	}

	// A misbehaving upstream could return more records than requested;
	// keep the most recent total.
	acc.TrimOldest(total)

	p.logger.Info().
		Int64("channel_id", channelID).
		Int("requested", total).
		Int("records", acc.Len()).
		Int("batches", batches).
		Bool("partial", partial).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	return acc, nil
}
