// Package pagination retrieves result sets larger than the per-request cap
// by walking backward in time.
//
// The service only supports "most recent N" and "N before timestamp T"
// semantics, so batches cannot be parallelized: each continuation request
// needs the earliest timestamp of the previous batch as its end bound. The
// paginator threads that cursor through a sequential loop and stitches the
// batches into one ordered, deduplicated series.
//
// Example usage:
//
//	fetcher := feed.NewFetcher(transport)
//	paginator := pagination.New(fetcher, pagination.DefaultConfig())
//	series, err := paginator.FetchSeries(ctx, channelID, 20000, feed.Options{})
//
// The paginator:
//   - Issues the first batch with no end bound (most recent records)
//   - Derives each end bound from the previous batch's earliest timestamp
//   - Requests one extra record per continuation to cover the inclusive
//     boundary, then dedupes by timestamp equality
//   - Stops early when the upstream runs out of history and returns the
//     shorter series without error
package pagination
