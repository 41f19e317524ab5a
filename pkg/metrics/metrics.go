// Package metrics provides the central Prometheus registry reference for
// the ingestion client. All metrics are defined in their respective
// packages (thingspeak, pagination) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the ingestion client.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Transport Metrics (pkg/thingspeak):
//   - thingspeak_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - thingspeak_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - thingspeak_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/thingspeak):
//   - thingspeak_retries_total{error_class} (Counter): Retry attempts by error class
//   - thingspeak_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - thingspeak_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pagination Metrics (pkg/pagination):
//   - pagination_batches_total (Counter): Batch requests issued
//   - pagination_records_fetched_total (Counter): Records fetched across all runs
//   - pagination_boundary_duplicates_total (Counter): Boundary-overlap records removed
//   - pagination_partial_results_total (Counter): Runs ended early by upstream exhaustion
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(thingspeak_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(thingspeak_request_duration_seconds_bucket[5m]))
//
//   # Records Fetched per Hour
//   increase(pagination_records_fetched_total[1h])
//
//   # Partial Result Rate
//   rate(pagination_partial_results_total[5m])
