// Package metrics holds the Prometheus registry shared by the jam packages.
// Metrics are defined next to the code that records them (client, auth,
// cache, pagination) and registered here through Factory.
//
// A CLI process lives for one command, so nothing is scraped. Instead the
// registry can be flushed once, at exit, into a node_exporter textfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the registry every jam metric is registered with.
var Registry = prometheus.NewRegistry()

// Factory registers new collectors with Registry.
var Factory = promauto.With(Registry)

// WriteTextfile writes the current state of Registry to path in the
// Prometheus text exposition format. The write is atomic.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - jam_requests_total{endpoint, status} (Counter): requests by endpoint family and HTTP status
//   - jam_request_duration_seconds{endpoint} (Histogram): request latency
//   - jam_errors_total{class} (Counter): errors by class (client, server, network, auth)
//
// Auth Metrics (pkg/auth):
//   - jam_token_exchanges_total{result} (Counter): client-credentials exchanges (ok, rejected, error)
//
// Pagination Metrics (pkg/pagination):
//   - jam_fetch_pages_total{endpoint} (Counter): page requests issued
//   - jam_fetch_records_total{endpoint} (Counter): records merged
//
// Cache Metrics (pkg/cache):
//   - jam_cache_hits_total (Counter)
//   - jam_cache_misses_total (Counter)
//   - jam_cache_errors_total{operation} (Counter)
//
// Example queries against the textfile collector:
//
//   # Records fetched per run
//   sum by (endpoint) (jam_fetch_records_total)
//
//   # Error ratio
//   sum(jam_errors_total) / sum(jam_requests_total)
