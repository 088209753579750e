package pagination

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sternrassler/jam/pkg/metrics"
)

var (
	fetchPages = metrics.Factory.NewCounterVec(prometheus.CounterOpts{
		Name: "jam_fetch_pages_total",
		Help: "Page and entity requests issued by the fetch engines",
	}, []string{"endpoint"})

	fetchRecords = metrics.Factory.NewCounterVec(prometheus.CounterOpts{
		Name: "jam_fetch_records_total",
		Help: "Records merged by the fetch engines",
	}, []string{"endpoint"})
)
