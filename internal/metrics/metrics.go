package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	FilesParsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aspathminer_files_parsed_total",
			Help: "MRT RIB files successfully decoded.",
		},
		[]string{},
	)

	ParseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aspathminer_parse_errors_total",
			Help: "MRT decode failures by error kind.",
		},
		[]string{"kind"},
	)

	RoutesInsertedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aspathminer_routes_inserted_total",
			Help: "Routes inserted into PathData, including AS_SET fan-out copies.",
		},
		[]string{},
	)

	FileParseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aspathminer_file_parse_duration_seconds",
			Help:    "Per-file MRT decode + insert latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{},
	)

	MergeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aspathminer_merge_duration_seconds",
			Help:    "Pairwise-tree PathData merge latency for a full run.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{},
	)

	OriginsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aspathminer_origins_total",
			Help: "Distinct origin ASNs in the merged PathData after reduction.",
		},
		[]string{},
	)

	AsPathsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aspathminer_as_paths_total",
			Help: "Distinct AsPaths in the merged PathData after reduction.",
		},
		[]string{},
	)

	AnomaliesFoundTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aspathminer_anomalies_found_total",
			Help: "Findings reported by each analysis pass.",
		},
		[]string{"pass"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default Prometheus registry.
// Calls after the first are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FilesParsedTotal,
			ParseErrorsTotal,
			RoutesInsertedTotal,
			FileParseDuration,
			MergeDuration,
			OriginsTotal,
			AsPathsTotal,
			AnomaliesFoundTotal,
		)
	})
}
