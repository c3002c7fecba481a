package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Registry struct {
	reg            *prometheus.Registry
	YearsFetched   prometheus.Counter
	YearsFailed    prometheus.Counter
	CitiesFetched  prometheus.Counter
	CitiesFailed   prometheus.Counter
	RowsWritten    *prometheus.CounterVec
	WriteFailures  *prometheus.CounterVec
	RunDurationSec prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	yearsFetched := prometheus.NewCounter(prometheus.CounterOpts{Name: "nev_sales_years_fetched_total"})
	yearsFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "nev_sales_years_failed_total"})
	citiesFetched := prometheus.NewCounter(prometheus.CounterOpts{Name: "nev_regional_cities_fetched_total"})
	citiesFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "nev_regional_cities_failed_total"})
	rowsWritten := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "nev_rows_written_total"}, []string{"dataset"})
	writeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "nev_write_failures_total"}, []string{"dataset"})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{Name: "nev_collector_run_duration_seconds"})

	r.MustRegister(yearsFetched, yearsFailed, citiesFetched, citiesFailed, rowsWritten, writeFailures, duration)
	return &Registry{
		reg:            r,
		YearsFetched:   yearsFetched,
		YearsFailed:    yearsFailed,
		CitiesFetched:  citiesFetched,
		CitiesFailed:   citiesFailed,
		RowsWritten:    rowsWritten,
		WriteFailures:  writeFailures,
		RunDurationSec: duration,
	}
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
