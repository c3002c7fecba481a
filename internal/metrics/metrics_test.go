package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistryCounters(t *testing.T) {
	r := NewRegistry()
	r.YearsFetched.Add(3)
	r.YearsFailed.Inc()
	r.RowsWritten.WithLabelValues("sales").Add(24)

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetCounter() != nil {
				values[family.GetName()] += metric.GetCounter().GetValue()
			}
		}
	}
	if values["nev_sales_years_fetched_total"] != 3 {
		t.Fatalf("years fetched = %v, want 3", values["nev_sales_years_fetched_total"])
	}
	if values["nev_sales_years_failed_total"] != 1 {
		t.Fatalf("years failed = %v, want 1", values["nev_sales_years_failed_total"])
	}
	if values["nev_rows_written_total"] != 24 {
		t.Fatalf("rows written = %v, want 24", values["nev_rows_written_total"])
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.CitiesFetched.Add(10)
	path := filepath.Join(t.TempDir(), "nev.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "nev_regional_cities_fetched_total 10") {
		t.Fatalf("textfile missing counter:\n%s", data)
	}
}
