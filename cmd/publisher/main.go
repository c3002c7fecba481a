package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"nevstats/internal/analysis"
	"nevstats/internal/model"
	"nevstats/internal/pipeline"
	"nevstats/internal/store/sqlite"
	"nevstats/internal/table"
)

type summaryFile struct {
	GeneratedAt string                 `json:"generated_at"`
	Source      string                 `json:"source"`
	RunID       string                 `json:"run_id,omitempty"`
	Cities      int                    `json:"cities,omitempty"`
	Periods     int                    `json:"periods"`
	FirstPeriod string                 `json:"first_period"`
	LastPeriod  string                 `json:"last_period"`
	Yearly      []analysis.YearSummary `json:"yearly"`
	Growth      []analysis.Growth      `json:"growth"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "build":
		build(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func build(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	outDir := fs.String("out", "site/data", "output directory")
	salesPath := fs.String("sales", "China_NEV_Sales_2015_2025.csv", "sales table written by the collector")
	dbPath := fs.String("db", "", "sqlite database path (takes precedence over -sales)")
	locale := fs.String("locale", "en", "header locale (en, zh)")
	delimiter := fs.String("delimiter", ",", "field delimiter of the tables")
	fs.Parse(args)

	if err := runPublisher(context.Background(), *outDir, *salesPath, *dbPath, *locale, *delimiter, time.Now().UTC()); err != nil {
		fmt.Fprintln(os.Stderr, "publisher build failed:", err)
		os.Exit(1)
	}
	fmt.Printf("publisher build complete (out=%s)\n", *outDir)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: publisher build [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -out        output directory (default: site/data)")
	fmt.Fprintln(os.Stderr, "  -sales      sales table path (default: China_NEV_Sales_2015_2025.csv)")
	fmt.Fprintln(os.Stderr, "  -db         sqlite database path (default: none)")
	fmt.Fprintln(os.Stderr, "  -locale     header locale: en, zh (default: en)")
	fmt.Fprintln(os.Stderr, "  -delimiter  field delimiter (default: ,)")
}

func runPublisher(ctx context.Context, outDir, salesPath, dbPath, locale, delimiter string, now time.Time) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	comma, size := utf8.DecodeRuneInString(delimiter)
	if size == 0 || size != len(delimiter) {
		return fmt.Errorf("delimiter must be a single character (got %q)", delimiter)
	}

	snap, err := loadSnapshot(ctx, salesPath, dbPath, comma)
	if err != nil {
		return err
	}
	records := snap.Sales
	if len(records) == 0 {
		return errors.New("no sales records to publish")
	}

	yearly := analysis.Yearly(records)
	growth := analysis.MonthOverMonth(records)

	writer := table.NewCSVWriter(comma)
	loc := table.Locale(locale)
	if err := writer.WriteFile(filepath.Join(outDir, "yearly.csv"), analysis.YearlyTable(yearly, loc)); err != nil {
		return err
	}
	if err := writer.WriteFile(filepath.Join(outDir, "growth.csv"), analysis.GrowthTable(growth, loc)); err != nil {
		return err
	}
	if len(snap.Regional) > 0 {
		regional := table.NewNormalizer(loc).Regional(snap.Regional)
		if err := writer.WriteFile(filepath.Join(outDir, "regional.csv"), regional); err != nil {
			return err
		}
	}

	summary := summaryFile{
		GeneratedAt: now.Format(time.RFC3339),
		Source:      snap.Source,
		RunID:       snap.RunID,
		Cities:      len(snap.Regional),
		Periods:     len(records),
		FirstPeriod: records[0].Period(),
		LastPeriod:  records[len(records)-1].Period(),
		Yearly:      yearly,
		Growth:      growth,
	}
	return writeJSON(filepath.Join(outDir, "summary.json"), summary)
}

type snapshot struct {
	Sales    []model.SalesRecord
	Regional []model.RegionalRecord
	Source   string
	RunID    string
}

// loadSnapshot reads the sales series from sqlite when dbPath is set, together
// with the regional snapshot and the id of the run that wrote the sales, and
// falls back to the sales CSV otherwise.
func loadSnapshot(ctx context.Context, salesPath, dbPath string, comma rune) (snapshot, error) {
	if strings.TrimSpace(dbPath) != "" {
		st, err := sqlite.New(dbPath)
		if err != nil {
			return snapshot{}, err
		}
		defer st.Close()
		snap := snapshot{Source: "sqlite:" + dbPath}
		if snap.Sales, err = st.ListSales(ctx); err != nil {
			return snapshot{}, fmt.Errorf("load sales from %s: %w", dbPath, err)
		}
		if snap.Regional, err = st.ListRegional(ctx); err != nil {
			return snapshot{}, fmt.Errorf("load regional from %s: %w", dbPath, err)
		}
		if snap.RunID, err = st.LastRun(ctx, pipeline.DatasetSales); err != nil {
			return snapshot{}, fmt.Errorf("load last run from %s: %w", dbPath, err)
		}
		return snap, nil
	}

	header, rows, err := table.ReadCSV(salesPath, comma)
	if err != nil {
		return snapshot{}, fmt.Errorf("read %s: %w", salesPath, err)
	}
	records, err := table.ParseSales(header, rows)
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{Sales: records, Source: "csv:" + salesPath}, nil
}

func writeJSON(path string, value any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}
