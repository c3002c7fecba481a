package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"nevstats/internal/config"
	"nevstats/internal/logging"
	"nevstats/internal/metrics"
	"nevstats/internal/pipeline"
	"nevstats/internal/providers"
	"nevstats/internal/providers/httpapi"
	"nevstats/internal/providers/simulated"
	"nevstats/internal/store"
	"nevstats/internal/store/sqlite"
	"nevstats/internal/table"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		run(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

type options struct {
	configPath    string
	provider      string
	startYear     int
	endYear       int
	cutoffMonth   int
	seed          int64
	salesOut      string
	regionalOut   string
	milestonesOut string
	workbook      string
	dbPath        string
	metricsFile   string
	locale        string
	noPause       bool
	verbose       bool
	logFormat     string
}

func run(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	opts := options{}
	fs.StringVar(&opts.configPath, "config", "", "path to config.toml (empty = built-in defaults)")
	fs.StringVar(&opts.provider, "provider", "simulated", "provider id (simulated, httpapi)")
	fs.IntVar(&opts.startYear, "start-year", 0, "first year of the sales series")
	fs.IntVar(&opts.endYear, "end-year", 0, "terminal year of the sales series")
	fs.IntVar(&opts.cutoffMonth, "cutoff-month", 0, "last month available in the terminal year")
	fs.Int64Var(&opts.seed, "seed", 0, "random seed for the simulated provider (0 = time based)")
	fs.StringVar(&opts.salesOut, "sales-out", "", "sales table path")
	fs.StringVar(&opts.regionalOut, "regional-out", "", "regional table path")
	fs.StringVar(&opts.milestonesOut, "milestones-out", "", "policy milestones table path")
	fs.StringVar(&opts.workbook, "workbook", "", "xlsx workbook path (empty disables)")
	fs.StringVar(&opts.dbPath, "db", "", "sqlite database path (empty disables persistence)")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "prometheus textfile path (empty disables)")
	fs.StringVar(&opts.locale, "locale", "", "header locale (en, zh)")
	fs.BoolVar(&opts.noPause, "no-pause", false, "skip the pause between year fetches")
	fs.BoolVar(&opts.verbose, "verbose", false, "debug logging")
	fs.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	fs.Parse(args)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "collector run failed:", err)
		os.Exit(1)
	}
	applyOptions(cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "collector run failed:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "collector run failed:", err)
		os.Exit(1)
	}

	if err := runCollector(context.Background(), cfg, opts.provider, logger); err != nil {
		logger.WithError(err).Error("collector run failed")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: collector run [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -config          path to config.toml (default: built-in)")
	fmt.Fprintln(os.Stderr, "  -provider        provider id: simulated, httpapi (default: simulated)")
	fmt.Fprintln(os.Stderr, "  -start-year      first year (default: 2015)")
	fmt.Fprintln(os.Stderr, "  -end-year        terminal year (default: 2025)")
	fmt.Fprintln(os.Stderr, "  -cutoff-month    last month of the terminal year (default: 10)")
	fmt.Fprintln(os.Stderr, "  -seed            random seed (default: time based)")
	fmt.Fprintln(os.Stderr, "  -sales-out       sales table path")
	fmt.Fprintln(os.Stderr, "  -regional-out    regional table path")
	fmt.Fprintln(os.Stderr, "  -milestones-out  policy milestones table path")
	fmt.Fprintln(os.Stderr, "  -workbook        xlsx workbook path")
	fmt.Fprintln(os.Stderr, "  -db              sqlite database path")
	fmt.Fprintln(os.Stderr, "  -metrics-file    prometheus textfile path")
	fmt.Fprintln(os.Stderr, "  -locale          header locale: en, zh (default: en)")
	fmt.Fprintln(os.Stderr, "  -no-pause        skip the pause between year fetches")
	fmt.Fprintln(os.Stderr, "  -verbose         debug logging")
	fmt.Fprintln(os.Stderr, "  -log-format      text or json (default: text)")
}

// applyOptions overrides config values with the flags that were set.
func applyOptions(cfg *config.Config, opts options) {
	if opts.startYear != 0 {
		cfg.Sales.StartYear = opts.startYear
	}
	if opts.endYear != 0 {
		cfg.Sales.EndYear = opts.endYear
	}
	if opts.cutoffMonth != 0 {
		cfg.Sales.CutoffMonth = opts.cutoffMonth
	}
	if opts.seed != 0 {
		cfg.Sales.Seed = opts.seed
	}
	setIfNotEmpty(&cfg.Output.SalesPath, opts.salesOut)
	setIfNotEmpty(&cfg.Output.RegionalPath, opts.regionalOut)
	setIfNotEmpty(&cfg.Output.MilestonesPath, opts.milestonesOut)
	setIfNotEmpty(&cfg.Output.WorkbookPath, opts.workbook)
	setIfNotEmpty(&cfg.Output.DBPath, opts.dbPath)
	setIfNotEmpty(&cfg.Output.MetricsPath, opts.metricsFile)
	setIfNotEmpty(&cfg.Output.HeaderLocale, opts.locale)
	setIfNotEmpty(&cfg.Log.Format, opts.logFormat)
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if opts.noPause {
		cfg.Sales.PauseMinSec = 0
		cfg.Sales.PauseMaxSec = 0
	}
}

func setIfNotEmpty(dest *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dest = strings.TrimSpace(value)
	}
}

func runCollector(ctx context.Context, cfg *config.Config, providerID string, logger *logrus.Logger) error {
	started := time.Now()
	seed := cfg.Sales.Seed
	if seed == 0 {
		seed = started.UnixNano()
	}

	salesProvider, regionalProvider, err := buildProviders(providerID, cfg, seed)
	if err != nil {
		return err
	}

	st, err := openStore(cfg.Output.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runID := uuid.NewString()
	log := logger.WithField("run_id", runID)
	reg := metrics.NewRegistry()

	delimiter, _ := utf8.DecodeRuneInString(cfg.Output.Delimiter)
	writer := table.NewCSVWriter(delimiter)
	normalizer := table.NewNormalizer(table.Locale(cfg.Output.HeaderLocale))
	storeRun := store.Run{ID: runID, Provider: salesProvider.Name(), StartedAt: started}

	var (
		failures []error
		tables   []table.Table
	)

	pauseMin, pauseMax := cfg.Sales.PauseRange()
	sales := &pipeline.SalesBuilder{
		Provider:   salesProvider,
		Normalizer: normalizer,
		Writer:     writer,
		Logger:     log,
		Metrics:    reg,
		PauseMin:   pauseMin,
		PauseMax:   pauseMax,
		Rand:       rand.New(rand.NewSource(seed + 2)),
	}
	salesResult, err := sales.Build(ctx, pipeline.SalesRequest{
		StartYear:   cfg.Sales.StartYear,
		EndYear:     cfg.Sales.EndYear,
		CutoffMonth: cfg.Sales.CutoffMonth,
	}, cfg.Output.SalesPath)
	if err != nil {
		failures = append(failures, err)
	} else {
		tables = append(tables, salesResult.Table)
		if err := st.ReplaceSales(ctx, storeRun, salesResult.Sales); err != nil {
			failures = append(failures, fmt.Errorf("store sales snapshot: %w", err))
		}
	}

	regional := &pipeline.RegionalBuilder{
		Provider:   regionalProvider,
		Normalizer: normalizer,
		Writer:     writer,
		Logger:     log,
		Metrics:    reg,
	}
	regionalResult, err := regional.Build(ctx, cfg.Regional.ModelCities(), cfg.Output.RegionalPath)
	if err != nil {
		failures = append(failures, err)
	} else {
		tables = append(tables, regionalResult.Table)
		if err := st.ReplaceRegional(ctx, storeRun, regionalResult.Regional); err != nil {
			failures = append(failures, fmt.Errorf("store regional snapshot: %w", err))
		}
	}

	if cfg.Output.MilestonesPath != "" {
		milestones, err := pipeline.BuildMilestones(pipeline.DefaultMilestones(), normalizer, writer, log, cfg.Output.MilestonesPath)
		if err != nil {
			failures = append(failures, err)
		} else {
			tables = append(tables, milestones.Table)
		}
	}

	if cfg.Output.WorkbookPath != "" && len(tables) > 0 {
		if err := table.WriteWorkbook(cfg.Output.WorkbookPath, tables...); err != nil {
			failures = append(failures, &pipeline.WriteError{Dataset: "workbook", Path: cfg.Output.WorkbookPath, Err: err})
		} else {
			log.WithField("path", cfg.Output.WorkbookPath).Info("workbook written")
		}
	}

	reg.RunDurationSec.Set(time.Since(started).Seconds())
	if cfg.Output.MetricsPath != "" {
		if err := reg.WriteTextfile(cfg.Output.MetricsPath); err != nil {
			log.WithError(err).Warn("metrics textfile not written")
		}
	}

	log.WithFields(logrus.Fields{
		"provider":       providerID,
		"sales_rows":     salesResult.Table.Len(),
		"failed_years":   salesResult.Failed,
		"regional_rows":  regionalResult.Table.Len(),
		"failed_cities":  regionalResult.Failed,
		"write_failures": len(failures),
		"seed":           seed,
	}).Info("collector run complete")

	return errors.Join(failures...)
}

func buildProviders(providerID string, cfg *config.Config, seed int64) (providers.SalesProvider, providers.RegionalProvider, error) {
	switch strings.ToLower(strings.TrimSpace(providerID)) {
	case "simulated", "":
		sales := simulated.NewSales(cfg.Sales, rand.New(rand.NewSource(seed)))
		regional := simulated.NewRegional(cfg.Regional, rand.New(rand.NewSource(seed+1)))
		return sales, regional, nil
	case "httpapi":
		p, err := httpapi.New()
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider: %s", providerID)
	}
}

func openStore(path string) (store.Store, error) {
	if strings.TrimSpace(path) == "" {
		return &store.NopStore{}, nil
	}
	return sqlite.New(path)
}
