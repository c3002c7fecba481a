package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"nevstats/internal/config"
	"nevstats/internal/logging"
	"nevstats/internal/metrics"
	"nevstats/internal/model"
	"nevstats/internal/providers"
	"nevstats/internal/table"
)

const DatasetSales = "sales"

var ErrDuplicatePeriod = errors.New("duplicate period")

type SalesRequest struct {
	StartYear   int
	EndYear     int
	CutoffMonth int
}

func (r SalesRequest) Validate() error {
	if r.StartYear > r.EndYear {
		return fmt.Errorf("%w (%d > %d)", config.ErrInvalidYearRange, r.StartYear, r.EndYear)
	}
	if r.CutoffMonth < 1 || r.CutoffMonth > 12 {
		return fmt.Errorf("%w (got %d)", config.ErrInvalidCutoff, r.CutoffMonth)
	}
	return nil
}

// lastMonth is 12 for every year but the terminal one, which stops at the cutoff.
func (r SalesRequest) lastMonth(year int) int {
	if year == r.EndYear {
		return r.CutoffMonth
	}
	return 12
}

type SalesBuilder struct {
	Provider   providers.SalesProvider
	Normalizer table.Normalizer
	Writer     TableWriter
	Logger     logrus.FieldLogger
	Metrics    *metrics.Registry

	// PauseMin and PauseMax bound the randomized wait between year fetches.
	PauseMin time.Duration
	PauseMax time.Duration
	Rand     *rand.Rand
	Sleep    func(time.Duration)
}

// Collect fetches every year of the request in order. A failed year is logged
// and skipped; the remaining years are still fetched.
func (b *SalesBuilder) Collect(ctx context.Context, req SalesRequest) ([]model.SalesRecord, []int, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	logger := loggerOrDiscard(b.Logger).WithFields(logrus.Fields{
		"dataset":  DatasetSales,
		"provider": b.Provider.Name(),
	})
	logger.WithFields(logrus.Fields{"start_year": req.StartYear, "end_year": req.EndYear}).Info("collecting sales series")

	records := make([]model.SalesRecord, 0, 12*(req.EndYear-req.StartYear+1))
	var failed []int
	for year := req.StartYear; year <= req.EndYear; year++ {
		if year > req.StartYear {
			b.pause()
		}

		lastMonth := req.lastMonth(year)
		logger.WithField("year", year).Debug("fetching year")
		fetched, err := b.Provider.FetchYear(ctx, year, lastMonth)
		if err == nil {
			fetched, err = acceptYear(fetched, year, lastMonth)
		}
		if err != nil {
			failed = append(failed, year)
			if b.Metrics != nil {
				b.Metrics.YearsFailed.Inc()
			}
			logging.LogError(logger, "pipeline", "SalesBuilder.Collect", logrus.Fields{"year": year}, fmt.Errorf("sales fetch failed, continuing with remaining years: %w", err))
			continue
		}
		if b.Metrics != nil {
			b.Metrics.YearsFetched.Inc()
		}

		for _, r := range fetched {
			logger.WithFields(logrus.Fields{
				"period":           r.Period(),
				"total_sales":      r.TotalSales,
				"bev_sales":        r.BEVSales,
				"phev_sales":       r.PHEVSales,
				"penetration_rate": r.PenetrationRate,
			}).Debug("sales record")
		}
		records = append(records, fetched...)
	}
	return records, failed, nil
}

// acceptYear keeps the records that belong to year and stop at lastMonth. A
// repeated period fails the whole year.
func acceptYear(fetched []model.SalesRecord, year, lastMonth int) ([]model.SalesRecord, error) {
	kept := make([]model.SalesRecord, 0, len(fetched))
	seen := make(map[string]struct{}, len(fetched))
	for _, r := range fetched {
		if r.Year != year || r.Month < 1 || r.Month > lastMonth {
			continue
		}
		period := r.Period()
		if _, dup := seen[period]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePeriod, period)
		}
		seen[period] = struct{}{}
		kept = append(kept, r)
	}
	return kept, nil
}

// Build collects, normalizes and writes the sales table to path.
func (b *SalesBuilder) Build(ctx context.Context, req SalesRequest, path string) (Result, error) {
	records, failed, err := b.Collect(ctx, req)
	if err != nil {
		return Result{}, err
	}

	t := b.Normalizer.Sales(records)
	result := Result{Dataset: DatasetSales, Path: path, Table: t, Sales: table.NormalizeSales(records)}
	for _, year := range failed {
		result.Failed = append(result.Failed, strconv.Itoa(year))
	}

	if err := b.Writer.WriteFile(path, t); err != nil {
		if b.Metrics != nil {
			b.Metrics.WriteFailures.WithLabelValues(DatasetSales).Inc()
		}
		return result, &WriteError{Dataset: DatasetSales, Path: path, Err: err}
	}
	if b.Metrics != nil {
		b.Metrics.RowsWritten.WithLabelValues(DatasetSales).Add(float64(t.Len()))
	}
	loggerOrDiscard(b.Logger).WithFields(logrus.Fields{
		"dataset": DatasetSales,
		"path":    path,
		"rows":    t.Len(),
		"failed":  len(failed),
	}).Info("sales table written")
	return result, nil
}

func (b *SalesBuilder) pause() {
	if b.PauseMax <= 0 || b.PauseMax < b.PauseMin {
		return
	}
	delay := b.PauseMin
	if span := int64(b.PauseMax - b.PauseMin); span > 0 && b.Rand != nil {
		delay += time.Duration(b.Rand.Int63n(span + 1))
	}
	if delay <= 0 {
		return
	}
	sleep := b.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(delay)
}
