package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"nevstats/internal/logging"
	"nevstats/internal/metrics"
	"nevstats/internal/model"
	"nevstats/internal/providers"
	"nevstats/internal/table"
)

const DatasetRegional = "regional"

type RegionalBuilder struct {
	Provider   providers.RegionalProvider
	Normalizer table.Normalizer
	Writer     TableWriter
	Logger     logrus.FieldLogger
	Metrics    *metrics.Registry
}

// Collect fetches cities in input order. The first failure ends the stage; the
// records gathered so far are returned alongside the failed city.
func (b *RegionalBuilder) Collect(ctx context.Context, cities []model.City) ([]model.RegionalRecord, []string) {
	logger := loggerOrDiscard(b.Logger).WithFields(logrus.Fields{
		"dataset":  DatasetRegional,
		"provider": b.Provider.Name(),
	})
	logger.WithField("cities", len(cities)).Info("collecting regional snapshot")

	records := make([]model.RegionalRecord, 0, len(cities))
	for _, city := range cities {
		record, err := b.Provider.FetchCity(ctx, city)
		if err != nil {
			if b.Metrics != nil {
				b.Metrics.CitiesFailed.Inc()
			}
			logging.LogError(logger, "pipeline", "RegionalBuilder.Collect", logrus.Fields{"city": city.Name}, fmt.Errorf("regional fetch failed, writing collected cities: %w", err))
			return records, []string{city.Name}
		}
		if b.Metrics != nil {
			b.Metrics.CitiesFetched.Inc()
		}
		logger.WithFields(logrus.Fields{
			"city":                 record.City,
			"public_charger_count": record.PublicChargerCount,
			"registration_count":   record.RegistrationCount,
			"charger_density":      record.ChargerDensity,
		}).Debug("regional record")
		records = append(records, record)
	}
	return records, nil
}

// Build writes the regional table even when collection stopped early.
func (b *RegionalBuilder) Build(ctx context.Context, cities []model.City, path string) (Result, error) {
	records, failed := b.Collect(ctx, cities)

	t := b.Normalizer.Regional(records)
	result := Result{
		Dataset:  DatasetRegional,
		Path:     path,
		Table:    t,
		Failed:   failed,
		Regional: table.NormalizeRegional(records),
	}
	if err := b.Writer.WriteFile(path, t); err != nil {
		if b.Metrics != nil {
			b.Metrics.WriteFailures.WithLabelValues(DatasetRegional).Inc()
		}
		return result, &WriteError{Dataset: DatasetRegional, Path: path, Err: err}
	}
	if b.Metrics != nil {
		b.Metrics.RowsWritten.WithLabelValues(DatasetRegional).Add(float64(t.Len()))
	}
	loggerOrDiscard(b.Logger).WithFields(logrus.Fields{
		"dataset": DatasetRegional,
		"path":    path,
		"rows":    t.Len(),
	}).Info("regional table written")
	return result, nil
}
