package providers

import (
	"context"
	"errors"

	"nevstats/internal/model"
)

var ErrNoRecords = errors.New("providers: no records found")

// SalesProvider returns the monthly records of one year. lastMonth bounds the
// months the caller wants (12 for full years, the cutoff for the terminal year).
type SalesProvider interface {
	Name() string
	FetchYear(ctx context.Context, year, lastMonth int) ([]model.SalesRecord, error)
}

// RegionalProvider fills in infrastructure counts for a city whose tier and
// license restriction are already known.
type RegionalProvider interface {
	Name() string
	FetchCity(ctx context.Context, city model.City) (model.RegionalRecord, error)
}
