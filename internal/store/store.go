package store

import (
	"context"
	"time"

	"nevstats/internal/model"
)

// Store keeps the latest snapshot of each dataset. Replace calls discard the
// previous snapshot of that dataset entirely.
type Store interface {
	ReplaceSales(ctx context.Context, run Run, records []model.SalesRecord) error
	ReplaceRegional(ctx context.Context, run Run, records []model.RegionalRecord) error
	ListSales(ctx context.Context) ([]model.SalesRecord, error)
	ListRegional(ctx context.Context) ([]model.RegionalRecord, error)
	Close() error
}

type Run struct {
	ID        string
	Provider  string
	StartedAt time.Time
}

type NopStore struct{}

func (s *NopStore) ReplaceSales(ctx context.Context, run Run, records []model.SalesRecord) error {
	_ = ctx
	_ = run
	_ = records
	return nil
}

func (s *NopStore) ReplaceRegional(ctx context.Context, run Run, records []model.RegionalRecord) error {
	_ = ctx
	_ = run
	_ = records
	return nil
}

func (s *NopStore) ListSales(ctx context.Context) ([]model.SalesRecord, error) {
	_ = ctx
	return nil, nil
}

func (s *NopStore) ListRegional(ctx context.Context) ([]model.RegionalRecord, error) {
	_ = ctx
	return nil, nil
}

func (s *NopStore) Close() error {
	return nil
}
