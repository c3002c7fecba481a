package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"nevstats/internal/model"
	"nevstats/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ReplaceSales(ctx context.Context, run store.Run, records []model.SalesRecord) error {
	return s.replace(ctx, "sales", run, len(records), func(tx *sql.Tx, ingestedAt time.Time) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales_records (
				position, period, year, month, total_sales, bev_sales, phev_sales,
				penetration_rate, run_id, ingested_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, r := range records {
			if _, err := stmt.ExecContext(ctx,
				i,
				r.Period(),
				r.Year,
				r.Month,
				r.TotalSales,
				r.BEVSales,
				r.PHEVSales,
				r.PenetrationRate,
				run.ID,
				ingestedAt,
			); err != nil {
				return fmt.Errorf("sqlite: insert %s: %w", r.Period(), err)
			}
		}
		return nil
	})
}

func (s *Store) ReplaceRegional(ctx context.Context, run store.Run, records []model.RegionalRecord) error {
	return s.replace(ctx, "regional", run, len(records), func(tx *sql.Tx, ingestedAt time.Time) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO regional_records (
				position, city, tier, license_restricted, public_charger_count,
				registration_count, charger_density, run_id, ingested_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, r := range records {
			if _, err := stmt.ExecContext(ctx,
				i,
				r.City,
				string(r.Tier),
				r.LicenseRestricted,
				r.PublicChargerCount,
				r.RegistrationCount,
				r.ChargerDensity,
				run.ID,
				ingestedAt,
			); err != nil {
				return fmt.Errorf("sqlite: insert %s: %w", r.City, err)
			}
		}
		return nil
	})
}

// replace swaps the dataset's rows and records the run in one transaction.
func (s *Store) replace(ctx context.Context, dataset string, run store.Run, rows int, insert func(*sql.Tx, time.Time) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	table := dataset + "_records"
	if _, err = tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err = insert(tx, now); err != nil {
		return err
	}

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = now
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, dataset, provider, row_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, dataset) DO UPDATE SET
			provider = excluded.provider,
			row_count = excluded.row_count,
			finished_at = excluded.finished_at
	`, run.ID, dataset, run.Provider, rows, startedAt.UTC(), now); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) ListSales(ctx context.Context) ([]model.SalesRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, total_sales, bev_sales, phev_sales, penetration_rate
		FROM sales_records
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.SalesRecord, 0)
	for rows.Next() {
		var r model.SalesRecord
		if err := rows.Scan(&r.Year, &r.Month, &r.TotalSales, &r.BEVSales, &r.PHEVSales, &r.PenetrationRate); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) ListRegional(ctx context.Context) ([]model.RegionalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT city, tier, license_restricted, public_charger_count, registration_count, charger_density
		FROM regional_records
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.RegionalRecord, 0)
	for rows.Next() {
		var (
			r    model.RegionalRecord
			tier string
		)
		if err := rows.Scan(&r.City, &tier, &r.LicenseRestricted, &r.PublicChargerCount, &r.RegistrationCount, &r.ChargerDensity); err != nil {
			return nil, err
		}
		r.Tier = model.Tier(tier)
		records = append(records, r)
	}
	return records, rows.Err()
}

// LastRun returns the id of the most recent run recorded for dataset.
func (s *Store) LastRun(ctx context.Context, dataset string) (string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id FROM runs WHERE dataset = ? ORDER BY finished_at DESC LIMIT 1
	`, dataset).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return runID, err
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS sales_records (
			position INTEGER NOT NULL,
			period TEXT NOT NULL PRIMARY KEY,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			total_sales INTEGER NOT NULL,
			bev_sales INTEGER NOT NULL,
			phev_sales INTEGER NOT NULL,
			penetration_rate REAL NOT NULL,
			run_id TEXT NOT NULL,
			ingested_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS regional_records (
			position INTEGER NOT NULL,
			city TEXT NOT NULL PRIMARY KEY,
			tier TEXT NOT NULL,
			license_restricted INTEGER NOT NULL,
			public_charger_count INTEGER NOT NULL,
			registration_count INTEGER NOT NULL,
			charger_density REAL NOT NULL,
			run_id TEXT NOT NULL,
			ingested_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT NOT NULL,
			dataset TEXT NOT NULL,
			provider TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			PRIMARY KEY (run_id, dataset)
		);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}

var _ store.Store = (*Store)(nil)
