// Package pipeline wires a source provider, the record normalizer and a table
// writer into one run per dataset. The datasets share nothing; a write failure
// in one never affects another.
package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"nevstats/internal/logging"
	"nevstats/internal/model"
	"nevstats/internal/table"
)

// TableWriter persists a whole table at path, replacing whatever was there.
type TableWriter interface {
	WriteFile(path string, t table.Table) error
}

// WriteError is the fatal failure of one dataset.
type WriteError struct {
	Dataset string
	Path    string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s table to %s: %v", e.Dataset, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Result describes a finished dataset run.
type Result struct {
	Dataset string
	Path    string
	Table   table.Table
	Failed  []string

	// Normalized records behind Table, for the dataset that produced them.
	Sales    []model.SalesRecord
	Regional []model.RegionalRecord
}

func loggerOrDiscard(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger == nil {
		return logging.Discard()
	}
	return logger
}
