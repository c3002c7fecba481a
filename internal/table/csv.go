package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// OutputFileMode is applied to every table before it replaces the destination.
const OutputFileMode os.FileMode = 0o644

var ErrEmptyPath = errors.New("table: destination path is required")

// CSVWriter writes UTF-8 (with BOM) delimited files. A file is either written
// completely or left untouched: rows go to a temporary sibling that is renamed
// over the destination only after a clean flush.
type CSVWriter struct {
	Delimiter rune
}

func NewCSVWriter(delimiter rune) CSVWriter {
	if delimiter == 0 {
		delimiter = ','
	}
	return CSVWriter{Delimiter: delimiter}
}

func (w CSVWriter) WriteFile(path string, t Table) (err error) {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("table: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("table: create temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = w.Encode(tmp, t); err != nil {
		return fmt.Errorf("table: write %s: %w", path, err)
	}
	if err = tmp.Chmod(OutputFileMode); err != nil {
		return fmt.Errorf("table: chmod %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("table: sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("table: close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("table: replace %s: %w", path, err)
	}
	return nil
}

// Encode writes the header and rows of t to out.
func (w CSVWriter) Encode(out io.Writer, t Table) error {
	encoded := transform.NewWriter(out, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(encoded)
	cw.Comma = w.delimiter()

	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return err
	}
	return encoded.Close()
}

func (w CSVWriter) delimiter() rune {
	if w.Delimiter == 0 {
		return ','
	}
	return w.Delimiter
}

// ReadCSV loads a file written by CSVWriter. A leading BOM is optional.
func ReadCSV(path string, delimiter rune) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	return DecodeCSV(file, delimiter)
}

func DecodeCSV(in io.Reader, delimiter rune) ([]string, [][]string, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	reader := csv.NewReader(transform.NewReader(in, unicode.UTF8BOM.NewDecoder()))
	reader.Comma = delimiter

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("table: missing header row")
	}
	return records[0], records[1:], nil
}
