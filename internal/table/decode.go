package table

import (
	"fmt"
	"strconv"
	"strings"

	"nevstats/internal/model"
)

// ParseSales converts rows read back from a sales table into records. Both the
// English and the localized header are accepted.
func ParseSales(header []string, rows [][]string) ([]model.SalesRecord, error) {
	index, err := columnIndex(SalesSchema, header)
	if err != nil {
		return nil, err
	}

	records := make([]model.SalesRecord, 0, len(rows))
	for i, row := range rows {
		get := func(key string) string {
			pos := index[key]
			if pos >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[pos])
		}

		year, month, ok := model.ParseYearMonth(get("period"))
		if !ok {
			return nil, fmt.Errorf("table: row %d: invalid period %q", i+1, get("period"))
		}
		record := model.SalesRecord{Year: year, Month: month}
		ints := []struct {
			key  string
			dest *int
		}{
			{"total_sales", &record.TotalSales},
			{"bev_sales", &record.BEVSales},
			{"phev_sales", &record.PHEVSales},
		}
		for _, field := range ints {
			value, err := strconv.Atoi(get(field.key))
			if err != nil {
				return nil, fmt.Errorf("table: row %d: %s: %w", i+1, field.key, err)
			}
			*field.dest = value
		}
		rate, err := strconv.ParseFloat(get("penetration_rate"), 64)
		if err != nil {
			return nil, fmt.Errorf("table: row %d: penetration_rate: %w", i+1, err)
		}
		record.PenetrationRate = rate
		records = append(records, record)
	}
	return records, nil
}

func columnIndex(schema Schema, header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.TrimSpace(name)] = i
	}

	index := make(map[string]int, len(schema.Columns))
	for _, column := range schema.Columns {
		if pos, ok := positions[column.Key]; ok {
			index[column.Key] = pos
			continue
		}
		if pos, ok := positions[column.Label]; ok {
			index[column.Key] = pos
			continue
		}
		return nil, fmt.Errorf("table: %s header missing column %s", schema.Name, column.Key)
	}
	return index, nil
}
