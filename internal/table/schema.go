package table

import (
	"fmt"
	"strconv"
)

type Locale string

const (
	LocaleEN Locale = "en"
	LocaleZH Locale = "zh"
)

// Column 固定列：英文键名与原始中文列名
type Column struct {
	Key   string
	Label string
}

type Schema struct {
	Name    string
	Columns []Column
}

// Header returns the column names in schema order for the locale.
func (s Schema) Header(locale Locale) []string {
	header := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		if locale == LocaleZH {
			header[i] = c.Label
		} else {
			header[i] = c.Key
		}
	}
	return header
}

var SalesSchema = Schema{
	Name: "sales",
	Columns: []Column{
		{Key: "period", Label: "日期"},
		{Key: "total_sales", Label: "NEV总销量"},
		{Key: "bev_sales", Label: "BEV销量"},
		{Key: "phev_sales", Label: "PHEV销量"},
		{Key: "penetration_rate", Label: "渗透率"},
	},
}

var RegionalSchema = Schema{
	Name: "regional",
	Columns: []Column{
		{Key: "city", Label: "城市"},
		{Key: "tier", Label: "城市等级"},
		{Key: "license_restricted", Label: "是否限牌"},
		{Key: "public_charger_count", Label: "公共充电桩数量"},
		{Key: "registration_count", Label: "2024年NEV注册量"},
		{Key: "charger_density", Label: "充电桩密度(个/km²)"},
	},
}

var MilestoneSchema = Schema{
	Name: "milestones",
	Columns: []Column{
		{Key: "event", Label: "事件"},
		{Key: "date", Label: "日期"},
		{Key: "category", Label: "类别"},
	},
}

// Table is a normalized dataset. Cells hold string, int or float64 values.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

func (t Table) Len() int {
	return len(t.Rows)
}

// Records renders every row as text, the form written to delimited files.
func (t Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = formatCell(cell)
		}
		out[i] = cells
	}
	return out
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
