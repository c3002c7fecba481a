// Package analysis derives the yearly and month-over-month views that the
// publisher writes next to the sales table.
package analysis

import (
	"nevstats/internal/model"
	"nevstats/internal/table"
)

type YearSummary struct {
	Year            int     `json:"year"`
	Months          int     `json:"months"`
	TotalSales      int     `json:"total_sales"`
	BEVSales        int     `json:"bev_sales"`
	PHEVSales       int     `json:"phev_sales"`
	BEVShare        float64 `json:"bev_share"`
	PeakPenetration float64 `json:"peak_penetration"`
}

// Yearly groups records by year, keeping years in first-seen order.
func Yearly(records []model.SalesRecord) []YearSummary {
	index := make(map[int]int)
	out := make([]YearSummary, 0)
	for _, r := range records {
		i, ok := index[r.Year]
		if !ok {
			i = len(out)
			index[r.Year] = i
			out = append(out, YearSummary{Year: r.Year})
		}
		s := &out[i]
		s.Months++
		s.TotalSales += r.TotalSales
		s.BEVSales += r.BEVSales
		s.PHEVSales += r.PHEVSales
		if r.PenetrationRate > s.PeakPenetration {
			s.PeakPenetration = r.PenetrationRate
		}
	}
	for i := range out {
		if out[i].TotalSales > 0 {
			out[i].BEVShare = table.Round(float64(out[i].BEVSales)/float64(out[i].TotalSales), 3)
		}
	}
	return out
}

type Growth struct {
	Period     string   `json:"period"`
	TotalSales int      `json:"total_sales"`
	MoMPercent *float64 `json:"mom_percent"`
}

// MonthOverMonth computes the percentage change of total sales against the
// previous row. The first row, and any row following a zero month, has no
// growth value.
func MonthOverMonth(records []model.SalesRecord) []Growth {
	out := make([]Growth, 0, len(records))
	for i, r := range records {
		g := Growth{Period: r.Period(), TotalSales: r.TotalSales}
		if i > 0 && records[i-1].TotalSales > 0 && r.TotalSales > 0 {
			prev := float64(records[i-1].TotalSales)
			pct := table.Round((float64(r.TotalSales)-prev)/prev*100, 2)
			g.MoMPercent = &pct
		}
		out = append(out, g)
	}
	return out
}

var YearlySchema = table.Schema{
	Name: "yearly",
	Columns: []table.Column{
		{Key: "year", Label: "年份"},
		{Key: "months", Label: "月份数"},
		{Key: "total_sales", Label: "NEV总销量"},
		{Key: "bev_sales", Label: "BEV销量"},
		{Key: "phev_sales", Label: "PHEV销量"},
		{Key: "bev_share", Label: "BEV占比"},
		{Key: "peak_penetration", Label: "最高渗透率"},
	},
}

var GrowthSchema = table.Schema{
	Name: "growth",
	Columns: []table.Column{
		{Key: "period", Label: "日期"},
		{Key: "total_sales", Label: "NEV总销量"},
		{Key: "mom_growth_pct", Label: "环比增长率(%)"},
	},
}

func YearlyTable(summaries []YearSummary, locale table.Locale) table.Table {
	rows := make([][]any, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []any{s.Year, s.Months, s.TotalSales, s.BEVSales, s.PHEVSales, s.BEVShare, s.PeakPenetration})
	}
	return table.Table{Name: YearlySchema.Name, Header: YearlySchema.Header(locale), Rows: rows}
}

func GrowthTable(growth []Growth, locale table.Locale) table.Table {
	rows := make([][]any, 0, len(growth))
	for _, g := range growth {
		var pct any
		if g.MoMPercent != nil {
			pct = *g.MoMPercent
		}
		rows = append(rows, []any{g.Period, g.TotalSales, pct})
	}
	return table.Table{Name: GrowthSchema.Name, Header: GrowthSchema.Header(locale), Rows: rows}
}
