package table

import (
	"github.com/shopspring/decimal"

	"nevstats/internal/model"
)

const (
	penetrationPlaces = 3
	densityPlaces     = 1
)

var tierLabels = map[model.Tier]string{
	model.TierFirst:    "一线",
	model.TierNewFirst: "新一线",
	model.TierSecond:   "二线",
	model.TierThird:    "三线",
}

// Normalizer maps records onto the fixed column schemas. Row order is the
// order of the input slice.
type Normalizer struct {
	Locale Locale
}

func NewNormalizer(locale Locale) Normalizer {
	if locale != LocaleZH {
		locale = LocaleEN
	}
	return Normalizer{Locale: locale}
}

func (n Normalizer) Sales(records []model.SalesRecord) Table {
	normalized := NormalizeSales(records)
	rows := make([][]any, 0, len(normalized))
	for _, r := range normalized {
		rows = append(rows, []any{r.Period(), r.TotalSales, r.BEVSales, r.PHEVSales, r.PenetrationRate})
	}
	return Table{Name: SalesSchema.Name, Header: SalesSchema.Header(n.Locale), Rows: rows}
}

// NormalizeSales clamps the segments so that bev+phev never exceeds total and
// rounds the penetration rate to three places.
func NormalizeSales(records []model.SalesRecord) []model.SalesRecord {
	out := make([]model.SalesRecord, 0, len(records))
	for _, r := range records {
		total := max(r.TotalSales, 0)
		bev := clamp(r.BEVSales, 0, total)
		out = append(out, model.SalesRecord{
			Year:            r.Year,
			Month:           r.Month,
			TotalSales:      total,
			BEVSales:        bev,
			PHEVSales:       clamp(r.PHEVSales, 0, total-bev),
			PenetrationRate: Round(r.PenetrationRate, penetrationPlaces),
		})
	}
	return out
}

func (n Normalizer) Regional(records []model.RegionalRecord) Table {
	normalized := NormalizeRegional(records)
	rows := make([][]any, 0, len(normalized))
	for _, r := range normalized {
		rows = append(rows, []any{
			r.City,
			n.tier(r.Tier),
			n.flag(r.LicenseRestricted),
			r.PublicChargerCount,
			r.RegistrationCount,
			r.ChargerDensity,
		})
	}
	return Table{Name: RegionalSchema.Name, Header: RegionalSchema.Header(n.Locale), Rows: rows}
}

func NormalizeRegional(records []model.RegionalRecord) []model.RegionalRecord {
	out := make([]model.RegionalRecord, 0, len(records))
	for _, r := range records {
		r.PublicChargerCount = max(r.PublicChargerCount, 0)
		r.RegistrationCount = max(r.RegistrationCount, 0)
		r.ChargerDensity = Round(max(r.ChargerDensity, 0), densityPlaces)
		out = append(out, r)
	}
	return out
}

func (n Normalizer) Milestones(milestones []model.Milestone) Table {
	rows := make([][]any, 0, len(milestones))
	for _, m := range milestones {
		rows = append(rows, []any{m.Event, m.Date, string(m.Category)})
	}
	return Table{Name: MilestoneSchema.Name, Header: MilestoneSchema.Header(n.Locale), Rows: rows}
}

func (n Normalizer) tier(t model.Tier) string {
	if n.Locale == LocaleZH {
		if label, ok := tierLabels[t]; ok {
			return label
		}
	}
	return string(t)
}

func (n Normalizer) flag(v bool) string {
	if n.Locale == LocaleZH {
		if v {
			return "是"
		}
		return "否"
	}
	if v {
		return "true"
	}
	return "false"
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
