package model

import "fmt"

type Tier string

const (
	TierFirst    Tier = "first-tier"
	TierNewFirst Tier = "new-first-tier"
	TierSecond   Tier = "second-tier"
	TierThird    Tier = "third-tier"
)

// Valid reports whether t is one of the four known city tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierFirst, TierNewFirst, TierSecond, TierThird:
		return true
	default:
		return false
	}
}

type SalesRecord struct {
	Year            int
	Month           int
	TotalSales      int
	BEVSales        int
	PHEVSales       int
	PenetrationRate float64
}

// Period returns the YYYY-MM key of the record.
func (r SalesRecord) Period() string {
	return FormatPeriod(r.Year, r.Month)
}

func FormatPeriod(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

type City struct {
	Name              string
	Tier              Tier
	LicenseRestricted bool
}

type RegionalRecord struct {
	City               string
	Tier               Tier
	LicenseRestricted  bool
	PublicChargerCount int
	RegistrationCount  int
	ChargerDensity     float64
}

type MilestoneCategory string

const (
	MilestoneSupport    MilestoneCategory = "support"
	MilestoneAdjustment MilestoneCategory = "adjustment"
	MilestoneMarket     MilestoneCategory = "market"
	MilestoneRegulation MilestoneCategory = "regulation"
	MilestoneRecord     MilestoneCategory = "milestone"
)

type Milestone struct {
	Event    string
	Date     string
	Category MilestoneCategory
}
