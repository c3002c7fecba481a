// Package simulated generates placeholder market data from configured
// sampling bands. All randomness comes from the *rand.Rand handed to the
// constructors so runs can be reproduced from a seed.
package simulated

import (
	"context"
	"math/rand"

	"nevstats/internal/config"
	"nevstats/internal/model"
	"nevstats/internal/providers"
)

const providerName = "simulated"

type SalesProvider struct {
	cfg config.SalesConfig
	rng *rand.Rand
}

func NewSales(cfg config.SalesConfig, rng *rand.Rand) *SalesProvider {
	return &SalesProvider{cfg: cfg, rng: rng}
}

func (p *SalesProvider) Name() string {
	return providerName
}

func (p *SalesProvider) FetchYear(ctx context.Context, year, lastMonth int) ([]model.SalesRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lastMonth > 12 {
		lastMonth = 12
	}

	bands := p.bandsFor(year)
	records := make([]model.SalesRecord, 0, lastMonth)
	for month := 1; month <= lastMonth; month++ {
		total := sample(p.rng, bands.Total)
		bev := min(sample(p.rng, bands.BEV), total)
		phev := min(sample(p.rng, bands.PHEV), total-bev)
		records = append(records, model.SalesRecord{
			Year:            year,
			Month:           month,
			TotalSales:      total,
			BEVSales:        bev,
			PHEVSales:       phev,
			PenetrationRate: PenetrationRate(p.cfg.Penetration, year, month),
		})
	}
	return records, nil
}

func (p *SalesProvider) bandsFor(year int) config.SalesBands {
	if year <= p.cfg.EraThreshold {
		return p.cfg.Early
	}
	return p.cfg.Late
}

// PenetrationRate applies base + (year-scaleStart)*yearCoef + month*monthCoef,
// clamped to [0, ceiling].
func PenetrationRate(p config.PenetrationConfig, year, month int) float64 {
	rate := p.Base + float64(year-p.ScaleStartYear)*p.YearCoefficient + float64(month)*p.MonthCoefficient
	if rate > p.Ceiling {
		rate = p.Ceiling
	}
	if rate < 0 {
		rate = 0
	}
	return rate
}

type RegionalProvider struct {
	cfg config.RegionalConfig
	rng *rand.Rand
}

func NewRegional(cfg config.RegionalConfig, rng *rand.Rand) *RegionalProvider {
	return &RegionalProvider{cfg: cfg, rng: rng}
}

func (p *RegionalProvider) Name() string {
	return providerName
}

func (p *RegionalProvider) FetchCity(ctx context.Context, city model.City) (model.RegionalRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.RegionalRecord{}, err
	}

	chargers, registrations := p.cfg.OtherChargers, p.cfg.OtherRegisters
	if city.Tier == model.TierFirst {
		chargers, registrations = p.cfg.FirstTierChargers, p.cfg.FirstTierRegisters
	}

	density := p.cfg.Density.Min + p.rng.Float64()*(p.cfg.Density.Max-p.cfg.Density.Min)
	return model.RegionalRecord{
		City:               city.Name,
		Tier:               city.Tier,
		LicenseRestricted:  city.LicenseRestricted,
		PublicChargerCount: sample(p.rng, chargers),
		RegistrationCount:  sample(p.rng, registrations),
		ChargerDensity:     density,
	}, nil
}

// sample draws uniformly from the inclusive band.
func sample(rng *rand.Rand, band config.Band) int {
	if band.Max <= band.Min {
		return band.Min
	}
	return band.Min + rng.Intn(band.Max-band.Min+1)
}

var (
	_ providers.SalesProvider    = (*SalesProvider)(nil)
	_ providers.RegionalProvider = (*RegionalProvider)(nil)
)
