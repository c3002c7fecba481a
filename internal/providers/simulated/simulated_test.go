package simulated

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"nevstats/internal/config"
	"nevstats/internal/model"
)

func TestFetchYearTruncatesAtLastMonth(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewSales(cfg.Sales, rand.New(rand.NewSource(1)))

	full, err := p.FetchYear(context.Background(), 2016, 12)
	if err != nil {
		t.Fatalf("FetchYear: %v", err)
	}
	if len(full) != 12 {
		t.Fatalf("full year = %d records, want 12", len(full))
	}
	partial, err := p.FetchYear(context.Background(), 2025, 10)
	if err != nil {
		t.Fatalf("FetchYear: %v", err)
	}
	if len(partial) != 10 {
		t.Fatalf("terminal year = %d records, want 10", len(partial))
	}
	for i, r := range partial {
		if r.Month != i+1 || r.Year != 2025 {
			t.Fatalf("record %d = %s", i, r.Period())
		}
	}
}

func TestFetchYearBandsAndSegments(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewSales(cfg.Sales, rand.New(rand.NewSource(7)))

	for _, year := range []int{2015, 2020, 2021, 2025} {
		records, err := p.FetchYear(context.Background(), year, 12)
		if err != nil {
			t.Fatalf("FetchYear(%d): %v", year, err)
		}
		bands := cfg.Sales.Late
		if year <= cfg.Sales.EraThreshold {
			bands = cfg.Sales.Early
		}
		for _, r := range records {
			if r.TotalSales < bands.Total.Min || r.TotalSales > bands.Total.Max {
				t.Errorf("%s total %d outside %v", r.Period(), r.TotalSales, bands.Total)
			}
			if r.BEVSales < 0 || r.PHEVSales < 0 {
				t.Errorf("%s negative segment", r.Period())
			}
			if r.BEVSales+r.PHEVSales > r.TotalSales {
				t.Errorf("%s bev %d + phev %d > total %d", r.Period(), r.BEVSales, r.PHEVSales, r.TotalSales)
			}
		}
	}
}

func TestFetchYearReproducibleWithSeed(t *testing.T) {
	cfg := config.DefaultConfig()
	a, _ := NewSales(cfg.Sales, rand.New(rand.NewSource(42))).FetchYear(context.Background(), 2022, 12)
	b, _ := NewSales(cfg.Sales, rand.New(rand.NewSource(42))).FetchYear(context.Background(), 2022, 12)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("record %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestPenetrationRate(t *testing.T) {
	p := config.DefaultConfig().Sales.Penetration
	cases := []struct {
		year, month int
		want        float64
	}{
		{2015, 1, 0.055},
		{2016, 6, 0.17},
		{2020, 12, 0.52},
		{2025, 10, 0.52},
		{2010, 1, 0},
	}
	for _, tc := range cases {
		got := PenetrationRate(p, tc.year, tc.month)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("PenetrationRate(%d, %d) = %v, want %v", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestPenetrationRateNonDecreasing(t *testing.T) {
	steep := config.DefaultConfig()
	steep.Sales.Penetration.YearCoefficient = 0.06
	steep.Sales.Penetration.MonthCoefficient = 0.004
	steep.Sales.Penetration.Ceiling = 1

	cases := map[string]*config.Config{
		"default": config.DefaultConfig(),
		"steep":   steep,
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			p := cfg.Sales.Penetration
			prev := -1.0
			for year := 2015; year <= 2025; year++ {
				for month := 1; month <= 12; month++ {
					got := PenetrationRate(p, year, month)
					if got < prev {
						t.Fatalf("%d-%02d rate %v < previous %v", year, month, got, prev)
					}
					if got > p.Ceiling {
						t.Fatalf("%d-%02d rate %v above ceiling", year, month, got)
					}
					prev = got
				}
			}
		})
	}
}

func TestFetchYearRatesRiseAcrossYearBoundary(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewSales(cfg.Sales, rand.New(rand.NewSource(3)))

	first, err := p.FetchYear(context.Background(), 2015, 12)
	if err != nil {
		t.Fatalf("FetchYear 2015: %v", err)
	}
	second, err := p.FetchYear(context.Background(), 2016, 12)
	if err != nil {
		t.Fatalf("FetchYear 2016: %v", err)
	}
	dec := first[len(first)-1].PenetrationRate
	jan := second[0].PenetrationRate
	if jan < dec {
		t.Fatalf("2016-01 rate %v below 2015-12 rate %v", jan, dec)
	}
}

func TestFetchCityTierBands(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewRegional(cfg.Regional, rand.New(rand.NewSource(3)))

	for _, city := range cfg.Regional.ModelCities() {
		for i := 0; i < 20; i++ {
			r, err := p.FetchCity(context.Background(), city)
			if err != nil {
				t.Fatalf("FetchCity: %v", err)
			}
			chargers, registrations := cfg.Regional.OtherChargers, cfg.Regional.OtherRegisters
			if city.Tier == model.TierFirst {
				chargers, registrations = cfg.Regional.FirstTierChargers, cfg.Regional.FirstTierRegisters
			}
			if r.PublicChargerCount < chargers.Min || r.PublicChargerCount > chargers.Max {
				t.Errorf("%s chargers %d outside %v", city.Name, r.PublicChargerCount, chargers)
			}
			if r.RegistrationCount < registrations.Min || r.RegistrationCount > registrations.Max {
				t.Errorf("%s registrations %d outside %v", city.Name, r.RegistrationCount, registrations)
			}
			if r.ChargerDensity < cfg.Regional.Density.Min || r.ChargerDensity > cfg.Regional.Density.Max {
				t.Errorf("%s density %v outside range", city.Name, r.ChargerDensity)
			}
			if r.City != city.Name || r.Tier != city.Tier || r.LicenseRestricted != city.LicenseRestricted {
				t.Errorf("identity fields not carried: %+v", r)
			}
		}
	}
}

func TestFetchYearCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewSales(config.DefaultConfig().Sales, rand.New(rand.NewSource(1)))
	if _, err := p.FetchYear(ctx, 2015, 12); err == nil {
		t.Fatal("expected context error")
	}
}
