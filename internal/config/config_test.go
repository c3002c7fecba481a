package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if len(cfg.Regional.Cities) != 10 {
		t.Fatalf("default cities = %d, want 10", len(cfg.Regional.Cities))
	}
	if cfg.Regional.Cities[4].Name != "杭州" {
		t.Errorf("5th city = %s, want 杭州", cfg.Regional.Cities[4].Name)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[sales]
start_year = 2018
cutoff_month = 6

[output]
header_locale = "zh"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sales.StartYear != 2018 || cfg.Sales.CutoffMonth != 6 {
		t.Errorf("sales overlay not applied: %+v", cfg.Sales)
	}
	if cfg.Sales.EndYear != 2025 {
		t.Errorf("EndYear = %d, want default 2025", cfg.Sales.EndYear)
	}
	if cfg.Output.HeaderLocale != "zh" {
		t.Errorf("HeaderLocale = %s, want zh", cfg.Output.HeaderLocale)
	}
	if cfg.Sales.Penetration.Ceiling != 0.52 {
		t.Errorf("Ceiling = %v, want default 0.52", cfg.Sales.Penetration.Ceiling)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"year range", func(c *Config) { c.Sales.StartYear = 2026 }, ErrInvalidYearRange},
		{"cutoff zero", func(c *Config) { c.Sales.CutoffMonth = 0 }, ErrInvalidCutoff},
		{"cutoff thirteen", func(c *Config) { c.Sales.CutoffMonth = 13 }, ErrInvalidCutoff},
		{"band order", func(c *Config) { c.Sales.Late.Total = Band{Min: 10, Max: 5} }, nil},
		{"ceiling", func(c *Config) { c.Sales.Penetration.Ceiling = 1.5 }, nil},
		{"tier", func(c *Config) { c.Regional.Cities[0].Tier = "capital" }, nil},
		{"duplicate city", func(c *Config) { c.Regional.Cities[1].Name = c.Regional.Cities[0].Name }, nil},
		{"locale", func(c *Config) { c.Output.HeaderLocale = "fr" }, nil},
		{"delimiter", func(c *Config) { c.Output.Delimiter = ";;" }, nil},
		{"delimiter quote", func(c *Config) { c.Output.Delimiter = `"` }, nil},
		{"delimiter newline", func(c *Config) { c.Output.Delimiter = "\n" }, nil},
		{"delimiter carriage return", func(c *Config) { c.Output.Delimiter = "\r" }, nil},
		{"penetration drops across years", func(c *Config) {
			c.Sales.Penetration.MonthCoefficient = 0.01
			c.Sales.Penetration.YearCoefficient = 0.05
		}, nil},
		{"pause", func(c *Config) { c.Sales.PauseMinSec = 4 }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidateAcceptsSemicolonDelimiter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Delimiter = ";"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("semicolon delimiter rejected: %v", err)
	}
}

func TestPauseRange(t *testing.T) {
	lo, hi := DefaultConfig().Sales.PauseRange()
	if lo != 1500*time.Millisecond || hi != 3*time.Second {
		t.Fatalf("PauseRange = %v..%v", lo, hi)
	}
}

func TestModelCitiesKeepsOrder(t *testing.T) {
	cities := DefaultConfig().Regional.ModelCities()
	if cities[0].Name != "北京" || cities[9].Name != "合肥" {
		t.Fatalf("unexpected order: %v", cities)
	}
	if !cities[4].LicenseRestricted || cities[5].LicenseRestricted {
		t.Errorf("restriction flags not preserved")
	}
}
