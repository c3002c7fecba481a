package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"

	"nevstats/internal/model"
)

var (
	ErrInvalidYearRange = errors.New("config: start_year must not exceed end_year")
	ErrInvalidCutoff    = errors.New("config: cutoff_month must be between 1 and 12")
)

// Config 采集运行配置
type Config struct {
	Sales    SalesConfig    `toml:"sales"`
	Regional RegionalConfig `toml:"regional"`
	Output   OutputConfig   `toml:"output"`
	Log      LogConfig      `toml:"log"`
}

// Band is an inclusive integer sampling range.
type Band struct {
	Min int `toml:"min"`
	Max int `toml:"max"`
}

type FloatRange struct {
	Min float64 `toml:"min"`
	Max float64 `toml:"max"`
}

// SalesBands 某一时期的月度销量采样区间
type SalesBands struct {
	Total Band `toml:"total"`
	BEV   Band `toml:"bev"`
	PHEV  Band `toml:"phev"`
}

// PenetrationConfig 渗透率公式参数
type PenetrationConfig struct {
	Base             float64 `toml:"base"`
	ScaleStartYear   int     `toml:"scale_start_year"`
	YearCoefficient  float64 `toml:"year_coefficient"`
	MonthCoefficient float64 `toml:"month_coefficient"`
	Ceiling          float64 `toml:"ceiling"`
}

type SalesConfig struct {
	StartYear    int               `toml:"start_year"`
	EndYear      int               `toml:"end_year"`
	CutoffMonth  int               `toml:"cutoff_month"`
	EraThreshold int               `toml:"era_threshold"`
	Early        SalesBands        `toml:"early"`
	Late         SalesBands        `toml:"late"`
	Penetration  PenetrationConfig `toml:"penetration"`
	PauseMinSec  float64           `toml:"pause_min_seconds"`
	PauseMaxSec  float64           `toml:"pause_max_seconds"`
	Seed         int64             `toml:"seed"`
}

type CityConfig struct {
	Name              string     `toml:"name"`
	Tier              model.Tier `toml:"tier"`
	LicenseRestricted bool       `toml:"license_restricted"`
}

type RegionalConfig struct {
	Cities             []CityConfig `toml:"cities"`
	FirstTierChargers  Band         `toml:"first_tier_chargers"`
	OtherChargers      Band         `toml:"other_chargers"`
	FirstTierRegisters Band         `toml:"first_tier_registrations"`
	OtherRegisters     Band         `toml:"other_registrations"`
	Density            FloatRange   `toml:"density"`
}

// OutputConfig 输出配置，空路径表示不输出
type OutputConfig struct {
	SalesPath      string `toml:"sales_path"`
	RegionalPath   string `toml:"regional_path"`
	MilestonesPath string `toml:"milestones_path"`
	WorkbookPath   string `toml:"workbook_path"`
	DBPath         string `toml:"db_path"`
	MetricsPath    string `toml:"metrics_path"`
	HeaderLocale   string `toml:"header_locale"`
	Delimiter      string `toml:"delimiter"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Sales: SalesConfig{
			StartYear:    2015,
			EndYear:      2025,
			CutoffMonth:  10,
			EraThreshold: 2020,
			Early: SalesBands{
				Total: Band{Min: 10000, Max: 100000},
				BEV:   Band{Min: 8000, Max: 80000},
				PHEV:  Band{Min: 2000, Max: 20000},
			},
			Late: SalesBands{
				Total: Band{Min: 100000, Max: 800000},
				BEV:   Band{Min: 80000, Max: 600000},
				PHEV:  Band{Min: 20000, Max: 200000},
			},
			Penetration: PenetrationConfig{
				Base:             0.05,
				ScaleStartYear:   2015,
				YearCoefficient:  0.09,
				MonthCoefficient: 0.005,
				Ceiling:          0.52,
			},
			PauseMinSec: 1.5,
			PauseMaxSec: 3.0,
			Seed:        0,
		},
		Regional: RegionalConfig{
			Cities:             DefaultCities(),
			FirstTierChargers:  Band{Min: 50000, Max: 150000},
			OtherChargers:      Band{Min: 10000, Max: 50000},
			FirstTierRegisters: Band{Min: 200000, Max: 400000},
			OtherRegisters:     Band{Min: 50000, Max: 150000},
			Density:            FloatRange{Min: 5, Max: 35},
		},
		Output: OutputConfig{
			SalesPath:      "China_NEV_Sales_2015_2025.csv",
			RegionalPath:   "China_NEV_Regional_Analysis.csv",
			MilestonesPath: "China_NEV_Policy_Milestones.csv",
			HeaderLocale:   "en",
			Delimiter:      ",",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultCities 充电联盟通报中的十个样本城市
func DefaultCities() []CityConfig {
	return []CityConfig{
		{Name: "北京", Tier: model.TierFirst, LicenseRestricted: true},
		{Name: "上海", Tier: model.TierFirst, LicenseRestricted: true},
		{Name: "广州", Tier: model.TierFirst, LicenseRestricted: true},
		{Name: "深圳", Tier: model.TierFirst, LicenseRestricted: true},
		{Name: "杭州", Tier: model.TierNewFirst, LicenseRestricted: true},
		{Name: "成都", Tier: model.TierNewFirst, LicenseRestricted: false},
		{Name: "郑州", Tier: model.TierSecond, LicenseRestricted: false},
		{Name: "西安", Tier: model.TierSecond, LicenseRestricted: false},
		{Name: "柳州", Tier: model.TierThird, LicenseRestricted: false},
		{Name: "合肥", Tier: model.TierSecond, LicenseRestricted: false},
	}
}

// Load 读取 TOML 配置文件并覆盖默认值；路径为空时返回默认配置
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	s := c.Sales
	if s.StartYear > s.EndYear {
		return fmt.Errorf("%w (%d > %d)", ErrInvalidYearRange, s.StartYear, s.EndYear)
	}
	if s.CutoffMonth < 1 || s.CutoffMonth > 12 {
		return fmt.Errorf("%w (got %d)", ErrInvalidCutoff, s.CutoffMonth)
	}
	bands := map[string]Band{
		"sales.early.total":                 s.Early.Total,
		"sales.early.bev":                   s.Early.BEV,
		"sales.early.phev":                  s.Early.PHEV,
		"sales.late.total":                  s.Late.Total,
		"sales.late.bev":                    s.Late.BEV,
		"sales.late.phev":                   s.Late.PHEV,
		"regional.first_tier_chargers":      c.Regional.FirstTierChargers,
		"regional.other_chargers":           c.Regional.OtherChargers,
		"regional.first_tier_registrations": c.Regional.FirstTierRegisters,
		"regional.other_registrations":      c.Regional.OtherRegisters,
	}
	for name, band := range bands {
		if band.Min < 0 || band.Min > band.Max {
			return fmt.Errorf("config: %s must satisfy 0 <= min <= max (got %d..%d)", name, band.Min, band.Max)
		}
	}
	if c.Regional.Density.Min < 0 || c.Regional.Density.Min > c.Regional.Density.Max {
		return fmt.Errorf("config: regional.density must satisfy 0 <= min <= max")
	}
	p := s.Penetration
	if p.Ceiling < 0 || p.Ceiling > 1 {
		return fmt.Errorf("config: penetration ceiling must be within [0, 1] (got %v)", p.Ceiling)
	}
	if p.YearCoefficient < 0 || p.MonthCoefficient < 0 {
		return errors.New("config: penetration coefficients must be non-negative")
	}
	// December to the following January moves the rate by year - 11*month.
	if p.YearCoefficient < 11*p.MonthCoefficient {
		return fmt.Errorf("config: penetration year_coefficient must be at least 11 * month_coefficient (got %v < %v)", p.YearCoefficient, 11*p.MonthCoefficient)
	}
	if s.PauseMinSec < 0 || s.PauseMinSec > s.PauseMaxSec {
		return fmt.Errorf("config: pause range must satisfy 0 <= min <= max (got %v..%v)", s.PauseMinSec, s.PauseMaxSec)
	}
	seen := make(map[string]struct{}, len(c.Regional.Cities))
	for _, city := range c.Regional.Cities {
		if city.Name == "" {
			return errors.New("config: city name is required")
		}
		if !city.Tier.Valid() {
			return fmt.Errorf("config: city %s has unknown tier %q", city.Name, city.Tier)
		}
		if _, dup := seen[city.Name]; dup {
			return fmt.Errorf("config: duplicate city %s", city.Name)
		}
		seen[city.Name] = struct{}{}
	}
	switch c.Output.HeaderLocale {
	case "en", "zh":
	default:
		return fmt.Errorf("config: header_locale must be en or zh (got %q)", c.Output.HeaderLocale)
	}
	if len([]rune(c.Output.Delimiter)) != 1 || !validDelimiter([]rune(c.Output.Delimiter)[0]) {
		return fmt.Errorf("config: delimiter must be a single character usable by csv (got %q)", c.Output.Delimiter)
	}
	return nil
}

// validDelimiter mirrors the rules encoding/csv applies to Comma.
func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// ModelCities converts the configured list into model cities, preserving order.
func (c RegionalConfig) ModelCities() []model.City {
	cities := make([]model.City, 0, len(c.Cities))
	for _, city := range c.Cities {
		cities = append(cities, model.City{
			Name:              city.Name,
			Tier:              city.Tier,
			LicenseRestricted: city.LicenseRestricted,
		})
	}
	return cities
}

// PauseRange returns the politeness pause bounds between year fetches.
func (s SalesConfig) PauseRange() (time.Duration, time.Duration) {
	return seconds(s.PauseMinSec), seconds(s.PauseMaxSec)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
