package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"nevstats/internal/model"
	"nevstats/internal/providers"
)

const (
	defaultSalesPath       = "sales"
	defaultRegionalPath    = "regional"
	defaultAPIKeyParam     = "token"
	defaultRateLimitPerSec = 1
	defaultRateLimitBurst  = 1
	defaultTimeoutSeconds  = 20
	defaultUserAgent       = "nevstats/0.1"
)

type Config struct {
	BaseURL         string
	SalesPath       string
	RegionalPath    string
	APIKey          string
	APIKeyParam     string
	RateLimitPerSec float64
	RateLimitBurst  int
	Timeout         time.Duration
	UserAgent       string
}

// Provider talks to a mirror that exposes the monthly sales and city
// infrastructure figures as JSON.
type Provider struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
}

func New() (*Provider, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("httpapi: base url is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	if strings.TrimSpace(cfg.SalesPath) == "" {
		cfg.SalesPath = defaultSalesPath
	}
	if strings.TrimSpace(cfg.RegionalPath) == "" {
		cfg.RegionalPath = defaultRegionalPath
	}
	if cfg.APIKeyParam == "" {
		cfg.APIKeyParam = defaultAPIKeyParam
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = defaultRateLimitPerSec
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaultRateLimitBurst
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeoutSeconds * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Provider{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
	}, nil
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL:      strings.TrimSpace(os.Getenv("NEV_API_BASE_URL")),
		SalesPath:    getenv("NEV_API_SALES_PATH", defaultSalesPath),
		RegionalPath: getenv("NEV_API_REGIONAL_PATH", defaultRegionalPath),
		APIKey:       strings.TrimSpace(os.Getenv("NEV_API_KEY")),
		APIKeyParam:  getenv("NEV_API_KEY_PARAM", defaultAPIKeyParam),
		UserAgent:    getenv("NEV_API_USER_AGENT", defaultUserAgent),
	}
	if cfg.BaseURL == "" {
		return Config{}, errors.New("httpapi: NEV_API_BASE_URL is not set")
	}

	cfg.RateLimitPerSec = getenvFloat("NEV_API_RATE_LIMIT_PER_SEC", defaultRateLimitPerSec)
	cfg.RateLimitBurst = getenvInt("NEV_API_RATE_LIMIT_BURST", defaultRateLimitBurst)
	cfg.Timeout = time.Duration(getenvInt("NEV_API_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second
	return cfg, nil
}

func (p *Provider) Name() string {
	return "httpapi"
}

type salesResponse struct {
	Records []salesRow `json:"records"`
}

type salesRow struct {
	Period          string  `json:"period"`
	TotalSales      int     `json:"total_sales"`
	BEVSales        int     `json:"bev_sales"`
	PHEVSales       int     `json:"phev_sales"`
	PenetrationRate float64 `json:"penetration_rate"`
}

type regionalResponse struct {
	City               string  `json:"city"`
	PublicChargerCount int     `json:"public_charger_count"`
	RegistrationCount  int     `json:"registration_count"`
	ChargerDensity     float64 `json:"charger_density"`
}

func (p *Provider) FetchYear(ctx context.Context, year, lastMonth int) ([]model.SalesRecord, error) {
	params := url.Values{}
	params.Set("year", strconv.Itoa(year))

	var payload salesResponse
	if err := p.doJSON(ctx, p.config.SalesPath, params, &payload); err != nil {
		return nil, err
	}

	records, err := parseSalesRows(payload.Records, year, lastMonth)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, providers.ErrNoRecords
	}
	return records, nil
}

func (p *Provider) FetchCity(ctx context.Context, city model.City) (model.RegionalRecord, error) {
	params := url.Values{}
	params.Set("city", city.Name)

	var payload regionalResponse
	if err := p.doJSON(ctx, p.config.RegionalPath, params, &payload); err != nil {
		return model.RegionalRecord{}, err
	}
	if payload.City != "" && payload.City != city.Name {
		return model.RegionalRecord{}, fmt.Errorf("httpapi: asked for %s, got %s", city.Name, payload.City)
	}
	if payload.PublicChargerCount < 0 || payload.RegistrationCount < 0 || payload.ChargerDensity < 0 {
		return model.RegionalRecord{}, fmt.Errorf("httpapi: negative figures for %s", city.Name)
	}

	return model.RegionalRecord{
		City:               city.Name,
		Tier:               city.Tier,
		LicenseRestricted:  city.LicenseRestricted,
		PublicChargerCount: payload.PublicChargerCount,
		RegistrationCount:  payload.RegistrationCount,
		ChargerDensity:     payload.ChargerDensity,
	}, nil
}

// parseSalesRows keeps rows of the requested year up to lastMonth, in the
// order the upstream returned them.
func parseSalesRows(rows []salesRow, year, lastMonth int) ([]model.SalesRecord, error) {
	records := make([]model.SalesRecord, 0, len(rows))
	seen := make(map[int]struct{}, len(rows))
	for _, row := range rows {
		rowYear, month, ok := model.ParseYearMonth(row.Period)
		if !ok {
			return nil, fmt.Errorf("httpapi: invalid period %q", row.Period)
		}
		if rowYear != year || month > lastMonth {
			continue
		}
		if row.TotalSales < 0 || row.BEVSales < 0 || row.PHEVSales < 0 {
			return nil, fmt.Errorf("httpapi: negative sales for %s", row.Period)
		}
		if _, dup := seen[month]; dup {
			return nil, fmt.Errorf("httpapi: duplicate period %s", row.Period)
		}
		seen[month] = struct{}{}
		records = append(records, model.SalesRecord{
			Year:            rowYear,
			Month:           month,
			TotalSales:      row.TotalSales,
			BEVSales:        row.BEVSales,
			PHEVSales:       row.PHEVSales,
			PenetrationRate: row.PenetrationRate,
		})
	}
	return records, nil
}

func (p *Provider) doJSON(ctx context.Context, path string, params url.Values, dest any) error {
	body, err := p.doRequest(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("httpapi: decode response: %w", err)
	}
	return nil
}

func (p *Provider) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint, err := p.buildURL(path, params)
	if err != nil {
		return nil, err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, providers.ErrNoRecords
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("httpapi: request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (p *Provider) buildURL(path string, params url.Values) (string, error) {
	base := strings.TrimRight(p.config.BaseURL, "/")
	path = strings.TrimLeft(path, "/")
	endpoint := base + "/" + path

	query := url.Values{}
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	if p.config.APIKey != "" && p.config.APIKeyParam != "" {
		query.Set(p.config.APIKeyParam, p.config.APIKey)
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

var (
	_ providers.SalesProvider    = (*Provider)(nil)
	_ providers.RegionalProvider = (*Provider)(nil)
)
