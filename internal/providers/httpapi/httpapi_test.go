package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"nevstats/internal/model"
	"nevstats/internal/providers"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewWithConfig(Config{BaseURL: srv.URL, APIKey: "secret", RateLimitPerSec: 1000, RateLimitBurst: 10})
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	return p
}

func TestFetchYear(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sales" {
			t.Errorf("path = %s, want /sales", r.URL.Path)
		}
		if r.URL.Query().Get("year") != "2025" || r.URL.Query().Get("token") != "secret" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[
			{"period":"2025-01","total_sales":700000,"bev_sales":400000,"phev_sales":250000,"penetration_rate":0.52},
			{"period":"2024-12","total_sales":1,"bev_sales":1,"phev_sales":0,"penetration_rate":0.52},
			{"period":"2025-02","total_sales":600000,"bev_sales":350000,"phev_sales":200000,"penetration_rate":0.52},
			{"period":"2025-11","total_sales":900000,"bev_sales":500000,"phev_sales":300000,"penetration_rate":0.52}
		]}`))
	})

	records, err := p.FetchYear(context.Background(), 2025, 10)
	if err != nil {
		t.Fatalf("FetchYear: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2 (other year and post-cutoff dropped)", len(records))
	}
	if records[0].Period() != "2025-01" || records[1].Period() != "2025-02" {
		t.Fatalf("unexpected order: %s, %s", records[0].Period(), records[1].Period())
	}
	if records[0].TotalSales != 700000 || records[0].BEVSales != 400000 {
		t.Errorf("unexpected values: %+v", records[0])
	}
}

func TestFetchYearNotFound(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	if _, err := p.FetchYear(context.Background(), 2015, 12); !errors.Is(err, providers.ErrNoRecords) {
		t.Fatalf("err = %v, want ErrNoRecords", err)
	}
}

func TestFetchYearServerError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	_, err := p.FetchYear(context.Background(), 2015, 12)
	if err == nil || errors.Is(err, providers.ErrNoRecords) {
		t.Fatalf("err = %v, want request failure", err)
	}
}

func TestFetchYearBadPeriod(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"records":[{"period":"Jan-15","total_sales":1}]}`))
	})
	if _, err := p.FetchYear(context.Background(), 2015, 12); err == nil {
		t.Fatal("expected error for invalid period")
	}
}

func TestFetchYearDuplicatePeriod(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"records":[
			{"period":"2015-02","total_sales":1},
			{"period":"2015-01","total_sales":1},
			{"period":"201502","total_sales":2}
		]}`))
	})
	if _, err := p.FetchYear(context.Background(), 2015, 12); err == nil {
		t.Fatal("expected error for repeated period 2015-02")
	}
}

func TestFetchCity(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/regional" || r.URL.Query().Get("city") != "杭州" {
			t.Errorf("unexpected request: %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"city":"杭州","public_charger_count":32000,"registration_count":120000,"charger_density":18.4}`))
	})

	city := model.City{Name: "杭州", Tier: model.TierNewFirst, LicenseRestricted: true}
	record, err := p.FetchCity(context.Background(), city)
	if err != nil {
		t.Fatalf("FetchCity: %v", err)
	}
	want := model.RegionalRecord{
		City:               "杭州",
		Tier:               model.TierNewFirst,
		LicenseRestricted:  true,
		PublicChargerCount: 32000,
		RegistrationCount:  120000,
		ChargerDensity:     18.4,
	}
	if record != want {
		t.Fatalf("record = %+v, want %+v", record, want)
	}
}

func TestFetchCityMismatch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"city":"北京","public_charger_count":1}`))
	})
	if _, err := p.FetchCity(context.Background(), model.City{Name: "上海", Tier: model.TierFirst}); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestNewWithConfigRequiresBaseURL(t *testing.T) {
	if _, err := NewWithConfig(Config{}); err == nil {
		t.Fatal("expected error without base url")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("NEV_API_BASE_URL", "https://mirror.example/api")
	t.Setenv("NEV_API_RATE_LIMIT_PER_SEC", "0.5")
	t.Setenv("NEV_API_TIMEOUT_SECONDS", "5")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.RateLimitPerSec != 0.5 || cfg.Timeout.Seconds() != 5 || cfg.SalesPath != defaultSalesPath {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
