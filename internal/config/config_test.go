package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sethvargo/go-envconfig"

	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matali.yaml")
	src := `
server:
  addr: ":9090"
data:
  tiers_path: /srv/matali/pricing_tiers.csv
pricing:
  out_of_range: clamp
  strict_labels: true
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Data.TiersPath != "/srv/matali/pricing_tiers.csv" {
		t.Errorf("tiers path = %q", cfg.Data.TiersPath)
	}
	if cfg.Pricing.OutOfRange != types.OutOfRangeClamp || !cfg.Pricing.StrictLabels {
		t.Errorf("pricing = %+v", cfg.Pricing)
	}
	// untouched sections keep their defaults
	if cfg.Quotes.Driver != "memory" || cfg.Pricing.Currency != types.CurrencySAR {
		t.Errorf("defaults lost: quotes=%+v currency=%s", cfg.Quotes, cfg.Pricing.Currency)
	}
}

func TestSaveLoadJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "matali.json")
	cfg := Default()
	cfg.Quotes.Driver = "postgres"
	cfg.Quotes.DSN = "postgres://matali@localhost/matali?sslmode=disable"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !apperrors.IsType(err, apperrors.TypeConfig) {
		t.Fatalf("expected CONFIG_ERROR, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	lookuper := envconfig.MapLookuper(map[string]string{
		"MATALI_TIERS_PATH":    "/data/tiers.csv",
		"MATALI_OUT_OF_RANGE":  "zero",
		"MATALI_STRICT_LABELS": "true",
		"MATALI_CURRENCY":      "usd",
	})

	if err := cfg.ApplyEnv(context.Background(), lookuper); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Data.TiersPath != "/data/tiers.csv" {
		t.Errorf("tiers path = %q", cfg.Data.TiersPath)
	}
	if cfg.Pricing.OutOfRange != types.OutOfRangeZero {
		t.Errorf("out of range = %q", cfg.Pricing.OutOfRange)
	}
	if !cfg.Pricing.StrictLabels {
		t.Error("strict labels not applied")
	}
	if cfg.Pricing.Currency != types.CurrencyUSD {
		t.Errorf("currency = %q", cfg.Pricing.Currency)
	}
	// unset variables keep the existing value
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr changed to %q", cfg.Server.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad policy", func(c *Config) { c.Pricing.OutOfRange = "round" }, true},
		{"sql without dsn", func(c *Config) { c.Quotes.Driver = "mysql" }, true},
		{"unknown driver", func(c *Config) { c.Quotes.Driver = "sqlite" }, true},
		{"no tiers path", func(c *Config) { c.Data.TiersPath = "" }, true},
		{"empty policy means fail", func(c *Config) { c.Pricing.OutOfRange = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.IsType(err, apperrors.TypeConfig) {
				t.Errorf("expected CONFIG_ERROR, got %v", err)
			}
		})
	}
}
