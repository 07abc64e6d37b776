package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "matali-pricing/internal/errors"
)

const tiersCSV = `service_key,tier_name,min_volume,max_volume,unit_price
preparation_team,Starter,0,1000,6
shipping_cost,Local,0,500,8
shipping_cost,Bulk,501,2000,7
storage_fee,Pallet,1,0,45
receiving_service,Inbound,0,1000,3.5
`

// execute runs the root command with a config pointing at a temporary tier table
func execute(t *testing.T, tiers string, args ...string) error {
	t.Helper()
	dir := t.TempDir()
	tiersPath := filepath.Join(dir, "tiers.csv")
	if err := os.WriteFile(tiersPath, []byte(tiers), 0644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "matali.yaml")
	cfg := "data:\n  tiers_path: " + tiersPath + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		outputFormat, priceByKey = "cli", false
		tiersFile, tiersService, tiersStrict = "", "", false
	})
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	return rootCmd.Execute()
}

func TestPriceCommand(t *testing.T) {
	if err := execute(t, tiersCSV, "price", "--key", "shipping_cost", "501", "--format", "json"); err != nil {
		t.Fatalf("price: %v", err)
	}

	err := execute(t, tiersCSV, "price", "--key", "shipping_cost", "9000")
	if !apperrors.IsType(err, apperrors.TypeNoTier) {
		t.Errorf("expected NO_MATCHING_TIER, got %v", err)
	}

	err = execute(t, tiersCSV, "price", "ايراد الشحن", "many")
	if !apperrors.IsType(err, apperrors.TypeInput) {
		t.Errorf("expected INPUT_ERROR for a bad quantity, got %v", err)
	}
}

func TestTiersValidateCommand(t *testing.T) {
	overlapping := tiersCSV + "shipping_cost,Promo,400,600,7.5\n"

	if err := execute(t, overlapping, "tiers", "validate"); err != nil {
		t.Errorf("overlaps are warnings without --strict: %v", err)
	}
	err := execute(t, overlapping, "tiers", "validate", "--strict")
	if !apperrors.IsType(err, apperrors.TypeValidation) {
		t.Errorf("expected VALIDATION_ERROR with --strict, got %v", err)
	}
}

func TestTiersListUnknownService(t *testing.T) {
	err := execute(t, tiersCSV, "tiers", "list", "--service", "packing")
	if !apperrors.IsType(err, apperrors.TypeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "matali.yaml")
	if err := execute(t, tiersCSV, "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written config: %v", err)
	}
	if !strings.Contains(string(data), "services_path: data/services.hcl") {
		t.Errorf("written config:\n%s", data)
	}

	err = execute(t, tiersCSV, "config", "init", path)
	if !apperrors.IsType(err, apperrors.TypeInput) {
		t.Errorf("expected INPUT_ERROR for an existing file, got %v", err)
	}
}
