package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrDefaultMissingFile(t *testing.T) {
	os.Unsetenv("INITIAL_CASH")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault should fall back to defaults: %v", err)
	}
	if cfg.Backtest.InitialCash != 100000 {
		t.Errorf("Backtest.InitialCash = %v, want default %v", cfg.Backtest.InitialCash, 100000.0)
	}
}

func TestLoadDefaults(t *testing.T) {
	// Create a temporary YAML config file.
	yamlContent := []byte(`
storage:
  data_dir: "/tmp/quantics/data"
  sqlite_path: "/tmp/quantics/quantics.db"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
logging:
  level: "info"
  format: "json"
backtest:
  initial_cash: 100000
  commission: 0.001
  risk_free_rate: 0.0
  bars_per_year: 252
  max_workers: 4
`)

	tmpFile, err := os.CreateTemp("", "quantics-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}

	// Clear any environment overrides that might interfere.
	os.Unsetenv("ALPACA_API_KEY")
	os.Unsetenv("ALPACA_API_SECRET")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	os.Unsetenv("DATA_DIR")
	os.Unsetenv("SQLITE_PATH")
	os.Unsetenv("INITIAL_CASH")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/quantics/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/quantics/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/quantics/quantics.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/quantics/quantics.db")
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.APISecret != "test-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q", cfg.Alpaca.APISecret, "test-secret")
	}

	// -- Backtest --
	if cfg.Backtest.InitialCash != 100000 {
		t.Errorf("Backtest.InitialCash = %v, want %v", cfg.Backtest.InitialCash, 100000.0)
	}
	if cfg.Backtest.Commission != 0.001 {
		t.Errorf("Backtest.Commission = %v, want %v", cfg.Backtest.Commission, 0.001)
	}
	if cfg.Backtest.BarsPerYear != 252 {
		t.Errorf("Backtest.BarsPerYear = %d, want %d", cfg.Backtest.BarsPerYear, 252)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	// A config file that only sets logging should keep the backtest defaults.
	yamlContent := []byte(`
logging:
  level: "debug"
`)

	tmpFile, err := os.CreateTemp("", "quantics-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}

	os.Unsetenv("INITIAL_CASH")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Backtest.InitialCash != 100000 {
		t.Errorf("Backtest.InitialCash = %v, want default %v", cfg.Backtest.InitialCash, 100000.0)
	}
	if cfg.Backtest.BarsPerYear != 252 {
		t.Errorf("Backtest.BarsPerYear = %d, want default %d", cfg.Backtest.BarsPerYear, 252)
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("INITIAL_CASH", "50000")

	applyEnvOverrides(cfg)

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "env-key")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
	if cfg.Backtest.InitialCash != 50000 {
		t.Errorf("Backtest.InitialCash = %v, want %v", cfg.Backtest.InitialCash, 50000.0)
	}
}
