package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestMaxLookback(t *testing.T) {
	cfg := Default()
	// MACD slow period (21) dominates RSI(10), BB(15) and Stoch K(10).
	if got := cfg.MaxLookback(); got != 21 {
		t.Fatalf("expected max lookback 21, got %d", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Trading.MaxOpenTrades != 5 {
		t.Fatalf("expected default max_open_trades 5, got %d", cfg.Trading.MaxOpenTrades)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goat.yaml")
	body := "trading:\n  max_open_trades: 3\nselector:\n  epsilon: 0.2\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Trading.MaxOpenTrades != 3 {
		t.Fatalf("yaml override lost: %d", cfg.Trading.MaxOpenTrades)
	}
	if cfg.Selector.Epsilon != 0.2 {
		t.Fatalf("yaml override lost: %f", cfg.Selector.Epsilon)
	}
	// Untouched sections keep defaults.
	if cfg.Trading.BuyCommission != 0.001 {
		t.Fatalf("default commission lost: %f", cfg.Trading.BuyCommission)
	}
}

func TestValidateRejectsBadEpsilon(t *testing.T) {
	cfg := Default()
	cfg.Selector.Epsilon = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for epsilon > 1")
	}
}

func TestValidateRejectsInvertedMACD(t *testing.T) {
	cfg := Default()
	cfg.Indicators.MACDFast = 30
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for fast >= slow")
	}
}
