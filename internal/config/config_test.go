package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
gateway:
  api_key: key
  api_secret: c2VjcmV0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.InstanceID != "default" {
		t.Fatalf("InstanceID = %q, want default", cfg.InstanceID)
	}
	if cfg.Cache.BalanceRefreshSec != 30 {
		t.Fatalf("BalanceRefreshSec = %d, want 30", cfg.Cache.BalanceRefreshSec)
	}
	if cfg.Cache.PriceRefreshSec != 60 {
		t.Fatalf("PriceRefreshSec = %d, want 60", cfg.Cache.PriceRefreshSec)
	}
	if cfg.Gateway.BaseURL != "https://api.kraken.com" {
		t.Fatalf("Gateway.BaseURL = %q", cfg.Gateway.BaseURL)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Encoding != "console" {
		t.Fatalf("logging defaults = %q/%q", cfg.Logging.Level, cfg.Logging.Encoding)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
gateway:
  api_key: key
  api_secret: c2VjcmV0
mystery_field: 1
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("Load() accepted an unknown field")
	}
}

func TestLoadMinOrderSizeOverrides(t *testing.T) {
	path := writeConfig(t, `
gateway:
  api_key: key
  api_secret: c2VjcmV0
validation:
  min_order_sizes:
    BTC/USD: "0.002"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	overrides := cfg.MinOrderSizeOverrides()
	if !overrides["BTC/USD"].Equal(decimal.RequireFromString("0.002")) {
		t.Fatalf("override = %s, want 0.002", overrides["BTC/USD"])
	}
}

func TestLoadRejectsNonPositiveMinimum(t *testing.T) {
	path := writeConfig(t, `
gateway:
  api_key: key
  api_secret: c2VjcmV0
validation:
  min_order_sizes:
    BTC/USD: "0"
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "min_order_sizes") {
		t.Fatalf("Load() error = %v, want min_order_sizes rejection", err)
	}
}

func TestLoadRejectsBadStreamURL(t *testing.T) {
	path := writeConfig(t, `
gateway:
  api_key: key
  api_secret: c2VjcmV0
stream:
  url: https://not-a-websocket
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "stream url") {
		t.Fatalf("Load() error = %v, want stream url rejection", err)
	}
}

func TestLoadTelegramRequiresToken(t *testing.T) {
	path := writeConfig(t, `
gateway:
  api_key: key
  api_secret: c2VjcmV0
observability:
  telegram:
    enabled: true
    chat_id: "42"
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "bot_token") {
		t.Fatalf("Load() error = %v, want bot_token rejection", err)
	}
}
