package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pool != DefaultPool || cfg.AMMProgram != DefaultAMMProgram {
		t.Fatalf("unexpected addresses %q %q", cfg.Pool, cfg.AMMProgram)
	}
	if cfg.PriceMin != 4 || cfg.PriceMax != 5 || cfg.MinLiquidity != 300000 {
		t.Fatalf("unexpected thresholds %+v", cfg)
	}
	if cfg.PollInterval != 5*time.Second || cfg.MaxRetries != 3 || cfg.RetryDelay != time.Second {
		t.Fatalf("unexpected timing %+v", cfg)
	}
	if cfg.ConfirmTimeout != 60*time.Second || cfg.Listen != ":3001" {
		t.Fatalf("unexpected confirm timeout or listen %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	th, err := cfg.Thresholds()
	if err != nil {
		t.Fatalf("thresholds: %v", err)
	}
	if th.SellAmount.String() != "24084.46" {
		t.Fatalf("sell amount = %s", th.SellAmount)
	}
}

func TestLoadEnvAndFlags(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MONITOR_PRICE_MIN", "3.5")
	t.Setenv("WALLET_SEED_PHRASE", "abandon abandon")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Duration("poll-interval", 5*time.Second, "")
	if err := flags.Parse([]string{"--poll-interval=2s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PriceMin != 3.5 {
		t.Fatalf("price min = %g, want 3.5", cfg.PriceMin)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("poll interval = %s, want 2s", cfg.PollInterval)
	}
	if cfg.SeedPhrase != "abandon abandon" {
		t.Fatalf("seed phrase = %q", cfg.SeedPhrase)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor.yaml")
	body := "price-max: 6\nmin-liquidity: 1000\nsell-amount: \"10.5\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PriceMax != 6 || cfg.MinLiquidity != 1000 || cfg.SellAmount != "10.5" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestValidateReportsEveryError(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Pool = "not-a-key"
	cfg.SellAmount = "abc"
	cfg.PriceMin, cfg.PriceMax = 5, 4
	cfg.Commitment = "instant"

	err = cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"invalid pool", "invalid sell amount", "invalid price band", "unsupported commitment"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func chdirTemp(t *testing.T) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
