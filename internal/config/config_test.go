package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/organic-shop-bfa/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 || cfg.DBDriver != "sqlite" || cfg.FAQPath != "data/faqs.json" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.OpenAIModel != "gpt-3.5-turbo" || cfg.OpenAITimeout != 30*time.Second {
		t.Errorf("unexpected openai defaults %q %v", cfg.OpenAIModel, cfg.OpenAITimeout)
	}
	if cfg.JWTAccessTTL != 7*24*time.Hour || cfg.JWTRememberTTL != 30*24*time.Hour {
		t.Errorf("unexpected token ttls %v %v", cfg.JWTAccessTTL, cfg.JWTRememberTTL)
	}
	if !cfg.UsesDefaultSecret() {
		t.Error("expected development secret")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop?sslmode=disable")
	t.Setenv("OPENAI_TIMEOUT", "5s")
	t.Setenv("SEED_DATA", "false")
	t.Setenv("CHAT_RATE_LIMIT", "0")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 || cfg.LogLevel != "debug" || cfg.DBDriver != "postgres" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.OpenAITimeout != 5*time.Second || cfg.SeedData || cfg.ChatRateLimit != 0 {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("PORT", "70000")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := config.Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"PORT", "DB_DRIVER", "LOG_LEVEL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s in %q", want, err)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SHOP_DOTENV_A=from-file\nSHOP_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHOP_DOTENV_B", "from-env")
	t.Cleanup(func() { os.Unsetenv("SHOP_DOTENV_A") })

	if err := config.LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("SHOP_DOTENV_A"); got != "from-file" {
		t.Errorf("expected value from file, got %q", got)
	}
	if got := os.Getenv("SHOP_DOTENV_B"); got != "from-env" {
		t.Errorf("existing env must win, got %q", got)
	}
}
