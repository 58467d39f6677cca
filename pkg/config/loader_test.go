package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfig = `
bot:
  token: ${BOT_TOKEN}
  currency: RUB
  poll_timeout: 5s

redis:
  addr: localhost:6379

commerce:
  base_url: https://api.example.com
  client_id: client-1

geocoder:
  base_url: https://geocoder.example.com
  api_key: geo-key

delivery:
  mid_fee: 150
`

func writeTestConfig(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "configs"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "configs", "development.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)
}

func TestLoad(t *testing.T) {
	writeTestConfig(t, testConfig)
	t.Setenv("APP_ENV", "")
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppEnv != "development" {
		t.Fatalf("app env = %q", cfg.AppEnv)
	}
	if cfg.Bot.Token != "123:abc" {
		t.Fatalf("token = %q, want the expanded env value", cfg.Bot.Token)
	}
	if cfg.Bot.PollTimeout != 5*time.Second {
		t.Fatalf("poll timeout = %v", cfg.Bot.PollTimeout)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	writeTestConfig(t, testConfig)
	t.Setenv("APP_ENV", "")
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Delivery.FreeRadiusKM != 0.5 || cfg.Delivery.MaxRadiusKM != 20 {
		t.Fatalf("delivery radii = %+v", cfg.Delivery)
	}
	if cfg.Delivery.MidFee != 150 {
		t.Fatalf("mid fee = %d, explicit values must win over defaults", cfg.Delivery.MidFee)
	}
	if cfg.Delivery.HighFee != 300 {
		t.Fatalf("high fee = %d", cfg.Delivery.HighFee)
	}
	if cfg.Delivery.ReminderDelay != time.Hour {
		t.Fatalf("reminder delay = %v", cfg.Delivery.ReminderDelay)
	}
	if cfg.Server.Port != ":8080" {
		t.Fatalf("server port = %q", cfg.Server.Port)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	// bot.token missing entirely
	writeTestConfig(t, `
redis:
  addr: localhost:6379

commerce:
  base_url: https://api.example.com
  client_id: client-1

geocoder:
  base_url: https://geocoder.example.com
  api_key: geo-key
`)
	t.Setenv("APP_ENV", "")

	if _, _, err := Load(); err == nil {
		t.Fatal("expected a validation error for the missing bot token")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "")

	if _, _, err := Load(); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: "5432", User: "bot", Password: "s3cret", Database: "pizzeria",
	}

	want := "host=db port=5432 user=bot password=s3cret dbname=pizzeria sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}
