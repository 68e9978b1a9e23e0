package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("APP_ENV", "")
	cfg := Load()
	if cfg.Port != "5000" {
		t.Fatalf("port = %q, want 5000", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("env = %q", cfg.Env)
	}
	if cfg.DatabaseDSN == "" {
		t.Fatal("dsn default missing")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_DSN", "postgres://u:p@db:5432/x")
	t.Setenv("APP_ENV", "production")
	cfg := Load()
	if cfg.Port != "8080" || cfg.Env != "production" || cfg.DatabaseDSN != "postgres://u:p@db:5432/x" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseBool(t *testing.T) {
	t.Setenv("MIGRATIONS", "")
	if ParseBool("MIGRATIONS", true) != true {
		t.Fatal("default not used")
	}
	t.Setenv("MIGRATIONS", "1")
	if !ParseBool("MIGRATIONS", false) {
		t.Fatal("\"1\" should parse true")
	}
	t.Setenv("MIGRATIONS", "nope")
	if ParseBool("MIGRATIONS", false) {
		t.Fatal("garbage should fall back to default")
	}
}
