package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StatePath != "./data/state.json" || cfg.ScenesDir != "./data/scenes" {
		t.Errorf("Unexpected state defaults: %+v", cfg)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Errorf("TokenTTL = %v, want 12h", cfg.TokenTTL)
	}
	if !cfg.IsDevelopment() {
		t.Error("Empty FRONTEND_URL must mean development")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("FRONTEND_URL", "https://console.gdistrict.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "9000" || cfg.TokenTTL != 30*time.Minute {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if cfg.IsDevelopment() {
		t.Error("Production frontend URL must not mean development")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"empty state path", func(c *Config) { c.StatePath = "" }, true},
		{"no secret in production", func(c *Config) {
			c.JWTSecret = ""
			c.FrontendURL = "https://console.gdistrict.org"
		}, true},
		{"zero token ttl", func(c *Config) { c.TokenTTL = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Port:      "8080",
				DBPath:    "./data/gschool.db",
				StatePath: "./data/state.json",
				ScenesDir: "./data/scenes",
				JWTSecret: "s3cret",
				TokenTTL:  time.Hour,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenTTLFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TOKEN_TTL", "not-a-duration")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Errorf("TokenTTL = %v, want fallback 12h", cfg.TokenTTL)
	}
}
