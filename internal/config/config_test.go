package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PHOTOMOTION_ADDR", "VEO_MODEL", "GEMINI_SUGGEST_MODEL", "ALLOWED_ORIGINS", "VEO_POLL_INTERVAL", "VEO_MAX_POLLS", "MAX_UPLOAD_MB", "PHOTOMOTION_ALLOW_ENV"} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Addr != DefaultAddr || cfg.MaxUploadMB != DefaultMaxUploadMB || cfg.PollInterval != 10*time.Second || cfg.MaxPolls != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PHOTOMOTION_ADDR", "127.0.0.1:9000")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,,")
	t.Setenv("VEO_POLL_INTERVAL", "15")
	t.Setenv("VEO_MAX_POLLS", "40")
	t.Setenv("MAX_UPLOAD_MB", "20")
	t.Setenv("PHOTOMOTION_ALLOW_ENV", "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.PollInterval != 15*time.Second || cfg.MaxPolls != 40 || cfg.MaxUploadMB != 20 || !cfg.AllowEnv {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	vc := cfg.VeoConfig()
	if vc.MaxPolls != 40 || vc.PollInterval != 15*time.Second || len(vc.ProgressMessages) != 6 {
		t.Fatalf("unexpected veo config %+v", vc)
	}
}

func TestFromEnv_InvalidValues(t *testing.T) {
	for _, tc := range []struct{ key, val string }{
		{"VEO_POLL_INTERVAL", "soon"},
		{"VEO_MAX_POLLS", "many"},
		{"MAX_UPLOAD_MB", "big"},
		{"PHOTOMOTION_ALLOW_ENV", "maybe"},
	} {
		t.Run(tc.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.val)
			if _, err := FromEnv(); err == nil || !strings.Contains(err.Error(), tc.key) {
				t.Fatalf("expected error naming %s, got %v", tc.key, err)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("VEO_MODEL")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("VEO_MODEL=veo-3.1-generate-preview\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("VEO_MODEL") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model != "veo-3.1-generate-preview" {
		t.Fatalf("model = %q", cfg.Model)
	}
}

func TestLoad_MissingFileTolerated(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing .env should be tolerated: %v", err)
	}
}

func TestNormalize(t *testing.T) {
	cfg := Default()
	cfg.PollInterval = 100 * time.Millisecond
	cfg.MaxUploadMB = 500
	cfg.Model = "  veo  "
	got, notes := cfg.Normalize()
	if got.PollInterval != MinPollInterval || got.MaxUploadMB != MaxUploadMBCap || got.Model != "veo" {
		t.Fatalf("unexpected normalize result %+v", got)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %v", notes)
	}

	cfg = Default()
	cfg.PollInterval = time.Hour
	got, _ = cfg.Normalize()
	if got.PollInterval != MaxPollInterval {
		t.Fatalf("poll interval = %s", got.PollInterval)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"addr":     func(c *Config) { c.Addr = "" },
		"model":    func(c *Config) { c.Model = "" },
		"interval": func(c *Config) { c.PollInterval = 0 },
		"polls":    func(c *Config) { c.MaxPolls = -1 },
		"upload":   func(c *Config) { c.MaxUploadMB = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if Default().MaxUploadBytes() != 10<<20 {
		t.Fatalf("MaxUploadBytes mismatch")
	}
}
