package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Group != "224.0.0.1" || cfg.Port != 7000 || cfg.TTL != 10 {
		t.Fatalf("unexpected network defaults: %+v", cfg)
	}
	if cfg.ReceiveTimeout != 200*time.Millisecond {
		t.Fatalf("receive timeout = %v", cfg.ReceiveTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"PORT", "7100")
	t.Setenv(EnvPrefix+"EVICT_AFTER", "5s")
	t.Setenv(EnvPrefix+"FRICTION", "0.9")
	t.Setenv(EnvPrefix+"TTL", "many")

	cfg, warnings := Load(filepath.Join(t.TempDir(), "missing.env"))
	if cfg.Port != 7100 || cfg.EvictAfter != 5*time.Second || cfg.Friction != 0.9 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.TTL != 10 {
		t.Fatalf("invalid TTL should keep default, got %d", cfg.TTL)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly the TTL warning", warnings)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("LANARENA_GROUP=239.1.2.3\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(EnvPrefix+"GROUP", "")
	os.Unsetenv(EnvPrefix + "GROUP")

	cfg, warnings := Load(path)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if cfg.Group != "239.1.2.3" {
		t.Fatalf("group = %q, want value from env file", cfg.Group)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"hostname group": func(c *Config) { c.Group = "example.com" },
		"unicast group":  func(c *Config) { c.Group = "10.0.0.1" },
		"port":           func(c *Config) { c.Port = 70000 },
		"local id":       func(c *Config) { c.LocalID = 300 },
		"queue":          func(c *Config) { c.QueueCapacity = 0 },
		"friction":       func(c *Config) { c.Friction = 1.5 },
		"tile":           func(c *Config) { c.TileLength = 1 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
