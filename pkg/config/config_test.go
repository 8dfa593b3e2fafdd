package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if got := cfg.DiscoveryGroupAddr().String(); got != "224.0.0.123:7645" {
		t.Errorf("group addr: got %s", got)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p2pshare.yaml")
	data := "transfer_port: 9001\ntemp_dir: /tmp/chunks\nmetrics_interval: 5s\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TransferPort != 9001 {
		t.Errorf("transfer port: got %d", cfg.TransferPort)
	}
	if cfg.TempDir != "/tmp/chunks" {
		t.Errorf("temp dir: got %s", cfg.TempDir)
	}
	if cfg.MetricsInterval != 5*time.Second {
		t.Errorf("metrics interval: got %v", cfg.MetricsInterval)
	}
	// untouched keys keep their defaults
	if cfg.DiscoveryPort != 7645 || cfg.BufferSize != 100_000 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unicast group", func(c *Config) { c.MulticastGroup = "10.0.0.1" }},
		{"bad port", func(c *Config) { c.TransferPort = 70000 }},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }},
		{"client addr without port", func(c *Config) { c.ClientAddr = "127.0.0.1" }},
		{"client addr on all interfaces", func(c *Config) { c.ClientAddr = ":7643" }},
		{"client addr on lan", func(c *Config) { c.ClientAddr = "192.168.1.5:7643" }},
		{"ttl", func(c *Config) { c.MulticastTTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestValidateAcceptsLoopback(t *testing.T) {
	for _, addr := range []string{"127.0.0.1:0", "127.0.0.2:7643", "[::1]:7643", "localhost:7643"} {
		cfg := NewConfig()
		cfg.ClientAddr = addr
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s: %v", addr, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
