package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"DNAAS_BRIDGE_INVENTORY_PATH",
		"DNAAS_BRIDGE_PARALLELISM",
		"DNAAS_BRIDGE_COMMAND_TIMEOUT",
		"DNAAS_BRIDGE_SSH_CONNECT_TIMEOUT",
		"DNAAS_BRIDGE_GLOBAL_VLAN_RANGE",
		"DNAAS_BRIDGE_DB_PATH",
		"DNAAS_BRIDGE_REDIS_ADDR",
	}
	for _, k := range keys {
		old, ok := os.LookupEnv(k)
		os.Unsetenv(k)
		if ok {
			t.Cleanup(func() { os.Setenv(k, old) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.InventoryPath != defaultInventoryPath {
		t.Errorf("InventoryPath = %q, want %q", cfg.InventoryPath, defaultInventoryPath)
	}
	if cfg.Parallelism != defaultParallelism {
		t.Errorf("Parallelism = %d, want %d", cfg.Parallelism, defaultParallelism)
	}
	if cfg.CommandTimeout != defaultCommandTimeout {
		t.Errorf("CommandTimeout = %v, want %v", cfg.CommandTimeout, defaultCommandTimeout)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty (leases disabled by default)", cfg.RedisAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv("DNAAS_BRIDGE_PARALLELISM", "25")
	os.Setenv("DNAAS_BRIDGE_COMMAND_TIMEOUT", "45s")
	os.Setenv("DNAAS_BRIDGE_GLOBAL_VLAN_RANGE", "100-199")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Parallelism != 25 {
		t.Errorf("Parallelism = %d, want 25", cfg.Parallelism)
	}
	if cfg.CommandTimeout != 45*time.Second {
		t.Errorf("CommandTimeout = %v, want 45s", cfg.CommandTimeout)
	}
	if cfg.GlobalVLANRange != "100-199" {
		t.Errorf("GlobalVLANRange = %q, want 100-199", cfg.GlobalVLANRange)
	}
}

func TestLoadInvalidParallelism(t *testing.T) {
	clearEnv(t)
	os.Setenv("DNAAS_BRIDGE_PARALLELISM", "not-a-number")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid parallelism")
	}
}

func TestLoadInvalidTimeout(t *testing.T) {
	clearEnv(t)
	os.Setenv("DNAAS_BRIDGE_COMMAND_TIMEOUT", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid command timeout")
	}
}
