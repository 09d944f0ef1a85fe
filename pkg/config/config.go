// Package config loads process-wide settings from the environment, with
// sane defaults for every field so the binary runs unconfigured in a dev
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultInventoryPath  = "/etc/dnaas-bridge/inventory.yaml"
	defaultParallelism    = 10
	defaultCommandTimeout = 30 * time.Second
	defaultConnectTimeout = 15 * time.Second
	defaultGlobalVLANRange = "2000-3999"
	defaultDBPath         = "/var/lib/dnaas-bridge/bridge.db"
)

// Config is the process-wide configuration for dnaas-bridge, resolved once
// at startup from environment variables.
type Config struct {
	InventoryPath   string
	Parallelism     int
	CommandTimeout  time.Duration
	ConnectTimeout  time.Duration
	GlobalVLANRange string
	DBPath          string
	RedisAddr       string // empty disables lease heartbeats
}

// Load reads Config fields from the environment, falling back to defaults
// for anything unset. A malformed parallelism or timeout value is returned
// as an error.
func Load() (*Config, error) {
	cfg := &Config{
		InventoryPath:   getString("DNAAS_BRIDGE_INVENTORY_PATH", defaultInventoryPath),
		Parallelism:     defaultParallelism,
		CommandTimeout:  defaultCommandTimeout,
		ConnectTimeout:  defaultConnectTimeout,
		GlobalVLANRange: getString("DNAAS_BRIDGE_GLOBAL_VLAN_RANGE", defaultGlobalVLANRange),
		DBPath:          getString("DNAAS_BRIDGE_DB_PATH", defaultDBPath),
		RedisAddr:       getString("DNAAS_BRIDGE_REDIS_ADDR", ""),
	}

	if v := os.Getenv("DNAAS_BRIDGE_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid DNAAS_BRIDGE_PARALLELISM %q: must be a positive integer", v)
		}
		cfg.Parallelism = n
	}

	if v := os.Getenv("DNAAS_BRIDGE_COMMAND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DNAAS_BRIDGE_COMMAND_TIMEOUT %q: %w", v, err)
		}
		cfg.CommandTimeout = d
	}

	if v := os.Getenv("DNAAS_BRIDGE_SSH_CONNECT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DNAAS_BRIDGE_SSH_CONNECT_TIMEOUT %q: %w", v, err)
		}
		cfg.ConnectTimeout = d
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
