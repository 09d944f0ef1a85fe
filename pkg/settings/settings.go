// Package settings manages persistent per-user CLI defaults for
// dnaas-bridge, distinct from the process-wide environment configuration in
// pkg/config.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultInventoryPath is the inventory file used when no override is
// configured anywhere.
const DefaultInventoryPath = "/etc/dnaas-bridge/inventory.yaml"

// Settings holds persistent user preferences for the dnaas-bridge CLI.
type Settings struct {
	// DefaultInventoryPath overrides the default device inventory file.
	DefaultInventoryPath string `json:"default_inventory_path,omitempty"`

	// DefaultVLANRange overrides the allowed VLAN range for commands that
	// don't specify one explicitly, in "min-max" form (e.g. "2000-3999").
	DefaultVLANRange string `json:"default_vlan_range,omitempty"`

	// AuditLogPath overrides the default audit log path.
	AuditLogPath string `json:"audit_log_path,omitempty"`

	// AuditMaxSizeMB is the max audit log size in MB before rotation (default: 10)
	AuditMaxSizeMB int `json:"audit_max_size_mb,omitempty"`

	// AuditMaxBackups is the max number of rotated audit log files (default: 10)
	AuditMaxBackups int `json:"audit_max_backups,omitempty"`
}

const (
	// DefaultAuditMaxSizeMB is the default maximum audit log size in megabytes.
	DefaultAuditMaxSizeMB = 10

	// DefaultAuditMaxBackups is the default maximum number of rotated audit log files.
	DefaultAuditMaxBackups = 10
)

// DefaultSettingsPath returns the default path for the settings file.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/dnaas_bridge_settings.json"
	}
	return filepath.Join(home, ".dnaas-bridge", "settings.json")
}

// Load reads settings from the default location.
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location.
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path.
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetInventoryPath returns the inventory path with a fallback default.
func (s *Settings) GetInventoryPath() string {
	if s.DefaultInventoryPath != "" {
		return s.DefaultInventoryPath
	}
	return DefaultInventoryPath
}

// GetAuditLogPath returns the audit log path with a fallback default.
func (s *Settings) GetAuditLogPath() string {
	if s.AuditLogPath != "" {
		return s.AuditLogPath
	}
	return "/var/log/dnaas-bridge/audit.log"
}

// GetAuditMaxSizeMB returns the audit max size in MB with a default of 10.
func (s *Settings) GetAuditMaxSizeMB() int {
	if s.AuditMaxSizeMB > 0 {
		return s.AuditMaxSizeMB
	}
	return DefaultAuditMaxSizeMB
}

// GetAuditMaxBackups returns the audit max backups with a default of 10.
func (s *Settings) GetAuditMaxBackups() int {
	if s.AuditMaxBackups > 0 {
		return s.AuditMaxBackups
	}
	return DefaultAuditMaxBackups
}

// Clear resets all settings to defaults.
func (s *Settings) Clear() {
	*s = Settings{}
}
