package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetInventoryPath(); got != DefaultInventoryPath {
		t.Errorf("GetInventoryPath() default = %q, want %q", got, DefaultInventoryPath)
	}

	if s.DefaultVLANRange != "" {
		t.Errorf("DefaultVLANRange should be empty, got %q", s.DefaultVLANRange)
	}
}

func TestSettings_InventoryPathOverride(t *testing.T) {
	s := &Settings{DefaultInventoryPath: "/opt/dnaas/inventory.yaml"}
	if got := s.GetInventoryPath(); got != "/opt/dnaas/inventory.yaml" {
		t.Errorf("GetInventoryPath() override = %q, want %q", got, "/opt/dnaas/inventory.yaml")
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{
		DefaultInventoryPath: "/path",
		DefaultVLANRange:     "2000-3999",
		AuditLogPath:         "/var/log/x",
	}

	s.Clear()

	if s.DefaultInventoryPath != "" || s.DefaultVLANRange != "" || s.AuditLogPath != "" {
		t.Error("Clear() should reset all fields to empty")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dnaas-bridge-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "settings.json")

	original := &Settings{
		DefaultInventoryPath: "/opt/dnaas/inventory.yaml",
		DefaultVLANRange:     "2000-3999",
		AuditLogPath:         "/var/log/dnaas-bridge/audit.log",
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if loaded.DefaultInventoryPath != original.DefaultInventoryPath {
		t.Errorf("DefaultInventoryPath mismatch: got %q, want %q", loaded.DefaultInventoryPath, original.DefaultInventoryPath)
	}
	if loaded.DefaultVLANRange != original.DefaultVLANRange {
		t.Errorf("DefaultVLANRange mismatch: got %q, want %q", loaded.DefaultVLANRange, original.DefaultVLANRange)
	}
	if loaded.AuditLogPath != original.AuditLogPath {
		t.Errorf("AuditLogPath mismatch: got %q, want %q", loaded.AuditLogPath, original.AuditLogPath)
	}
}

func TestSettings_LoadNonExistent(t *testing.T) {
	s, err := LoadFrom("/nonexistent/path/settings.json")
	if err != nil {
		t.Fatalf("LoadFrom() non-existent should not error: %v", err)
	}
	if s == nil {
		t.Fatal("LoadFrom() should return non-nil Settings")
	}
	if s.DefaultInventoryPath != "" {
		t.Error("LoadFrom() non-existent should return empty settings")
	}
}

func TestSettings_LoadInvalidJSON(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dnaas-bridge-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "settings.json")
	if err := os.WriteFile(path, []byte("invalid json {"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err = LoadFrom(path)
	if err == nil {
		t.Error("LoadFrom() with invalid JSON should error")
	}
}

func TestSettings_SaveCreatesDirectory(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dnaas-bridge-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "subdir", "nested", "settings.json")

	s := &Settings{DefaultVLANRange: "2000-3999"}
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() should create directories: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("SaveTo() should have created the file")
	}
}

func TestDefaultSettingsPath(t *testing.T) {
	path := DefaultSettingsPath()
	if path == "" {
		t.Error("DefaultSettingsPath() should not be empty")
	}
	if !filepath.IsAbs(path) && path != "/tmp/dnaas_bridge_settings.json" {
		t.Errorf("DefaultSettingsPath() should be absolute or fallback, got %q", path)
	}
}

func TestLoad(t *testing.T) {
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)

	tmpDir, err := os.MkdirTemp("", "dnaas-bridge-test-home-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	os.Setenv("HOME", tmpDir)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load() with non-existent file should not error: %v", err)
	}
	if s == nil {
		t.Fatal("Load() should return non-nil Settings")
	}
	if s.DefaultVLANRange != "" {
		t.Error("Load() with non-existent file should return empty settings")
	}

	settingsDir := filepath.Join(tmpDir, ".dnaas-bridge")
	if err := os.MkdirAll(settingsDir, 0755); err != nil {
		t.Fatalf("Failed to create settings dir: %v", err)
	}

	settingsPath := filepath.Join(settingsDir, "settings.json")
	testSettings := `{"default_inventory_path":"/opt/inv.yaml","default_vlan_range":"2000-3999"}`
	if err := os.WriteFile(settingsPath, []byte(testSettings), 0644); err != nil {
		t.Fatalf("Failed to write test settings: %v", err)
	}

	s, err = Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if s.DefaultInventoryPath != "/opt/inv.yaml" {
		t.Errorf("Load() DefaultInventoryPath = %q, want %q", s.DefaultInventoryPath, "/opt/inv.yaml")
	}
	if s.DefaultVLANRange != "2000-3999" {
		t.Errorf("Load() DefaultVLANRange = %q, want %q", s.DefaultVLANRange, "2000-3999")
	}
}

func TestSave(t *testing.T) {
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)

	tmpDir, err := os.MkdirTemp("", "dnaas-bridge-test-home-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	os.Setenv("HOME", tmpDir)

	s := &Settings{
		DefaultInventoryPath: "/opt/saved.yaml",
		DefaultVLANRange:     "3000-3500",
	}

	if err := s.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, ".dnaas-bridge", "settings.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Save() did not create file at %s", expectedPath)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() after Save() failed: %v", err)
	}
	if loaded.DefaultInventoryPath != "/opt/saved.yaml" {
		t.Errorf("After Save(), DefaultInventoryPath = %q, want %q", loaded.DefaultInventoryPath, "/opt/saved.yaml")
	}
	if loaded.DefaultVLANRange != "3000-3500" {
		t.Errorf("After Save(), DefaultVLANRange = %q, want %q", loaded.DefaultVLANRange, "3000-3500")
	}
}

func TestDefaultSettingsPath_NoHome(t *testing.T) {
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)

	os.Unsetenv("HOME")

	path := DefaultSettingsPath()
	if path != "/tmp/dnaas_bridge_settings.json" {
		t.Errorf("DefaultSettingsPath() with no HOME = %q, want %q", path, "/tmp/dnaas_bridge_settings.json")
	}
}

func TestLoadFrom_ReadError(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dnaas-bridge-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dirAsFile := filepath.Join(tmpDir, "settings.json")
	if err := os.Mkdir(dirAsFile, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	_, err = LoadFrom(dirAsFile)
	if err == nil {
		t.Error("LoadFrom() should error when path is a directory")
	}
}

func TestSaveTo_MkdirError(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dnaas-bridge-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	blockingFile := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blockingFile, []byte("blocking"), 0644); err != nil {
		t.Fatalf("Failed to create blocking file: %v", err)
	}

	path := filepath.Join(blockingFile, "subdir", "settings.json")
	s := &Settings{DefaultVLANRange: "2000-3999"}

	err = s.SaveTo(path)
	if err == nil {
		t.Error("SaveTo() should fail when directory creation fails")
	}
}

func TestSettings_AuditDefaults(t *testing.T) {
	s := &Settings{}
	if got := s.GetAuditMaxSizeMB(); got != DefaultAuditMaxSizeMB {
		t.Errorf("GetAuditMaxSizeMB() = %d, want %d", got, DefaultAuditMaxSizeMB)
	}
	if got := s.GetAuditMaxBackups(); got != DefaultAuditMaxBackups {
		t.Errorf("GetAuditMaxBackups() = %d, want %d", got, DefaultAuditMaxBackups)
	}
	if got := s.GetAuditLogPath(); got != "/var/log/dnaas-bridge/audit.log" {
		t.Errorf("GetAuditLogPath() = %q, want %q", got, "/var/log/dnaas-bridge/audit.log")
	}
}
