package inventory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnaas-network/bridge/pkg/model"
)

func writeInventory(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture inventory: %v", err)
	}
	return path
}

const fixtureYAML = `
devices:
  - name: DNAAS-LEAF-B14
    host: 10.0.0.14
    username: admin
    password: secret
  - name: DNAAS-LEAF-B15
    host: 10.0.0.15
    username: admin
    password: secret
  - name: DNAAS-SUPERSPINE-D04-NCC0
    host: 10.0.0.40
    username: admin
    password: secret
  - name: DNAAS-SUPERSPINE-D04-NCC1
    host: 10.0.0.40
    username: admin
    password: secret
`

func TestLoadAndGet(t *testing.T) {
	path := writeInventory(t, fixtureYAML)
	inv, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	d, ok := inv.Get("DNAAS-LEAF-B14")
	if !ok {
		t.Fatal("expected DNAAS-LEAF-B14 to be loaded")
	}
	if d.Host != "10.0.0.14" || d.Role != model.RoleLeaf {
		t.Errorf("got device %+v, want host=10.0.0.14 role=leaf", d)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/inventory.yaml"); err == nil {
		t.Error("expected error loading nonexistent file")
	}
}

func TestSuperspineConsolidation(t *testing.T) {
	path := writeInventory(t, fixtureYAML)
	inv, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	chassis := inv.Chassis()
	if len(chassis) != 1 {
		t.Fatalf("expected 1 consolidated chassis, got %d", len(chassis))
	}
	c := chassis[0]
	if c.Name != "DNAAS-SUPERSPINE-D04" {
		t.Errorf("chassis name = %q, want DNAAS-SUPERSPINE-D04", c.Name)
	}
	if c.Row != "D" || c.Rack != "04" {
		t.Errorf("chassis row/rack = %q/%q, want D/04", c.Row, c.Rack)
	}
	if len(c.Variants) != 2 {
		t.Errorf("expected 2 variants, got %d", len(c.Variants))
	}
}

func TestParseDeviceName(t *testing.T) {
	tests := []struct {
		name     string
		wantRole model.DeviceRole
		wantRow  string
		wantRack string
		wantNCC  string
		wantOK   bool
	}{
		{"DNAAS-LEAF-B14", model.RoleLeaf, "B", "14", "", true},
		{"DNAAS-SUPERSPINE-D04-NCC0", model.RoleSuperspine, "D", "04", "NCC0", true},
		{"DNAAS-SUPERSPINE-D04-NCC1", model.RoleSuperspine, "D", "04", "NCC1", true},
		{"not-a-dnaas-name", model.RoleUnknown, "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, row, rack, ncc, ok := ParseDeviceName(tt.name)
			if role != tt.wantRole || row != tt.wantRow || rack != tt.wantRack || ncc != tt.wantNCC || ok != tt.wantOK {
				t.Errorf("ParseDeviceName(%q) = (%v,%v,%v,%v,%v), want (%v,%v,%v,%v,%v)",
					tt.name, role, row, rack, ncc, ok, tt.wantRole, tt.wantRow, tt.wantRack, tt.wantNCC, tt.wantOK)
			}
		})
	}
}

func TestReachableUnreachable(t *testing.T) {
	path := writeInventory(t, fixtureYAML)
	inv, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	// 10.0.0.14 is not a reachable address in the test environment.
	if inv.Reachable(ctx, "DNAAS-LEAF-B14", 100*time.Millisecond) {
		t.Error("expected unreachable fixture device to report false")
	}
}

func TestReachableUnknownDevice(t *testing.T) {
	path := writeInventory(t, fixtureYAML)
	inv, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if inv.Reachable(context.Background(), "does-not-exist", time.Second) {
		t.Error("expected Reachable to return false for unknown device")
	}
}
