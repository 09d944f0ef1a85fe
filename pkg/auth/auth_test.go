package auth

import (
	"errors"
	"testing"

	"github.com/dnaas-network/bridge/pkg/bderrors"
)

func TestContextChaining(t *testing.T) {
	ctx := NewContext().
		WithBridgeDomain("g_visaev_v253").
		WithDevice("DNAAS-LEAF-B14").
		WithInterface("ge100-0/0/29.253").
		WithResource("vlan253")

	if ctx.BridgeDomain != "g_visaev_v253" {
		t.Errorf("BridgeDomain = %q", ctx.BridgeDomain)
	}
	if ctx.Device != "DNAAS-LEAF-B14" {
		t.Errorf("Device = %q", ctx.Device)
	}
	if ctx.Interface != "ge100-0/0/29.253" {
		t.Errorf("Interface = %q", ctx.Interface)
	}
	if ctx.Resource != "vlan253" {
		t.Errorf("Resource = %q", ctx.Resource)
	}
}

func testConfig() *Config {
	return &Config{
		SuperUsers: []string{"admin", "root"},
		UserGroups: map[string][]string{
			"neteng": {"alice", "bob"},
			"netops": {"charlie", "diana"},
			"viewer": {"eve"},
		},
		Permissions: map[string][]string{
			"all":          {"neteng"},
			"bd.assign":    {"neteng", "netops"},
			"bd.deploy":    {"neteng"},
			"bd.release":   {"neteng", "netops", "viewer"},
			"drift.resolve": {"neteng", "netops"},
		},
		VLANRanges: map[string]string{
			"charlie": "2000-2999",
		},
	}
}

func TestCheckerSuperUser(t *testing.T) {
	checker := NewChecker(testConfig())
	checker.SetUser("admin")

	if err := checker.Check(PermBDAssign, nil); err != nil {
		t.Errorf("Superuser should be allowed: %v", err)
	}
	if err := checker.Check(PermBDDeploy, nil); err != nil {
		t.Errorf("Superuser should be allowed: %v", err)
	}
	if !checker.IsSuperUser() {
		t.Error("admin should be superuser")
	}
}

func TestCheckerGlobalPermissions(t *testing.T) {
	checker := NewChecker(testConfig())

	t.Run("user in allowed group", func(t *testing.T) {
		checker.SetUser("alice") // in neteng
		if err := checker.Check(PermBDAssign, nil); err != nil {
			t.Errorf("alice (neteng) should have bd.assign: %v", err)
		}
	})

	t.Run("user with 'all' permission", func(t *testing.T) {
		checker.SetUser("bob") // in neteng, which has 'all'
		if err := checker.Check(PermBDDeploy, nil); err != nil {
			t.Errorf("bob (neteng with 'all') should have bd.deploy: %v", err)
		}
	})

	t.Run("user without permission", func(t *testing.T) {
		checker.SetUser("eve") // viewer only
		if err := checker.Check(PermBDDeploy, nil); err == nil {
			t.Error("eve (viewer) should not have bd.deploy")
		}
	})
}

func TestCheckerPermissionError(t *testing.T) {
	checker := NewChecker(testConfig())
	checker.SetUser("eve")

	ctx := NewContext().WithBridgeDomain("g_visaev_v253").WithDevice("DNAAS-LEAF-B14")
	err := checker.Check(PermBDDeploy, ctx)
	if err == nil {
		t.Fatal("expected error")
	}

	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected PermissionError, got %T", err)
	}
	if permErr.User != "eve" {
		t.Errorf("User = %q", permErr.User)
	}
	if permErr.Permission != PermBDDeploy {
		t.Errorf("Permission = %q", permErr.Permission)
	}

	msg := err.Error()
	if !contains(msg, "g_visaev_v253") || !contains(msg, "DNAAS-LEAF-B14") {
		t.Errorf("message should mention bridge domain and device: %q", msg)
	}

	if !errors.Is(err, bderrors.ErrPermissionDenied) {
		t.Error("should unwrap to ErrPermissionDenied")
	}
}

func TestCheckerListPermissions(t *testing.T) {
	checker := NewChecker(testConfig())

	t.Run("superuser", func(t *testing.T) {
		checker.SetUser("admin")
		perms := checker.ListPermissions()
		if len(perms) != 1 || perms[0] != PermAll {
			t.Errorf("superuser should have PermAll only, got %v", perms)
		}
	})

	t.Run("regular user", func(t *testing.T) {
		checker.SetUser("eve") // viewer
		perms := checker.ListPermissions()
		permSet := make(map[Permission]bool)
		for _, p := range perms {
			permSet[p] = true
		}
		if !permSet[PermBDRelease] {
			t.Error("eve should have bd.release")
		}
		if permSet[PermBDDeploy] {
			t.Error("eve should not have bd.deploy")
		}
	})
}

func TestCheckerGetUserGroups(t *testing.T) {
	checker := NewChecker(testConfig())

	groups := checker.GetUserGroups("alice")
	if len(groups) != 1 || groups[0] != "neteng" {
		t.Errorf("alice groups = %v, want [neteng]", groups)
	}

	groups = checker.GetUserGroups("unknown")
	if len(groups) != 0 {
		t.Errorf("unknown user should have no groups, got %v", groups)
	}
}

func TestCheckerDirectUserPermission(t *testing.T) {
	checker := NewChecker(&Config{
		Permissions: map[string][]string{
			"bd.assign": {"direct-user"}, // direct user, not a group
		},
	})
	checker.SetUser("direct-user")

	if err := checker.Check(PermBDAssign, nil); err != nil {
		t.Errorf("direct user permission should work: %v", err)
	}
}

func TestCheckerCurrentUser(t *testing.T) {
	checker := NewChecker(testConfig())

	if checker.CurrentUser() == "" {
		t.Error("CurrentUser should not be empty after NewChecker")
	}

	checker.SetUser("test-user")
	if checker.CurrentUser() != "test-user" {
		t.Errorf("CurrentUser() = %q, want %q", checker.CurrentUser(), "test-user")
	}
}

func TestCheckerGlobalPermissionNotFound(t *testing.T) {
	checker := NewChecker(&Config{
		SuperUsers:  []string{},
		UserGroups:  map[string][]string{},
		Permissions: map[string][]string{},
	})
	checker.SetUser("anyone")

	if err := checker.Check(PermBDAssign, nil); err == nil {
		t.Error("should be denied when no permissions defined")
	}
}

func TestCheckerGlobalAllPermissionNotGranted(t *testing.T) {
	checker := NewChecker(&Config{
		SuperUsers: []string{},
		UserGroups: map[string][]string{
			"admins": {"admin-user"},
			"users":  {"normal-user"},
		},
		Permissions: map[string][]string{
			"all": {"admins"},
		},
	})
	checker.SetUser("normal-user")

	if err := checker.Check(PermBDAssign, nil); err == nil {
		t.Error("normal-user should not have permission via 'all'")
	}
}

func TestCheckerAllowedVLAN(t *testing.T) {
	checker := NewChecker(testConfig())

	t.Run("restricted user within range", func(t *testing.T) {
		if !checker.AllowedVLAN("charlie", 2500) {
			t.Error("charlie should be allowed VLAN 2500")
		}
	})

	t.Run("restricted user outside range", func(t *testing.T) {
		if checker.AllowedVLAN("charlie", 3500) {
			t.Error("charlie should not be allowed VLAN 3500")
		}
	})

	t.Run("unrestricted user", func(t *testing.T) {
		if !checker.AllowedVLAN("alice", 9999) {
			t.Error("alice has no configured range and should be unrestricted")
		}
	})

	t.Run("superuser bypasses range", func(t *testing.T) {
		if !checker.AllowedVLAN("admin", 1) {
			t.Error("superuser should bypass VLAN ranges")
		}
	})
}

func TestPermissionErrorContextVariations(t *testing.T) {
	t.Run("nil context", func(t *testing.T) {
		err := &PermissionError{User: "alice", Permission: PermBDAssign, Context: nil}
		msg := err.Error()
		if msg == "" {
			t.Error("error message should not be empty")
		}
		if contains(msg, "for bridge domain") || contains(msg, "on device") {
			t.Error("should not mention bridge domain/device when context is nil")
		}
	})

	t.Run("context with bridge domain only", func(t *testing.T) {
		err := &PermissionError{User: "alice", Permission: PermBDAssign, Context: &Context{BridgeDomain: "g_visaev_v253"}}
		if !contains(err.Error(), "g_visaev_v253") {
			t.Error("should mention bridge domain name")
		}
	})

	t.Run("context with device only", func(t *testing.T) {
		err := &PermissionError{User: "alice", Permission: PermBDAssign, Context: &Context{Device: "DNAAS-LEAF-B14"}}
		if !contains(err.Error(), "DNAAS-LEAF-B14") {
			t.Error("should mention device name")
		}
	})
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
