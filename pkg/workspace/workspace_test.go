package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dnaas-network/bridge/pkg/auth"
	"github.com/dnaas-network/bridge/pkg/bderrors"
	"github.com/dnaas-network/bridge/pkg/model"
	"github.com/dnaas-network/bridge/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "bridge.db"))
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testChecker() *auth.Checker {
	c := auth.NewChecker(&auth.Config{
		SuperUsers: []string{"admin"},
		VLANRanges: map[string]string{
			"restricted": "100-200",
		},
	})
	return c
}

func sampleBD(name, user string, vlan int) *model.BridgeDomain {
	return &model.BridgeDomain{
		Name:      name,
		Username:  user,
		VLANID:    vlan,
		DNAASType: model.DNAASSingleTagged,
		Scope:     model.ScopeGlobal,
	}
}

func TestAssignThenEditPermitted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	bd := sampleBD("g_alice_v251", "alice", 251)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("UpsertBridgeDomain() error: %v", err)
	}

	ws := New(s, testChecker(), nil)
	if _, err := ws.Assign(ctx, bd, "alice", "starting work"); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}

	if err := ws.CheckEdit(ctx, bd, "alice"); err != nil {
		t.Errorf("CheckEdit() for the holder should succeed, got %v", err)
	}
}

func TestAssignConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	bd := sampleBD("g_oalfasi_v100", "oalfasi", 100)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("UpsertBridgeDomain() error: %v", err)
	}

	ws := New(s, testChecker(), nil)
	if _, err := ws.Assign(ctx, bd, "userA", ""); err != nil {
		t.Fatalf("first Assign() error: %v", err)
	}
	if _, err := ws.Assign(ctx, bd, "userB", ""); !errors.Is(err, bderrors.ErrAlreadyAssigned) {
		t.Fatalf("second Assign() = %v, want ErrAlreadyAssigned", err)
	}

	if err := ws.CheckEdit(ctx, bd, "userB"); err == nil {
		t.Error("CheckEdit() for non-holder should fail")
	}
}

func TestReleaseThenReassign(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	bd := sampleBD("g_visaev_v253", "visaev", 253)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("UpsertBridgeDomain() error: %v", err)
	}

	ws := New(s, testChecker(), nil)
	if _, err := ws.Assign(ctx, bd, "userA", ""); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := ws.Release(ctx, bd, "userB"); err == nil {
		t.Error("Release() by non-holder should fail")
	}
	if err := ws.Release(ctx, bd, "userA"); err != nil {
		t.Fatalf("Release() by holder error: %v", err)
	}
	if _, err := ws.Assign(ctx, bd, "userB", ""); err != nil {
		t.Fatalf("reassign after release error: %v", err)
	}
}

func TestAssignDeniedOutsideVLANRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	bd := sampleBD("g_restricted_v500", "restricted", 500)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("UpsertBridgeDomain() error: %v", err)
	}

	ws := New(s, testChecker(), nil)
	if _, err := ws.Assign(ctx, bd, "restricted", ""); err == nil {
		t.Error("Assign() outside permitted VLAN range should fail")
	}
}

func TestApplyChangeRequiresAssignment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	bd := sampleBD("g_visaev_v253", "visaev", 253)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("UpsertBridgeDomain() error: %v", err)
	}

	ws := New(s, testChecker(), nil)
	session := &model.EditSession{ID: "sess1", BridgeDomainID: bd.ID}
	change := model.Change{Kind: model.ChangeAddInterface, Device: "DNAAS-LEAF-B14", Interface: "ge100-0/0/29", VLANID: intPtr(253)}

	if err := ws.ApplyChange(ctx, bd, "visaev", session, change); err == nil {
		t.Error("ApplyChange() without an assignment should fail")
	}

	if _, err := ws.Assign(ctx, bd, "visaev", ""); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := ws.ApplyChange(ctx, bd, "visaev", session, change); err != nil {
		t.Fatalf("ApplyChange() after assignment error: %v", err)
	}
	if len(session.Changes) != 1 {
		t.Errorf("session.Changes len = %d, want 1", len(session.Changes))
	}
}

func intPtr(v int) *int { return &v }
