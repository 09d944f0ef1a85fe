package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dnaas-network/bridge/pkg/bderrors"
	"github.com/dnaas-network/bridge/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func vlan(v int) *int { return &v }

func sampleBD(name, username string, vlanID int) *model.BridgeDomain {
	return &model.BridgeDomain{
		Name:         name,
		Username:     username,
		VLANID:       vlanID,
		DNAASType:    model.DNAASSingleTagged,
		TopologyType: model.TopologyP2P,
		Scope:        model.ScopeGlobal,
		AdminState:   model.AdminStateEnabled,
		Members: []model.Interface{
			{Device: "DNAAS-LEAF-B14", Name: "ge100-0/0/29." + "251", VLANID: vlan(251), L2ServiceEnabled: true},
			{Device: "DNAAS-LEAF-B15", Name: "ge100-0/0/31." + "251", VLANID: vlan(251), L2ServiceEnabled: true},
		},
	}
}

func TestUpsertAndGetBridgeDomain(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bd := sampleBD("g_visaev_v251", "visaev", 251)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("UpsertBridgeDomain() error: %v", err)
	}
	if bd.ID == "" {
		t.Fatal("expected an ID to be assigned")
	}

	got, err := s.GetBridgeDomainByName(ctx, "g_visaev_v251")
	if err != nil {
		t.Fatalf("GetBridgeDomainByName() error: %v", err)
	}
	if got.Username != "visaev" || got.VLANID != 251 || got.DNAASType != model.DNAASSingleTagged {
		t.Errorf("got = %+v", got)
	}
	if len(got.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(got.Members))
	}
}

func TestUpsertBridgeDomainReplacesMembers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bd := sampleBD("g_visaev_v251", "visaev", 251)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("first upsert error: %v", err)
	}
	firstID := bd.ID

	// Re-discover with one fewer member; the stored membership must shrink.
	bd2 := sampleBD("g_visaev_v251", "visaev", 251)
	bd2.Members = bd2.Members[:1]
	if err := s.UpsertBridgeDomain(ctx, bd2); err != nil {
		t.Fatalf("second upsert error: %v", err)
	}
	if bd2.ID != firstID {
		t.Errorf("ID changed across upserts: %s vs %s", firstID, bd2.ID)
	}

	got, err := s.GetBridgeDomain(ctx, firstID)
	if err != nil {
		t.Fatalf("GetBridgeDomain() error: %v", err)
	}
	if len(got.Members) != 1 {
		t.Errorf("expected member list to shrink to 1, got %d", len(got.Members))
	}
}

func TestAcquireAssignmentRejectsDoubleActive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bd := sampleBD("g_visaev_v251", "visaev", 251)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("UpsertBridgeDomain() error: %v", err)
	}

	if _, err := s.AcquireAssignment(ctx, bd.ID, "alice", "testing"); err != nil {
		t.Fatalf("first AcquireAssignment() error: %v", err)
	}

	_, err := s.AcquireAssignment(ctx, bd.ID, "bob", "also testing")
	if err == nil {
		t.Fatal("expected second acquisition to fail")
	}
	if !errors.Is(err, bderrors.ErrAlreadyAssigned) {
		t.Errorf("expected ErrAlreadyAssigned, got %v", err)
	}
}

func TestReleaseAssignmentAllowsReacquire(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bd := sampleBD("g_visaev_v251", "visaev", 251)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("UpsertBridgeDomain() error: %v", err)
	}

	a1, err := s.AcquireAssignment(ctx, bd.ID, "alice", "testing")
	if err != nil {
		t.Fatalf("AcquireAssignment() error: %v", err)
	}
	if err := s.ReleaseAssignment(ctx, a1.ID); err != nil {
		t.Fatalf("ReleaseAssignment() error: %v", err)
	}

	if _, err := s.AcquireAssignment(ctx, bd.ID, "bob", "now free"); err != nil {
		t.Fatalf("expected reacquisition to succeed after release, got %v", err)
	}
}

func TestListAvailableExcludesActivelyAssigned(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	free := sampleBD("g_alice_v100", "alice", 100)
	taken := sampleBD("g_bob_v200", "bob", 200)
	if err := s.UpsertBridgeDomain(ctx, free); err != nil {
		t.Fatalf("upsert free: %v", err)
	}
	if err := s.UpsertBridgeDomain(ctx, taken); err != nil {
		t.Fatalf("upsert taken: %v", err)
	}
	if _, err := s.AcquireAssignment(ctx, taken.ID, "bob", "working"); err != nil {
		t.Fatalf("AcquireAssignment() error: %v", err)
	}

	avail, err := s.ListAvailable(ctx)
	if err != nil {
		t.Fatalf("ListAvailable() error: %v", err)
	}
	if len(avail) != 1 || avail[0].Name != "g_alice_v100" {
		t.Errorf("ListAvailable() = %+v, want only g_alice_v100", avail)
	}
}

func TestListAssignedTo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bd := sampleBD("g_alice_v100", "alice", 100)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.AcquireAssignment(ctx, bd.ID, "alice", "working"); err != nil {
		t.Fatalf("AcquireAssignment() error: %v", err)
	}

	mine, err := s.ListAssignedTo(ctx, "alice")
	if err != nil {
		t.Fatalf("ListAssignedTo() error: %v", err)
	}
	if len(mine) != 1 || mine[0].Name != "g_alice_v100" {
		t.Errorf("ListAssignedTo(alice) = %+v", mine)
	}

	theirs, err := s.ListAssignedTo(ctx, "bob")
	if err != nil {
		t.Fatalf("ListAssignedTo() error: %v", err)
	}
	if len(theirs) != 0 {
		t.Errorf("ListAssignedTo(bob) = %+v, want empty", theirs)
	}
}

func TestDeploymentLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bd := sampleBD("g_alice_v100", "alice", 100)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	dep := &model.DeploymentRecord{
		BridgeDomainID: bd.ID,
		Stage:          model.StagePlanned,
		Plan:           map[string][]string{"DNAAS-LEAF-B14": {"commit check"}},
	}
	if err := s.AppendDeployment(ctx, dep); err != nil {
		t.Fatalf("AppendDeployment() error: %v", err)
	}
	if dep.ID == "" {
		t.Fatal("expected deployment ID to be assigned")
	}

	results := map[string]model.DeviceDeployResult{
		"DNAAS-LEAF-B14": {Device: "DNAAS-LEAF-B14", Committed: true},
	}
	if err := s.UpdateDeploymentStage(ctx, dep.ID, model.StageCommitted, results); err != nil {
		t.Fatalf("UpdateDeploymentStage() error: %v", err)
	}
}

func TestAppendDriftEvent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bd := sampleBD("g_alice_v100", "alice", 100)
	if err := s.UpsertBridgeDomain(ctx, bd); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	ev := &model.DriftEvent{
		Kind:            model.DriftInterfaceAlreadyConfigured,
		Device:          "DNAAS-LEAF-B14",
		Interface:       "ge100-0/0/29.251",
		DetectionSource: model.DetectionCommitCheck,
		Severity:        model.SeverityWarning,
		Expected:        "would_change",
		Observed:        "no_change",
	}
	if err := s.AppendDriftEvent(ctx, ev); err != nil {
		t.Fatalf("AppendDriftEvent() error: %v", err)
	}
	if ev.ID == "" {
		t.Error("expected an ID to be assigned")
	}
}
