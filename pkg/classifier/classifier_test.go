package classifier

import (
	"math/rand"
	"testing"

	"github.com/dnaas-network/bridge/pkg/model"
)

func vlan(v int) *int { return &v }

func TestClassifySingleTagged(t *testing.T) {
	members := []model.Interface{
		{Device: "B14", Name: "ge100-0/0/29.251", VLANID: vlan(251), L2ServiceEnabled: true},
		{Device: "B15", Name: "ge100-0/0/31.251", VLANID: vlan(251), L2ServiceEnabled: true},
	}
	got := Classify(members, 251)
	if got.DNAASType != model.DNAASSingleTagged || got.Confidence != 1.0 {
		t.Errorf("Classify() = %+v, want SINGLE_TAGGED confidence 1.0", got)
	}
}

func TestClassifySingleTaggedRejectsVLANMismatch(t *testing.T) {
	members := []model.Interface{
		{Device: "B14", Name: "ge100-0/0/29.251", VLANID: vlan(251), L2ServiceEnabled: true},
		{Device: "B15", Name: "ge100-0/0/31.999", VLANID: vlan(999), L2ServiceEnabled: true},
	}
	got := Classify(members, 251)
	if got.DNAASType == model.DNAASSingleTagged {
		t.Error("expected classification to reject mismatched VLAN, got SINGLE_TAGGED")
	}
}

func TestClassifySingleTaggedRequiresL2ServiceEnabled(t *testing.T) {
	members := []model.Interface{
		{Device: "B14", Name: "ge100-0/0/29.251", VLANID: vlan(251), L2ServiceEnabled: false},
	}
	got := Classify(members, 251)
	if got.DNAASType == model.DNAASSingleTagged {
		t.Error("expected classification to require l2-service enabled")
	}
}

func TestClassifyQinQSingle(t *testing.T) {
	members := []model.Interface{
		{Device: "B14", Name: "ge100-0/0/29.100.200", OuterVLAN: vlan(100), InnerVLAN: vlan(200)},
		{Device: "B15", Name: "ge100-0/0/31.100.200", OuterVLAN: vlan(100), InnerVLAN: vlan(200)},
	}
	got := Classify(members, 100)
	if got.DNAASType != model.DNAASQinQSingle {
		t.Errorf("Classify() = %+v, want QINQ_SINGLE", got)
	}
}

func TestClassifyQinQRange(t *testing.T) {
	members := []model.Interface{
		{Device: "B14", Name: "ge100-0/0/29.100.200", OuterVLAN: vlan(100), InnerVLAN: vlan(200)},
		{Device: "B15", Name: "ge100-0/0/31.100.300", OuterVLAN: vlan(100), InnerVLAN: vlan(300)},
	}
	got := Classify(members, 100)
	if got.DNAASType != model.DNAASQinQRange {
		t.Errorf("Classify() = %+v, want QINQ_RANGE", got)
	}
}

func TestClassifyQinQRejectsVaryingOuter(t *testing.T) {
	members := []model.Interface{
		{Device: "B14", Name: "ge100-0/0/29.100.200", OuterVLAN: vlan(100), InnerVLAN: vlan(200)},
		{Device: "B15", Name: "ge100-0/0/31.150.200", OuterVLAN: vlan(150), InnerVLAN: vlan(200)},
	}
	got := Classify(members, 100)
	if got.DNAASType == model.DNAASQinQSingle || got.DNAASType == model.DNAASQinQRange {
		t.Error("expected varying outer tags to fail QinQ classification")
	}
}

func TestClassifyUnknown(t *testing.T) {
	members := []model.Interface{
		{Device: "B14", Name: "ge100-0/0/29", VLANID: nil},
	}
	got := Classify(members, 251)
	if got.DNAASType != model.DNAASUnknown {
		t.Errorf("Classify() = %+v, want UNKNOWN", got)
	}
}

func TestClassifyEmptyMembers(t *testing.T) {
	got := Classify(nil, 251)
	if got.DNAASType != model.DNAASUnknown || got.Confidence != 0 {
		t.Errorf("Classify(nil) = %+v, want UNKNOWN confidence 0", got)
	}
}

func TestClassifyStableUnderReordering(t *testing.T) {
	members := []model.Interface{
		{Device: "B14", Name: "ge100-0/0/29.251", VLANID: vlan(251), L2ServiceEnabled: true},
		{Device: "B15", Name: "ge100-0/0/31.251", VLANID: vlan(251), L2ServiceEnabled: true},
		{Device: "B16", Name: "ge100-0/0/40.251", VLANID: vlan(251), L2ServiceEnabled: true},
	}
	base := Classify(members, 251)

	shuffled := make([]model.Interface, len(members))
	copy(shuffled, members)
	for i := 0; i < 10; i++ {
		rand.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Classify(shuffled, 251)
		if got != base {
			t.Fatalf("Classify() not stable under reordering: got %+v, want %+v", got, base)
		}
	}
}
