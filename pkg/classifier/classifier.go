// Package classifier assigns a DNAAS tagging-model type to a bridge
// domain's set of member interfaces. Classification is pure, deterministic,
// and stable under member-set reordering.
package classifier

import (
	"sort"

	"github.com/dnaas-network/bridge/pkg/model"
)

// Classify inspects members against bdVLAN and returns the DNAAS
// classification for the bridge domain they belong to. Members are sorted
// by (device, interface) on a local copy before any decision is made, so
// iteration order of the caller's slice never leaks into the result.
func Classify(members []model.Interface, bdVLAN int) model.Classification {
	if len(members) == 0 {
		return model.Classification{DNAASType: model.DNAASUnknown, Confidence: 0}
	}

	sorted := make([]model.Interface, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Device != sorted[j].Device {
			return sorted[i].Device < sorted[j].Device
		}
		return sorted[i].Name < sorted[j].Name
	})

	if isSingleTagged(sorted, bdVLAN) {
		return model.Classification{DNAASType: model.DNAASSingleTagged, Confidence: 1.0}
	}

	if qinqType, ok := qinqClassification(sorted); ok {
		return model.Classification{DNAASType: qinqType, Confidence: 1.0}
	}

	return model.Classification{DNAASType: model.DNAASUnknown, Confidence: unknownConfidence(sorted, bdVLAN)}
}

// isSingleTagged implements rule 1: every member carries only a single
// vlan-id matching the BD VLAN, with l2-service enabled. Bundle vs physical
// interface kind is irrelevant — tagging model alone decides the type.
func isSingleTagged(members []model.Interface, bdVLAN int) bool {
	for _, m := range members {
		if m.OuterVLAN != nil || m.InnerVLAN != nil {
			return false
		}
		if m.VLANID == nil || *m.VLANID != bdVLAN {
			return false
		}
		if !m.L2ServiceEnabled {
			return false
		}
	}
	return true
}

// qinqClassification implements rule 2: every member carries a QinQ
// outer/inner tag pair, with a constant outer tag across members. The
// variant is QINQ_SINGLE when every member shares one inner value, QINQ_RANGE
// when more than one distinct inner value is observed.
func qinqClassification(members []model.Interface) (model.DNAASType, bool) {
	var outer *int
	innerValues := make(map[int]bool)

	for _, m := range members {
		if m.OuterVLAN == nil || m.InnerVLAN == nil {
			return "", false
		}
		if outer == nil {
			outer = m.OuterVLAN
		} else if *outer != *m.OuterVLAN {
			return "", false
		}
		innerValues[*m.InnerVLAN] = true
	}

	if len(innerValues) <= 1 {
		return model.DNAASQinQSingle, true
	}
	return model.DNAASQinQRange, true
}

// unknownConfidence scores how close a non-matching member set came to a
// known rule, so operators reviewing UNKNOWN classifications have a signal
// beyond a bare "no match".
func unknownConfidence(members []model.Interface, bdVLAN int) float64 {
	matching := 0
	for _, m := range members {
		if m.VLANID != nil && *m.VLANID == bdVLAN {
			matching++
		}
	}
	return float64(matching) / float64(len(members))
}
