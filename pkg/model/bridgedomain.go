package model

import "time"

// DNAASType is the closed classification of a bridge domain's tagging model,
// produced by the classifier (C5).
type DNAASType string

const (
	DNAASSingleTagged DNAASType = "SINGLE_TAGGED" // "4A"
	DNAASQinQSingle   DNAASType = "QINQ_SINGLE"   // single inner value
	DNAASQinQRange    DNAASType = "QINQ_RANGE"    // ranged inner values
	DNAASUnknown      DNAASType = "UNKNOWN"
)

// TopologyType describes the shape of a bridge domain's device span.
type TopologyType string

const (
	TopologyP2P     TopologyType = "p2p"
	TopologyP2MP    TopologyType = "p2mp"
	TopologyUnknown TopologyType = "unknown"
)

// Scope classifies a bridge domain by the VLAN range it was discovered in.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeLocal   Scope = "local"
	ScopeUnknown Scope = "unknown"
)

// AdminState mirrors the device-reported admin-state of a bridge domain
// instance.
type AdminState string

const (
	AdminStateEnabled  AdminState = "enabled"
	AdminStateDisabled AdminState = "disabled"
)

// ConsolidationInfo records how a canonical bridge domain was assembled from
// one or more per-device fragments discovered under possibly-different
// names.
type ConsolidationInfo struct {
	OriginalNames     []string
	ConsolidationKey  string
	ConsolidatedCount int
}

// Classification is the pure output of the BD classifier (C5).
type Classification struct {
	DNAASType  DNAASType
	Confidence float64 // 1.0 for rule-matched types, <1.0 only for UNKNOWN
}

// BridgeDomain is the canonical, consolidated record for one logical L2
// service, keyed conceptually by (Username, VLANID). It is created by
// discovery and mutated only by the holder of its active assignment.
type BridgeDomain struct {
	ID       string
	Name     string // g_<user>_v<vlan> for global scope; first-observed name for local
	Username string
	VLANID   int
	OuterVLAN *int
	InnerVLAN *int

	DNAASType    DNAASType
	TopologyType TopologyType
	Scope        Scope
	AdminState   AdminState

	Members           []Interface
	ConsolidationInfo ConsolidationInfo
	RawCLIConfig      []string
	DiscoveryMetadata DiscoveryMetadata

	DeploymentStatus string
	DeployedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Stale    bool // set when a subsequent discovery no longer observes the BD
	Warnings []string
}

// DiscoveryMetadata carries scan-level bookkeeping that must never leak into
// the fragment/config payload itself — kept as its own struct field rather
// than merged into a single dynamic map.
type DiscoveryMetadata struct {
	DevicesScanned []string
	DevicesFailed  []string
	ScannedAt      time.Time
}

// MembersByDevice groups member interfaces by the device that owns them,
// in first-seen device order.
func (b *BridgeDomain) MembersByDevice() map[string][]Interface {
	grouped := make(map[string][]Interface)
	for _, m := range b.Members {
		grouped[m.Device] = append(grouped[m.Device], m)
	}
	return grouped
}

// AccessDeviceCount returns the number of distinct devices carrying an
// access-role member interface, used to derive TopologyType (p2p iff 2).
func (b *BridgeDomain) AccessDeviceCount() int {
	seen := make(map[string]bool)
	for _, m := range b.Members {
		if m.Role == RoleAccess {
			seen[m.Device] = true
		}
	}
	return len(seen)
}
