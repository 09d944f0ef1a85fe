package model

// InterfaceKind distinguishes the physical shape of an interface.
type InterfaceKind string

const (
	KindPhysical      InterfaceKind = "physical"
	KindSubinterface  InterfaceKind = "subinterface"
	KindBundle        InterfaceKind = "bundle"
)

// InterfaceRole describes the functional role an interface plays within a
// bridge domain's topology.
type InterfaceRole string

const (
	RoleAccess   InterfaceRole = "access"
	RoleUplink   InterfaceRole = "uplink"
	RoleDownlink InterfaceRole = "downlink"
	RoleIfUnknown InterfaceRole = "unknown"
)

// AdminOperStatus is a tri-state up/down/unknown status as reported by the
// device for both admin and operational state.
type AdminOperStatus string

const (
	StatusUp      AdminOperStatus = "up"
	StatusDown    AdminOperStatus = "down"
	StatusUnknown AdminOperStatus = "unknown"
)

// Interface identifies one interface (or sub-interface) on one device.
// Identity is the pair (Device, Name); Name is either a physical interface
// name (ge100-0/0/29) or a sub-interface name (ge100-0/0/29.251).
type Interface struct {
	Device           string
	Name             string
	Kind             InterfaceKind
	AdminStatus      AdminOperStatus
	OperStatus       AdminOperStatus
	VLANID           *int // nil when not single-tagged
	OuterVLAN        *int // QinQ outer tag
	InnerVLAN        *int // QinQ inner tag
	L2ServiceEnabled bool
	Role             InterfaceRole
}

// BaseName returns the interface name without any sub-interface suffix,
// e.g. "ge100-0/0/29.251" -> "ge100-0/0/29".
func (i Interface) BaseName() string {
	for idx := 0; idx < len(i.Name); idx++ {
		if i.Name[idx] == '.' {
			return i.Name[:idx]
		}
	}
	return i.Name
}
