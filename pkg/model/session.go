package model

// ChangeKind is the closed set of edit operations an EditSession may record.
type ChangeKind string

const (
	ChangeAddInterface    ChangeKind = "add_interface"
	ChangeRemoveInterface ChangeKind = "remove_interface"
	ChangeModifyInterface ChangeKind = "modify_interface"
	ChangeMoveInterface   ChangeKind = "move_interface"
)

// Change is one edit within a session, targeting a single (device,
// interface) pair.
type Change struct {
	Kind      ChangeKind
	Device    string
	Interface string
	VLANID    *int
	OuterVLAN *int
	InnerVLAN *int

	// FromDevice/FromInterface are populated for ChangeMoveInterface only,
	// naming the member being relocated away from.
	FromDevice    string
	FromInterface string
}

// EditSession is the ordered list of pending changes against one assignment.
// The base snapshot plus all applied changes must satisfy the owning
// BridgeDomain's invariants before a deployment may be initiated.
type EditSession struct {
	ID             string
	BridgeDomainID string
	AssignmentID   string
	Changes        []Change
}

// InterfaceClaims returns the set of (device, interface) pairs touched by
// this session, used to reject a session that claims one interface twice.
func (s EditSession) InterfaceClaims() map[string]int {
	claims := make(map[string]int)
	for _, c := range s.Changes {
		claims[c.Device+"/"+c.Interface]++
		if c.Kind == ChangeMoveInterface && c.FromDevice != "" {
			claims[c.FromDevice+"/"+c.FromInterface]++
		}
	}
	return claims
}
