package model

import "time"

// AssignmentStatus is the lifecycle state of an Assignment record.
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentDeployed AssignmentStatus = "deployed"
	AssignmentReleased AssignmentStatus = "released"
)

// Assignment is an exclusive-editing claim on a bridge domain by one user.
// Identity is (BridgeDomainID, UserID, Active); at most one row with
// Status == AssignmentPending/Deployed (i.e. "active") may exist per BD —
// enforced by the store's partial-unique constraint, not by this type.
type Assignment struct {
	ID             string
	BridgeDomainID string
	UserID         string
	Reason         string
	Status         AssignmentStatus
	AssignedAt     time.Time
	ReleasedAt     *time.Time
}

// Active reports whether this assignment currently holds exclusive editing
// rights (has not yet been released).
func (a Assignment) Active() bool {
	return a.Status == AssignmentPending || a.Status == AssignmentDeployed
}
