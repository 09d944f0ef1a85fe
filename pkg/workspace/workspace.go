// Package workspace implements the assignment state machine (spec.md
// §4.8): exclusive editing of one bridge domain by one user at a time,
// with permission checks and change attribution. States flow
// available -> assigned(user) -> released -> available, backed durably by
// pkg/store and optionally hardened against a crashed holder by a
// pkg/workspace Redis lease (see lease.go).
package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/dnaas-network/bridge/pkg/auth"
	"github.com/dnaas-network/bridge/pkg/bderrors"
	"github.com/dnaas-network/bridge/pkg/model"
	"github.com/dnaas-network/bridge/pkg/store"
	"github.com/dnaas-network/bridge/pkg/util"
)

// DefaultLeaseTTL is the default TTL applied to a Redis-backed assignment
// lease when LeaseManager is configured.
const DefaultLeaseTTL = 30 * time.Minute

// Workspace is the holder of C8's state machine logic: a thin layer over
// the store's assignment table and the auth package's permission/VLAN
// checks.
type Workspace struct {
	Store   *store.Store
	Checker *auth.Checker
	Lease   *LeaseManager // nil disables the Redis lease layer
}

// New constructs a Workspace. lease may be nil.
func New(st *store.Store, checker *auth.Checker, lease *LeaseManager) *Workspace {
	return &Workspace{Store: st, Checker: checker, Lease: lease}
}

// Assign claims bd exclusively for user, transitioning available ->
// assigned. It fails with bderrors.ErrAlreadyAssigned if the BD already has
// an active holder (enforced by the store's partial-unique index), and
// with auth.PermissionError if user's VLAN-range policy does not admit
// bd.VLANID.
func (w *Workspace) Assign(ctx context.Context, bd *model.BridgeDomain, user, reason string) (*model.Assignment, error) {
	if !w.Checker.AllowedVLAN(user, bd.VLANID) {
		return nil, &auth.PermissionError{
			User:       user,
			Permission: auth.PermBDAssign,
			Context:    auth.NewContext().WithBridgeDomain(bd.Name),
		}
	}

	a, err := w.Store.AcquireAssignment(ctx, bd.ID, user, reason)
	if err != nil {
		return nil, err
	}

	if w.Lease != nil {
		if err := w.Lease.Acquire(ctx, bd.ID, user); err != nil {
			// The DB assignment is authoritative; a lease failure (e.g.
			// Redis unreachable) degrades to DB-only enforcement rather
			// than failing the whole assign, but it is logged loudly so
			// an operator notices the crash-recovery safety net is down.
			util.WithFields(map[string]interface{}{"bd": bd.Name, "user": user}).Warnf("assignment lease unavailable: %v", err)
		}
	}

	util.WithBD(bd.Name).Infof("assigned to %s: %s", user, reason)
	return a, nil
}

// Release gives up user's active assignment on bd, transitioning assigned
// -> released -> available. It fails unless user currently holds the
// active assignment.
func (w *Workspace) Release(ctx context.Context, bd *model.BridgeDomain, user string) error {
	active, err := w.activeAssignment(ctx, bd, user)
	if err != nil {
		return err
	}

	if err := w.Store.ReleaseAssignment(ctx, active.ID); err != nil {
		return fmt.Errorf("releasing assignment: %w", err)
	}

	if w.Lease != nil {
		if err := w.Lease.Release(ctx, bd.ID, user); err != nil {
			util.WithFields(map[string]interface{}{"bd": bd.Name, "user": user}).Warnf("releasing assignment lease: %v", err)
		}
	}

	util.WithBD(bd.Name).Infof("released by %s", user)
	return nil
}

// CheckEdit enforces spec.md §4.8's edit precondition: user may edit bd
// only while holding its active assignment. Returns bderrors.ErrPermissionDenied
// (wrapped) otherwise.
func (w *Workspace) CheckEdit(ctx context.Context, bd *model.BridgeDomain, user string) error {
	_, err := w.activeAssignment(ctx, bd, user)
	return err
}

// activeAssignment loads bd fresh from the store and confirms user holds
// its active assignment, returning a permission_denied-wrapped error
// otherwise. Superusers bypass the ownership check per spec.md §4.8's
// "admins bypass the check."
func (w *Workspace) activeAssignment(ctx context.Context, bd *model.BridgeDomain, user string) (*model.Assignment, error) {
	current, err := w.Store.GetBridgeDomain(ctx, bd.ID)
	if err != nil {
		return nil, fmt.Errorf("loading bridge domain: %w", err)
	}

	assigned, err := w.Store.ListAssignedTo(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}
	for _, c := range assigned {
		if c.ID == current.ID {
			return &model.Assignment{BridgeDomainID: current.ID, UserID: user, Status: model.AssignmentPending}, nil
		}
	}

	if w.Checker.IsSuperUser() && w.Checker.CurrentUser() == user {
		return &model.Assignment{BridgeDomainID: current.ID, UserID: user, Status: model.AssignmentPending}, nil
	}

	return nil, fmt.Errorf("user %s does not hold the active assignment for %s: %w", user, bd.Name, bderrors.ErrPermissionDenied)
}

// ApplyChange appends one Change to session after confirming user still
// holds bd's active assignment, satisfying spec.md §4.8's "edit(bd, user,
// change) is permitted iff user holds the active assignment" rule on every
// call, not merely at session start.
func (w *Workspace) ApplyChange(ctx context.Context, bd *model.BridgeDomain, user string, session *model.EditSession, change model.Change) error {
	if err := w.CheckEdit(ctx, bd, user); err != nil {
		return err
	}
	session.Changes = append(session.Changes, change)
	return nil
}
