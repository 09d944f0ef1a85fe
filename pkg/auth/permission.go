// Package auth provides permission-based access control for bridge-domain
// operations.
package auth

// Permission defines an action that can be controlled.
type Permission string

// Standard permissions.
const (
	PermBDView    Permission = "bd.view"
	PermBDAssign  Permission = "bd.assign"
	PermBDRelease Permission = "bd.release"
	PermBDEdit    Permission = "bd.edit"
	PermBDDeploy  Permission = "bd.deploy"

	PermDriftResolve Permission = "drift.resolve"

	PermAuditView       Permission = "audit.view"
	PermSettingsModify  Permission = "settings.modify"
	PermInventoryReload Permission = "inventory.reload"

	PermAll Permission = "all" // Superuser - allows everything
)

// PermissionCategory groups related permissions.
type PermissionCategory struct {
	Name        string
	Description string
	Permissions []Permission
}

// StandardCategories defines standard permission categories.
var StandardCategories = []PermissionCategory{
	{
		Name:        "bridge_domain",
		Description: "Bridge domain assignment, editing, and deployment",
		Permissions: []Permission{PermBDView, PermBDAssign, PermBDRelease, PermBDEdit, PermBDDeploy},
	},
	{
		Name:        "drift",
		Description: "Drift resolution",
		Permissions: []Permission{PermDriftResolve},
	},
	{
		Name:        "audit",
		Description: "Audit log access",
		Permissions: []Permission{PermAuditView},
	},
	{
		Name:        "settings",
		Description: "Settings and inventory administration",
		Permissions: []Permission{PermSettingsModify, PermInventoryReload},
	},
}

// Context provides context for permission checks.
type Context struct {
	BridgeDomain string
	Device       string
	Interface    string
	Resource     string
}

// NewContext creates a new permission context.
func NewContext() *Context {
	return &Context{}
}

// WithBridgeDomain sets the bridge-domain context.
func (c *Context) WithBridgeDomain(name string) *Context {
	c.BridgeDomain = name
	return c
}

// WithDevice sets the device context.
func (c *Context) WithDevice(device string) *Context {
	c.Device = device
	return c
}

// WithInterface sets the interface context.
func (c *Context) WithInterface(iface string) *Context {
	c.Interface = iface
	return c
}

// WithResource sets a generic resource context.
func (c *Context) WithResource(resource string) *Context {
	c.Resource = resource
	return c
}

// IsReadOnly returns true if the permission is read-only.
func (p Permission) IsReadOnly() bool {
	switch p {
	case PermBDView, PermAuditView:
		return true
	}
	return false
}

// IsWriteOperation returns true if the permission involves modification.
func (p Permission) IsWriteOperation() bool {
	return !p.IsReadOnly()
}

// RequiresAssignment returns true if the permission requires the caller to
// hold an active assignment on the targeted bridge domain.
func (p Permission) RequiresAssignment() bool {
	return p == PermBDEdit || p == PermBDDeploy
}
