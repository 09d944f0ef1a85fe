package auth

import (
	"fmt"
	"os/user"
	"slices"
	"sort"

	"github.com/dnaas-network/bridge/pkg/bderrors"
	"github.com/dnaas-network/bridge/pkg/util"
)

// Config is the static authorization configuration: superusers, group
// membership, the global permission grant table, and per-user VLAN
// range allow-lists.
type Config struct {
	SuperUsers  []string
	UserGroups  map[string][]string
	Permissions map[string][]string

	// VLANRanges maps username to a range spec (pkg/util grammar, e.g.
	// "2000-2999,3500") bounding the VLANs that user may assign bridge
	// domains into. A user absent from this map is unrestricted.
	VLANRanges map[string]string
}

// Checker validates user permissions.
type Checker struct {
	config      *Config
	currentUser string
}

// NewChecker creates a permission checker.
func NewChecker(config *Config) *Checker {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	return &Checker{
		config:      config,
		currentUser: username,
	}
}

// SetUser overrides the current user (for testing or sudo).
func (c *Checker) SetUser(username string) {
	c.currentUser = username
}

// CurrentUser returns the current username.
func (c *Checker) CurrentUser() string {
	return c.currentUser
}

// Check verifies if the current user has a permission.
func (c *Checker) Check(permission Permission, ctx *Context) error {
	return c.CheckUser(c.currentUser, permission, ctx)
}

// CheckUser verifies if a specific user has a permission.
func (c *Checker) CheckUser(username string, permission Permission, ctx *Context) error {
	if c.isSuperUser(username) {
		return nil
	}

	if c.checkGlobalPermission(username, permission) {
		return nil
	}

	return &PermissionError{
		User:       username,
		Permission: permission,
		Context:    ctx,
	}
}

// IsSuperUser returns true if the current user is a superuser.
func (c *Checker) IsSuperUser() bool {
	return c.isSuperUser(c.currentUser)
}

func (c *Checker) isSuperUser(username string) bool {
	return slices.Contains(c.config.SuperUsers, username)
}

func (c *Checker) checkGlobalPermission(username string, permission Permission) bool {
	return c.checkPermissionMap(username, permission, c.config.Permissions)
}

// checkPermissionMap checks whether username has the given permission in
// permMap. It first checks the "all" wildcard key, then the specific
// permission key.
func (c *Checker) checkPermissionMap(username string, permission Permission, permMap map[string][]string) bool {
	if groups, ok := permMap["all"]; ok {
		if c.userInGroups(username, groups) {
			return true
		}
	}

	groups, ok := permMap[string(permission)]
	if !ok {
		return false
	}

	return c.userInGroups(username, groups)
}

func (c *Checker) userInGroups(username string, allowedGroups []string) bool {
	for _, group := range allowedGroups {
		if group == username {
			return true
		}
		if members, ok := c.config.UserGroups[group]; ok {
			if slices.Contains(members, username) {
				return true
			}
		}
	}
	return false
}

// ListPermissions returns every permission the current user holds, derived
// from the global grant table. A superuser holds only PermAll.
func (c *Checker) ListPermissions() []Permission {
	if c.IsSuperUser() {
		return []Permission{PermAll}
	}

	var out []Permission
	for perm, groups := range c.config.Permissions {
		if perm == "all" {
			continue
		}
		if c.userInGroups(c.currentUser, groups) {
			out = append(out, Permission(perm))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GetUserGroups returns the names of every group username belongs to.
func (c *Checker) GetUserGroups(username string) []string {
	var out []string
	for group, members := range c.config.UserGroups {
		if slices.Contains(members, username) {
			out = append(out, group)
		}
	}
	sort.Strings(out)
	return out
}

// AllowedVLAN reports whether username is permitted to assign a bridge
// domain into vlan, per the external contract's "VLANs within the
// holder's permitted ranges" validation rule. A user with no configured
// range is unrestricted; a malformed range spec denies everything rather
// than silently granting access.
func (c *Checker) AllowedVLAN(username string, vlan int) bool {
	if c.isSuperUser(username) {
		return true
	}
	spec, ok := c.config.VLANRanges[username]
	if !ok || spec == "" {
		return true
	}
	allowed, err := util.ExpandVLANRange(spec)
	if err != nil {
		return false
	}
	return slices.Contains(allowed, vlan)
}

// PermissionError represents a permission denial.
type PermissionError struct {
	User       string
	Permission Permission
	Context    *Context
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("permission denied: user '%s' does not have '%s' permission", e.User, e.Permission)
	if e.Context != nil {
		if e.Context.BridgeDomain != "" {
			msg += fmt.Sprintf(" for bridge domain '%s'", e.Context.BridgeDomain)
		}
		if e.Context.Device != "" {
			msg += fmt.Sprintf(" on device '%s'", e.Context.Device)
		}
	}
	return msg
}

func (e *PermissionError) Unwrap() error {
	return bderrors.ErrPermissionDenied
}
