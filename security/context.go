// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package security

import (
	"sync"

	"github.com/google/uuid"
)

// Context is the immutable per-request record of caller identity and
// permissions. All With* operations return a copy; a Context is safe to
// share across goroutines once constructed.
type Context struct {
	userID      string
	tenantID    string
	scope       string
	permissions map[string]struct{}
	metadata    map[string]string
	system      bool
}

// Permission strings are interned: the same permission granted to thousands
// of concurrent contexts shares one backing string.
var (
	internMu sync.Mutex
	interned = make(map[string]string)
)

func intern(s string) string {
	internMu.Lock()
	defer internMu.Unlock()
	if v, ok := interned[s]; ok {
		return v
	}
	interned[s] = s
	return s
}

// NewUserContext creates a context for a user caller.
func NewUserContext(userID string) *Context {
	return &Context{userID: userID}
}

// NewTenantContext creates a context for a tenant-scoped caller.
func NewTenantContext(tenantID string) *Context {
	return &Context{tenantID: tenantID}
}

// NewContext creates a context carrying both a user and a tenant identity.
// Either may be empty.
func NewContext(userID, tenantID string) *Context {
	return &Context{userID: userID, tenantID: tenantID}
}

// SystemContext creates a context for internal system operations. It carries
// no identity and may only touch SYSTEM_MANAGED tables.
func SystemContext() *Context {
	return &Context{system: true}
}

// UserID returns the user identifier and whether one is present.
func (c *Context) UserID() (string, bool) {
	return c.userID, c.userID != ""
}

// TenantID returns the tenant identifier and whether one is present.
func (c *Context) TenantID() (string, bool) {
	return c.tenantID, c.tenantID != ""
}

// Scope returns the optional scope string.
func (c *Context) Scope() string {
	return c.scope
}

// IsSystem reports whether this is the system context.
func (c *Context) IsSystem() bool {
	return c.system
}

// HasPermission reports whether the context carries the given permission.
func (c *Context) HasPermission(perm string) bool {
	_, ok := c.permissions[perm]
	return ok
}

// Permissions returns a copy of the permission set.
func (c *Context) Permissions() []string {
	perms := make([]string, 0, len(c.permissions))
	for p := range c.permissions {
		perms = append(perms, p)
	}
	return perms
}

// Metadata returns the opaque metadata value for a key.
func (c *Context) Metadata(key string) (string, bool) {
	v, ok := c.metadata[key]
	return v, ok
}

// clone returns a deep copy for With* operations.
func (c *Context) clone() *Context {
	next := &Context{
		userID:   c.userID,
		tenantID: c.tenantID,
		scope:    c.scope,
		system:   c.system,
	}
	if len(c.permissions) > 0 {
		next.permissions = make(map[string]struct{}, len(c.permissions))
		for p := range c.permissions {
			next.permissions[p] = struct{}{}
		}
	}
	if len(c.metadata) > 0 {
		next.metadata = make(map[string]string, len(c.metadata))
		for k, v := range c.metadata {
			next.metadata[k] = v
		}
	}
	return next
}

// WithScope returns a copy carrying the given scope.
func (c *Context) WithScope(scope string) *Context {
	next := c.clone()
	next.scope = scope
	return next
}

// WithPermissions returns a copy with the given permissions added.
func (c *Context) WithPermissions(perms ...string) *Context {
	next := c.clone()
	if next.permissions == nil {
		next.permissions = make(map[string]struct{}, len(perms))
	}
	for _, p := range perms {
		next.permissions[intern(p)] = struct{}{}
	}
	return next
}

// WithMetadata returns a copy with the given metadata entry set.
func (c *Context) WithMetadata(key, value string) *Context {
	next := c.clone()
	if next.metadata == nil {
		next.metadata = make(map[string]string, 1)
	}
	next.metadata[key] = value
	return next
}

// Validate checks the context invariants: identifiers must be well-formed
// UUIDs and non-system contexts must carry at least one identity.
func (c *Context) Validate() error {
	if c.system {
		return nil
	}
	if c.userID == "" && c.tenantID == "" {
		return NewError(CodeSecurityContextMissing, "validate", "", "non-system context requires a user or tenant identity")
	}
	if c.userID != "" {
		if _, err := uuid.Parse(c.userID); err != nil {
			return WrapError(CodeSecurityContextInvalid, "validate", "", "malformed user identifier", err)
		}
	}
	if c.tenantID != "" {
		if _, err := uuid.Parse(c.tenantID); err != nil {
			return WrapError(CodeSecurityContextInvalid, "validate", "", "malformed tenant identifier", err)
		}
	}
	return nil
}
