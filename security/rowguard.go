// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package security

// TableSchema describes the ownership columns an entity kind exposes. The
// owner column is either "user_id" or "owner_id"; empty means the kind has
// no user-owner column. Determined per kind at registration, never probed
// at query time.
type TableSchema struct {
	Table        string
	OwnerColumn  string
	TenantColumn string
}

// Filter is a single column constraint ANDed into a query, or a column
// assignment applied to a new entity before persistence.
type Filter struct {
	Column string
	Value  string
}

// RowGuard mediates every read and write for one entity kind under one
// security context: it restricts reads to visible rows, assigns ownership
// on creation, and verifies ownership of rows reached through foreign keys.
type RowGuard struct {
	registry *PatternRegistry
}

// NewRowGuard creates a row guard over the given pattern registry.
func NewRowGuard(registry *PatternRegistry) *RowGuard {
	return &RowGuard{registry: registry}
}

// Registry returns the underlying pattern registry.
func (g *RowGuard) Registry() *PatternRegistry {
	return g.registry
}

// ReadFilters returns the column constraints that restrict a read query to
// rows the context may see. SYSTEM_MANAGED kinds get no filter. Scope-based
// kinds probe user context first, then tenant; this order is intentional and
// applies to writes as well (see OwnershipAssignment).
func (g *RowGuard) ReadFilters(sctx *Context, schema TableSchema) ([]Filter, error) {
	pattern, err := g.registry.Lookup(schema.Table)
	if err != nil {
		return nil, err
	}

	if pattern == SystemManaged {
		return nil, nil
	}

	if sctx == nil {
		return nil, NewError(CodeSecurityContextMissing, "read_filter", schema.Table, "operation requires a security context")
	}

	switch pattern {
	case UserOwned:
		return g.userFilter(sctx, schema, "read_filter")

	case TenantOwned:
		return g.tenantFilter(sctx, schema, "read_filter")

	case ScopeBased:
		// User context wins when both would match. No fallthrough to all rows.
		if userID, ok := sctx.UserID(); ok && schema.OwnerColumn != "" {
			return []Filter{{Column: schema.OwnerColumn, Value: userID}}, nil
		}
		if tenantID, ok := sctx.TenantID(); ok && schema.TenantColumn != "" {
			return []Filter{{Column: schema.TenantColumn, Value: tenantID}}, nil
		}
		if sctx.IsSystem() {
			return nil, nil
		}
		return nil, &CodedError{
			Code:    CodeSecurityFilterFailed,
			Op:      "read_filter",
			Table:   schema.Table,
			Pattern: string(pattern),
			Message: "scope-based kind has no ownership column matching the context",
		}
	}

	return nil, &CodedError{
		Code:    CodeUnsupportedTable,
		Op:      "read_filter",
		Table:   schema.Table,
		Pattern: string(pattern),
		Message: "unhandled table pattern",
	}
}

// OwnershipAssignment returns the owner columns to set on a new entity
// before persistence. It mirrors the filter protocol.
func (g *RowGuard) OwnershipAssignment(sctx *Context, schema TableSchema) ([]Filter, error) {
	pattern, err := g.registry.Lookup(schema.Table)
	if err != nil {
		return nil, err
	}

	if pattern == SystemManaged {
		return nil, nil
	}

	if sctx == nil {
		return nil, NewError(CodeSecurityContextMissing, "assign_ownership", schema.Table, "creation requires a security context")
	}

	switch pattern {
	case UserOwned:
		return g.userFilter(sctx, schema, "assign_ownership")

	case TenantOwned:
		return g.tenantFilter(sctx, schema, "assign_ownership")

	case ScopeBased:
		var assignments []Filter
		if userID, ok := sctx.UserID(); ok && schema.OwnerColumn != "" {
			assignments = append(assignments, Filter{Column: schema.OwnerColumn, Value: userID})
		}
		if tenantID, ok := sctx.TenantID(); ok && schema.TenantColumn != "" {
			assignments = append(assignments, Filter{Column: schema.TenantColumn, Value: tenantID})
		}
		if len(assignments) == 0 {
			return nil, &CodedError{
				Code:    CodeSecurityFilterFailed,
				Op:      "assign_ownership",
				Table:   schema.Table,
				Pattern: string(pattern),
				Message: "scope-based kind has no ownership column matching the context",
			}
		}
		return assignments, nil
	}

	return nil, &CodedError{
		Code:    CodeUnsupportedTable,
		Op:      "assign_ownership",
		Table:   schema.Table,
		Pattern: string(pattern),
		Message: "unhandled table pattern",
	}
}

// VerifyOwnership checks a fetched entity against the context. It is used
// for rows reached through foreign keys, after the fetch. ownerValue and
// tenantValue are the entity's stored owner columns (empty when the schema
// has none). A mismatch surfaces as ENTITY_NOT_FOUND: not-found and denied
// are deliberately indistinguishable.
func (g *RowGuard) VerifyOwnership(sctx *Context, schema TableSchema, ownerValue, tenantValue string) error {
	pattern, err := g.registry.Lookup(schema.Table)
	if err != nil {
		return err
	}

	if pattern == SystemManaged {
		return nil
	}

	if sctx == nil {
		return NewError(CodeSecurityContextMissing, "verify_ownership", schema.Table, "verification requires a security context")
	}
	if sctx.IsSystem() {
		return nil
	}

	switch pattern {
	case UserOwned:
		userID, ok := sctx.UserID()
		if !ok {
			return NewError(CodeSecurityContextInvalid, "verify_ownership", schema.Table, "user context required")
		}
		if ownerValue != userID {
			return NewError(CodeEntityNotFound, "verify_ownership", schema.Table, "entity not found")
		}
		return nil

	case TenantOwned:
		tenantID, ok := sctx.TenantID()
		if !ok {
			return NewError(CodeSecurityContextInvalid, "verify_ownership", schema.Table, "tenant context required")
		}
		if tenantValue != tenantID {
			return NewError(CodeEntityNotFound, "verify_ownership", schema.Table, "entity not found")
		}
		return nil

	case ScopeBased:
		if userID, ok := sctx.UserID(); ok && schema.OwnerColumn != "" {
			if ownerValue == userID {
				return nil
			}
			return NewError(CodeEntityNotFound, "verify_ownership", schema.Table, "entity not found")
		}
		if tenantID, ok := sctx.TenantID(); ok && schema.TenantColumn != "" {
			if tenantValue == tenantID {
				return nil
			}
			return NewError(CodeEntityNotFound, "verify_ownership", schema.Table, "entity not found")
		}
		return &CodedError{
			Code:    CodeSecurityFilterFailed,
			Op:      "verify_ownership",
			Table:   schema.Table,
			Pattern: string(pattern),
			Message: "scope-based kind has no ownership column matching the context",
		}
	}

	return &CodedError{
		Code:    CodeUnsupportedTable,
		Op:      "verify_ownership",
		Table:   schema.Table,
		Pattern: string(pattern),
		Message: "unhandled table pattern",
	}
}

func (g *RowGuard) userFilter(sctx *Context, schema TableSchema, op string) ([]Filter, error) {
	if schema.OwnerColumn == "" {
		return nil, &CodedError{
			Code:    CodeSecurityFilterFailed,
			Op:      op,
			Table:   schema.Table,
			Pattern: string(UserOwned),
			Message: "user-owned kind exposes neither user_id nor owner_id",
		}
	}
	userID, ok := sctx.UserID()
	if !ok {
		if sctx.IsSystem() {
			return nil, nil
		}
		return nil, &CodedError{
			Code:    CodeSecurityContextInvalid,
			Op:      op,
			Table:   schema.Table,
			Pattern: string(UserOwned),
			Message: "user context required",
		}
	}
	return []Filter{{Column: schema.OwnerColumn, Value: userID}}, nil
}

func (g *RowGuard) tenantFilter(sctx *Context, schema TableSchema, op string) ([]Filter, error) {
	if schema.TenantColumn == "" {
		return nil, &CodedError{
			Code:    CodeSecurityFilterFailed,
			Op:      op,
			Table:   schema.Table,
			Pattern: string(TenantOwned),
			Message: "tenant-owned kind does not expose tenant_id",
		}
	}
	tenantID, ok := sctx.TenantID()
	if !ok {
		if sctx.IsSystem() {
			return nil, nil
		}
		return nil, &CodedError{
			Code:    CodeSecurityContextInvalid,
			Op:      op,
			Table:   schema.Table,
			Pattern: string(TenantOwned),
			Message: "tenant context required",
		}
	}
	return []Filter{{Column: schema.TenantColumn, Value: tenantID}}, nil
}
