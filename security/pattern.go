// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package security

import (
	"strings"
	"sync"
)

// TablePattern classifies an entity kind's ownership model.
type TablePattern string

const (
	UserOwned     TablePattern = "USER_OWNED"
	TenantOwned   TablePattern = "TENANT_OWNED"
	ScopeBased    TablePattern = "SCOPE_BASED"
	SystemManaged TablePattern = "SYSTEM_MANAGED"
)

// PatternRule is a fallback classification rule evaluated when a table has
// no exact registration. Rules run once per kind; the result is cached.
type PatternRule func(table string) (TablePattern, bool)

// DefaultRules returns the prefix/suffix heuristics applied after exact
// lookup: model_* tables are tenant-owned, user_* tables are user-owned,
// analytics tables are scope-based.
func DefaultRules() []PatternRule {
	return []PatternRule{
		func(table string) (TablePattern, bool) {
			if strings.HasPrefix(table, "model_") {
				return TenantOwned, true
			}
			return "", false
		},
		func(table string) (TablePattern, bool) {
			if strings.HasPrefix(table, "user_") {
				return UserOwned, true
			}
			return "", false
		},
		func(table string) (TablePattern, bool) {
			if strings.HasSuffix(table, "_analytics") || strings.HasPrefix(table, "analytics_") {
				return ScopeBased, true
			}
			return "", false
		},
	}
}

// PatternRegistry maps entity kinds to their ownership pattern. Absence of a
// classification is a fatal configuration error, not a permissive default.
type PatternRegistry struct {
	mu    sync.RWMutex
	exact map[string]TablePattern
	rules []PatternRule
}

// NewPatternRegistry creates a registry with the default heuristic rules.
func NewPatternRegistry() *PatternRegistry {
	return &PatternRegistry{
		exact: make(map[string]TablePattern),
		rules: DefaultRules(),
	}
}

// Register classifies a table under an exact name.
func (r *PatternRegistry) Register(table string, pattern TablePattern) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[table] = pattern
}

// Lookup resolves the pattern for a table: exact name first, then the
// heuristic rules. Rule results are cached so each kind is classified once.
func (r *PatternRegistry) Lookup(table string) (TablePattern, error) {
	r.mu.RLock()
	pattern, ok := r.exact[table]
	r.mu.RUnlock()
	if ok {
		return pattern, nil
	}

	for _, rule := range r.rules {
		if p, ok := rule(table); ok {
			r.mu.Lock()
			r.exact[table] = p
			r.mu.Unlock()
			return p, nil
		}
	}

	return "", NewError(CodeUnsupportedTable, "lookup", table, "no table pattern classification for kind")
}
