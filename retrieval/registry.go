// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package retrieval

import (
	"fmt"
	"sync"

	"songforge/platform/security"
)

// ServerRegistry tracks upstream servers and the scope capabilities they
// advertise. Source scopes are validated against it before any call.
type ServerRegistry struct {
	mu      sync.RWMutex
	servers map[string]serverEntry
}

type serverEntry struct {
	upstream Upstream
	scopes   map[string]struct{}
}

// NewServerRegistry creates an empty registry.
func NewServerRegistry() *ServerRegistry {
	return &ServerRegistry{servers: make(map[string]serverEntry)}
}

// Register adds or replaces a server with its advertised capabilities.
func (r *ServerRegistry) Register(serverID string, upstream Upstream, capabilities []string) {
	scopes := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		scopes[c] = struct{}{}
	}
	r.mu.Lock()
	r.servers[serverID] = serverEntry{upstream: upstream, scopes: scopes}
	r.mu.Unlock()
}

// Resolve returns the upstream for a server after validating that every
// requested scope is within the server's advertised capabilities. Unknown
// servers and unknown scopes fail fast.
func (r *ServerRegistry) Resolve(serverID string, scopes []string) (Upstream, error) {
	r.mu.RLock()
	entry, ok := r.servers[serverID]
	r.mu.RUnlock()
	if !ok {
		return nil, security.NewError(security.CodeBadRequest, "resolve_server", "",
			fmt.Sprintf("unknown upstream server %q", serverID))
	}
	for _, s := range scopes {
		if _, ok := entry.scopes[s]; !ok {
			return nil, security.NewError(security.CodeBadRequest, "resolve_server", "",
				fmt.Sprintf("scope %q not advertised by server %q", s, serverID))
		}
	}
	return entry.upstream, nil
}
