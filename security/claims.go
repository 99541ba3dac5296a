// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package security

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claim names recognized when materializing a context from a bearer token.
const (
	ClaimUserID      = "user_id"
	ClaimTenantID    = "tenant_id"
	ClaimScope       = "scope"
	ClaimPermissions = "permissions"
)

// FromClaims materializes a SecurityContext from parsed JWT claims. The
// ingress layer verifies the token; the core only interprets identity.
func FromClaims(claims jwt.MapClaims) (*Context, error) {
	ctx := &Context{}

	if v, ok := claims[ClaimUserID].(string); ok {
		ctx.userID = v
	}
	if v, ok := claims[ClaimTenantID].(string); ok {
		ctx.tenantID = v
	}
	if v, ok := claims[ClaimScope].(string); ok {
		ctx.scope = v
	}
	if raw, ok := claims[ClaimPermissions].([]interface{}); ok {
		ctx.permissions = make(map[string]struct{}, len(raw))
		for _, p := range raw {
			if s, ok := p.(string); ok {
				ctx.permissions[intern(s)] = struct{}{}
			}
		}
	}

	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// ParseToken verifies an HMAC-signed bearer token and materializes a
// SecurityContext from its claims.
func ParseToken(tokenString string, secret []byte) (*Context, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, WrapError(CodeSecurityContextInvalid, "parse_token", "", "token verification failed", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, NewError(CodeSecurityContextInvalid, "parse_token", "", "unexpected claim format")
	}
	return FromClaims(claims)
}
