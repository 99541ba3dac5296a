// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package policy

import (
	"context"
	"fmt"

	"songforge/platform/security"
	"songforge/platform/shared/logger"
)

// PolicyMode selects how living-artist references are treated at release.
type PolicyMode string

const (
	PolicyStrict     PolicyMode = "strict"
	PolicyWarn       PolicyMode = "warn"
	PolicyPermissive PolicyMode = "permissive"
)

// ReleaseContent carries the standard text-bearing fields inspected at
// release time.
type ReleaseContent struct {
	ID            string
	Style         string
	Lyrics        string
	ProducerNotes string
	Description   string
	Prompt        string
}

// FieldViolation ties a detected artist reference to the field it was
// found in.
type FieldViolation struct {
	Field     string
	Reference ArtistReference
}

// EnforcementResult is the verdict for one release check.
type EnforcementResult struct {
	Compliant        bool
	RequiresApproval bool
	Mode             PolicyMode
	Violations       []FieldViolation
}

// PolicyEnforcer applies the living-artist release policy. The approval
// store is optional; without one, warn mode always requires approval.
type PolicyEnforcer struct {
	normalizer *ArtistNormalizer
	approvals  *ApprovalStore
	log        *logger.Logger
}

// NewPolicyEnforcer builds an enforcer over the normalizer's registry.
func NewPolicyEnforcer(normalizer *ArtistNormalizer, approvals *ApprovalStore) *PolicyEnforcer {
	return &PolicyEnforcer{
		normalizer: normalizer,
		approvals:  approvals,
		log:        logger.New("policy"),
	}
}

// EnforceReleasePolicy checks content against the living-artist policy.
// Non-public releases are automatically compliant. In strict mode any
// reference is a POLICY_VIOLATION error; in warn mode references are
// allowed contingent on a recorded approval; permissive mode allows them
// silently.
func (e *PolicyEnforcer) EnforceReleasePolicy(ctx context.Context, content ReleaseContent, publicRelease bool, mode PolicyMode) (*EnforcementResult, error) {
	switch mode {
	case PolicyStrict, PolicyWarn, PolicyPermissive:
	default:
		return nil, security.NewError(security.CodeBadRequest, "enforce_release_policy", "",
			fmt.Sprintf("unknown policy mode %q", mode))
	}

	result := &EnforcementResult{Mode: mode, Compliant: true}

	if !publicRelease {
		return result, nil
	}

	fields := []struct {
		name string
		text string
	}{
		{"style", content.Style},
		{"lyrics", content.Lyrics},
		{"producer_notes", content.ProducerNotes},
		{"description", content.Description},
		{"prompt", content.Prompt},
	}
	for _, f := range fields {
		if f.text == "" {
			continue
		}
		for _, ref := range e.normalizer.DetectReferences(f.text) {
			result.Violations = append(result.Violations, FieldViolation{Field: f.name, Reference: ref})
		}
	}

	if len(result.Violations) == 0 {
		return result, nil
	}

	switch mode {
	case PolicyStrict:
		result.Compliant = false
		return result, security.NewError(security.CodePolicyViolation, "enforce_release_policy", "",
			fmt.Sprintf("%d living-artist reference(s) in public release content", len(result.Violations)))

	case PolicyWarn:
		approved := false
		if e.approvals != nil {
			var err error
			approved, err = e.approvals.HasApproval(ctx, content.ID)
			if err != nil {
				return nil, err
			}
		}
		if approved {
			return result, nil
		}
		result.Compliant = false
		result.RequiresApproval = true
		e.log.Warn("", "", "", "living-artist references pending approval", map[string]interface{}{
			"content_id": content.ID,
			"count":      len(result.Violations),
		})
		return result, nil

	default: // permissive
		return result, nil
	}
}
