// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package policy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"songforge/platform/security"
)

// Approval levels accepted by the audit store.
const (
	ApprovalLevelUser   = "user"
	ApprovalLevelAdmin  = "admin"
	ApprovalLevelSystem = "system"
)

// Approval is one audited decision allowing living-artist references in a
// public release.
type Approval struct {
	ID         string
	ContentID  string
	Reason     string
	ApprovedBy string
	Level      string
	CreatedAt  time.Time
}

// ApprovalStore persists approvals to the policy_approvals table.
type ApprovalStore struct {
	db *sql.DB
}

// NewApprovalStore wraps a database handle.
func NewApprovalStore(db *sql.DB) *ApprovalStore {
	return &ApprovalStore{db: db}
}

// Record inserts an approval, assigning id and timestamp when absent.
func (s *ApprovalStore) Record(ctx context.Context, a *Approval) error {
	switch a.Level {
	case ApprovalLevelUser, ApprovalLevelAdmin, ApprovalLevelSystem:
	default:
		return security.NewError(security.CodeBadRequest, "record_approval", "policy_approvals",
			fmt.Sprintf("unknown approval level %q", a.Level))
	}
	if a.ContentID == "" || a.ApprovedBy == "" {
		return security.NewError(security.CodeBadRequest, "record_approval", "policy_approvals",
			"approval requires content_id and approved_by")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO policy_approvals (id, content_id, reason, approved_by, approval_level, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.ContentID, a.Reason, a.ApprovedBy, a.Level, a.CreatedAt)
	if err != nil {
		return security.WrapError(security.CodeDatabaseError, "record_approval", "policy_approvals", "insert failed", err)
	}
	return nil
}

// HasApproval reports whether any approval exists for the content.
func (s *ApprovalStore) HasApproval(ctx context.Context, contentID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM policy_approvals WHERE content_id = $1", contentID).Scan(&n)
	if err != nil {
		return false, security.WrapError(security.CodeDatabaseError, "has_approval", "policy_approvals", "query failed", err)
	}
	return n > 0, nil
}

// ListByContent returns every approval recorded for the content, newest
// first.
func (s *ApprovalStore) ListByContent(ctx context.Context, contentID string) ([]Approval, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_id, reason, approved_by, approval_level, created_at
		 FROM policy_approvals WHERE content_id = $1 ORDER BY created_at DESC`, contentID)
	if err != nil {
		return nil, security.WrapError(security.CodeDatabaseError, "list_approvals", "policy_approvals", "query failed", err)
	}
	defer rows.Close()

	var out []Approval
	for rows.Next() {
		var a Approval
		if err := rows.Scan(&a.ID, &a.ContentID, &a.Reason, &a.ApprovedBy, &a.Level, &a.CreatedAt); err != nil {
			return nil, security.WrapError(security.CodeDatabaseError, "list_approvals", "policy_approvals", "scan failed", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, security.WrapError(security.CodeDatabaseError, "list_approvals", "policy_approvals", "row iteration failed", err)
	}
	return out, nil
}
