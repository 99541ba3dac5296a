// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songforge/platform/taxonomy"
)

func piiFixture() taxonomy.PIITaxonomy {
	return taxonomy.PIITaxonomy{
		Patterns: map[string]taxonomy.PIIPattern{
			"email": {
				Regex:       `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
				Placeholder: "[EMAIL]",
				Confidence:  0.95,
			},
			"phone_us": {
				Regex:       `\b\d{3}[-.]\d{3}[-.]\d{4}\b`,
				Placeholder: "[PHONE]",
				Confidence:  0.9,
			},
			"phone_international": {
				Regex:       `\+\d{1,3}[ -]?\d{2,4}[ -]?\d{3,4}[ -]?\d{3,4}`,
				Placeholder: "[PHONE]",
				Confidence:  0.85,
			},
			"ssn": {
				Regex:       `\b\d{3}-\d{2}-\d{4}\b`,
				Placeholder: "[SSN]",
				Confidence:  0.95,
			},
			"url": {
				Regex:       `https?://[^\s]+`,
				Placeholder: "[URL]",
				Confidence:  0.9,
			},
		},
		NamePatterns: taxonomy.NamePatterns{
			PatternTemplates: []taxonomy.NameTemplate{
				{Regex: `My name is ([A-Z][a-z]+(?: [A-Z][a-z]+)?)`, Confidence: 0.8},
				{Regex: `signed, ([A-Z][a-z]+)`, Confidence: 0.5},
			},
		},
		Allowlist:  []string{"John Doe"},
		Validation: taxonomy.PIIValidation{MinNameConfidence: 0.7},
	}
}

func newPIIDetector(t *testing.T) *PIIDetector {
	t.Helper()
	d, err := NewPIIDetector(piiFixture())
	require.NoError(t, err)
	return d
}

func TestRedactPhoneAndEmail(t *testing.T) {
	d := newPIIDetector(t)
	text := "Call 555-123-4567 or email a@b.com"

	redacted, violations := d.Redact(text)
	assert.Equal(t, "Call [PHONE] or email [EMAIL]", redacted)
	require.Len(t, violations, 2)
	assert.Equal(t, "phone_us", violations[0].Type)
	assert.Equal(t, "email", violations[1].Type)

	// Determinism: rerunning yields identical output.
	again, vs := d.Redact(text)
	assert.Equal(t, redacted, again)
	assert.Equal(t, violations, vs)
}

func TestDetectOrderAndClaimedPositions(t *testing.T) {
	d := newPIIDetector(t)

	// The US detector runs before the international one and claims the
	// inner span, so the overlapping international match is skipped.
	violations := d.Detect("dial +1 555-123-4567 today")
	require.Len(t, violations, 1)
	assert.Equal(t, "phone_us", violations[0].Type)

	violations = d.Detect("number 555-12-3456 listed")
	require.Len(t, violations, 1)
	assert.Equal(t, "ssn", violations[0].Type)

	violations = d.Detect("dial +44 20 7946 0958 today")
	require.Len(t, violations, 1)
	assert.Equal(t, "phone_international", violations[0].Type)
}

func TestDetectSortsByPosition(t *testing.T) {
	d := newPIIDetector(t)

	violations := d.Detect("reach a@b.com then 555-123-4567 then https://example.com/x")
	require.Len(t, violations, 3)
	assert.True(t, violations[0].Position < violations[1].Position)
	assert.True(t, violations[1].Position < violations[2].Position)
}

func TestNameDetection(t *testing.T) {
	d := newPIIDetector(t)

	violations := d.Detect("My name is Alice Smith and I write songs")
	require.Len(t, violations, 1)
	assert.Equal(t, "name", violations[0].Type)
	assert.Equal(t, "Alice Smith", violations[0].Value)
	assert.Equal(t, "[NAME]", violations[0].Placeholder)
}

func TestNameBelowConfidenceFloorSuppressed(t *testing.T) {
	d := newPIIDetector(t)

	// The "signed," template carries confidence 0.5, below the 0.7 floor.
	violations := d.Detect("signed, Alice")
	assert.Empty(t, violations)
}

func TestAllowlistedNameSkipped(t *testing.T) {
	d := newPIIDetector(t)

	violations := d.Detect("My name is John Doe and this is a demo")
	assert.Empty(t, violations)
}

func TestViolationContextIsMasked(t *testing.T) {
	d := newPIIDetector(t)

	violations := d.Detect("email a@b.com now")
	require.Len(t, violations, 1)
	assert.Equal(t, "email [REDACTED] now", violations[0].Context)
	assert.NotContains(t, violations[0].Context, "a@b.com")
}

func TestReportSummary(t *testing.T) {
	d := newPIIDetector(t)

	report := d.Report("a@b.com and c@d.com, call 555-123-4567")
	assert.Equal(t, 2, report.Summary.CountsByType["email"])
	assert.Equal(t, 1, report.Summary.CountsByType["phone_us"])
	assert.InDelta(t, (0.95+0.95+0.9)/3, report.Summary.AvgConfidence, 1e-9)
	assert.Equal(t, "[EMAIL] and [EMAIL], call [PHONE]", report.Redacted)
	assert.NotEqual(t, report.Original, report.Redacted)
}
