// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"songforge/platform/taxonomy"
)

// Placeholder used when masking a span inside a violation's context string.
const redactedMarker = "[REDACTED]"

// detectorOrder fixes the structured detector sequence. Later detectors
// skip positions already claimed by earlier ones, so the order is part of
// the contract.
var detectorOrder = []string{
	"email",
	"phone_us",
	"phone_international",
	"ssn",
	"credit_card",
	"url",
	"address",
	"ip",
}

// PIIViolation is one detected span of personally identifying information.
type PIIViolation struct {
	Type        string
	Value       string
	Position    int
	Placeholder string
	Confidence  float64
	Context     string
}

// PIISummary aggregates a detection pass for reporting.
type PIISummary struct {
	CountsByType  map[string]int
	AvgConfidence float64
}

// PIIReport bundles original text, redacted text, violations, and summary.
type PIIReport struct {
	Original   string
	Redacted   string
	Violations []PIIViolation
	Summary    PIISummary
}

type piiDetectorPattern struct {
	name        string
	re          *regexp.Regexp
	placeholder string
	confidence  float64
}

type nameDetector struct {
	re         *regexp.Regexp
	confidence float64
}

// PIIDetector finds and redacts structured PII and personal names.
type PIIDetector struct {
	structured        []piiDetectorPattern
	names             []nameDetector
	allowlist         []string
	minNameConfidence float64
}

// NewPIIDetector compiles the taxonomy's patterns. Structured detectors
// run in the fixed order of detectorOrder; taxonomy patterns outside that
// list are appended alphabetically after it.
func NewPIIDetector(tax taxonomy.PIITaxonomy) (*PIIDetector, error) {
	d := &PIIDetector{
		minNameConfidence: tax.Validation.MinNameConfidence,
	}
	if d.minNameConfidence == 0 {
		d.minNameConfidence = 0.7
	}
	for _, a := range tax.Allowlist {
		d.allowlist = append(d.allowlist, strings.ToLower(a))
	}

	ordered := append([]string(nil), detectorOrder...)
	seen := make(map[string]bool, len(ordered))
	for _, name := range ordered {
		seen[name] = true
	}
	var extra []string
	for name := range tax.Patterns {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	ordered = append(ordered, extra...)

	for _, name := range ordered {
		p, ok := tax.Patterns[name]
		if !ok {
			continue
		}
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("failed to compile PII pattern %q: %w", name, err)
		}
		d.structured = append(d.structured, piiDetectorPattern{
			name:        name,
			re:          re,
			placeholder: p.Placeholder,
			confidence:  p.Confidence,
		})
	}

	for _, tpl := range tax.NamePatterns.PatternTemplates {
		re, err := regexp.Compile(tpl.Regex)
		if err != nil {
			return nil, fmt.Errorf("failed to compile name pattern %q: %w", tpl.Regex, err)
		}
		d.names = append(d.names, nameDetector{re: re, confidence: tpl.Confidence})
	}
	return d, nil
}

// Detect returns every PII span in text, sorted by position.
func (d *PIIDetector) Detect(text string) []PIIViolation {
	var violations []PIIViolation
	var claimed [][2]int

	for _, p := range d.structured {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if overlaps(claimed, loc[0], loc[1]) {
				continue
			}
			value := text[loc[0]:loc[1]]
			if d.allowlisted(value) {
				continue
			}
			claimed = append(claimed, [2]int{loc[0], loc[1]})
			violations = append(violations, PIIViolation{
				Type:        p.name,
				Value:       value,
				Position:    loc[0],
				Placeholder: p.placeholder,
				Confidence:  p.confidence,
				Context:     maskedContext(text, loc[0], loc[1]),
			})
		}
	}

	for _, n := range d.names {
		if n.confidence < d.minNameConfidence {
			continue
		}
		for _, loc := range n.re.FindAllStringSubmatchIndex(text, -1) {
			// Use the first capture group when the template has one,
			// otherwise the whole match.
			start, end := loc[0], loc[1]
			if len(loc) >= 4 && loc[2] >= 0 {
				start, end = loc[2], loc[3]
			}
			if overlaps(claimed, start, end) {
				continue
			}
			value := text[start:end]
			if d.allowlisted(value) {
				continue
			}
			claimed = append(claimed, [2]int{start, end})
			violations = append(violations, PIIViolation{
				Type:        "name",
				Value:       value,
				Position:    start,
				Placeholder: "[NAME]",
				Confidence:  n.confidence,
				Context:     maskedContext(text, start, end),
			})
		}
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Position < violations[j].Position
	})
	return violations
}

// Redact replaces every detected span with its placeholder, processing in
// reverse position order so earlier offsets stay valid.
func (d *PIIDetector) Redact(text string) (string, []PIIViolation) {
	violations := d.Detect(text)
	redacted := text
	for i := len(violations) - 1; i >= 0; i-- {
		v := violations[i]
		redacted = redacted[:v.Position] + v.Placeholder + redacted[v.Position+len(v.Value):]
	}
	return redacted, violations
}

// Report runs detection and redaction and summarizes the outcome.
func (d *PIIDetector) Report(text string) *PIIReport {
	redacted, violations := d.Redact(text)

	summary := PIISummary{CountsByType: make(map[string]int)}
	var confSum float64
	for _, v := range violations {
		summary.CountsByType[v.Type]++
		confSum += v.Confidence
	}
	if len(violations) > 0 {
		summary.AvgConfidence = confSum / float64(len(violations))
	}

	return &PIIReport{
		Original:   text,
		Redacted:   redacted,
		Violations: violations,
		Summary:    summary,
	}
}

func (d *PIIDetector) allowlisted(value string) bool {
	lower := strings.ToLower(value)
	for _, a := range d.allowlist {
		if lower == a || strings.Contains(a, lower) || strings.Contains(lower, a) {
			return true
		}
	}
	return false
}

func overlaps(claimed [][2]int, start, end int) bool {
	for _, c := range claimed {
		if start < c[1] && end > c[0] {
			return true
		}
	}
	return false
}

func maskedContext(text string, start, end int) string {
	lo := start - whitelistWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + whitelistWindow
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:start] + redactedMarker + text[end:hi]
}
