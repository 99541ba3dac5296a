// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package rubric

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Metric names, also the weight map keys.
const (
	MetricHookDensity         = "hook_density"
	MetricSingability         = "singability"
	MetricRhymeTightness      = "rhyme_tightness"
	MetricSectionCompleteness = "section_completeness"
	MetricProfanityScore      = "profanity_score"
)

// MetricNames lists the five metrics in canonical order.
var MetricNames = []string{
	MetricHookDensity,
	MetricSingability,
	MetricRhymeTightness,
	MetricSectionCompleteness,
	MetricProfanityScore,
}

// Thresholds are the pass bars applied to a composite score.
type Thresholds struct {
	MinTotal     float64 `json:"min_total"`
	MaxProfanity float64 `json:"max_profanity"`
}

// Blueprint is a parsed genre policy document.
type Blueprint struct {
	Genre            string
	TempoMin         int
	TempoMax         int
	DurationMin      int
	DurationMax      int
	RequiredSections []string
	Weights          map[string]float64
	Thresholds       Thresholds
}

// Standard pop rubric defaults applied when a blueprint omits sections.
func defaultWeights() map[string]float64 {
	return map[string]float64{
		MetricHookDensity:         0.25,
		MetricSingability:         0.20,
		MetricRhymeTightness:      0.15,
		MetricSectionCompleteness: 0.20,
		MetricProfanityScore:      0.20,
	}
}

var defaultThresholds = Thresholds{MinTotal: 0.75, MaxProfanity: 0.1}

var (
	tempoRe    = regexp.MustCompile(`\*\*Tempo:\*\*\s*(\d+)\s*[–-]\s*(\d+)\s*BPM`)
	formRe     = regexp.MustCompile(`\*\*Form:\*\*([^\n]+)`)
	durationRe = regexp.MustCompile(`(\d+)\s*[–-]\s*(\d+)\s*minutes`)
)

// ParseBlueprint extracts tempo, form, and duration from a blueprint
// markdown body. Missing sections default to the standard pop rubric.
func ParseBlueprint(genre, body string) Blueprint {
	bp := Blueprint{
		Genre:      genre,
		Weights:    defaultWeights(),
		Thresholds: defaultThresholds,
	}

	if m := tempoRe.FindStringSubmatch(body); m != nil {
		bp.TempoMin, _ = strconv.Atoi(m[1])
		bp.TempoMax, _ = strconv.Atoi(m[2])
	}
	if m := durationRe.FindStringSubmatch(body); m != nil {
		bp.DurationMin, _ = strconv.Atoi(m[1])
		bp.DurationMax, _ = strconv.Atoi(m[2])
	}
	if m := formRe.FindStringSubmatch(body); m != nil {
		bp.RequiredSections = parseForm(m[1])
	}
	if len(bp.RequiredSections) == 0 {
		bp.RequiredSections = []string{"verse", "chorus"}
	}
	return bp
}

// LoadBlueprintDir parses every .md file in dir into a Blueprint. The
// genre is the file name without extension ("pop.md" scores pop).
func LoadBlueprintDir(dir string) (map[string]Blueprint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read blueprint directory %s: %w", dir, err)
	}

	blueprints := make(map[string]Blueprint)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read blueprint %s: %w", entry.Name(), err)
		}
		genre := strings.TrimSuffix(entry.Name(), ".md")
		blueprints[genre] = ParseBlueprint(genre, string(body))
	}
	return blueprints, nil
}

// parseForm splits a form line like "Verse → Chorus → Verse → Chorus →
// Bridge → Chorus" into the distinct normalized section types, in first
// appearance order.
func parseForm(form string) []string {
	form = strings.ReplaceAll(form, "->", "→")
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(form, "→") {
		name := NormalizeSectionName(strings.TrimSpace(part))
		if name == "" || name == "other" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// NormalizeSectionName maps a free-form section label to one of the
// canonical types: verse, chorus, bridge, prechorus, intro, outro, other.
func NormalizeSectionName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.Trim(n, "[]")
	// Strip a trailing ordinal: "verse 2" -> "verse".
	if i := strings.IndexAny(n, "0123456789"); i > 0 {
		n = strings.TrimSpace(n[:i])
	}
	n = strings.ReplaceAll(n, "-", "")
	n = strings.ReplaceAll(n, " ", "")

	switch {
	case n == "":
		return ""
	case strings.HasPrefix(n, "prechorus"):
		return "prechorus"
	case strings.HasPrefix(n, "verse"):
		return "verse"
	case strings.HasPrefix(n, "chorus"), strings.HasPrefix(n, "hook"):
		return "chorus"
	case strings.HasPrefix(n, "bridge"):
		return "bridge"
	case strings.HasPrefix(n, "intro"):
		return "intro"
	case strings.HasPrefix(n, "outro"):
		return "outro"
	default:
		return "other"
	}
}
