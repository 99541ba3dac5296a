// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package rubric

import (
	"fmt"
	"sort"

	"songforge/platform/policy"
	"songforge/platform/retrieval"
	"songforge/platform/shared/logger"
	"songforge/platform/taxonomy"
)

// Decision is the gate outcome for a scored artifact.
type Decision string

const (
	DecisionPass       Decision = "PASS"
	DecisionBorderline Decision = "BORDERLINE"
	DecisionFail       Decision = "FAIL"
)

// borderlineBand is the fraction of a threshold within which a passing
// score is still flagged for review.
const borderlineBand = 0.05

// weakMetricBar is the per-metric floor below which a suggestion fires.
const weakMetricBar = 0.75

// Artifact is the bundle being scored.
type Artifact struct {
	Lyrics        string
	Style         string
	ProducerNotes string
	Citations     []retrieval.Citation
	ProfanityMode string
}

// ScoreReport is the full scoring outcome.
type ScoreReport struct {
	Genre             string                  `json:"genre"`
	Metrics           map[string]MetricResult `json:"metrics"`
	Weights           map[string]float64      `json:"weights"`
	Thresholds        Thresholds              `json:"thresholds"`
	WeightSource      string                  `json:"weight_source"`
	Total             float64                 `json:"total"`
	ProfanityExposure float64                 `json:"profanity_exposure"`
	Decision          Decision                `json:"decision"`
	TotalMargin       float64                 `json:"total_margin"`
	ProfanityMargin   float64                 `json:"profanity_margin"`
	Suggestions       []string                `json:"suggestions,omitempty"`
}

// Scorer runs the five metrics over an artifact and composes the
// weighted total under the resolved rubric.
type Scorer struct {
	filter   *policy.ProfanityFilter
	resolver *Resolver
	rhyme    func(a, b string) bool
	log      *logger.Logger
}

// ScorerOption tunes scorer construction.
type ScorerOption func(*Scorer)

// WithPhoneticRhymes switches rhyme matching from the visual suffix
// check to the silent-e-aware variant. Off by default so existing
// reports keep their scores.
func WithPhoneticRhymes() ScorerOption {
	return func(s *Scorer) { s.rhyme = phoneticRhymes }
}

func NewScorer(filter *policy.ProfanityFilter, resolver *Resolver, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		filter:   filter,
		resolver: resolver,
		rhyme:    rhymes,
		log:      logger.New("rubric-scorer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score evaluates an artifact against a blueprint. Scoring is pure: the
// same artifact, blueprint, and overrides always produce the same report.
func (s *Scorer) Score(bp Blueprint, overrides *taxonomy.RubricOverrides, art Artifact) (*ScoreReport, error) {
	sections := ParseLyrics(art.Lyrics)
	resolved := s.resolver.Resolve(bp, overrides)

	mode := art.ProfanityMode
	if mode == "" {
		mode = policy.ModeClean
	}

	profanity, err := profanityMetric(sections, s.filter, mode)
	if err != nil {
		return nil, err
	}

	metrics := map[string]MetricResult{
		MetricHookDensity:         hookDensity(sections),
		MetricSingability:         singability(sections),
		MetricRhymeTightness:      rhymeTightness(sections, s.rhyme),
		MetricSectionCompleteness: sectionCompleteness(sections, bp.RequiredSections),
		MetricProfanityScore:      profanity,
	}

	var total float64
	for _, name := range MetricNames {
		total += resolved.Weights[name] * metrics[name].Score
	}

	report := &ScoreReport{
		Genre:             bp.Genre,
		Metrics:           metrics,
		Weights:           resolved.Weights,
		Thresholds:        resolved.Thresholds,
		WeightSource:      resolved.Source,
		Total:             total,
		ProfanityExposure: 1 - profanity.Score,
	}
	report.TotalMargin = total - resolved.Thresholds.MinTotal
	report.ProfanityMargin = resolved.Thresholds.MaxProfanity - report.ProfanityExposure
	report.Decision = decide(report.TotalMargin, report.ProfanityMargin, resolved.Thresholds)
	report.Suggestions = suggestions(metrics, bp)

	s.log.Debug("", "", "", "artifact scored", map[string]interface{}{
		"genre":    bp.Genre,
		"total":    total,
		"decision": string(report.Decision),
		"source":   resolved.Source,
	})
	return report, nil
}

// decide applies the pass bars: both margins must be non-negative to
// pass, and a pass inside 5% of either threshold is borderline.
func decide(totalMargin, profanityMargin float64, t Thresholds) Decision {
	if totalMargin < 0 || profanityMargin < 0 {
		return DecisionFail
	}
	if totalMargin < borderlineBand*t.MinTotal || profanityMargin < borderlineBand*t.MaxProfanity {
		return DecisionBorderline
	}
	return DecisionPass
}

// suggestions names concrete fixes for every weak metric, in canonical
// metric order so reports are reproducible.
func suggestions(metrics map[string]MetricResult, bp Blueprint) []string {
	var out []string
	for _, name := range MetricNames {
		m := metrics[name]
		if m.Score >= weakMetricBar {
			continue
		}
		switch name {
		case MetricHookDensity:
			out = append(out, "repeat a memorable phrase across choruses to strengthen the hook")
		case MetricSingability:
			out = append(out, "even out line lengths and swap multisyllabic words for simpler ones")
		case MetricRhymeTightness:
			out = append(out, "tighten end rhymes into consecutive or alternating pairs")
		case MetricSectionCompleteness:
			if missing, ok := m.Debug["missing_sections"].([]string); ok && len(missing) > 0 {
				sorted := append([]string(nil), missing...)
				sort.Strings(sorted)
				for _, sec := range sorted {
					out = append(out, fmt.Sprintf("add the missing %s section required by the %s form", sec, bp.Genre))
				}
			} else {
				out = append(out, "flesh out required sections to at least two lines each")
			}
		case MetricProfanityScore:
			out = append(out, "rewrite flagged lines to fit the release's profanity mode")
		}
	}
	return out
}
