// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package rubric

import (
	"fmt"
	"math"
	"sort"

	"songforge/platform/shared/logger"
	"songforge/platform/taxonomy"
)

const defaultWeightTolerance = 0.01

// ResolvedRubric is the effective weight set for one scoring run, with
// the source that supplied it.
type ResolvedRubric struct {
	Weights    map[string]float64
	Thresholds Thresholds
	Source     string
}

// Resolver applies override precedence: enabled A/B test covering the
// genre, then the genre override, then the blueprint defaults. An
// overrides file with any invalid entry is rejected whole.
type Resolver struct {
	log *logger.Logger
}

func NewResolver() *Resolver {
	return &Resolver{log: logger.New("rubric-resolver")}
}

// Resolve picks the effective weights and thresholds for a blueprint.
func (r *Resolver) Resolve(bp Blueprint, overrides *taxonomy.RubricOverrides) ResolvedRubric {
	base := ResolvedRubric{
		Weights:    bp.Weights,
		Thresholds: bp.Thresholds,
		Source:     "blueprint",
	}
	if overrides == nil {
		return base
	}

	if err := ValidateOverrides(overrides); err != nil {
		if overrides.Logging.WarnOnFallback {
			r.log.Warn("", "", "", "rubric overrides rejected, falling back to blueprint", map[string]interface{}{
				"genre": bp.Genre,
				"error": err.Error(),
			})
		}
		return base
	}

	// A/B tests win over plain overrides. Sorted ids keep the pick stable
	// when several enabled tests cover the same genre.
	ids := make([]string, 0, len(overrides.ABTests))
	for id := range overrides.ABTests {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		test := overrides.ABTests[id]
		if !test.Enabled || !containsGenre(test.Genres, bp.Genre) {
			continue
		}
		return applyOverride(base, test.Overrides, "ab_test:"+id)
	}

	if ov, ok := overrides.Overrides[bp.Genre]; ok {
		return applyOverride(base, ov, "override:"+bp.Genre)
	}
	return base
}

func applyOverride(base ResolvedRubric, ov taxonomy.RubricOverride, source string) ResolvedRubric {
	out := ResolvedRubric{
		Weights:    make(map[string]float64, len(ov.Weights)),
		Thresholds: base.Thresholds,
		Source:     source,
	}
	for name, w := range ov.Weights {
		out.Weights[name] = w
	}
	if ov.Thresholds.MinTotal > 0 {
		out.Thresholds.MinTotal = ov.Thresholds.MinTotal
	}
	if ov.Thresholds.MaxProfanity > 0 {
		out.Thresholds.MaxProfanity = ov.Thresholds.MaxProfanity
	}
	return out
}

// ValidateOverrides checks every override and A/B branch in the file.
// One bad entry poisons the file so scoring never mixes validated and
// unvalidated weight sets.
func ValidateOverrides(overrides *taxonomy.RubricOverrides) error {
	genres := make([]string, 0, len(overrides.Overrides))
	for genre := range overrides.Overrides {
		genres = append(genres, genre)
	}
	sort.Strings(genres)
	for _, genre := range genres {
		if err := validateWeights(overrides.Overrides[genre].Weights, overrides.Validation); err != nil {
			return fmt.Errorf("override %q: %w", genre, err)
		}
	}

	ids := make([]string, 0, len(overrides.ABTests))
	for id := range overrides.ABTests {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		test := overrides.ABTests[id]
		if !test.Enabled {
			continue
		}
		if err := validateWeights(test.Overrides.Weights, overrides.Validation); err != nil {
			return fmt.Errorf("ab_test %q: %w", id, err)
		}
	}
	return nil
}

func validateWeights(weights map[string]float64, rules taxonomy.OverrideValidation) error {
	required := rules.RequiredMetrics
	if len(required) == 0 {
		required = MetricNames
	}
	for _, name := range required {
		if _, ok := weights[name]; !ok {
			return fmt.Errorf("missing metric %q", name)
		}
	}

	var sum float64
	for name, w := range weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("metric %q weight %v out of range", name, w)
		}
		sum += w
	}

	if rules.RequireWeightsSumToOne {
		tolerance := rules.WeightSumTolerance
		if tolerance == 0 {
			tolerance = defaultWeightTolerance
		}
		if math.Abs(sum-1) > tolerance {
			return fmt.Errorf("weights sum to %v, expected 1", sum)
		}
	}
	return nil
}

func containsGenre(genres []string, genre string) bool {
	for _, g := range genres {
		if g == genre {
			return true
		}
	}
	return false
}
