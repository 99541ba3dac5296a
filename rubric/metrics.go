// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package rubric

import (
	"fmt"
	"strings"

	"songforge/platform/policy"
)

// MetricResult is one metric's score with its human explanation and a
// debug bundle for diagnosis.
type MetricResult struct {
	Score       float64                `json:"score"`
	Explanation string                 `json:"explanation"`
	Debug       map[string]interface{} `json:"debug,omitempty"`
}

const (
	minHookNGram       = 3
	chorusLineWeight   = 1.5
	maxSyllableVar     = 25.0
	maxComplexRatio    = 0.3
	maxLengthVar       = 400.0
	complexSyllableBar = 3
	thinSectionPenalty = 0.1
)

// hookDensity finds contiguous word n-grams of length >= 3 recurring at
// least twice across the song, then scores the share of lines carrying
// one, with chorus lines weighted 1.5x.
func hookDensity(sections []Section) MetricResult {
	total := lineCount(sections)
	if total == 0 {
		return MetricResult{Score: 0, Explanation: "no lines to score", Debug: map[string]interface{}{}}
	}

	counts := make(map[string]int)
	for _, s := range sections {
		for _, line := range s.Lines {
			for _, g := range lineNGrams(line) {
				counts[g]++
			}
		}
	}

	recurring := make(map[string]bool)
	for g, c := range counts {
		if c >= 2 {
			recurring[g] = true
		}
	}

	var weighted float64
	hookLines := 0
	for _, s := range sections {
		for _, line := range s.Lines {
			if !lineHasRecurring(line, recurring) {
				continue
			}
			hookLines++
			if s.Type == "chorus" {
				weighted += chorusLineWeight
			} else {
				weighted += 1.0
			}
		}
	}

	score := clamp01(weighted / float64(total))
	return MetricResult{
		Score:       score,
		Explanation: fmt.Sprintf("%d of %d lines carry a recurring hook phrase", hookLines, total),
		Debug: map[string]interface{}{
			"recurring_ngrams": len(recurring),
			"hook_lines":       hookLines,
			"total_lines":      total,
		},
	}
}

func lineNGrams(line string) []string {
	ws := words(line)
	var grams []string
	for n := minHookNGram; n <= len(ws); n++ {
		for i := 0; i+n <= len(ws); i++ {
			grams = append(grams, strings.Join(ws[i:i+n], " "))
		}
	}
	return grams
}

func lineHasRecurring(line string, recurring map[string]bool) bool {
	for _, g := range lineNGrams(line) {
		if recurring[g] {
			return true
		}
	}
	return false
}

// singability combines syllable-count consistency (0.4), a complex-word
// penalty (0.3), and line-length consistency (0.3).
func singability(sections []Section) MetricResult {
	lines := allLines(sections)
	if len(lines) == 0 {
		return MetricResult{Score: 0, Explanation: "no lines to score", Debug: map[string]interface{}{}}
	}

	syllableVar := meanVarianceByType(sections, func(line string) float64 {
		total := 0
		for _, w := range words(line) {
			total += syllables(w)
		}
		return float64(total)
	})
	lengthVar := meanVarianceByType(sections, func(line string) float64 {
		return float64(len(line))
	})

	totalWords, complexWords := 0, 0
	for _, line := range lines {
		for _, w := range words(line) {
			totalWords++
			if syllables(w) > complexSyllableBar {
				complexWords++
			}
		}
	}
	complexRatio := 0.0
	if totalWords > 0 {
		complexRatio = float64(complexWords) / float64(totalWords)
	}

	syllableScore := 1 - clamp01(syllableVar/maxSyllableVar)
	complexScore := 1 - clamp01(complexRatio/maxComplexRatio)
	lengthScore := 1 - clamp01(lengthVar/maxLengthVar)

	score := 0.4*syllableScore + 0.3*complexScore + 0.3*lengthScore
	return MetricResult{
		Score:       score,
		Explanation: fmt.Sprintf("syllable consistency %.2f, complex-word score %.2f, length consistency %.2f", syllableScore, complexScore, lengthScore),
		Debug: map[string]interface{}{
			"syllable_variance": syllableVar,
			"complex_ratio":     complexRatio,
			"length_variance":   lengthVar,
		},
	}
}

// meanVarianceByType computes the variance of a per-line quantity within
// each section type, then averages the variances across types.
func meanVarianceByType(sections []Section, f func(line string) float64) float64 {
	byType := make(map[string][]float64)
	for _, s := range sections {
		for _, line := range s.Lines {
			byType[s.Type] = append(byType[s.Type], f(line))
		}
	}
	if len(byType) == 0 {
		return 0
	}

	var sum float64
	for _, values := range byType {
		sum += variance(values)
	}
	return sum / float64(len(byType))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(values))
}

// rhymeTightness pairs line end-words under both consecutive (AABB) and
// alternating (ABAB) schemes using the supplied rhyme predicate.
func rhymeTightness(sections []Section, rhyme func(a, b string) bool) MetricResult {
	lines := allLines(sections)
	expected := len(lines) / 2
	if expected == 0 {
		return MetricResult{Score: 0, Explanation: "too few lines for rhyme pairs", Debug: map[string]interface{}{}}
	}

	ends := make([]string, len(lines))
	for i, line := range lines {
		ends[i] = lastWord(line)
	}

	matched := 0
	used := make([]bool, len(lines))
	for i := 0; i < len(lines); i++ {
		if used[i] {
			continue
		}
		// Consecutive pair first, alternating second.
		if i+1 < len(lines) && !used[i+1] && rhyme(ends[i], ends[i+1]) {
			used[i], used[i+1] = true, true
			matched++
			continue
		}
		if i+2 < len(lines) && !used[i+2] && rhyme(ends[i], ends[i+2]) {
			used[i], used[i+2] = true, true
			matched++
		}
	}

	score := clamp01(float64(matched) / float64(expected))
	return MetricResult{
		Score:       score,
		Explanation: fmt.Sprintf("%d of %d expected rhyme pairs matched", matched, expected),
		Debug: map[string]interface{}{
			"matched_pairs":  matched,
			"expected_pairs": expected,
		},
	}
}

// rhymes compares final-letter suffixes. The heuristic is visual, not
// phonetic, which is enough to separate paired from unpaired lines.
func rhymes(a, b string) bool {
	if a == "" || b == "" || a == b {
		return false
	}
	if len(a) >= 3 && len(b) >= 3 && a[len(a)-3:] == b[len(b)-3:] {
		return true
	}
	return len(a) >= 2 && len(b) >= 2 && a[len(a)-2:] == b[len(b)-2:]
}

// phoneticRhymes extends the visual check by also comparing with a
// trailing silent e stripped, catching pairs like stone/alone.
func phoneticRhymes(a, b string) bool {
	if rhymes(a, b) {
		return true
	}
	sa, sb := stripSilentE(a), stripSilentE(b)
	return (sa != a || sb != b) && rhymes(sa, sb)
}

func stripSilentE(w string) string {
	if len(w) > 2 && strings.HasSuffix(w, "e") && !isVowel(rune(w[len(w)-2])) {
		return w[:len(w)-1]
	}
	return w
}

// sectionCompleteness scores required-section presence, docking 0.1 for
// each required section present with fewer than two lines.
func sectionCompleteness(sections []Section, required []string) MetricResult {
	if len(required) == 0 {
		return MetricResult{Score: 1, Explanation: "no required sections", Debug: map[string]interface{}{}}
	}

	linesByType := make(map[string]int)
	for _, s := range sections {
		linesByType[s.Type] += len(s.Lines)
	}

	present := 0
	var missing, thin []string
	for _, req := range required {
		n, ok := linesByType[req]
		if !ok {
			missing = append(missing, req)
			continue
		}
		present++
		if n < 2 {
			thin = append(thin, req)
		}
	}

	score := float64(present) / float64(len(required))
	score -= thinSectionPenalty * float64(len(thin))
	score = clamp01(score)

	explanation := fmt.Sprintf("%d of %d required sections present", present, len(required))
	if len(missing) > 0 {
		explanation += ", missing: " + strings.Join(missing, ", ")
	}
	return MetricResult{
		Score:       score,
		Explanation: explanation,
		Debug: map[string]interface{}{
			"missing_sections": missing,
			"thin_sections":    thin,
		},
	}
}

// profanityMetric scores the share of lines that stay within the
// configured profanity mode.
func profanityMetric(sections []Section, filter *policy.ProfanityFilter, mode string) (MetricResult, error) {
	lines := allLines(sections)
	if len(lines) == 0 {
		return MetricResult{Score: 1, Explanation: "no lines to score", Debug: map[string]interface{}{}}, nil
	}

	violating := 0
	violations := 0
	for _, line := range lines {
		res, err := filter.Detect(line, mode)
		if err != nil {
			return MetricResult{}, err
		}
		if res.Violates {
			violating++
		}
		violations += len(res.Violations)
	}

	score := 1 - float64(violating)/float64(len(lines))
	return MetricResult{
		Score:       score,
		Explanation: fmt.Sprintf("%d of %d lines violate the %s profanity mode", violating, len(lines), mode),
		Debug: map[string]interface{}{
			"violating_lines":  violating,
			"total_violations": violations,
			"mode":             mode,
		},
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
