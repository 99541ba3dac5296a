// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"songforge/platform/security"
	"songforge/platform/taxonomy"
)

// Severity of a profanity hit.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeverityStrong   Severity = "strong"
	SeverityExtreme  Severity = "extreme"
)

// severityOrder fixes the taxonomy iteration order for determinism.
var severityOrder = []Severity{SeverityMild, SeverityModerate, SeverityStrong, SeverityExtreme}

// Detection modes.
const (
	ModeClean           = "clean"
	ModeMildAllowed     = "mild_allowed"
	ModeModerateAllowed = "moderate_allowed"
	ModeExplicit        = "explicit"
)

const (
	whitelistWindow    = 20
	maxVariantsPerTerm = 10
)

// ProfanityViolation is one detected hit.
type ProfanityViolation struct {
	Term           string
	Position       int
	Severity       Severity
	Context        string
	NormalizedForm string
	OriginalForm   string
}

// ProfanityResult is the outcome of one detection pass. The violation list
// is independent of mode; only the threshold verdict changes with it.
type ProfanityResult struct {
	Violations       []ProfanityViolation
	CountsBySeverity map[Severity]int
	Score            float64
	Violates         bool
}

type termPattern struct {
	term     string
	severity Severity
	re       *regexp.Regexp
}

// ProfanityFilter detects profane terms by word-boundary match on the
// original text and by leetspeak variant match on a normalized copy.
type ProfanityFilter struct {
	direct     []termPattern
	variants   []termPattern
	weights    map[Severity]float64
	thresholds map[string]taxonomy.ProfanityLimits
	whitelist  []string
}

// NewProfanityFilter compiles the taxonomy into pattern tables. Term lists
// are sorted before compilation and variant generation iterates characters
// in fixed order, so detection order is reproducible across processes.
func NewProfanityFilter(tax taxonomy.ProfanityTaxonomy) (*ProfanityFilter, error) {
	f := &ProfanityFilter{
		weights:    make(map[Severity]float64, len(tax.SeverityWeights)),
		thresholds: tax.Thresholds,
	}
	for k, v := range tax.SeverityWeights {
		f.weights[Severity(k)] = v
	}
	for _, w := range tax.Whitelist.Terms {
		f.whitelist = append(f.whitelist, strings.ToLower(w))
	}

	for _, sev := range severityOrder {
		terms := append([]string(nil), tax.Categories[string(sev)]...)
		sort.Strings(terms)
		for _, term := range terms {
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("failed to compile profanity term %q: %w", term, err)
			}
			f.direct = append(f.direct, termPattern{term: term, severity: sev, re: re})

			for _, variant := range leetVariants(term, tax.Variations.LeetspeakPatterns) {
				vre, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(variant))
				if err != nil {
					return nil, fmt.Errorf("failed to compile variant %q of %q: %w", variant, term, err)
				}
				f.variants = append(f.variants, termPattern{term: term, severity: sev, re: vre})
			}
		}
	}
	return f, nil
}

// leetVariants generates up to maxVariantsPerTerm spellings of term with
// one character substituted per the leetspeak table, iterating term
// characters left to right and substitutions in table order.
func leetVariants(term string, table map[string][]string) []string {
	var variants []string
	runes := []rune(term)
	for i, r := range runes {
		subs, ok := table[strings.ToLower(string(r))]
		if !ok {
			continue
		}
		for _, sub := range subs {
			if len(variants) >= maxVariantsPerTerm {
				return variants
			}
			variant := string(runes[:i]) + sub + string(runes[i+1:])
			variants = append(variants, variant)
		}
	}
	return variants
}

// Detect runs the full pipeline against text in the given mode.
func (f *ProfanityFilter) Detect(text, mode string) (*ProfanityResult, error) {
	limits, ok := f.thresholds[mode]
	if !ok {
		return nil, security.NewError(security.CodeBadRequest, "detect_profanity", "",
			fmt.Sprintf("unknown profanity mode %q", mode))
	}

	violations := f.detect(text)

	counts := make(map[Severity]int, len(severityOrder))
	var weightSum float64
	for _, v := range violations {
		counts[v.Severity]++
		weightSum += f.weights[v.Severity]
	}

	score := profanityScore(weightSum, wordCount(text))

	violates := score > limits.MaxScore ||
		exceeds(counts[SeverityMild], limits.MaxMildCount) ||
		exceeds(counts[SeverityModerate], limits.MaxModerateCount) ||
		exceeds(counts[SeverityStrong], limits.MaxStrongCount) ||
		exceeds(counts[SeverityExtreme], limits.MaxExtremeCount)

	return &ProfanityResult{
		Violations:       violations,
		CountsBySeverity: counts,
		Score:            score,
		Violates:         violates,
	}, nil
}

// Score returns the profanity score of text in [0,1], independent of mode.
func (f *ProfanityFilter) Score(text string) float64 {
	var weightSum float64
	for _, v := range f.detect(text) {
		weightSum += f.weights[v.Severity]
	}
	return profanityScore(weightSum, wordCount(text))
}

func profanityScore(weightSum float64, words int) float64 {
	if words == 0 {
		return 0
	}
	score := weightSum / float64(words) * 100
	if score > 1.0 {
		return 1.0
	}
	return score
}

func exceeds(count, limit int) bool {
	// -1 means unlimited.
	return limit >= 0 && count > limit
}

// detect runs word-boundary matching first, then variant matching, each
// in taxonomy order and each over both the original text and its
// normalized copy. A position claimed by an earlier hit is never reported
// twice.
func (f *ProfanityFilter) detect(text string) []ProfanityViolation {
	normalized, indexMap := normalizeForMatching(text)

	var violations []ProfanityViolation
	claimed := make(map[int]bool)

	scan := func(patterns []termPattern) {
		for _, tp := range patterns {
			for _, loc := range tp.re.FindAllStringIndex(text, -1) {
				violations = f.record(violations, claimed, text, tp, loc[0], loc[1], text[loc[0]:loc[1]])
			}
			for _, loc := range tp.re.FindAllStringIndex(normalized, -1) {
				origStart := indexMap[loc[0]]
				origEnd := indexMap[loc[1]-1] + 1
				violations = f.record(violations, claimed, text, tp, origStart, origEnd, normalized[loc[0]:loc[1]])
			}
		}
	}

	scan(f.direct)
	scan(f.variants)

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Position < violations[j].Position
	})
	return violations
}

func (f *ProfanityFilter) record(violations []ProfanityViolation, claimed map[int]bool, text string, tp termPattern, start, end int, matched string) []ProfanityViolation {
	if claimed[start] || f.whitelisted(text, start, end) {
		return violations
	}
	claimed[start] = true
	return append(violations, ProfanityViolation{
		Term:           tp.term,
		Position:       start,
		Severity:       tp.severity,
		Context:        redactedWindow(text, start, end),
		NormalizedForm: matched,
		OriginalForm:   text[start:end],
	})
}

// whitelisted reports whether a whitelist phrase occurs in the ±20-char
// window of the original text surrounding the hit.
func (f *ProfanityFilter) whitelisted(text string, start, end int) bool {
	lo := start - whitelistWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + whitelistWindow
	if hi > len(text) {
		hi = len(text)
	}
	window := strings.ToLower(text[lo:hi])
	for _, w := range f.whitelist {
		if strings.Contains(window, w) {
			return true
		}
	}
	return false
}

// redactedWindow extracts the surrounding context with the offending span
// masked, for safe logging.
func redactedWindow(text string, start, end int) string {
	lo := start - whitelistWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + whitelistWindow
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:start] + strings.Repeat("*", end-start) + text[end:hi]
}

func isWordChar(r byte) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// normalizeForMatching produces the parallel string used for variation
// matching plus a normalized-index to original-index map. Two collapses
// are applied: in-word masking characters (*, -, _ between word chars)
// are removed, and single-character spacing (f u c k) is joined.
func normalizeForMatching(text string) (string, []int) {
	var b strings.Builder
	var idx []int

	// Pass 1: strip mask characters between word characters.
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c == '*' || c == '-' || c == '_') && i > 0 && i+1 < len(text) &&
			isWordChar(text[i-1]) && isWordChar(text[i+1]) {
			continue
		}
		b.WriteByte(c)
		idx = append(idx, i)
	}

	s := b.String()

	// Pass 2: drop a space that separates two isolated single characters.
	var out strings.Builder
	var outIdx []int
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' && isolatedChar(s, i-1) && isolatedChar(s, i+1) {
			continue
		}
		out.WriteByte(s[i])
		outIdx = append(outIdx, idx[i])
	}
	return out.String(), outIdx
}

// isolatedChar reports whether position i holds a single word character
// bounded by spaces or the string edges.
func isolatedChar(s string, i int) bool {
	if i < 0 || i >= len(s) || !isWordChar(s[i]) {
		return false
	}
	if i > 0 && s[i-1] != ' ' {
		return false
	}
	if i+1 < len(s) && s[i+1] != ' ' {
		return false
	}
	return true
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
