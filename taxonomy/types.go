// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package taxonomy

// ProfanityTaxonomy is the parsed profanity.yaml.
type ProfanityTaxonomy struct {
	// Categories maps severity (mild, moderate, strong, extreme) to term
	// lists. Lists are sorted before pattern compilation for determinism.
	Categories      map[string][]string          `yaml:"categories"`
	SeverityWeights map[string]float64           `yaml:"severity_weights"`
	Thresholds      map[string]ProfanityLimits   `yaml:"thresholds"`
	Whitelist       ProfanityWhitelist           `yaml:"whitelist"`
	Variations      ProfanityVariations          `yaml:"variations"`
}

// ProfanityLimits are the per-mode ceilings. A count of -1 means unlimited.
type ProfanityLimits struct {
	MaxMildCount     int     `yaml:"max_mild_count"`
	MaxModerateCount int     `yaml:"max_moderate_count"`
	MaxStrongCount   int     `yaml:"max_strong_count"`
	MaxExtremeCount  int     `yaml:"max_extreme_count"`
	MaxScore         float64 `yaml:"max_score"`
}

// ProfanityWhitelist lists non-profane substrings that suppress hits in
// their surrounding window ("classic" protects "ass").
type ProfanityWhitelist struct {
	Terms []string `yaml:"terms"`
}

// ProfanityVariations carries the per-character leetspeak substitutions.
type ProfanityVariations struct {
	LeetspeakPatterns map[string][]string `yaml:"leetspeak_patterns"`
}

// PIITaxonomy is the parsed pii_patterns.yaml.
type PIITaxonomy struct {
	Patterns     map[string]PIIPattern `yaml:"patterns"`
	NamePatterns NamePatterns          `yaml:"name_patterns"`
	Allowlist    []string              `yaml:"allowlist"`
	Validation   PIIValidation         `yaml:"validation"`
}

// PIIPattern is one structured detector: a regex, a redaction placeholder,
// and a confidence.
type PIIPattern struct {
	Regex       string  `yaml:"regex"`
	Placeholder string  `yaml:"placeholder"`
	Confidence  float64 `yaml:"confidence"`
}

// NamePatterns carries the personal-name detection templates.
type NamePatterns struct {
	PatternTemplates []NameTemplate `yaml:"pattern_templates"`
}

// NameTemplate is one name-detection regex with a confidence.
type NameTemplate struct {
	Regex      string  `yaml:"regex"`
	Confidence float64 `yaml:"confidence"`
}

// PIIValidation tunes detection.
type PIIValidation struct {
	MinNameConfidence float64 `yaml:"min_name_confidence"`
}

// ArtistRegistry is the parsed artist_registry.yaml.
type ArtistRegistry struct {
	// LivingArtists maps genre to its registered artists.
	LivingArtists         map[string][]ArtistEntry `yaml:"living_artists"`
	GenericDescriptions   map[string]string        `yaml:"generic_descriptions"`
	NormalizationPatterns []string                 `yaml:"normalization_patterns"`
	FuzzyMatching         FuzzyMatching            `yaml:"fuzzy_matching"`
	PolicyModes           []string                 `yaml:"policy_modes"`
	AuditConfig           AuditConfig              `yaml:"audit_config"`
}

// ArtistEntry is one registered living artist.
type ArtistEntry struct {
	Name               string   `yaml:"name"`
	Aliases            []string `yaml:"aliases"`
	GenericDescription string   `yaml:"generic_description"`
	StyleTags          []string `yaml:"style_tags"`
}

// FuzzyMatching tunes alias fuzzy lookup.
type FuzzyMatching struct {
	Enabled                bool    `yaml:"enabled"`
	MinSimilarityThreshold float64 `yaml:"min_similarity_threshold"`
}

// AuditConfig controls approval audit persistence.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Table   string `yaml:"table"`
}

// RubricOverrides is the parsed rubric_overrides.yaml.
type RubricOverrides struct {
	Overrides  map[string]RubricOverride `yaml:"overrides"`
	ABTests    map[string]ABTest         `yaml:"ab_tests"`
	Validation OverrideValidation        `yaml:"validation"`
	Logging    OverrideLogging           `yaml:"logging"`
}

// RubricOverride replaces blueprint weights and thresholds for one genre.
type RubricOverride struct {
	Weights    map[string]float64 `yaml:"weights"`
	Thresholds RubricThresholds   `yaml:"thresholds"`
}

// RubricThresholds carry the pass bars. Zero values mean "not overridden".
type RubricThresholds struct {
	MinTotal     float64 `yaml:"min_total"`
	MaxProfanity float64 `yaml:"max_profanity"`
}

// ABTest is an override branch enabled by id for a set of genres.
type ABTest struct {
	Enabled   bool           `yaml:"enabled"`
	Genres    []string       `yaml:"genres"`
	Overrides RubricOverride `yaml:"overrides"`
}

// OverrideValidation tunes override acceptance.
type OverrideValidation struct {
	RequireWeightsSumToOne bool     `yaml:"require_weights_sum_to_one"`
	WeightSumTolerance     float64  `yaml:"weight_sum_tolerance"`
	RequiredMetrics        []string `yaml:"required_metrics"`
}

// OverrideLogging controls fallback warnings.
type OverrideLogging struct {
	WarnOnFallback bool `yaml:"warn_on_fallback"`
}
