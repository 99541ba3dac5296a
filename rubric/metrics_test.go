// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package rubric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookDensityRepeatedChorus(t *testing.T) {
	sections := []Section{
		{Type: "verse", Lines: []string{
			"walking down a lonely road",
			"carrying a heavy load",
		}},
		{Type: "chorus", Lines: []string{
			"hold on to the fire we made",
			"hold on to the fire we made",
		}},
		{Type: "chorus", Lines: []string{
			"hold on to the fire we made",
			"hold on to the fire we made",
		}},
	}

	m := hookDensity(sections)
	// 4 chorus lines carry the recurring phrase at weight 1.5 over 6 lines.
	assert.InDelta(t, 1.0, m.Score, 0.001)
	assert.Equal(t, 4, m.Debug["hook_lines"])
}

func TestHookDensityNoRepetition(t *testing.T) {
	sections := []Section{
		{Type: "verse", Lines: []string{
			"every line is different here",
			"nothing ever reappears",
		}},
	}
	m := hookDensity(sections)
	assert.Zero(t, m.Score)
}

func TestHookDensityEmpty(t *testing.T) {
	assert.Zero(t, hookDensity(nil).Score)
}

func TestRhymeTightnessConsecutivePairs(t *testing.T) {
	sections := []Section{{Type: "verse", Lines: []string{
		"we ride into the night",
		"chasing down the light",
		"the river starts to flow",
		"and carries us below",
	}}}

	m := rhymeTightness(sections, rhymes)
	assert.InDelta(t, 1.0, m.Score, 0.001)
	assert.Equal(t, 2, m.Debug["matched_pairs"])
}

func TestRhymeTightnessAlternatingPairs(t *testing.T) {
	sections := []Section{{Type: "verse", Lines: []string{
		"we ride into the night",
		"the river starts to flow",
		"chasing down the light",
		"and carries us below",
	}}}

	m := rhymeTightness(sections, rhymes)
	assert.InDelta(t, 1.0, m.Score, 0.001)
}

func TestRhymeTightnessIdenticalWordsDoNotRhyme(t *testing.T) {
	sections := []Section{{Type: "verse", Lines: []string{
		"say it again tonight",
		"say it again tonight",
	}}}

	m := rhymeTightness(sections, rhymes)
	assert.Zero(t, m.Score)
}

func TestSectionCompleteness(t *testing.T) {
	required := []string{"verse", "chorus", "bridge"}

	full := []Section{
		{Type: "verse", Lines: []string{"a", "b"}},
		{Type: "chorus", Lines: []string{"c", "d"}},
		{Type: "bridge", Lines: []string{"e", "f"}},
	}
	assert.InDelta(t, 1.0, sectionCompleteness(full, required).Score, 0.001)

	missingBridge := full[:2]
	m := sectionCompleteness(missingBridge, required)
	assert.InDelta(t, 2.0/3.0, m.Score, 0.001)
	assert.Equal(t, []string{"bridge"}, m.Debug["missing_sections"])

	thinChorus := []Section{
		{Type: "verse", Lines: []string{"a", "b"}},
		{Type: "chorus", Lines: []string{"c"}},
		{Type: "bridge", Lines: []string{"e", "f"}},
	}
	m = sectionCompleteness(thinChorus, required)
	assert.InDelta(t, 0.9, m.Score, 0.001)
	assert.Equal(t, []string{"chorus"}, m.Debug["thin_sections"])
}

func TestSingabilityRewardsConsistency(t *testing.T) {
	even := []Section{{Type: "verse", Lines: []string{
		"we ride the wind tonight",
		"we chase the fading light",
		"the city hums below",
		"we go where rivers flow",
	}}}
	ragged := []Section{{Type: "verse", Lines: []string{
		"go",
		"incomprehensibility overwhelms the unintelligible extraordinary circumlocution",
		"yes",
		"the interminable consequential deliberations of the administration",
	}}}

	evenScore := singability(even).Score
	raggedScore := singability(ragged).Score
	require.Greater(t, evenScore, 0.9)
	assert.Greater(t, evenScore, raggedScore)
}

func TestVariance(t *testing.T) {
	assert.Zero(t, variance(nil))
	assert.Zero(t, variance([]float64{3, 3, 3}))
	assert.InDelta(t, 4.0, variance([]float64{2, 6}), 0.001)
}

func TestRhymes(t *testing.T) {
	assert.True(t, rhymes("night", "light"))
	assert.True(t, rhymes("flow", "below"))
	assert.True(t, rhymes("go", "so"))
	assert.False(t, rhymes("night", "night"))
	assert.False(t, rhymes("night", "flow"))
	assert.False(t, rhymes("", "flow"))
}

func TestPhoneticRhymes(t *testing.T) {
	// The visual check already sees stone/alone; the phonetic variant
	// additionally matches once the silent e is stripped.
	assert.True(t, phoneticRhymes("stone", "alone"))
	assert.True(t, phoneticRhymes("mine", "line"))
	assert.False(t, phoneticRhymes("stone", "storm"))
	assert.False(t, phoneticRhymes("stone", "stone"))
}
