// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package rubric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLyricsSections(t *testing.T) {
	text := `[Verse 1]
First line
Second line

[Chorus]
Hook line
Hook line again

[Bridge]
Turnaround
`
	sections := ParseLyrics(text)
	require.Len(t, sections, 3)

	assert.Equal(t, "Verse 1", sections[0].Name)
	assert.Equal(t, "verse", sections[0].Type)
	assert.Equal(t, []string{"First line", "Second line"}, sections[0].Lines)

	assert.Equal(t, "chorus", sections[1].Type)
	assert.Len(t, sections[1].Lines, 2)

	assert.Equal(t, "bridge", sections[2].Type)
	assert.Equal(t, 5, lineCount(sections))
}

func TestParseLyricsUnlabeledPreamble(t *testing.T) {
	text := "Loose opening line\n\n[Chorus]\nHook\n"
	sections := ParseLyrics(text)
	require.Len(t, sections, 2)

	// Text before the first header is treated as an unnamed verse.
	assert.Equal(t, "", sections[0].Name)
	assert.Equal(t, "verse", sections[0].Type)
	assert.Equal(t, []string{"Loose opening line"}, sections[0].Lines)
}

func TestParseLyricsEmpty(t *testing.T) {
	assert.Empty(t, ParseLyrics(""))
	assert.Empty(t, ParseLyrics("\n\n[Chorus]\n\n"))
}

func TestWordsAndLastWord(t *testing.T) {
	assert.Equal(t, []string{"don't", "stop", "me", "now"}, words("Don't stop me, now!"))
	assert.Equal(t, "now", lastWord("Don't stop me, now!"))
	assert.Equal(t, "", lastWord("..."))
}

func TestSyllables(t *testing.T) {
	cases := map[string]int{
		"cat":     1,
		"hello":   2,
		"made":    1,
		"fire":    1,
		"table":   2,
		"every":   3,
		"rhythm":  1,
		"parade":  2,
		"tonight": 2,
	}
	for word, want := range cases {
		assert.Equal(t, want, syllables(word), "word %q", word)
	}
}
