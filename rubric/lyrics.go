// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package rubric

import (
	"regexp"
	"strings"
)

// Section is one labeled block of lyric lines.
type Section struct {
	Name  string
	Type  string
	Lines []string
}

var sectionHeaderRe = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*$`)

// ParseLyrics splits lyric text into sections on [Name] header lines.
// Text before the first header lands in an unlabeled verse section. Blank
// lines are dropped from section bodies.
func ParseLyrics(text string) []Section {
	var sections []Section
	current := Section{Name: "", Type: "verse"}

	flush := func() {
		if len(current.Lines) > 0 {
			sections = append(sections, current)
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		if m := sectionHeaderRe.FindStringSubmatch(raw); m != nil {
			flush()
			name := strings.TrimSpace(m[1])
			current = Section{Name: name, Type: NormalizeSectionName(name)}
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		current.Lines = append(current.Lines, line)
	}
	flush()
	return sections
}

// allLines returns every line across sections, in order.
func allLines(sections []Section) []string {
	var out []string
	for _, s := range sections {
		out = append(out, s.Lines...)
	}
	return out
}

// lineCount counts all lines across sections.
func lineCount(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Lines)
	}
	return n
}

var nonLetterRe = regexp.MustCompile(`[^a-z']+`)

// words lowercases and tokenizes a line, stripping punctuation.
func words(line string) []string {
	cleaned := nonLetterRe.ReplaceAllString(strings.ToLower(line), " ")
	return strings.Fields(cleaned)
}

// lastWord returns the final word of a line, or empty.
func lastWord(line string) string {
	ws := words(line)
	if len(ws) == 0 {
		return ""
	}
	return strings.Trim(ws[len(ws)-1], "'")
}

// syllables estimates the syllable count of a word with a vowel-group
// heuristic: contiguous vowel runs count once, a silent terminal e is
// dropped, and every word counts at least one.
func syllables(word string) int {
	w := strings.ToLower(strings.Trim(word, "'"))
	if w == "" {
		return 0
	}

	count := 0
	prevVowel := false
	for _, r := range w {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}

	if count > 1 && strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
