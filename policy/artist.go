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

// captureGroup matches a run of up to four capitalized words, the shape of
// an artist name inside a normalization pattern.
const captureGroup = `([A-Z][A-Za-z0-9.'\-]*(?:\s+[A-Z][A-Za-z0-9.'\-]*){0,3})`

// ArtistReference is one detected mention of a registered living artist.
type ArtistReference struct {
	Artist   string // canonical name
	Matched  string // text as written
	Genre    string
	Position int
	End      int
	Template string
}

type artistRecord struct {
	entry taxonomy.ArtistEntry
	genre string
}

type artistPattern struct {
	template string
	re       *regexp.Regexp
}

// ArtistNormalizer detects references to registered living artists and
// rewrites them to generic descriptions. Lookup goes canonical name, then
// alias, then fuzzy match above the configured similarity threshold.
type ArtistNormalizer struct {
	patterns  []artistPattern
	canonical map[string]artistRecord // lowercased canonical name
	aliases   map[string]string       // lowercased alias -> lowercased canonical
	generic   map[string]string       // genre -> fallback description
	fuzzy     bool
	threshold float64
}

// NewArtistNormalizer compiles the registry. Pattern templates carry an
// {artist} slot which becomes a capitalized-words capture group.
func NewArtistNormalizer(reg taxonomy.ArtistRegistry) (*ArtistNormalizer, error) {
	n := &ArtistNormalizer{
		canonical: make(map[string]artistRecord),
		aliases:   make(map[string]string),
		generic:   reg.GenericDescriptions,
		fuzzy:     reg.FuzzyMatching.Enabled,
		threshold: reg.FuzzyMatching.MinSimilarityThreshold,
	}
	if n.threshold == 0 {
		n.threshold = 0.85
	}

	genres := make([]string, 0, len(reg.LivingArtists))
	for genre := range reg.LivingArtists {
		genres = append(genres, genre)
	}
	sort.Strings(genres)
	for _, genre := range genres {
		for _, entry := range reg.LivingArtists[genre] {
			key := strings.ToLower(entry.Name)
			n.canonical[key] = artistRecord{entry: entry, genre: genre}
			for _, alias := range entry.Aliases {
				n.aliases[strings.ToLower(alias)] = key
			}
		}
	}

	for _, tpl := range reg.NormalizationPatterns {
		if !strings.Contains(tpl, "{artist}") {
			return nil, fmt.Errorf("normalization pattern %q has no {artist} slot", tpl)
		}
		parts := strings.SplitN(tpl, "{artist}", 2)
		expr := `(?i:` + regexp.QuoteMeta(parts[0]) + `)` + captureGroup + `(?i:` + regexp.QuoteMeta(parts[1]) + `)`
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile normalization pattern %q: %w", tpl, err)
		}
		n.patterns = append(n.patterns, artistPattern{template: tpl, re: re})
	}
	return n, nil
}

// DetectReferences scans text with every normalization pattern and keeps
// captures that resolve to a registered artist. At most one reference per
// position is reported.
func (n *ArtistNormalizer) DetectReferences(text string) []ArtistReference {
	var refs []ArtistReference
	claimed := make(map[int]bool)

	for _, p := range n.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if claimed[loc[0]] {
				continue
			}
			captured := text[loc[2]:loc[3]]
			record, ok := n.resolve(captured)
			if !ok {
				continue
			}
			claimed[loc[0]] = true
			refs = append(refs, ArtistReference{
				Artist:   record.entry.Name,
				Matched:  captured,
				Genre:    record.genre,
				Position: loc[0],
				End:      loc[1],
				Template: p.template,
			})
		}
	}

	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Position < refs[j].Position })
	return refs
}

// Normalize replaces every detected reference with a generic description
// derived from the pattern template. Replacements run in reverse position
// order; the output is a fixed point of Normalize.
func (n *ArtistNormalizer) Normalize(text string) string {
	refs := n.DetectReferences(text)
	out := text
	for i := len(refs) - 1; i >= 0; i-- {
		ref := refs[i]
		out = out[:ref.Position] + n.replacement(ref) + out[ref.End:]
	}
	return out
}

// replacement renders the pattern template with the artist slot filled by
// the generic description. Descriptions are lowercase prose, so a second
// normalization pass finds nothing to replace.
func (n *ArtistNormalizer) replacement(ref ArtistReference) string {
	record := n.canonical[strings.ToLower(ref.Artist)]
	desc := record.entry.GenericDescription
	if desc == "" {
		desc = n.generic[ref.Genre]
	}
	if desc == "" {
		desc = "a contemporary artist"
	}
	return strings.Replace(ref.Template, "{artist}", desc, 1)
}

// resolve looks a captured name up: exact canonical, then alias, then
// fuzzy similarity against both when enabled.
func (n *ArtistNormalizer) resolve(captured string) (artistRecord, bool) {
	key := strings.ToLower(strings.TrimSpace(captured))

	if rec, ok := n.canonical[key]; ok {
		return rec, true
	}
	if canon, ok := n.aliases[key]; ok {
		return n.canonical[canon], true
	}
	if !n.fuzzy {
		return artistRecord{}, false
	}

	best := ""
	bestRatio := 0.0
	for canon := range n.canonical {
		if r := similarity(key, canon); r > bestRatio {
			best, bestRatio = canon, r
		}
	}
	for alias, canon := range n.aliases {
		if r := similarity(key, alias); r > bestRatio {
			best, bestRatio = canon, r
		}
	}
	if bestRatio >= n.threshold {
		return n.canonical[best], true
	}
	return artistRecord{}, false
}

// similarity is a Levenshtein ratio in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}

	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}

	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return 1 - float64(prev[lb])/float64(maxLen)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
