// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"flag"
	"fmt"
	"os"

	"songforge/platform/policy"
	"songforge/platform/rubric"
	"songforge/platform/taxonomy"
)

func main() {
	taxDir := flag.String("taxonomies", "taxonomies", "directory holding the taxonomy YAML files")
	bpDir := flag.String("blueprints", "", "optional directory of blueprint markdown files")
	flag.Parse()

	if err := lint(*taxDir, *bpDir); err != nil {
		fmt.Fprintf(os.Stderr, "taxlint: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("taxlint: ok")
}

// lint loads every taxonomy the service would load at startup and runs
// the same compilation and validation paths, so a bad file fails here
// instead of in production.
func lint(taxDir, bpDir string) error {
	store, err := taxonomy.Load(taxDir)
	if err != nil {
		return err
	}
	tables := store.Current()

	if _, err := policy.NewProfanityFilter(tables.Profanity); err != nil {
		return fmt.Errorf("profanity taxonomy: %w", err)
	}
	if _, err := policy.NewPIIDetector(tables.PII); err != nil {
		return fmt.Errorf("pii taxonomy: %w", err)
	}
	if _, err := policy.NewArtistNormalizer(tables.Artists); err != nil {
		return fmt.Errorf("artist registry: %w", err)
	}
	if err := rubric.ValidateOverrides(&tables.Overrides); err != nil {
		return fmt.Errorf("rubric overrides: %w", err)
	}
	fmt.Printf("taxonomies: %d profanity categories, %d pii patterns, %d artist genres\n",
		len(tables.Profanity.Categories), len(tables.PII.Patterns), len(tables.Artists.LivingArtists))

	if bpDir == "" {
		return nil
	}
	blueprints, err := rubric.LoadBlueprintDir(bpDir)
	if err != nil {
		return err
	}
	for genre, bp := range blueprints {
		if bp.TempoMin > bp.TempoMax {
			return fmt.Errorf("blueprint %s: tempo range %d-%d inverted", genre, bp.TempoMin, bp.TempoMax)
		}
	}
	fmt.Printf("blueprints: %d parsed\n", len(blueprints))
	return nil
}
