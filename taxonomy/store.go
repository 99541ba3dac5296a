// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package taxonomy

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"songforge/platform/shared/logger"
)

// File names expected in the taxonomy directory.
const (
	ProfanityFile = "profanity.yaml"
	PIIFile       = "pii_patterns.yaml"
	ArtistFile    = "artist_registry.yaml"
	OverridesFile = "rubric_overrides.yaml"
)

// Tables is one immutable snapshot of every taxonomy. Workers share a
// snapshot freely; a reload publishes a fresh snapshot, never mutates.
type Tables struct {
	Profanity ProfanityTaxonomy
	PII       PIITaxonomy
	Artists   ArtistRegistry
	Overrides RubricOverrides
}

// Store holds the current taxonomy snapshot behind an atomic pointer.
type Store struct {
	dir     string
	current atomic.Pointer[Tables]
	log     *logger.Logger
}

// Load reads every taxonomy file from dir. A failure here is fatal to
// startup: the caller gets an error and no Store.
func Load(dir string) (*Store, error) {
	s := &Store{dir: dir, log: logger.New("taxonomy")}
	tables, err := s.read()
	if err != nil {
		return nil, err
	}
	s.current.Store(tables)
	return s, nil
}

// Current returns the active snapshot.
func (s *Store) Current() *Tables {
	return s.current.Load()
}

// Reload re-reads the taxonomy directory and swaps the snapshot. On any
// failure the previously loaded tables stay in place and a warning is
// logged; the error is also returned for callers that care.
func (s *Store) Reload() error {
	tables, err := s.read()
	if err != nil {
		s.log.Warn("", "", "", "taxonomy reload failed, keeping previous tables", map[string]interface{}{
			"dir":   s.dir,
			"error": err.Error(),
		})
		return err
	}
	s.current.Store(tables)
	s.log.Info("", "", "", "taxonomy reloaded", map[string]interface{}{"dir": s.dir})
	return nil
}

func (s *Store) read() (*Tables, error) {
	var tables Tables

	if err := readYAML(filepath.Join(s.dir, ProfanityFile), &tables.Profanity); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(s.dir, PIIFile), &tables.PII); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(s.dir, ArtistFile), &tables.Artists); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(s.dir, OverridesFile), &tables.Overrides); err != nil {
		return nil, err
	}
	return &tables, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read taxonomy file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse taxonomy file %s: %w", path, err)
	}
	return nil
}
