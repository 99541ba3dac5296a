// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package catalog

import (
	"database/sql"
	"time"
)

// Song is the root artifact of a generation run. Lyrics, persona and
// producer notes are referenced by id and resolved on demand through
// their own repositories; no back-pointers are held.
type Song struct {
	ID        string
	Title     string
	Genre     string
	Status    string
	LyricsID  sql.NullString
	PersonaID sql.NullString
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}

func (s *Song) EntityID() string { return s.ID }

// Lyrics carries the generated text of one song, owner keyed by owner_id.
type Lyrics struct {
	ID        string
	SongID    string
	Content   string
	Language  string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}

func (l *Lyrics) EntityID() string { return l.ID }

// ProducerNote is free-form guidance attached to a song.
type ProducerNote struct {
	ID        string
	SongID    string
	Note      string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}

func (n *ProducerNote) EntityID() string { return n.ID }

// Persona is a reusable vocal/style identity, owner keyed by owner_id.
type Persona struct {
	ID          string
	Name        string
	Description string
	StyleTags   string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   sql.NullTime
}

func (p *Persona) EntityID() string { return p.ID }

// ModelCatalog is a tenant-scoped generation model registration.
type ModelCatalog struct {
	ID        string
	Name      string
	Version   string
	Active    bool
	TenantID  string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}

func (m *ModelCatalog) EntityID() string { return m.ID }

// PlayAnalytics is a scope-based rollup: readable under a user context
// when user_id matches, or under a tenant context when tenant_id matches.
type PlayAnalytics struct {
	ID        string
	SongID    string
	Plays     int64
	Skips     int64
	UserID    sql.NullString
	TenantID  sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}

func (a *PlayAnalytics) EntityID() string { return a.ID }

// BlueprintDoc is a system-managed genre policy document. Visible to every
// context; only system operations mutate it.
type BlueprintDoc struct {
	ID        string
	Genre     string
	Version   string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}

func (b *BlueprintDoc) EntityID() string { return b.ID }
