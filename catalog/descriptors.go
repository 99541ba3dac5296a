// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package catalog

import (
	"time"

	"songforge/platform/security"
	"songforge/platform/store"
)

func timestampSorts() map[string]store.SortField {
	return map[string]store.SortField{
		"created_at": {Column: "created_at", Timestamp: true},
		"updated_at": {Column: "updated_at", Timestamp: true},
	}
}

func rfc3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// RegisterPatterns classifies every catalog kind in the pattern registry.
// The analytics and model kinds would also be caught by the prefix
// heuristics; exact registration keeps classification explicit.
func RegisterPatterns(reg *security.PatternRegistry) {
	reg.Register("songs", security.UserOwned)
	reg.Register("lyrics", security.UserOwned)
	reg.Register("producer_notes", security.UserOwned)
	reg.Register("personas", security.UserOwned)
	reg.Register("model_catalog", security.TenantOwned)
	reg.Register("play_analytics", security.ScopeBased)
	reg.Register("blueprint_docs", security.SystemManaged)
}

// SongDescriptor binds the songs table to the repository layer.
func SongDescriptor() store.Descriptor[*Song] {
	return store.Descriptor[*Song]{
		Schema:     security.TableSchema{Table: "songs", OwnerColumn: "user_id"},
		Columns:    []string{"id", "title", "genre", "status", "lyrics_id", "persona_id", "user_id", "created_at", "updated_at", "deleted_at"},
		SortFields: withTitleSort(timestampSorts()),
		Scan: func(row store.RowScanner) (*Song, error) {
			var s Song
			err := row.Scan(&s.ID, &s.Title, &s.Genre, &s.Status, &s.LyricsID, &s.PersonaID, &s.UserID, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
			if err != nil {
				return nil, err
			}
			return &s, nil
		},
		Values: func(s *Song) []interface{} {
			return []interface{}{s.ID, s.Title, s.Genre, s.Status, s.LyricsID, s.PersonaID, s.UserID, s.CreatedAt, s.UpdatedAt, s.DeletedAt}
		},
		SetOwner: func(s *Song, column, value string) {
			if column == "user_id" {
				s.UserID = value
			}
		},
		OwnerOf: func(s *Song) (string, string) { return s.UserID, "" },
		SortValue: func(s *Song, field string) string {
			switch field {
			case "updated_at":
				return rfc3339(s.UpdatedAt)
			case "title":
				return s.Title
			default:
				return rfc3339(s.CreatedAt)
			}
		},
	}
}

func withTitleSort(sorts map[string]store.SortField) map[string]store.SortField {
	sorts["title"] = store.SortField{Column: "title"}
	return sorts
}

// LyricsDescriptor binds the lyrics table. The owner column is owner_id,
// exercising the user-owned column asymmetry.
func LyricsDescriptor() store.Descriptor[*Lyrics] {
	return store.Descriptor[*Lyrics]{
		Schema:     security.TableSchema{Table: "lyrics", OwnerColumn: "owner_id"},
		Columns:    []string{"id", "song_id", "content", "language", "owner_id", "created_at", "updated_at", "deleted_at"},
		SortFields: timestampSorts(),
		Scan: func(row store.RowScanner) (*Lyrics, error) {
			var l Lyrics
			err := row.Scan(&l.ID, &l.SongID, &l.Content, &l.Language, &l.OwnerID, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt)
			if err != nil {
				return nil, err
			}
			return &l, nil
		},
		Values: func(l *Lyrics) []interface{} {
			return []interface{}{l.ID, l.SongID, l.Content, l.Language, l.OwnerID, l.CreatedAt, l.UpdatedAt, l.DeletedAt}
		},
		SetOwner: func(l *Lyrics, column, value string) {
			if column == "owner_id" {
				l.OwnerID = value
			}
		},
		OwnerOf: func(l *Lyrics) (string, string) { return l.OwnerID, "" },
		SortValue: func(l *Lyrics, field string) string {
			if field == "updated_at" {
				return rfc3339(l.UpdatedAt)
			}
			return rfc3339(l.CreatedAt)
		},
	}
}

// ProducerNoteDescriptor binds the producer_notes table.
func ProducerNoteDescriptor() store.Descriptor[*ProducerNote] {
	return store.Descriptor[*ProducerNote]{
		Schema:     security.TableSchema{Table: "producer_notes", OwnerColumn: "user_id"},
		Columns:    []string{"id", "song_id", "note", "user_id", "created_at", "updated_at", "deleted_at"},
		SortFields: timestampSorts(),
		Scan: func(row store.RowScanner) (*ProducerNote, error) {
			var n ProducerNote
			err := row.Scan(&n.ID, &n.SongID, &n.Note, &n.UserID, &n.CreatedAt, &n.UpdatedAt, &n.DeletedAt)
			if err != nil {
				return nil, err
			}
			return &n, nil
		},
		Values: func(n *ProducerNote) []interface{} {
			return []interface{}{n.ID, n.SongID, n.Note, n.UserID, n.CreatedAt, n.UpdatedAt, n.DeletedAt}
		},
		SetOwner: func(n *ProducerNote, column, value string) {
			if column == "user_id" {
				n.UserID = value
			}
		},
		OwnerOf: func(n *ProducerNote) (string, string) { return n.UserID, "" },
		SortValue: func(n *ProducerNote, field string) string {
			if field == "updated_at" {
				return rfc3339(n.UpdatedAt)
			}
			return rfc3339(n.CreatedAt)
		},
	}
}

// PersonaDescriptor binds the personas table, owner keyed by owner_id.
func PersonaDescriptor() store.Descriptor[*Persona] {
	return store.Descriptor[*Persona]{
		Schema:     security.TableSchema{Table: "personas", OwnerColumn: "owner_id"},
		Columns:    []string{"id", "name", "description", "style_tags", "owner_id", "created_at", "updated_at", "deleted_at"},
		SortFields: timestampSorts(),
		Scan: func(row store.RowScanner) (*Persona, error) {
			var p Persona
			err := row.Scan(&p.ID, &p.Name, &p.Description, &p.StyleTags, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
			if err != nil {
				return nil, err
			}
			return &p, nil
		},
		Values: func(p *Persona) []interface{} {
			return []interface{}{p.ID, p.Name, p.Description, p.StyleTags, p.OwnerID, p.CreatedAt, p.UpdatedAt, p.DeletedAt}
		},
		SetOwner: func(p *Persona, column, value string) {
			if column == "owner_id" {
				p.OwnerID = value
			}
		},
		OwnerOf: func(p *Persona) (string, string) { return p.OwnerID, "" },
		SortValue: func(p *Persona, field string) string {
			if field == "updated_at" {
				return rfc3339(p.UpdatedAt)
			}
			return rfc3339(p.CreatedAt)
		},
	}
}

// ModelCatalogDescriptor binds the tenant-owned model_catalog table.
func ModelCatalogDescriptor() store.Descriptor[*ModelCatalog] {
	return store.Descriptor[*ModelCatalog]{
		Schema:     security.TableSchema{Table: "model_catalog", TenantColumn: "tenant_id"},
		Columns:    []string{"id", "name", "version", "active", "tenant_id", "created_at", "updated_at", "deleted_at"},
		SortFields: timestampSorts(),
		Scan: func(row store.RowScanner) (*ModelCatalog, error) {
			var m ModelCatalog
			err := row.Scan(&m.ID, &m.Name, &m.Version, &m.Active, &m.TenantID, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt)
			if err != nil {
				return nil, err
			}
			return &m, nil
		},
		Values: func(m *ModelCatalog) []interface{} {
			return []interface{}{m.ID, m.Name, m.Version, m.Active, m.TenantID, m.CreatedAt, m.UpdatedAt, m.DeletedAt}
		},
		SetOwner: func(m *ModelCatalog, column, value string) {
			if column == "tenant_id" {
				m.TenantID = value
			}
		},
		OwnerOf: func(m *ModelCatalog) (string, string) { return "", m.TenantID },
		SortValue: func(m *ModelCatalog, field string) string {
			if field == "updated_at" {
				return rfc3339(m.UpdatedAt)
			}
			return rfc3339(m.CreatedAt)
		},
	}
}

// PlayAnalyticsDescriptor binds the scope-based play_analytics table,
// which carries both ownership columns.
func PlayAnalyticsDescriptor() store.Descriptor[*PlayAnalytics] {
	return store.Descriptor[*PlayAnalytics]{
		Schema:     security.TableSchema{Table: "play_analytics", OwnerColumn: "user_id", TenantColumn: "tenant_id"},
		Columns:    []string{"id", "song_id", "plays", "skips", "user_id", "tenant_id", "created_at", "updated_at", "deleted_at"},
		SortFields: timestampSorts(),
		Scan: func(row store.RowScanner) (*PlayAnalytics, error) {
			var a PlayAnalytics
			err := row.Scan(&a.ID, &a.SongID, &a.Plays, &a.Skips, &a.UserID, &a.TenantID, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
			if err != nil {
				return nil, err
			}
			return &a, nil
		},
		Values: func(a *PlayAnalytics) []interface{} {
			return []interface{}{a.ID, a.SongID, a.Plays, a.Skips, a.UserID, a.TenantID, a.CreatedAt, a.UpdatedAt, a.DeletedAt}
		},
		SetOwner: func(a *PlayAnalytics, column, value string) {
			switch column {
			case "user_id":
				a.UserID.String, a.UserID.Valid = value, true
			case "tenant_id":
				a.TenantID.String, a.TenantID.Valid = value, true
			}
		},
		OwnerOf: func(a *PlayAnalytics) (string, string) {
			return a.UserID.String, a.TenantID.String
		},
		SortValue: func(a *PlayAnalytics, field string) string {
			if field == "updated_at" {
				return rfc3339(a.UpdatedAt)
			}
			return rfc3339(a.CreatedAt)
		},
	}
}

// BlueprintDocDescriptor binds the system-managed blueprint_docs table.
func BlueprintDocDescriptor() store.Descriptor[*BlueprintDoc] {
	return store.Descriptor[*BlueprintDoc]{
		Schema:     security.TableSchema{Table: "blueprint_docs"},
		Columns:    []string{"id", "genre", "version", "body", "created_at", "updated_at", "deleted_at"},
		SortFields: timestampSorts(),
		Scan: func(row store.RowScanner) (*BlueprintDoc, error) {
			var b BlueprintDoc
			err := row.Scan(&b.ID, &b.Genre, &b.Version, &b.Body, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt)
			if err != nil {
				return nil, err
			}
			return &b, nil
		},
		Values: func(b *BlueprintDoc) []interface{} {
			return []interface{}{b.ID, b.Genre, b.Version, b.Body, b.CreatedAt, b.UpdatedAt, b.DeletedAt}
		},
		SetOwner:  func(b *BlueprintDoc, column, value string) {},
		OwnerOf:   func(b *BlueprintDoc) (string, string) { return "", "" },
		SortValue: func(b *BlueprintDoc, field string) string {
			if field == "updated_at" {
				return rfc3339(b.UpdatedAt)
			}
			return rfc3339(b.CreatedAt)
		},
	}
}
