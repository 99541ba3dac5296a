// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songforge/platform/security"
)

type testSong struct {
	ID        string
	Title     string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}

func (s *testSong) EntityID() string { return s.ID }

var songColumns = []string{"id", "title", "user_id", "created_at", "updated_at", "deleted_at"}

func songDescriptor() Descriptor[*testSong] {
	return Descriptor[*testSong]{
		Schema: security.TableSchema{Table: "songs", OwnerColumn: "user_id"},
		Columns: songColumns,
		SortFields: map[string]SortField{
			"created_at": {Column: "created_at", Timestamp: true},
			"updated_at": {Column: "updated_at", Timestamp: true},
			"title":      {Column: "title"},
		},
		Scan: func(row RowScanner) (*testSong, error) {
			var s testSong
			err := row.Scan(&s.ID, &s.Title, &s.UserID, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
			if err != nil {
				return nil, err
			}
			return &s, nil
		},
		Values: func(s *testSong) []interface{} {
			return []interface{}{s.ID, s.Title, s.UserID, s.CreatedAt, s.UpdatedAt, s.DeletedAt}
		},
		SetOwner: func(s *testSong, column, value string) {
			if column == "user_id" {
				s.UserID = value
			}
		},
		OwnerOf: func(s *testSong) (string, string) {
			return s.UserID, ""
		},
		SortValue: func(s *testSong, field string) string {
			switch field {
			case "created_at":
				return s.CreatedAt.UTC().Format(time.RFC3339Nano)
			case "updated_at":
				return s.UpdatedAt.UTC().Format(time.RFC3339Nano)
			default:
				return s.Title
			}
		},
	}
}

func newTestRepo(t *testing.T) (*Repository[*testSong], sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := security.NewPatternRegistry()
	reg.Register("songs", security.UserOwned)
	guard := security.NewRowGuard(reg)

	return NewRepository(db, guard, songDescriptor(), nil), mock
}

func TestGetByIDAppliesUserFilter(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.NewString()
	songID := uuid.NewString()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, title, user_id, created_at, updated_at, deleted_at FROM songs WHERE id = $1 AND deleted_at IS NULL AND user_id = $2")).
		WithArgs(songID, userID).
		WillReturnRows(sqlmock.NewRows(songColumns).
			AddRow(songID, "Neon Skyline", userID, now, now, nil))
	mock.ExpectCommit()

	song, err := repo.GetByID(context.Background(), security.NewUserContext(userID), songID)
	require.NoError(t, err)
	assert.Equal(t, songID, song.ID)
	assert.Equal(t, "Neon Skyline", song.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM songs").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.GetByID(context.Background(), security.NewUserContext(userID), uuid.NewString())
	assert.Equal(t, security.CodeEntityNotFound, security.ErrCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDWithoutContextFails(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := repo.GetByID(context.Background(), nil, uuid.NewString())
	assert.Equal(t, security.CodeSecurityContextMissing, security.ErrCode(err))
}

func TestListEmitsNextCursorOnOverflow(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.NewString()
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(songColumns)
	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for i, id := range ids {
		ts := base.Add(-time.Duration(i) * time.Minute)
		rows.AddRow(id, "Track", userID, ts, ts, nil)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, title, user_id, created_at, updated_at, deleted_at FROM songs WHERE deleted_at IS NULL AND user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 3")).
		WithArgs(userID).
		WillReturnRows(rows)
	mock.ExpectCommit()

	page, err := repo.List(context.Background(), security.NewUserContext(userID), ListOptions{
		SortField:  "created_at",
		Descending: true,
		Limit:      2,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	cursor, err := DecodeCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, "created_at", cursor.Field)
	assert.Equal(t, ids[1], cursor.ID)
	assert.Equal(t, base.Add(-time.Minute).Format(time.RFC3339Nano), cursor.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFinalPageHasNoCursor(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.NewString()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM songs").
		WillReturnRows(sqlmock.NewRows(songColumns).
			AddRow(uuid.NewString(), "Only", userID, now, now, nil))
	mock.ExpectCommit()

	page, err := repo.List(context.Background(), security.NewUserContext(userID), ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Empty(t, page.NextCursor)
}

func TestListWithCursorKeysetComparison(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.NewString()
	cursorID := uuid.NewString()
	cursorValue := "2026-08-20T10:00:00Z"

	encoded := EncodeCursor(Cursor{Field: "updated_at", Value: cursorValue, ID: cursorID})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, title, user_id, created_at, updated_at, deleted_at FROM songs WHERE deleted_at IS NULL AND user_id = $1 AND (updated_at, id) < ($2::timestamptz, $3) ORDER BY updated_at DESC, id DESC LIMIT 51")).
		WithArgs(userID, cursorValue, cursorID).
		WillReturnRows(sqlmock.NewRows(songColumns))
	mock.ExpectCommit()

	page, err := repo.List(context.Background(), security.NewUserContext(userID), ListOptions{
		SortField:  "updated_at",
		Descending: true,
		Cursor:     encoded,
	})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRejectsMismatchedCursorField(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	encoded := EncodeCursor(Cursor{Field: "title", Value: "Neon", ID: uuid.NewString()})
	_, err := repo.List(context.Background(), security.NewUserContext(uuid.NewString()), ListOptions{
		SortField: "updated_at",
		Cursor:    encoded,
	})
	assert.Equal(t, security.CodeBadRequest, security.ErrCode(err))
}

func TestListRejectsUnknownSortField(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := repo.List(context.Background(), security.NewUserContext(uuid.NewString()), ListOptions{
		SortField: "play_count",
	})
	assert.Equal(t, security.CodeBadRequest, security.ErrCode(err))
}

func TestListWithTotal(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM songs WHERE deleted_at IS NULL AND user_id = $1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery("SELECT .+ FROM songs").
		WillReturnRows(sqlmock.NewRows(songColumns))
	mock.ExpectCommit()

	page, err := repo.List(context.Background(), security.NewUserContext(userID), ListOptions{WithTotal: true})
	require.NoError(t, err)
	require.NotNil(t, page.Total)
	assert.Equal(t, int64(42), *page.Total)
}

func TestCreateAssignsOwnership(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.NewString()
	now := time.Now().UTC()
	song := &testSong{ID: uuid.NewString(), Title: "First Light", CreatedAt: now, UpdatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO songs (id, title, user_id, created_at, updated_at, deleted_at) VALUES ($1, $2, $3, $4, $5, $6)")).
		WithArgs(song.ID, song.Title, userID, now, now, song.DeletedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), security.NewUserContext(userID), song)
	require.NoError(t, err)
	assert.Equal(t, userID, song.UserID, "row guard must stamp the owner column")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithoutOwnerFailsBeforeStore(t *testing.T) {
	repo, mock := newTestRepo(t)

	// Tenant-only context against a user-owned kind: the write must fail
	// without any INSERT reaching the store.
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.Create(context.Background(), security.NewTenantContext(uuid.NewString()), &testSong{ID: uuid.NewString()})
	assert.Equal(t, security.CodeSecurityContextInvalid, security.ErrCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateForeignRowIsNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	song := &testSong{ID: uuid.NewString(), Title: "Renamed"}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE songs SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), security.NewUserContext(uuid.NewString()), song)
	assert.Equal(t, security.CodeEntityNotFound, security.ErrCode(err))
}

func TestDeleteIsSoft(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.NewString()
	songID := uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE songs SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL AND user_id = $2")).
		WithArgs(songID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), security.NewUserContext(userID), songID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExplicitTxSharesBoundary(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.NewString()
	now := time.Now().UTC()
	song := &testSong{ID: uuid.NewString(), Title: "Two Phase", CreatedAt: now, UpdatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO songs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE songs SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sctx := security.NewUserContext(userID)
	tx, err := Begin(context.Background(), repo.db)
	require.NoError(t, err)

	require.NoError(t, repo.CreateTx(context.Background(), tx, sctx, song))
	song.Title = "Two Phase (final)"
	require.NoError(t, repo.UpdateTx(context.Background(), tx, sctx, song))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpanRollsBackOnError(t *testing.T) {
	repo, mock := newTestRepo(t)
	userID := uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO songs").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), security.NewUserContext(userID), &testSong{ID: uuid.NewString()})
	assert.Equal(t, security.CodeDatabaseError, security.ErrCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Tenant isolation: two tenants each own a model_catalog row; either
// tenant's list only carries its own filter value.
func TestTenantIsolationOnModelCatalog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := security.NewPatternRegistry()
	guard := security.NewRowGuard(reg)

	desc := Descriptor[*testModel]{
		Schema:  security.TableSchema{Table: "model_catalog", TenantColumn: "tenant_id"},
		Columns: []string{"id", "name", "tenant_id", "created_at", "updated_at", "deleted_at"},
		SortFields: map[string]SortField{
			"created_at": {Column: "created_at", Timestamp: true},
		},
		Scan: func(row RowScanner) (*testModel, error) {
			var m testModel
			if err := row.Scan(&m.ID, &m.Name, &m.TenantID, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt); err != nil {
				return nil, err
			}
			return &m, nil
		},
		Values: func(m *testModel) []interface{} {
			return []interface{}{m.ID, m.Name, m.TenantID, m.CreatedAt, m.UpdatedAt, m.DeletedAt}
		},
		SetOwner: func(m *testModel, column, value string) {
			if column == "tenant_id" {
				m.TenantID = value
			}
		},
		OwnerOf: func(m *testModel) (string, string) { return "", m.TenantID },
		SortValue: func(m *testModel, field string) string {
			return m.CreatedAt.UTC().Format(time.RFC3339Nano)
		},
	}
	repo := NewRepository(db, guard, desc, nil)

	tenantB := uuid.NewString()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, name, tenant_id, created_at, updated_at, deleted_at FROM model_catalog WHERE deleted_at IS NULL AND tenant_id = $1")).
		WithArgs(tenantB).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "tenant_id", "created_at", "updated_at", "deleted_at"}).
			AddRow(uuid.NewString(), "voice-v2", tenantB, now, now, nil))
	mock.ExpectCommit()

	page, err := repo.List(context.Background(), security.NewTenantContext(tenantB), ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, tenantB, page.Items[0].TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type testModel struct {
	ID        string
	Name      string
	TenantID  string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}

func (m *testModel) EntityID() string { return m.ID }
