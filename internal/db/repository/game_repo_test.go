package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kasperlindh/hunt-platform/internal/game"
)

type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	called := m.Called(ctx, sql, args)
	return called.Get(0).(pgconn.CommandTag), called.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	called := m.Called(ctx, sql, args)
	return called.Get(0).(pgx.Row)
}

type fakeRow struct {
	data []byte
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.data
	return nil
}

func TestGameRepository_Insert(t *testing.T) {
	db := new(mockDB)
	repo := NewGameRepository(db)

	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := repo.Insert(context.Background(), &game.Definition{ID: "g1", Title: "Hunt"})
	assert.NoError(t, err)
	db.AssertExpectations(t)
}

func TestGameRepository_InsertDuplicate(t *testing.T) {
	db := new(mockDB)
	repo := NewGameRepository(db)

	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"})

	err := repo.Insert(context.Background(), &game.Definition{ID: "g1"})
	assert.ErrorIs(t, err, game.ErrGameAlreadyPublished)
}

func TestGameRepository_GetNotFound(t *testing.T) {
	db := new(mockDB)
	repo := NewGameRepository(db)

	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&fakeRow{err: pgx.ErrNoRows})

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, game.ErrGameNotFound)
}

func TestGameRepository_GetRoundTrip(t *testing.T) {
	db := new(mockDB)
	repo := NewGameRepository(db)

	def := &game.Definition{ID: "g1", Title: "Hunt", EntryPointIDs: []string{"p1"}}
	data, _ := json.Marshal(def)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&fakeRow{data: data})

	got, err := repo.Get(context.Background(), "g1")
	assert.NoError(t, err)
	assert.Equal(t, def, got)
}
