package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kasperlindh/hunt-platform/internal/session"
)

func TestSessionRepository_SaveSnapshot(t *testing.T) {
	db := new(mockDB)
	repo := NewSessionRepository(db)

	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := repo.SaveSnapshot(context.Background(), &session.TeamSession{TeamID: uuid.New(), GameID: "g1"})
	assert.NoError(t, err)
	db.AssertExpectations(t)
}

func TestSessionRepository_GetSnapshotMissing(t *testing.T) {
	db := new(mockDB)
	repo := NewSessionRepository(db)

	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&fakeRow{err: pgx.ErrNoRows})

	sess, err := repo.GetSnapshot(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, sess, "a missing snapshot is not an error")
}

func TestSessionRepository_GetSnapshotRoundTrip(t *testing.T) {
	db := new(mockDB)
	repo := NewSessionRepository(db)

	teamID := uuid.New()
	want := &session.TeamSession{TeamID: teamID, GameID: "g1", Score: 150}
	data, _ := json.Marshal(want)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&fakeRow{data: data})

	got, err := repo.GetSnapshot(context.Background(), teamID)
	assert.NoError(t, err)
	assert.Equal(t, want.TeamID, got.TeamID)
	assert.Equal(t, 150, got.Score)
}

func TestSessionRepository_DeleteSnapshot(t *testing.T) {
	db := new(mockDB)
	repo := NewSessionRepository(db)

	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := repo.DeleteSnapshot(context.Background(), uuid.New())
	assert.NoError(t, err)
	db.AssertExpectations(t)
}
