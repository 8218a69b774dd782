package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kasperlindh/hunt-platform/internal/session"
)

// SessionRepository keeps durable JSONB snapshots of team sessions behind
// the hot Redis store. It satisfies session.Archiver.
type SessionRepository struct {
	db dbtx
}

// NewSessionRepository constructs a session repository over a pgx pool.
func NewSessionRepository(db dbtx) *SessionRepository {
	return &SessionRepository{db: db}
}

var _ session.Archiver = (*SessionRepository)(nil)

// SaveSnapshot upserts the latest state for a team.
func (r *SessionRepository) SaveSnapshot(ctx context.Context, sess *session.TeamSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO team_sessions (team_id, game_id, state, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (team_id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		sess.TeamID, sess.GameID, data,
	)
	if err != nil {
		return fmt.Errorf("upsert session snapshot: %w", err)
	}
	return nil
}

// GetSnapshot loads the last persisted state for a team, used to rehydrate
// the hot store after a Redis flush. A missing snapshot is (nil, nil).
func (r *SessionRepository) GetSnapshot(ctx context.Context, teamID uuid.UUID) (*session.TeamSession, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT state FROM team_sessions WHERE team_id = $1`, teamID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session snapshot: %w", err)
	}

	var sess session.TeamSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// DeleteSnapshot removes a team's snapshot on teardown.
func (r *SessionRepository) DeleteSnapshot(ctx context.Context, teamID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM team_sessions WHERE team_id = $1`, teamID)
	if err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	return nil
}
