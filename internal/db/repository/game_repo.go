package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kasperlindh/hunt-platform/internal/game"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GameRepository persists published game definitions as JSONB rows.
type GameRepository struct {
	db dbtx
}

// NewGameRepository constructs a game repository over a pgx pool.
func NewGameRepository(db dbtx) *GameRepository {
	return &GameRepository{db: db}
}

// Insert stores a freshly published definition.
func (r *GameRepository) Insert(ctx context.Context, def *game.Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO games (id, title, definition, published_at) VALUES ($1, $2, $3, now())`,
		def.ID, def.Title, data,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return game.ErrGameAlreadyPublished
		}
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

// Get loads a published definition by id.
func (r *GameRepository) Get(ctx context.Context, gameID string) (*game.Definition, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT definition FROM games WHERE id = $1`, gameID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select game: %w", err)
	}

	var def game.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	return &def, nil
}
