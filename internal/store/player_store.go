package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/photobattle/bot/internal/game"
)

type PlayerStore struct {
	db *sqlx.DB
}

const (
	getPlayerQuery = "SELECT * FROM players WHERE id = ?"

	upsertPlayerQuery = `
		INSERT INTO players (id, username, photo_file_id)
		VALUES (:id, :username, :photo_file_id)
		ON CONFLICT (id) DO UPDATE SET
		username = excluded.username,
		photo_file_id = excluded.photo_file_id
	`
)

func NewPlayerStore(db *sqlx.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) GetPlayer(ctx context.Context, id int64) (*game.Player, error) {
	var player game.Player
	err := s.db.GetContext(ctx, &player, getPlayerQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// UpsertPlayer refreshes the stored display name and photo reference on every
// join, since profile photos can change between games.
func (s *PlayerStore) UpsertPlayer(ctx context.Context, tx *sqlx.Tx, player *game.Player) error {
	_, err := tx.NamedExecContext(ctx, upsertPlayerQuery, player)
	return err
}
