package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/photobattle/bot/internal/game"
)

// GameStore owns the persisted bracket state. Every mutating operation runs
// inside a single transaction so a crash can never leave a half-applied
// round result behind.
type GameStore struct {
	db      *sqlx.DB
	players *PlayerStore
}

func NewGameStore(db *sqlx.DB, players *PlayerStore) *GameStore {
	return &GameStore{db: db, players: players}
}

const (
	activeGameQuery = "SELECT id FROM games WHERE chat_id = ? AND status != 'FINISHED'"

	activeStatusQuery = "SELECT status FROM games WHERE chat_id = ? AND status != 'FINISHED'"

	frontierQuery = `
		SELECT players.id, players.username, players.photo_file_id
		FROM players
		JOIN gamescores ON gamescores.player_id = players.id
		WHERE gamescores.game_id = ?
		AND gamescores.player_status = 1
		AND gamescores.game_round = (
			SELECT MIN(game_round) FROM gamescores
			WHERE game_id = ? AND player_status = 1
		)
	`

	lastFinishedQuery = "SELECT COALESCE(MAX(id), 0) FROM games WHERE chat_id = ? AND status = 'FINISHED'"

	gameRosterQuery = `
		SELECT players.id AS player_id, players.username, gamescores.player_status
		FROM gamescores
		JOIN players ON players.id = gamescores.player_id
		WHERE gamescores.game_id = ?
		ORDER BY gamescores.id
	`
)

// activeGame returns the id of the chat's non-finished game. More than one
// such game violates the single-active-game invariant.
func (s *GameStore) activeGame(ctx context.Context, q sqlx.QueryerContext, chatID int64) (int64, bool, error) {
	var ids []int64
	if err := sqlx.SelectContext(ctx, q, &ids, activeGameQuery, chatID); err != nil {
		return 0, false, err
	}
	switch len(ids) {
	case 0:
		return 0, false, nil
	case 1:
		return ids[0], true, nil
	default:
		return 0, false, fmt.Errorf("chat %d has %d unfinished games: %w", chatID, len(ids), ErrInconsistentState)
	}
}

func (s *GameStore) GetActiveGame(ctx context.Context, chatID int64) (int64, bool, error) {
	return s.activeGame(ctx, s.db, chatID)
}

func (s *GameStore) GetActiveStatus(ctx context.Context, chatID int64) (game.Status, bool, error) {
	var statuses []game.Status
	if err := s.db.SelectContext(ctx, &statuses, activeStatusQuery, chatID); err != nil {
		return "", false, err
	}
	switch len(statuses) {
	case 0:
		return "", false, nil
	case 1:
		return statuses[0], true, nil
	default:
		return "", false, fmt.Errorf("chat %d has %d unfinished games: %w", chatID, len(statuses), ErrInconsistentState)
	}
}

// CreateGame inserts a fresh CREATED game for the chat. An already-running
// game is force-finished first, with no winner.
func (s *GameStore) CreateGame(ctx context.Context, chatID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	gameID, ok, err := s.activeGame(ctx, tx, chatID)
	if err != nil {
		return err
	}
	if ok {
		if err := finishWithoutWinner(ctx, tx, gameID); err != nil {
			return fmt.Errorf("failed to finish previous game: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO games (chat_id, status) VALUES (?, ?)", chatID, game.StatusCreated); err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	return tx.Commit()
}

func finishWithoutWinner(ctx context.Context, tx *sqlx.Tx, gameID int64) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE games SET status = ? WHERE id = ?", game.StatusFinished, gameID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		"UPDATE gamescores SET player_status = ? WHERE game_id = ?", game.Eliminated, gameID)
	return err
}

// StartGame moves the chat's active game to STARTED. No-op when nothing is
// active.
func (s *GameStore) StartGame(ctx context.Context, chatID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	gameID, ok, err := s.activeGame(ctx, tx, chatID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE games SET status = ? WHERE id = ?", game.StatusStarted, gameID); err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}

	return tx.Commit()
}

// JoinGame registers a player in the chat's active game. Returns nil when
// there is no active game or the player has no resolvable photo. Re-joining
// is idempotent: the already-registered player is returned unchanged.
func (s *GameStore) JoinGame(ctx context.Context, chatID int64, player *game.Player) (*game.Player, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	gameID, ok, err := s.activeGame(ctx, tx, chatID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var joined int
	if err := sqlx.GetContext(ctx, tx, &joined,
		"SELECT COUNT(1) FROM gamescores WHERE game_id = ? AND player_id = ?", gameID, player.ID); err != nil {
		return nil, err
	}
	if joined > 0 {
		var existing game.Player
		if err := sqlx.GetContext(ctx, tx, &existing, getPlayerQuery, player.ID); err != nil {
			return nil, err
		}
		return &existing, tx.Commit()
	}

	if player.PhotoFileID == "" {
		return nil, nil
	}

	if err := s.players.UpsertPlayer(ctx, tx, player); err != nil {
		return nil, fmt.Errorf("failed to upsert player: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO gamescores (game_id, player_id, player_status, game_round) VALUES (?, ?, ?, 0)",
		gameID, player.ID, game.Active); err != nil {
		return nil, fmt.Errorf("failed to create score record: %w", err)
	}

	return player, tx.Commit()
}

// IsParticipant reports whether the player holds a score record in the
// chat's active game. hasGame is false when no game is running.
func (s *GameStore) IsParticipant(ctx context.Context, chatID, playerID int64) (joined bool, hasGame bool, err error) {
	gameID, ok, err := s.activeGame(ctx, s.db, chatID)
	if err != nil || !ok {
		return false, false, err
	}

	var count int
	if err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(1) FROM gamescores WHERE game_id = ? AND player_id = ?", gameID, playerID); err != nil {
		return false, false, err
	}
	return count > 0, true, nil
}

// GetFrontier returns the active players at the minimum round counter for
// the chat's active game, i.e. the pool eligible for the next pairing round.
// Nil when no game is active or nobody survives.
func (s *GameStore) GetFrontier(ctx context.Context, chatID int64) ([]game.Player, error) {
	gameID, ok, err := s.activeGame(ctx, s.db, chatID)
	if err != nil || !ok {
		return nil, err
	}

	var players []game.Player
	if err := s.db.SelectContext(ctx, &players, frontierQuery, gameID, gameID); err != nil {
		return nil, err
	}
	return players, nil
}

// FinishGame moves the active game to FINISHED. With a winner it asserts
// that exactly one active record remains and returns the winner; without one
// it eliminates every record. Nil result when no game is active.
func (s *GameStore) FinishGame(ctx context.Context, chatID int64, winner *game.Player) (*game.Player, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	gameID, ok, err := s.activeGame(ctx, tx, chatID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if winner == nil {
		if err := finishWithoutWinner(ctx, tx, gameID); err != nil {
			return nil, fmt.Errorf("failed to finish game: %w", err)
		}
		return nil, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE games SET status = ? WHERE id = ?", game.StatusFinished, gameID); err != nil {
		return nil, fmt.Errorf("failed to finish game: %w", err)
	}

	var alive int
	if err := sqlx.GetContext(ctx, tx, &alive,
		"SELECT COALESCE(SUM(player_status), 0) FROM gamescores WHERE game_id = ?", gameID); err != nil {
		return nil, err
	}
	if alive != 1 {
		return nil, fmt.Errorf("game %d finished with winner but %d active records: %w", gameID, alive, ErrInconsistentState)
	}

	return winner, tx.Commit()
}

// RecordResult commits one resolved pairing: the winner's round counter goes
// up by one and the loser, if any, is eliminated. Both writes share one
// transaction.
func (s *GameStore) RecordResult(ctx context.Context, chatID int64, winner *game.Player, loser *game.Player) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	gameID, ok, err := s.activeGame(ctx, tx, chatID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoActiveGame
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE gamescores SET game_round = game_round + 1 WHERE game_id = ? AND player_id = ?",
		gameID, winner.ID)
	if err != nil {
		return fmt.Errorf("failed to advance winner: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return err
	} else if affected != 1 {
		return fmt.Errorf("winner %d has no score record in game %d: %w", winner.ID, gameID, ErrInconsistentState)
	}

	if loser != nil {
		if _, err := tx.ExecContext(ctx,
			"UPDATE gamescores SET player_status = ? WHERE game_id = ? AND player_id = ?",
			game.Eliminated, gameID, loser.ID); err != nil {
			return fmt.Errorf("failed to eliminate loser: %w", err)
		}
	}

	return tx.Commit()
}

type rosterRow struct {
	PlayerID     int64  `db:"player_id"`
	Username     string `db:"username"`
	PlayerStatus int    `db:"player_status"`
}

// playersAndWinner splits a finished game's roster into everyone who played
// and the single record still marked active, if any.
func playersAndWinner(rows []rosterRow) ([]game.Player, *game.Player, error) {
	players := make([]game.Player, 0, len(rows))
	var winner *game.Player

	for _, row := range rows {
		player := game.Player{ID: row.PlayerID, Username: row.Username}
		players = append(players, player)
		if row.PlayerStatus == game.Active {
			if winner != nil {
				return nil, nil, fmt.Errorf("two surviving players in finished game: %w", ErrInconsistentState)
			}
			p := player
			winner = &p
		}
	}
	return players, winner, nil
}

// GetLastFinished reconstructs the most recently finished game in the chat.
func (s *GameStore) GetLastFinished(ctx context.Context, chatID int64) (*game.Result, error) {
	var gameID int64
	if err := s.db.GetContext(ctx, &gameID, lastFinishedQuery, chatID); err != nil {
		return nil, err
	}
	if gameID == 0 {
		return nil, nil
	}

	var rows []rosterRow
	if err := s.db.SelectContext(ctx, &rows, gameRosterQuery, gameID); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	players, winner, err := playersAndWinner(rows)
	if err != nil {
		return nil, err
	}

	return &game.Result{GameID: gameID, ChatID: chatID, Players: players, Winner: winner}, nil
}

// ListFinished reconstructs every finished game across all chats.
func (s *GameStore) ListFinished(ctx context.Context) ([]game.Result, error) {
	var games []game.Game
	if err := s.db.SelectContext(ctx, &games,
		"SELECT * FROM games WHERE status = 'FINISHED' ORDER BY id"); err != nil {
		return nil, err
	}

	results := make([]game.Result, 0, len(games))
	for _, g := range games {
		var rows []rosterRow
		if err := s.db.SelectContext(ctx, &rows, gameRosterQuery, g.ID); err != nil {
			return nil, err
		}

		players, winner, err := playersAndWinner(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, game.Result{GameID: g.ID, ChatID: g.ChatID, Players: players, Winner: winner})
	}
	return results, nil
}
