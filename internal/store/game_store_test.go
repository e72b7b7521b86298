package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/photobattle/bot/internal/game"
	"github.com/photobattle/bot/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChatID int64 = -1001

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// Each connection to :memory: gets its own database; keep the pool at one.
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

func newTestStore(t *testing.T) *GameStore {
	t.Helper()
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })
	return NewGameStore(db, NewPlayerStore(db))
}

func joinPlayers(t *testing.T, s *GameStore, chatID int64, n int) []game.Player {
	t.Helper()

	players := make([]game.Player, 0, n)
	for i := 1; i <= n; i++ {
		p := game.Player{
			ID:          int64(100 + i),
			Username:    fmt.Sprintf("player%d", i),
			PhotoFileID: fmt.Sprintf("photo%d", i),
		}
		joined, err := s.JoinGame(context.Background(), chatID, &p)
		require.NoError(t, err)
		require.NotNil(t, joined)
		players = append(players, p)
	}
	return players
}

func TestCreateGame(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetActiveGame(ctx, testChatID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.CreateGame(ctx, testChatID))

	gameID, ok, err := s.GetActiveGame(ctx, testChatID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotZero(t, gameID)

	status, ok, err := s.GetActiveStatus(ctx, testChatID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, game.StatusCreated, status)
}

func TestCreateGameForceFinishesActiveOne(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateGame(ctx, testChatID))
	oldID, _, err := s.GetActiveGame(ctx, testChatID)
	require.NoError(t, err)

	joinPlayers(t, s, testChatID, 2)
	require.NoError(t, s.StartGame(ctx, testChatID))

	require.NoError(t, s.CreateGame(ctx, testChatID))

	newID, ok, err := s.GetActiveGame(ctx, testChatID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, oldID, newID)

	status, _, err := s.GetActiveStatus(ctx, testChatID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusCreated, status)

	// The abandoned game reports no winner and all its records eliminated.
	result, err := s.GetLastFinished(ctx, testChatID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, oldID, result.GameID)
	assert.Nil(t, result.Winner)
	assert.Len(t, result.Players, 2)
}

func TestJoinGame(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// No active game yet.
	joined, err := s.JoinGame(ctx, testChatID, &game.Player{ID: 1, Username: "a", PhotoFileID: "p"})
	require.NoError(t, err)
	assert.Nil(t, joined)

	require.NoError(t, s.CreateGame(ctx, testChatID))

	// Photo is mandatory.
	joined, err = s.JoinGame(ctx, testChatID, &game.Player{ID: 1, Username: "a"})
	require.NoError(t, err)
	assert.Nil(t, joined)

	joined, err = s.JoinGame(ctx, testChatID, &game.Player{ID: 1, Username: "a", PhotoFileID: "p"})
	require.NoError(t, err)
	require.NotNil(t, joined)
	assert.Equal(t, "a", joined.Username)

	isPart, hasGame, err := s.IsParticipant(ctx, testChatID, 1)
	require.NoError(t, err)
	assert.True(t, hasGame)
	assert.True(t, isPart)

	// Re-joining is idempotent and returns the stored record unchanged.
	joined, err = s.JoinGame(ctx, testChatID, &game.Player{ID: 1, Username: "renamed", PhotoFileID: "other"})
	require.NoError(t, err)
	require.NotNil(t, joined)
	assert.Equal(t, "a", joined.Username)
	assert.Equal(t, "p", joined.PhotoFileID)

	isPart, _, err = s.IsParticipant(ctx, testChatID, 2)
	require.NoError(t, err)
	assert.False(t, isPart)
}

func TestIsParticipantWithoutGame(t *testing.T) {
	s := newTestStore(t)

	_, hasGame, err := s.IsParticipant(context.Background(), testChatID, 1)
	require.NoError(t, err)
	assert.False(t, hasGame)
}

func TestRecordResultNarrowsFrontier(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateGame(ctx, testChatID))
	players := joinPlayers(t, s, testChatID, 3)
	require.NoError(t, s.StartGame(ctx, testChatID))

	frontier, err := s.GetFrontier(ctx, testChatID)
	require.NoError(t, err)
	assert.Len(t, frontier, 3)

	// players[0] beats players[1]; players[2] advances on a bye.
	require.NoError(t, s.RecordResult(ctx, testChatID, &players[0], &players[1]))

	frontier, err = s.GetFrontier(ctx, testChatID)
	require.NoError(t, err)
	require.Len(t, frontier, 1)
	assert.Equal(t, players[2].ID, frontier[0].ID)

	require.NoError(t, s.RecordResult(ctx, testChatID, &players[2], nil))

	frontier, err = s.GetFrontier(ctx, testChatID)
	require.NoError(t, err)
	require.Len(t, frontier, 2)
	for _, p := range frontier {
		assert.NotEqual(t, players[1].ID, p.ID, "eliminated player re-entered the frontier")
	}
}

func TestRecordResultWithoutGame(t *testing.T) {
	s := newTestStore(t)

	err := s.RecordResult(context.Background(), testChatID, utils.Ptr(game.Player{ID: 1}), nil)
	assert.ErrorIs(t, err, ErrNoActiveGame)
}

func TestRecordResultUnknownWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateGame(ctx, testChatID))
	joinPlayers(t, s, testChatID, 2)

	err := s.RecordResult(ctx, testChatID, utils.Ptr(game.Player{ID: 999}), nil)
	assert.ErrorIs(t, err, ErrInconsistentState)
}

func TestFinishGameWithWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateGame(ctx, testChatID))
	players := joinPlayers(t, s, testChatID, 2)
	require.NoError(t, s.StartGame(ctx, testChatID))

	// Two survivors: the single-winner assertion must surface, not be
	// swallowed.
	_, err := s.FinishGame(ctx, testChatID, &players[0])
	assert.ErrorIs(t, err, ErrInconsistentState)

	// The failed finish must not have committed.
	status, ok, err := s.GetActiveStatus(ctx, testChatID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, game.StatusStarted, status)

	require.NoError(t, s.RecordResult(ctx, testChatID, &players[0], &players[1]))

	winner, err := s.FinishGame(ctx, testChatID, &players[0])
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, players[0].ID, winner.ID)

	_, ok, err = s.GetActiveGame(ctx, testChatID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFinishGameWithoutWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateGame(ctx, testChatID))
	joinPlayers(t, s, testChatID, 3)

	winner, err := s.FinishGame(ctx, testChatID, nil)
	require.NoError(t, err)
	assert.Nil(t, winner)

	result, err := s.GetLastFinished(ctx, testChatID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Winner)
	assert.Len(t, result.Players, 3)

	// Finishing again is a no-op.
	winner, err = s.FinishGame(ctx, testChatID, nil)
	require.NoError(t, err)
	assert.Nil(t, winner)
}

func TestGetLastFinishedReportsWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result, err := s.GetLastFinished(ctx, testChatID)
	require.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, s.CreateGame(ctx, testChatID))
	players := joinPlayers(t, s, testChatID, 3)
	require.NoError(t, s.StartGame(ctx, testChatID))

	require.NoError(t, s.RecordResult(ctx, testChatID, &players[0], &players[1]))
	require.NoError(t, s.RecordResult(ctx, testChatID, &players[0], &players[2]))

	_, err = s.FinishGame(ctx, testChatID, &players[0])
	require.NoError(t, err)

	result, err = s.GetLastFinished(ctx, testChatID)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.Winner)
	assert.Equal(t, players[0].ID, result.Winner.ID)
	assert.Len(t, result.Players, 3)
}

func TestListFinished(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	otherChat := testChatID - 1

	require.NoError(t, s.CreateGame(ctx, testChatID))
	joinPlayers(t, s, testChatID, 2)
	_, err := s.FinishGame(ctx, testChatID, nil)
	require.NoError(t, err)

	// A still-running game must not be listed.
	require.NoError(t, s.CreateGame(ctx, otherChat))

	results, err := s.ListFinished(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, testChatID, results[0].ChatID)
	assert.Len(t, results[0].Players, 2)
}
