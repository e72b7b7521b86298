package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/photobattle/bot/internal/chat"
	"github.com/photobattle/bot/internal/game"
	"github.com/photobattle/bot/internal/store"
	"github.com/photobattle/bot/internal/voting"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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

// fakeOutbox records every dispatched command instead of touching a broker.
type fakeOutbox struct {
	mu      sync.Mutex
	sent    []any
	avatars map[int64]string
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{avatars: make(map[int64]string)}
}

func (f *fakeOutbox) Send(_ context.Context, cmd any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeOutbox) FetchAvatar(_ context.Context, userID int64) (string, error) {
	return f.avatars[userID], nil
}

func (f *fakeOutbox) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, cmd := range f.sent {
		if msg, ok := cmd.(chat.TextMessage); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeOutbox) answers() []chat.AnswerCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.AnswerCallback
	for _, cmd := range f.sent {
		if a, ok := cmd.(chat.AnswerCallback); ok {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeOutbox) countMediaGroups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, cmd := range f.sent {
		if _, ok := cmd.(chat.MediaGroup); ok {
			n++
		}
	}
	return n
}

func (f *fakeOutbox) photos() []chat.Photo {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Photo
	for _, cmd := range f.sent {
		if p, ok := cmd.(chat.Photo); ok {
			out = append(out, p)
		}
	}
	return out
}

type testEnv struct {
	store  *store.GameStore
	out    *fakeOutbox
	votes  *voting.Registry
	rounds *RoundService
	svc    *GameService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	games := store.NewGameStore(db, store.NewPlayerStore(db))
	out := newFakeOutbox()
	votes := voting.NewRegistry()
	opts := Options{
		VotingWindow: 100 * time.Millisecond,
		PaceDelay:    time.Millisecond,
		BracketSize:  16,
	}
	rounds := NewRoundService(games, out, votes, opts, zap.NewNop())
	svc := NewGameService(games, out, votes, rounds, zap.NewNop())

	return &testEnv{store: games, out: out, votes: votes, rounds: rounds, svc: svc}
}

func (e *testEnv) joinPlayers(t *testing.T, chatID int64, n int) []game.Player {
	t.Helper()

	players := make([]game.Player, 0, n)
	for i := 1; i <= n; i++ {
		p := game.Player{
			ID:          int64(100 + i),
			Username:    fmt.Sprintf("player%d", i),
			PhotoFileID: fmt.Sprintf("photo%d", i),
		}
		joined, err := e.store.JoinGame(context.Background(), chatID, &p)
		require.NoError(t, err)
		require.NotNil(t, joined)
		players = append(players, p)
	}
	return players
}

func messageUpdate(chatID, userID int64, username, text string) []byte {
	return []byte(fmt.Sprintf(`{
		"update_id": 1,
		"message": {
			"message_id": 10,
			"from": {"id": %d, "username": %q},
			"chat": {"id": %d},
			"text": %q
		}
	}`, userID, username, chatID, text))
}

func callbackUpdate(chatID, userID int64, username, data string) []byte {
	return []byte(fmt.Sprintf(`{
		"update_id": 2,
		"callback_query": {
			"id": "cb-1",
			"from": {"id": %d, "username": %q},
			"data": %q,
			"message": {
				"message_id": 11,
				"chat": {"id": %d},
				"text": "menu"
			}
		}
	}`, userID, username, data, chatID))
}
