package service

import (
	"context"
	"time"

	"github.com/photobattle/bot/internal/game"
)

// Store is the accessor contract the orchestrator drives the persisted
// bracket state through.
type Store interface {
	CreateGame(ctx context.Context, chatID int64) error
	GetActiveGame(ctx context.Context, chatID int64) (int64, bool, error)
	GetActiveStatus(ctx context.Context, chatID int64) (game.Status, bool, error)
	StartGame(ctx context.Context, chatID int64) error
	JoinGame(ctx context.Context, chatID int64, player *game.Player) (*game.Player, error)
	IsParticipant(ctx context.Context, chatID, playerID int64) (joined bool, hasGame bool, err error)
	GetFrontier(ctx context.Context, chatID int64) ([]game.Player, error)
	FinishGame(ctx context.Context, chatID int64, winner *game.Player) (*game.Player, error)
	RecordResult(ctx context.Context, chatID int64, winner, loser *game.Player) error
	GetLastFinished(ctx context.Context, chatID int64) (*game.Result, error)
}

// Outbox delivers display commands and avatar lookups to the external
// dispatcher.
type Outbox interface {
	Send(ctx context.Context, cmd any) error
	FetchAvatar(ctx context.Context, userID int64) (string, error)
}

// Options carries the orchestrator's pacing knobs.
type Options struct {
	// VotingWindow is how long each real pairing accepts ballots.
	VotingWindow time.Duration
	// PaceDelay spaces announcements within a round.
	PaceDelay time.Duration
	// BracketSize caps the padded bracket; must be a power of two.
	BracketSize int
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
