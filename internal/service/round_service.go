package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/photobattle/bot/internal/bracket"
	"github.com/photobattle/bot/internal/chat"
	"github.com/photobattle/bot/internal/game"
	"github.com/photobattle/bot/internal/voting"
	"go.uber.org/zap"
)

// RoundService drives one full round of a chat's bracket: pairings, timed
// voting windows and result commits. It never advances into the next round;
// that is triggered by a later external event re-reading the frontier.
type RoundService struct {
	store Store
	out   Outbox
	votes *voting.Registry
	log   *zap.Logger
	opts  Options
}

func NewRoundService(store Store, out Outbox, votes *voting.Registry, opts Options, log *zap.Logger) *RoundService {
	return &RoundService{store: store, out: out, votes: votes, opts: opts, log: log}
}

// RunRound pairs up the frontier and resolves every pairing sequentially.
// Pairs must not run concurrently: voting sessions key on the chat alone, so
// parallel pairs would corrupt each other's tally. A storage failure aborts
// the round; already-committed results stay valid and the round is safely
// re-derivable from the frontier.
func (s *RoundService) RunRound(ctx context.Context, chatID int64, frontier []game.Player) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	pairs, err := bracket.Build(rng, frontier, s.opts.BracketSize)
	if err != nil {
		return err
	}

	s.log.Info("running round",
		zap.Int64("chat_id", chatID),
		zap.Int("players", len(frontier)),
		zap.Int("pairs", len(pairs)))

	for _, pair := range pairs {
		winner, loser, err := s.runPair(ctx, chatID, pair, rng)
		if err != nil {
			return err
		}
		if err := s.store.RecordResult(ctx, chatID, winner, loser); err != nil {
			return fmt.Errorf("failed to record pair result: %w", err)
		}
	}
	return nil
}

func (s *RoundService) runPair(ctx context.Context, chatID int64, pair bracket.Pair, rng *rand.Rand) (winner, loser *game.Player, err error) {
	if err := s.out.Send(ctx, chat.NewTextMessage(chatID, battleStartText, nil)); err != nil {
		return nil, nil, err
	}
	if err := sleepCtx(ctx, s.opts.PaceDelay); err != nil {
		return nil, nil, err
	}
	if err := s.out.Send(ctx, chat.NewPhotoPair(chatID, pair.Slot1.PhotoFileID, pair.Slot2.PhotoFileID)); err != nil {
		return nil, nil, err
	}

	if pair.IsBye() {
		if err := sleepCtx(ctx, s.opts.PaceDelay); err != nil {
			return nil, nil, err
		}
		if err := s.out.Send(ctx, chat.NewTextMessage(chatID, byeAdvanceText(pair.Slot2.Username), nil)); err != nil {
			return nil, nil, err
		}
		return &pair.Slot2, nil, nil
	}

	session, err := s.votes.Open(chatID)
	if err != nil {
		return nil, nil, err
	}
	defer s.votes.Close(chatID)

	if err := s.out.Send(ctx, voteMenu(chatID, s.opts.VotingWindow)); err != nil {
		return nil, nil, err
	}
	if err := sleepCtx(ctx, s.opts.VotingWindow); err != nil {
		return nil, nil, err
	}

	if err := s.out.Send(ctx, chat.NewTextMessage(chatID, countingVotesText, nil)); err != nil {
		return nil, nil, err
	}
	if err := sleepCtx(ctx, s.opts.PaceDelay); err != nil {
		return nil, nil, err
	}

	choice, tied := session.Resolve(rng)
	if choice == voting.Slot1 {
		winner, loser = &pair.Slot1, &pair.Slot2
	} else {
		winner, loser = &pair.Slot2, &pair.Slot1
	}

	text := advancesText(winner.Username)
	if tied {
		text = tieBreakText(winner.Username)
	}
	if err := s.out.Send(ctx, chat.NewTextMessage(chatID, text, nil)); err != nil {
		return nil, nil, err
	}

	return winner, loser, nil
}
