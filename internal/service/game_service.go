package service

import (
	"context"
	"strings"
	"sync"

	"github.com/photobattle/bot/internal/chat"
	"github.com/photobattle/bot/internal/game"
	"github.com/photobattle/bot/internal/voting"
	"go.uber.org/zap"
)

// GameService routes inbound chat interactions into game lifecycle
// transitions and hands the heavy lifting of a round to RoundService.
type GameService struct {
	store  Store
	out    Outbox
	votes  *voting.Registry
	rounds *RoundService
	log    *zap.Logger

	// busy serializes callback handling per chat so two concurrent
	// button presses cannot interleave round processing.
	mu   sync.Mutex
	busy map[int64]bool
}

func NewGameService(store Store, out Outbox, votes *voting.Registry, rounds *RoundService, log *zap.Logger) *GameService {
	return &GameService{
		store:  store,
		out:    out,
		votes:  votes,
		rounds: rounds,
		log:    log,
		busy:   make(map[int64]bool),
	}
}

// HandleUpdate is the broker consumer's entry point. While a voting session
// is open for a chat, only ballot callbacks get through; every other
// interaction for that chat is suppressed until the window closes.
func (s *GameService) HandleUpdate(ctx context.Context, body []byte) {
	upd, err := chat.ParseUpdate(body)
	if err != nil {
		s.log.Debug("dropping undecodable update", zap.Error(err))
		return
	}

	if _, open := s.votes.Get(upd.ChatID); open {
		if upd.Kind == chat.UpdateCallback {
			s.handleVote(ctx, upd)
		}
		return
	}

	switch {
	case upd.Kind == chat.UpdateMessage && strings.HasPrefix(upd.Text, "/start"):
		s.send(ctx, chat.NewTextMessage(upd.ChatID, greetingText, nil))
		s.send(ctx, mainMenu(upd.ChatID))
	case upd.Kind == chat.UpdateCallback:
		s.handleCallback(ctx, upd)
	}
}

func (s *GameService) handleVote(ctx context.Context, upd *chat.Update) {
	session, open := s.votes.Get(upd.ChatID)

	var choice voting.Choice
	switch upd.Data {
	case "voted_for_1":
		choice = voting.Slot1
	case "voted_for_2":
		choice = voting.Slot2
	default:
		open = false
	}

	if !open {
		s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, invalidActionText, false))
		return
	}

	switch session.Vote(upd.From.ID, choice) {
	case voting.AlreadyVoted:
		s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, alreadyVotedAlertText, true))
	default:
		s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, thanksForVoteText, true))
	}
}

func (s *GameService) handleCallback(ctx context.Context, upd *chat.Update) {
	if !s.acquire(upd.ChatID) {
		s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, "", false))
		return
	}
	defer s.release(upd.ChatID)

	_, hasGame, err := s.store.GetActiveGame(ctx, upd.ChatID)
	if err != nil {
		s.log.Error("failed to look up active game", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
		return
	}
	status, _, err := s.store.GetActiveStatus(ctx, upd.ChatID)
	if err != nil {
		s.log.Error("failed to look up game status", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
		return
	}

	switch upd.Data {
	case "create_game":
		s.handleCreate(ctx, upd, hasGame)
	case "join_game":
		s.handleJoin(ctx, upd, status)
	case "start_game":
		s.handleStart(ctx, upd, hasGame, status)
	case "finish_game":
		s.handleFinish(ctx, upd, hasGame, status)
	case "get_last_game":
		s.handleLastGame(ctx, upd)
	case "show_rules":
		s.send(ctx, chat.NewTextMessage(upd.ChatID, rulesText, nil))
		s.send(ctx, mainMenu(upd.ChatID))
	default:
		// A stray ballot outside any voting window.
		s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, invalidActionText, false))
		return
	}

	s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, "", false))
}

func (s *GameService) handleCreate(ctx context.Context, upd *chat.Update, hasGame bool) {
	if hasGame {
		s.send(ctx, continueFinishMenu(upd.ChatID, resumePrompt))
		return
	}

	if err := s.store.CreateGame(ctx, upd.ChatID); err != nil {
		s.log.Error("failed to create game", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
		return
	}
	s.send(ctx, chat.NewTextMessage(upd.ChatID, gameCreatedText, nil))
	s.send(ctx, joinStartMenu(upd.ChatID))
}

func (s *GameService) handleJoin(ctx context.Context, upd *chat.Update, status game.Status) {
	joined, hasGame, err := s.store.IsParticipant(ctx, upd.ChatID, upd.From.ID)
	if err != nil {
		s.log.Error("failed to check participation", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
		return
	}

	switch {
	case !hasGame:
		s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, createFirstText, false))
	case joined:
		s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, alreadyJoinedText, false))
	case status != game.StatusCreated:
		s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, joinStartedText, false))
	default:
		photo, err := s.out.FetchAvatar(ctx, upd.From.ID)
		if err != nil {
			s.log.Error("failed to fetch avatar", zap.Int64("user_id", upd.From.ID), zap.Error(err))
			return
		}

		player, err := s.store.JoinGame(ctx, upd.ChatID, &game.Player{
			ID:          upd.From.ID,
			Username:    upd.From.Username,
			PhotoFileID: photo,
		})
		if err != nil {
			s.log.Error("failed to join game", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
			return
		}
		if player == nil {
			s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, photoRequiredText, true))
			return
		}

		s.send(ctx, chat.NewTextMessage(upd.ChatID, newPlayerText(player.Username), nil))
		s.send(ctx, joinStartMenu(upd.ChatID))
	}
}

func (s *GameService) handleStart(ctx context.Context, upd *chat.Update, hasGame bool, status game.Status) {
	if !hasGame {
		s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, needTwoPlayersText, false))
		s.send(ctx, joinStartMenu(upd.ChatID))
		return
	}

	frontier, err := s.store.GetFrontier(ctx, upd.ChatID)
	if err != nil {
		s.log.Error("failed to read frontier", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
		return
	}

	if status == game.StatusCreated {
		if len(frontier) < 2 {
			s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, needTwoPlayersText, true))
			s.send(ctx, joinStartMenu(upd.ChatID))
			return
		}
		s.send(ctx, chat.NewTextMessage(upd.ChatID, gameStartedText(playerNames(frontier)), nil))
		if err := s.store.StartGame(ctx, upd.ChatID); err != nil {
			s.log.Error("failed to start game", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
			return
		}
	} else if len(frontier) > 1 {
		s.send(ctx, chat.NewTextMessage(upd.ChatID, movingOnText(playerNames(frontier)), nil))
	}

	switch {
	case len(frontier) > 1:
		if err := s.rounds.RunRound(ctx, upd.ChatID, frontier); err != nil {
			s.log.Error("round failed", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
			return
		}
		s.send(ctx, continueFinishMenu(upd.ChatID, roundPrompt))

	case len(frontier) == 1:
		winner, err := s.store.FinishGame(ctx, upd.ChatID, &frontier[0])
		if err != nil {
			s.log.Error("failed to finish game", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
			return
		}
		s.send(ctx, chat.NewPhoto(upd.ChatID, winner.PhotoFileID, winnerCaption(winner.Username)))
		s.send(ctx, mainMenu(upd.ChatID))

	default:
		if _, err := s.store.FinishGame(ctx, upd.ChatID, nil); err != nil {
			s.log.Error("failed to finish game", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
			return
		}
		s.send(ctx, chat.NewTextMessage(upd.ChatID, noWinnerText, nil))
		s.send(ctx, mainMenu(upd.ChatID))
	}
}

func (s *GameService) handleFinish(ctx context.Context, upd *chat.Update, hasGame bool, status game.Status) {
	if !hasGame || status == game.StatusFinished {
		s.send(ctx, chat.NewAnswerCallback(upd.CallbackQueryID, finishUnstartedText, true))
		return
	}

	if _, err := s.store.FinishGame(ctx, upd.ChatID, nil); err != nil {
		s.log.Error("failed to finish game", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
		return
	}
	s.send(ctx, chat.NewTextMessage(upd.ChatID, noWinnerText, nil))
	s.send(ctx, mainMenu(upd.ChatID))
}

func (s *GameService) handleLastGame(ctx context.Context, upd *chat.Update) {
	result, err := s.store.GetLastFinished(ctx, upd.ChatID)
	if err != nil {
		s.log.Error("failed to read last game", zap.Int64("chat_id", upd.ChatID), zap.Error(err))
		return
	}
	if result == nil {
		s.send(ctx, chat.NewTextMessage(upd.ChatID, noGamesFoundText, nil))
		return
	}

	winner := "No winner."
	if result.Winner != nil {
		winner = result.Winner.Username
	}
	s.send(ctx, chat.NewTextMessage(upd.ChatID, lastGameText(playerNames(result.Players), winner), nil))
	s.send(ctx, mainMenu(upd.ChatID))
}

func (s *GameService) send(ctx context.Context, cmd any) {
	if err := s.out.Send(ctx, cmd); err != nil {
		s.log.Warn("failed to send command", zap.Error(err))
	}
}

func (s *GameService) acquire(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[chatID] {
		return false
	}
	s.busy[chatID] = true
	return true
}

func (s *GameService) release(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, chatID)
}

func playerNames(players []game.Player) string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Username)
	}
	return strings.Join(names, ", ")
}
