package service

import (
	"fmt"
	"time"

	"github.com/photobattle/bot/internal/chat"
)

const (
	greetingText  = "Hi 👋! I'm the PhotoBattle bot!\nPlease read the rules before starting a game."
	menuPrompt    = "Show the results of the last game, or start a new one?"
	joinPrompt    = "Join the current game or start it. At least 2 players are needed for a match."
	resumePrompt  = "Found an unfinished game. Continue it or start a new one?"
	roundPrompt   = "Finish the game early or continue?"
	rulesText     = "The rules are simple. The contest runs as a single-elimination bracket. " +
		"Each round you'll see several pairs of avatars. Vote for one photo in every pair before " +
		"the timer runs out, guided by your entirely subjective taste, of course.\n" +
		"The contender with more votes advances to the next round, until a single winner remains."

	gameCreatedText       = "Your game is created. At least 2 players are needed to start."
	createFirstText       = "You need to create a game before joining it."
	alreadyJoinedText     = "You've already joined this game 💃"
	joinStartedText       = "🚫 You can't join a game that has already started 🚫"
	photoRequiredText     = "Only users with a profile photo can enter the battle 👻. Please add a profile photo or relax your privacy settings and try again."
	needTwoPlayersText    = "At least 2 players are needed to play."
	finishUnstartedText   = "❌ You can't finish a game that hasn't been created"
	noWinnerText          = "🚫 The game ended with no winner"
	noGamesFoundText      = "❌ No games found."
	battleStartText       = "⚔️ The next avatar battle begins! ⚔️\nVoting starts..."
	countingVotesText     = "The battle is over. Counting votes 🗳️ ..."
	thanksForVoteText     = "Thanks for your vote!"
	alreadyVotedAlertText = "You have already voted in this round."
	invalidActionText     = "Error. Invalid action."
)

func newPlayerText(username string) string {
	return fmt.Sprintf("New player — %s.\nGood luck! 🍀", username)
}

func gameStartedText(names string) string {
	return fmt.Sprintf("Your game is on! Playing: %s", names)
}

func movingOnText(names string) string {
	return fmt.Sprintf("Let's move on! 🚀\nThis round's contenders: %s", names)
}

func advancesText(username string) string {
	return fmt.Sprintf("Advancing to the next round... %s!", username)
}

func tieBreakText(username string) string {
	return fmt.Sprintf("Both contenders got the same number of votes.\n🎲 And the god of random picks... %s!", username)
}

func byeAdvanceText(username string) string {
	return fmt.Sprintf("Player 1 was disqualified for having paws 🐾! We're still looking into how a cat got through registration.\nAdvancing to the next round... %s!", username)
}

func winnerCaption(username string) string {
	return fmt.Sprintf("The game is over.\nAnd the winner is... %s!", username)
}

func lastGameText(players, winner string) string {
	return fmt.Sprintf("☑️ Results of the last game:\n📋 Players: %s\n🏆 Winner: %s", players, winner)
}

func mainMenu(chatID int64) chat.TextMessage {
	return chat.NewTextMessage(chatID, menuPrompt, &chat.ReplyMarkup{
		InlineKeyboard: [][]chat.InlineButton{
			{
				{Text: "Create a new game", CallbackData: "create_game"},
			},
			{
				{Text: "Last game results", CallbackData: "get_last_game"},
				{Text: "Rules", CallbackData: "show_rules"},
			},
		},
	})
}

func joinStartMenu(chatID int64) chat.TextMessage {
	return chat.NewTextMessage(chatID, joinPrompt, &chat.ReplyMarkup{
		InlineKeyboard: [][]chat.InlineButton{
			{
				{Text: "Join", CallbackData: "join_game"},
				{Text: "Start the game", CallbackData: "start_game"},
			},
		},
	})
}

func continueFinishMenu(chatID int64, prompt string) chat.TextMessage {
	return chat.NewTextMessage(chatID, prompt, &chat.ReplyMarkup{
		InlineKeyboard: [][]chat.InlineButton{
			{
				{Text: "Finish", CallbackData: "finish_game"},
				{Text: "Continue", CallbackData: "start_game"},
			},
		},
	})
}

func voteMenu(chatID int64, window time.Duration) chat.TextMessage {
	text := fmt.Sprintf("🗳️ Vote for one of the contenders.\n⏳ Time to vote — %d seconds", int(window.Seconds()))
	return chat.NewTextMessage(chatID, text, &chat.ReplyMarkup{
		InlineKeyboard: [][]chat.InlineButton{
			{
				{Text: "Player 1 (left)", CallbackData: "voted_for_1"},
				{Text: "Player 2 (right)", CallbackData: "voted_for_2"},
			},
		},
	})
}
