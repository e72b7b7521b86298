package game

// Player status values on a score record.
const (
	Eliminated = 0
	Active     = 1
)

// Score is the per-player-per-game elimination record. Round starts at 0 and
// increments each time the player wins a pairing, so the set of active records
// at the minimum round is exactly the pool eligible for the next pairing round.
type Score struct {
	ID           int64 `db:"id"`
	GameID       int64 `db:"game_id"`
	PlayerID     int64 `db:"player_id"`
	PlayerStatus int   `db:"player_status"`
	GameRound    int   `db:"game_round"`
}

// Result is the read-only projection of a finished game: everyone who played
// and the record still marked active at finish time, if any.
type Result struct {
	GameID  int64
	ChatID  int64
	Winner  *Player
	Players []Player
}
