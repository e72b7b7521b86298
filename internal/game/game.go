package game

import "time"

type Status string

const (
	StatusCreated  Status = "CREATED"
	StatusStarted  Status = "STARTED"
	StatusFinished Status = "FINISHED"
)

// Game is one tournament bracket instance scoped to a chat. At most one
// non-FINISHED game may exist per chat at any time.
type Game struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Status    Status    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}
