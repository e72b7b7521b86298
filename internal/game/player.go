package game

type Player struct {
	ID          int64  `db:"id" json:"id"`
	Username    string `db:"username" json:"username"`
	PhotoFileID string `db:"photo_file_id" json:"photo_file_id"`
}

// IsBye reports whether the player is the synthetic bracket filler.
// Byes carry id 0 and a decorative stand-in photo; they always auto-lose.
func (p Player) IsBye() bool {
	return p.ID == 0
}
