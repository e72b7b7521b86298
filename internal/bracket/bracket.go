package bracket

import (
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"slices"

	"github.com/photobattle/bot/internal/game"
)

// DefaultMaxSize bounds the padded bracket. Any power of two works; the
// cost of raising it is purely latency, since pairs are voted on one at a
// time.
const DefaultMaxSize = 16

var (
	ErrTooFewPlayers = errors.New("bracket: need at least 2 players")
	ErrPoolTooLarge  = errors.New("bracket: player pool exceeds the bracket size cap")
)

// Pair is one pairing of a round. Slot1 may be a bye filler; Slot2 is always
// a real player.
type Pair struct {
	Slot1 game.Player
	Slot2 game.Player
}

// IsBye reports whether this pairing auto-advances Slot2 without a vote.
func (p Pair) IsBye() bool {
	return p.Slot1.IsBye()
}

var byePhrases = []string{
	"Well hello there",
	"Vote for me!",
	"I am simply the best",
	"Purrrrr",
	"Bring me food, human",
	"Good day to you",
	"I am above all of this",
}

func byePlayer(phrase string) game.Player {
	return game.Player{
		ID:          0,
		PhotoFileID: "https://cataas.com/cat/says/" + url.PathEscape(phrase),
	}
}

// Size returns the padded bracket size and bye count for n players: the
// smallest power of two that fits everyone, capped at maxSize (0 means
// DefaultMaxSize). Byes never exceed half the bracket minus one, so every
// round contains at least one real pairing.
func Size(n, maxSize int) (size int, byes int, err error) {
	if n < 2 {
		return 0, 0, ErrTooFewPlayers
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	for size = 2; size < n; size *= 2 {
	}
	if size > maxSize {
		return 0, 0, fmt.Errorf("%d players do not fit a bracket of %d: %w", n, maxSize, ErrPoolTooLarge)
	}

	byes = size - n
	if byes < 0 || byes > size/2-1 {
		return 0, 0, fmt.Errorf("bracket: %d byes for bracket of %d is out of range", byes, size)
	}
	return size, byes, nil
}

// Build pads the player pool up to a power of two and forms the round's
// pairings in random order. Byes are consumed first, each against a random
// real player, so two byes can never meet.
func Build(rng *rand.Rand, players []game.Player, maxSize int) ([]Pair, error) {
	size, byes, err := Size(len(players), maxSize)
	if err != nil {
		return nil, err
	}

	pool := slices.Clone(players)
	pop := func() game.Player {
		i := rng.Intn(len(pool))
		p := pool[i]
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		return p
	}

	phrases := slices.Clone(byePhrases)
	popPhrase := func() string {
		i := rng.Intn(len(phrases))
		s := phrases[i]
		phrases[i] = phrases[len(phrases)-1]
		phrases = phrases[:len(phrases)-1]
		return s
	}

	pairs := make([]Pair, 0, size/2)
	for len(pairs) < size/2 {
		var pair Pair
		if byes > 0 {
			pair = Pair{Slot1: byePlayer(popPhrase()), Slot2: pop()}
			byes--
		} else {
			pair = Pair{Slot1: pop(), Slot2: pop()}
		}
		pairs = append(pairs, pair)
	}

	return pairs, nil
}
