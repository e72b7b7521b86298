package voting

import (
	"math/rand"
	"sync"
)

// Choice is the slot a ballot is cast for.
type Choice int

const (
	Slot1 Choice = iota + 1
	Slot2
)

// Outcome reports what happened to a cast ballot. A duplicate ballot is a
// normal outcome to relay back to the voter, not an error.
type Outcome int

const (
	Accepted Outcome = iota
	AlreadyVoted
)

// Session collects ballots for one real-vs-real pairing. The tally is
// signed: negative means slot 1 leads, positive slot 2.
type Session struct {
	mu     sync.Mutex
	tally  int
	voters map[int64]struct{}
}

func NewSession() *Session {
	return &Session{voters: make(map[int64]struct{})}
}

func (s *Session) Vote(voterID int64, choice Choice) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.voters[voterID]; ok {
		return AlreadyVoted
	}
	s.voters[voterID] = struct{}{}

	switch choice {
	case Slot1:
		s.tally--
	case Slot2:
		s.tally++
	}
	return Accepted
}

func (s *Session) Tally() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tally
}

// Resolve picks the winning slot once the window has closed. A zero tally is
// broken by a uniform coin flip.
func (s *Session) Resolve(rng *rand.Rand) (winner Choice, tied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.tally < 0:
		return Slot1, false
	case s.tally > 0:
		return Slot2, false
	default:
		if rng.Intn(2) == 0 {
			return Slot1, true
		}
		return Slot2, true
	}
}
