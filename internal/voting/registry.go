package voting

import (
	"errors"
	"sync"
)

var ErrVotingOpen = errors.New("voting: a session is already open for this chat")

// Registry is the per-chat voting state machine: a chat is either idle or
// has exactly one open session. An open session also acts as the gate that
// suppresses every non-vote interaction for its chat.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*Session)}
}

// Open creates the chat's session, failing if one is already running.
func (r *Registry) Open(chatID int64) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[chatID]; ok {
		return nil, ErrVotingOpen
	}
	s := NewSession()
	r.sessions[chatID] = s
	return s, nil
}

// Get returns the chat's open session, if any.
func (r *Registry) Get(chatID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[chatID]
	return s, ok
}

// Close removes and returns the chat's session. Nil when none was open.
func (r *Registry) Close(chatID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[chatID]
	delete(r.sessions, chatID)
	return s
}
