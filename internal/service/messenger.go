package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/photobattle/bot/internal/chat"
	"go.uber.org/zap"
)

// Transport is the correlated request/reply primitive the messenger runs
// on. Implemented by broker.Client.
type Transport interface {
	Call(ctx context.Context, body []byte) ([]byte, error)
}

// Messenger sends dispatcher commands and keeps at most one inline keyboard
// alive per chat: when a send reply shows a fresh message, the previous
// keyboard message for that chat is deleted.
type Messenger struct {
	transport   Transport
	callTimeout time.Duration
	log         *zap.Logger

	mu         sync.Mutex
	lastInline map[int64]int64
}

func NewMessenger(transport Transport, callTimeout time.Duration, log *zap.Logger) *Messenger {
	return &Messenger{
		transport:   transport,
		callTimeout: callTimeout,
		log:         log,
		lastInline:  make(map[int64]int64),
	}
}

func (m *Messenger) call(ctx context.Context, cmd any) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	return m.transport.Call(ctx, body)
}

func (m *Messenger) Send(ctx context.Context, cmd any) error {
	reply, err := m.call(ctx, cmd)
	if err != nil {
		return err
	}

	sent, ok := chat.ParseSendReply(reply)
	if !ok {
		return nil
	}

	m.mu.Lock()
	stale, hadStale := m.lastInline[sent.ChatID]
	delete(m.lastInline, sent.ChatID)
	if sent.HasKeyboard {
		m.lastInline[sent.ChatID] = sent.MessageID
	}
	m.mu.Unlock()

	if hadStale && stale != sent.MessageID {
		if _, err := m.call(ctx, chat.NewDeleteMessage(sent.ChatID, stale)); err != nil {
			m.log.Warn("failed to delete stale keyboard", zap.Int64("chat_id", sent.ChatID), zap.Error(err))
		}
	}
	return nil
}

// FetchAvatar asks the external profile service for the user's photo
// reference. An empty string means the profile has no usable photo.
func (m *Messenger) FetchAvatar(ctx context.Context, userID int64) (string, error) {
	reply, err := m.call(ctx, chat.NewAvatarRequest(userID))
	if err != nil {
		return "", err
	}

	photo := strings.Trim(strings.TrimSpace(string(reply)), `"`)
	if photo == "null" || photo == "None" {
		photo = ""
	}
	return photo, nil
}
