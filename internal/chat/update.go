package chat

import (
	"encoding/json"
	"errors"
)

var ErrUnknownUpdate = errors.New("chat: update is neither a message nor a callback query")

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback_query"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Update is a flattened inbound interaction event: either a plain chat
// message or a button press (callback query).
type Update struct {
	ID     int64
	Kind   UpdateKind
	ChatID int64
	From   User
	Text   string

	// Callback-only fields.
	Data            string
	CallbackQueryID string
}

type rawUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		From      User  `json:"from"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
	CallbackQuery *struct {
		ID      string `json:"id"`
		From    User   `json:"from"`
		Data    string `json:"data"`
		Message struct {
			MessageID int64 `json:"message_id"`
			Chat      struct {
				ID int64 `json:"id"`
			} `json:"chat"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"callback_query"`
}

// ParseUpdate decodes an inbound event from the updates queue. Updates of
// any other shape are reported as unknown and dropped by the caller.
func ParseUpdate(body []byte) (*Update, error) {
	var raw rawUpdate
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	switch {
	case raw.Message != nil:
		return &Update{
			ID:     raw.Message.MessageID,
			Kind:   UpdateMessage,
			ChatID: raw.Message.Chat.ID,
			From:   raw.Message.From,
			Text:   raw.Message.Text,
		}, nil
	case raw.CallbackQuery != nil:
		return &Update{
			ID:              raw.CallbackQuery.Message.MessageID,
			Kind:            UpdateCallback,
			ChatID:          raw.CallbackQuery.Message.Chat.ID,
			From:            raw.CallbackQuery.From,
			Text:            raw.CallbackQuery.Message.Text,
			Data:            raw.CallbackQuery.Data,
			CallbackQueryID: raw.CallbackQuery.ID,
		}, nil
	default:
		return nil, ErrUnknownUpdate
	}
}
