package chat

import "encoding/json"

// SentMessage is the dispatcher's reply for a send that produced a chat
// message. Replies to other commands decode to ok=false.
type SentMessage struct {
	ChatID      int64
	MessageID   int64
	HasKeyboard bool
}

type sendReply struct {
	Result json.RawMessage `json:"result"`
}

type sentResult struct {
	MessageID int64 `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	ReplyMarkup json.RawMessage `json:"reply_markup"`
}

// ParseSendReply extracts the sent message's coordinates from a dispatcher
// reply, so the caller can later delete stale inline keyboards. Non-message
// replies (acks, booleans) are not an error, just not a SentMessage.
func ParseSendReply(body []byte) (SentMessage, bool) {
	var reply sendReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return SentMessage{}, false
	}

	var result sentResult
	if err := json.Unmarshal(reply.Result, &result); err != nil {
		return SentMessage{}, false
	}
	if result.Chat.ID == 0 || result.MessageID == 0 {
		return SentMessage{}, false
	}

	return SentMessage{
		ChatID:      result.Chat.ID,
		MessageID:   result.MessageID,
		HasKeyboard: len(result.ReplyMarkup) > 0,
	}, true
}
