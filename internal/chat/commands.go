package chat

// Outbound commands for the message dispatcher. Each variant carries a
// message_type discriminator the dispatcher routes on; the field names are
// part of the dispatcher's wire contract.

type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type ReplyMarkup struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

type TextMessage struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ReplyMarkup *ReplyMarkup `json:"reply_markup,omitempty"`
	MessageType string       `json:"message_type"`
}

func NewTextMessage(chatID int64, text string, markup *ReplyMarkup) TextMessage {
	return TextMessage{ChatID: chatID, Text: text, ReplyMarkup: markup, MessageType: "message"}
}

type MediaItem struct {
	Type  string `json:"type"`
	Media string `json:"media"`
}

type MediaGroup struct {
	ChatID      int64       `json:"chat_id"`
	Media       []MediaItem `json:"media"`
	MessageType string      `json:"message_type"`
}

func NewPhotoPair(chatID int64, photo1, photo2 string) MediaGroup {
	return MediaGroup{
		ChatID: chatID,
		Media: []MediaItem{
			{Type: "photo", Media: photo1},
			{Type: "photo", Media: photo2},
		},
		MessageType: "messageMediaGroup",
	}
}

type Photo struct {
	ChatID      int64  `json:"chat_id"`
	Photo       string `json:"photo"`
	Caption     string `json:"caption,omitempty"`
	MessageType string `json:"message_type"`
}

func NewPhoto(chatID int64, photo, caption string) Photo {
	return Photo{ChatID: chatID, Photo: photo, Caption: caption, MessageType: "messagePhoto"}
}

type DeleteMessage struct {
	ChatID      int64  `json:"chat_id"`
	MessageID   int64  `json:"message_id"`
	MessageType string `json:"message_type"`
}

func NewDeleteMessage(chatID, messageID int64) DeleteMessage {
	return DeleteMessage{ChatID: chatID, MessageID: messageID, MessageType: "messageToDelete"}
}

type AnswerCallback struct {
	Text            string `json:"text,omitempty"`
	CallbackQueryID string `json:"callback_query_id"`
	ShowAlert       bool   `json:"show_alert"`
	MessageType     string `json:"message_type"`
}

func NewAnswerCallback(callbackQueryID, text string, showAlert bool) AnswerCallback {
	return AnswerCallback{
		Text:            text,
		CallbackQueryID: callbackQueryID,
		ShowAlert:       showAlert,
		MessageType:     "messageAnswerCallback",
	}
}

type AvatarRequest struct {
	UserID      int64  `json:"user_id"`
	MessageType string `json:"message_type"`
}

func NewAvatarRequest(userID int64) AvatarRequest {
	return AvatarRequest{UserID: userID, MessageType: "getUserAvatar"}
}
