package chat

import "time"

// Senders recorded in a transcript.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message is one turn kept in a chat transcript. Content is the raw text as
// typed by the user or returned by the backend, before formatting.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
