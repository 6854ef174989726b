package conversation

// Events pushed to the browser.
const (
	EventMessage   = "message"
	EventTyping    = "typing"
	EventError     = "error"
	EventClearChat = "clear_chat"
	EventChat      = "chat"
	EventDelta     = "delta"
)

// Message content formats.
const (
	ContentText = "text"
	ContentHTML = "html"
)

// Emitter delivers an event to one client.
type Emitter interface {
	Emit(event string, payload any) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload any) error

func (f EmitterFunc) Emit(event string, payload any) error { return f(event, payload) }

type MessagePayload struct {
	Message   string `json:"message"`
	IsUser    bool   `json:"is_user"`
	Timestamp string `json:"timestamp"`
	Format    string `json:"format"`
}

type TypingPayload struct {
	IsTyping bool   `json:"is_typing"`
	Label    string `json:"label,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type ChatPayload struct {
	ChatID string `json:"chat_id"`
}

type DeltaPayload struct {
	Content string `json:"content"`
}
