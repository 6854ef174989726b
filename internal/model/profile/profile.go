package profile

// Backend kinds a profile can be served by.
const (
	BackendRelay = "relay"
	BackendArk   = "ark"
)

// Reply formatting modes.
const (
	FormatBasic    = "basic"
	FormatMarkdown = "markdown"
	FormatPlain    = "plain"
)

// Profile captures one chat front-end: its branding, the upstream model it
// talks to and how replies are rendered for the browser.
type Profile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TypingLabel  string `json:"typingLabel"`
	Greeting     string `json:"greeting"`
	Model        string `json:"model"`
	Backend      string `json:"backend"`
	BaseURL      string `json:"-"`                      // relay override, empty uses RELAY_BASE_URL
	Format       string `json:"format"`
	ImageCommand bool   `json:"imageCommand,omitempty"` // image:<prompt> shortcut
	Stream       bool   `json:"stream,omitempty"`
}

// Seed provides the built-in front-ends.
func Seed() []Profile {
	return []Profile{
		{
			ID:          "exha",
			Name:        "ExhaAi",
			TypingLabel: "ExhaAi is typing...",
			Greeting:    "New chat started!",
			Model:       "gpt-4o-mini",
			Backend:     BackendRelay,
			Format:      FormatBasic,
		},
		{
			ID:           "exha-blackbox",
			Name:         "ExhaAI",
			TypingLabel:  "ExhaAI is typing...",
			Greeting:     "New chat started!",
			Model:        "blackboxai",
			Backend:      BackendRelay,
			BaseURL:      "https://ai-abhinav.onrender.com/api",
			Format:       FormatMarkdown,
			ImageCommand: true,
		},
		{
			ID:          "reka",
			Name:        "Chat with AI",
			TypingLabel: "...",
			Greeting:    "New chat started!",
			Model:       "reka-core",
			Backend:     BackendRelay,
			BaseURL:     "https://ai-abhinav.onrender.com/api",
			Format:      FormatPlain,
		},
		{
			ID:           "ark",
			Name:         "ExhaAI",
			TypingLabel:  "ExhaAI is thinking...",
			Greeting:     "New chat started!",
			Backend:      BackendArk,
			Format:       FormatMarkdown,
			ImageCommand: true,
			Stream:       true,
		},
	}
}
