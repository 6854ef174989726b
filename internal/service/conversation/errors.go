package conversation

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/exhaai/exha-chat/backend/internal/service/backend"
)

var (
	ErrBackendUnavailable = errors.New("backend unavailable for profile")
	ErrEmptyImagePrompt   = errors.New("empty image prompt")
)

// userMessage maps a failure to the text shown in the chat window. Details
// stay in the logs.
func userMessage(err error) string {
	var statusErr *backend.StatusError
	var netErr net.Error

	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Server error: %d", statusErr.StatusCode)
	case errors.Is(err, backend.ErrEmptyReply):
		return "No response from server."
	case errors.Is(err, backend.ErrNoChatID):
		return "No chat ID returned from server."
	case errors.Is(err, ErrEmptyImagePrompt):
		return "Describe the image after \"image:\"."
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return "The chat service took too long to answer."
	default:
		return "Could not reach the chat service."
	}
}
